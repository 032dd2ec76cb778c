// Package rpmver implements RPM name and version parsing and the
// version-comparison order RPM itself uses.
//
// The comparison here is not lexicographic on the raw string: RPM segments a
// version into alternating runs of digits and letters and compares those
// runs pairwise, with "~" and "^" as special pre-release/post-release
// markers. [ToArray] produces the comparable decomposition; [Less] and
// [Compare] work on top of it.
package rpmver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedNevra is returned by [ParseNEVRA] when the input cannot be
// split into name, epoch, version, release and architecture.
var ErrMalformedNevra = errors.New("rpmver: malformed NEVRA")

// ErrMalformedEvr is returned by [ParseEVR] when the input has no "-"
// separating version from release.
var ErrMalformedEvr = errors.New("rpmver: malformed EVR")

// NEVRA is a parsed name-epoch-version-release-architecture tuple.
//
// Epoch is never empty; it is "0" when the source string omitted one.
type NEVRA struct {
	Name    string
	Epoch   string
	Version string
	Release string
	Arch    string
}

// EVR returns the epoch, version and release as a triple.
func (n NEVRA) EVR() EVR {
	return EVR{Epoch: n.Epoch, Version: n.Version, Release: n.Release}
}

// EVR is an epoch-version-release triple. Epoch is never empty; it is "0"
// when the source string omitted one.
type EVR struct {
	Epoch   string
	Version string
	Release string
}

// Architectures is the set of architecture tags recognized at the end of an
// RPM filename. There's no principled way to tell an arch tag apart from
// another dash-free version segment, so, like the packaging tools, we just
// keep a list.
var architectures = map[string]struct{}{
	"aarch64": {},
	"i686":    {},
	"noarch":  {},
	"ppc64le": {},
	"riscv":   {},
	"s390x":   {},
	"src":     {},
	"x86_64":  {},
}

// ParseNEVRA parses an RPM filename, with or without a trailing ".rpm", into
// its component parts.
//
// The epoch may be written before the name ("E:N-V-R.A") or between the name
// and version ("N-E:V-R.A"), but not both; a missing epoch defaults to "0".
func ParseNEVRA(s string) (NEVRA, error) {
	orig := s
	s = strings.TrimSuffix(s, ".rpm")

	n := NEVRA{Epoch: "0"}

	// Epoch written before the name: "E:N-V-R.A". Only applies if the colon
	// precedes the first hyphen; otherwise it's either absent or embedded
	// between name and version, handled below.
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if j := strings.IndexByte(s, '-'); j == -1 || i < j {
			e := s[:i]
			if e == "" || !isAllDigits(e) {
				return NEVRA{}, fmt.Errorf("%w: %s: malformed epoch", ErrMalformedNevra, orig)
			}
			n.Epoch = e
			s = s[i+1:]
		}
	}

	idx := strings.LastIndexByte(s, '.')
	if idx == -1 {
		return NEVRA{}, fmt.Errorf("%w: %s: missing architecture", ErrMalformedNevra, orig)
	}
	arch := s[idx+1:]
	if _, ok := architectures[arch]; !ok {
		return NEVRA{}, fmt.Errorf("%w: %s: unrecognized architecture %q", ErrMalformedNevra, orig, arch)
	}
	n.Arch = arch
	s = s[:idx]

	if strings.Count(s, "-") < 2 {
		return NEVRA{}, fmt.Errorf("%w: %s: missing separators", ErrMalformedNevra, orig)
	}
	i := strings.LastIndexByte(s, '-')
	release, rest := s[i+1:], s[:i]
	j := strings.LastIndexByte(rest, '-')
	name, verPart := rest[:j], rest[j+1:]

	n.Name = name
	n.Release = release
	n.Version = verPart
	if e, v, ok := strings.Cut(verPart, ":"); ok {
		if n.Epoch != "0" {
			return NEVRA{}, fmt.Errorf("%w: %s: epoch given twice", ErrMalformedNevra, orig)
		}
		if e == "" {
			return NEVRA{}, fmt.Errorf("%w: %s: malformed epoch", ErrMalformedNevra, orig)
		}
		n.Epoch = e
		n.Version = v
	}

	return n, nil
}

// ParseEVR parses a "[E:]V-R" string into an epoch-version-release triple.
// Epoch defaults to "0" when omitted.
func ParseEVR(s string) (EVR, error) {
	orig := s
	epoch := "0"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if e := s[:i]; e != "" {
			epoch = e
		}
		s = s[i+1:]
	}
	ver, rel, ok := strings.Cut(s, "-")
	if !ok {
		return EVR{}, fmt.Errorf("%w: %s: missing \"-\"", ErrMalformedEvr, orig)
	}
	return EVR{Epoch: epoch, Version: ver, Release: rel}, nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Segment is one comparable unit of a decomposed RPM version string: either
// a numeric run, an alphabetic run, or one of the sentinel values used for
// "~" and "^".
type Segment struct {
	N int
	W string
}

// Sentinel N values. A real numeric segment is always >= 0; letters use 0
// with a non-empty W.
const (
	segTilde      = -3 // sorts below everything else, including the end of string.
	segCaret      = -1 // sorts between "absent" and a normal segment.
	segTerminator = -2 // appended so a prefix of a longer string compares less.
)

var segmentRE = regexp.MustCompile(`(~*)([A-Za-z]+|[0-9]+)(\^*)`)

// ToArray decomposes an RPM version string into a sequence of [Segment]
// values such that lexicographic comparison of the sequences reproduces
// RPM's version ordering: "1.10" sorts after "1.9"; "1.0~rc1" sorts before
// "1.0"; "1.0^git" sorts after "1.0".
func ToArray(s string) []Segment {
	matches := segmentRE.FindAllStringSubmatch(s, -1)
	arr := make([]Segment, 0, len(matches)+1)
	for _, m := range matches {
		tilde, tok, caret := m[1], m[2], m[3]
		var seg Segment
		switch {
		case tilde != "":
			seg = Segment{N: segTilde}
		case tok[0] >= '0' && tok[0] <= '9':
			v, err := strconv.Atoi(tok)
			if err != nil {
				// Can't happen: the regexp only captures digit runs here, but
				// an absurdly long run could overflow. Treat it as maximal.
				v = int(^uint(0) >> 1)
			}
			seg = Segment{N: v}
		default:
			seg = Segment{W: tok}
		}
		arr = append(arr, seg)
		if caret != "" {
			arr = append(arr, Segment{N: segCaret})
		}
	}
	arr = append(arr, Segment{N: segTerminator})
	return arr
}

// Compare returns -1, 0 or 1 as the decomposition a is less than, equal to,
// or greater than b, comparing pairwise by (N, W).
func Compare(a, b []Segment) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareSegment(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func compareSegment(a, b Segment) int {
	switch {
	case a.N < b.N:
		return -1
	case a.N > b.N:
		return 1
	}
	return strings.Compare(a.W, b.W)
}

// Less reports whether version string a sorts before version string b under
// RPM version ordering.
func Less(a, b string) bool {
	return Compare(ToArray(a), ToArray(b)) < 0
}

// CompareEVR compares two EVR triples component-wise: epoch first, then
// version, then release, each independently decomposed with [ToArray].
// This is deliberately not a comparison of one concatenated array; epoch,
// version and release never compare across a boundary.
func CompareEVR(a, b EVR) int {
	if c := Compare(ToArray(a.Epoch), ToArray(b.Epoch)); c != 0 {
		return c
	}
	if c := Compare(ToArray(a.Version), ToArray(b.Version)); c != 0 {
		return c
	}
	return Compare(ToArray(a.Release), ToArray(b.Release))
}

// LessEVR reports whether a sorts strictly before b under [CompareEVR].
func LessEVR(a, b EVR) bool {
	return CompareEVR(a, b) < 0
}
