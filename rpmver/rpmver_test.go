package rpmver

import (
	"errors"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"
)

func TestParseNEVRA(t *testing.T) {
	t.Parallel()
	tt := []struct {
		name string
		in   string
		want NEVRA
		err  error
	}{
		{
			name: "plain",
			in:   "bash-4.2.46-34.el7.x86_64",
			want: NEVRA{Name: "bash", Epoch: "0", Version: "4.2.46", Release: "34.el7", Arch: "x86_64"},
		},
		{
			name: "dotted rpm suffix",
			in:   "bash-4.2.46-34.el7.x86_64.rpm",
			want: NEVRA{Name: "bash", Epoch: "0", Version: "4.2.46", Release: "34.el7", Arch: "x86_64"},
		},
		{
			name: "dashed name",
			in:   "389-ds-base-1.4.0-1.el8.x86_64",
			want: NEVRA{Name: "389-ds-base", Epoch: "0", Version: "1.4.0", Release: "1.el8", Arch: "x86_64"},
		},
		{
			name: "epoch before name",
			in:   "1:bash-4.2.46-34.el7.x86_64",
			want: NEVRA{Name: "bash", Epoch: "1", Version: "4.2.46", Release: "34.el7", Arch: "x86_64"},
		},
		{
			name: "epoch between name and version",
			in:   "bash-1:4.2.46-34.el7.x86_64",
			want: NEVRA{Name: "bash", Epoch: "1", Version: "4.2.46", Release: "34.el7", Arch: "x86_64"},
		},
		{
			name: "noarch",
			in:   "filesystem-3.2-25.el7.noarch",
			want: NEVRA{Name: "filesystem", Epoch: "0", Version: "3.2", Release: "25.el7", Arch: "noarch"},
		},
		{
			name: "missing arch",
			in:   "bash-4.2.46-34.el7",
			err:  ErrMalformedNevra,
		},
		{
			name: "missing separators",
			in:   "bash.x86_64",
			err:  ErrMalformedNevra,
		},
		{
			name: "double epoch",
			in:   "1:bash-1:4.2.46-34.el7.x86_64",
			err:  ErrMalformedNevra,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseNEVRA(tc.in)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("got error %v, want %v", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := gocmp.Diff(tc.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestNEVRARoundTrip checks property 1 from the evaluator's testable
// properties: reconstructing "name-epoch:version-release.arch" (epoch
// elided when "0") and reparsing must produce the same tuple.
func TestNEVRARoundTrip(t *testing.T) {
	t.Parallel()
	in := []string{
		"bash-4.2.46-34.el7.x86_64",
		"389-ds-base-1.4.0-1.el8.x86_64",
		"bash-1:4.2.46-34.el7.x86_64",
		"filesystem-3.2-25.el7.noarch",
	}
	for _, s := range in {
		t.Run(s, func(t *testing.T) {
			t.Parallel()
			n, err := ParseNEVRA(s)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			var rebuilt string
			if n.Epoch == "0" {
				rebuilt = n.Name + "-" + n.Version + "-" + n.Release + "." + n.Arch
			} else {
				rebuilt = n.Name + "-" + n.Epoch + ":" + n.Version + "-" + n.Release + "." + n.Arch
			}
			again, err := ParseNEVRA(rebuilt)
			if err != nil {
				t.Fatalf("reparse %q: %v", rebuilt, err)
			}
			if diff := gocmp.Diff(n, again); diff != "" {
				t.Errorf("round-trip mismatch (-first +second):\n%s", diff)
			}
		})
	}
}

func TestParseEVR(t *testing.T) {
	t.Parallel()
	tt := []struct {
		in   string
		want EVR
		err  error
	}{
		{in: "4.2.46-34.el7", want: EVR{Epoch: "0", Version: "4.2.46", Release: "34.el7"}},
		{in: "1:4.2.46-34.el7", want: EVR{Epoch: "1", Version: "4.2.46", Release: "34.el7"}},
		{in: "4.2.46", err: ErrMalformedEvr},
	}
	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEVR(tc.in)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("got error %v, want %v", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := gocmp.Diff(tc.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToArrayOrdering(t *testing.T) {
	t.Parallel()
	// Property 3: tilde sorts below, caret sorts above.
	if !Less("1.0~rc1", "1.0") {
		t.Error("1.0~rc1 should sort before 1.0")
	}
	if !Less("1.0", "1.0^git") {
		t.Error("1.0 should sort before 1.0^git")
	}
	if !Less("1.9", "1.10") {
		t.Error("1.9 should sort before 1.10")
	}
	if Less("1.0", "1.0") {
		t.Error("1.0 should not sort before itself")
	}
}

// TestToArrayStrictTotalOrder checks property 2: irreflexive, antisymmetric,
// transitive over a handful of representative triples.
func TestToArrayStrictTotalOrder(t *testing.T) {
	t.Parallel()
	vers := []string{"1.0~rc1", "1.0~rc2", "1.0", "1.0.1", "1.0^git", "1.1", "2", "1a", "1.a"}
	for _, a := range vers {
		if Less(a, a) {
			t.Errorf("Less(%q, %q) should be false (irreflexive)", a, a)
		}
	}
	for _, a := range vers {
		for _, b := range vers {
			if a == b {
				continue
			}
			if Less(a, b) && Less(b, a) {
				t.Errorf("Less(%q,%q) and Less(%q,%q) both true (antisymmetry violated)", a, b, b, a)
			}
		}
	}
	for _, a := range vers {
		for _, b := range vers {
			for _, c := range vers {
				if Less(a, b) && Less(b, c) && !Less(a, c) {
					t.Errorf("transitivity violated: %q < %q < %q but not %q < %q", a, b, c, a, c)
				}
			}
		}
	}
}

func TestCompareEVRComponentWise(t *testing.T) {
	t.Parallel()
	// A higher epoch always wins, regardless of version/release.
	a := EVR{Epoch: "1", Version: "1.0", Release: "1"}
	b := EVR{Epoch: "0", Version: "99.0", Release: "99"}
	if CompareEVR(a, b) <= 0 {
		t.Error("epoch 1 should outrank epoch 0 regardless of version/release")
	}
	// Equal epoch and version falls through to release.
	c := EVR{Epoch: "0", Version: "1.0", Release: "1"}
	d := EVR{Epoch: "0", Version: "1.0", Release: "2"}
	if !LessEVR(c, d) {
		t.Error("release should decide when epoch and version are equal")
	}
}
