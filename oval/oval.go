// Package oval holds the identifiers and enumerated codes shared by the
// evaluator's store, cache, criteria engine and HTTP layer.
//
// These mirror the normalized tables described for the upstream OVAL feed:
// every id here is an opaque integer primary key from that store. Nothing in
// this package touches a database; it only
// names the shapes the other packages pass around so ovaldb, ovalcache,
// criteria and evaluator don't have to agree on anonymous ints.
package oval

// ArchID identifies a base architecture, e.g. "x86_64" or "noarch".
type ArchID int64

// PackageNameID identifies an RPM package name, independent of version.
type PackageNameID int64

// EVRID identifies a distinct (epoch, version, release) triple.
type EVRID int64

// CPEID identifies a CPE URI.
type CPEID int64

// ContentSetID identifies a content-set label (a repository family).
type ContentSetID int64

// RepoID identifies a (content-set, basearch, releasever) repository row.
type RepoID int64

// DefinitionID identifies an OVAL definition.
type DefinitionID int64

// CriteriaID identifies a node in an OVAL criteria tree.
type CriteriaID int64

// TestID identifies an rpminfo_test.
type TestID int64

// StateID identifies an rpminfo_state.
type StateID int64

// ModuleTestID identifies a module_test.
type ModuleTestID int64

// EVROperation is the comparison an rpminfo_state asks of a candidate EVR.
type EVROperation int

const (
	_ EVROperation = iota
	// OpEquals matches an EVR that is textually identical in all three parts.
	OpEquals
	// OpLessThan matches an EVR that rpm-compares strictly less than the state's EVR.
	OpLessThan
)

// CheckExistence is the rpminfo_test existence requirement.
type CheckExistence int

const (
	_ CheckExistence = iota
	// CheckAtLeastOneExists requires the named package to exist and, if the
	// test carries states, at least one state to match.
	CheckAtLeastOneExists
	// CheckNoneExist requires the named package to be absent.
	CheckNoneExist
)

// DefinitionType distinguishes a "patch available" definition from a
// "vulnerable, unpatched" definition.
type DefinitionType int

const (
	_ DefinitionType = iota
	// DefinitionPatch means a match indicates an update exists that fixes the
	// associated CVEs.
	DefinitionPatch
	// DefinitionVulnerability means a match indicates the CVEs apply and no
	// fix is available yet.
	DefinitionVulnerability
)

// CriteriaOperator is the boolean combinator of a criteria node.
type CriteriaOperator int

const (
	_ CriteriaOperator = iota
	// OperatorAND requires every dependency to match.
	OperatorAND
	// OperatorOR requires at least one dependency to match; an OR with no
	// dependencies never matches.
	OperatorOR
)

// EVR is an (epoch, version, release) triple. Epoch is "0" when the source
// string omitted one.
type EVR struct {
	Epoch   string
	Version string
	Release string
}
