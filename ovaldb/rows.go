package ovaldb

// This file names the row shapes returned by [Store]'s per-table fetch
// methods. They're intentionally flat and column-for-column: ovalcache
// builds its indexes directly off these, so there's no reason to hide the
// underlying table layout behind anything richer.

// ArchRow is one row of the arch table.
type ArchRow struct {
	ID   int64
	Name string
}

// PackageNameRow is one row of the package_name table.
type PackageNameRow struct {
	ID   int64
	Name string
}

// EVRRow is one row of the evr table.
type EVRRow struct {
	ID      int64
	Epoch   string
	Version string
	Release string
}

// RepoRow is one row of the repo table. BasearchID and Releasever are nil
// when the column is NULL.
type RepoRow struct {
	ID         int64
	Label      string
	BasearchID *int64
	Releasever *string
}

// ContentSetRow is one row of the content_set table.
type ContentSetRow struct {
	ID   int64
	Name string
}

// CPERepoRow is one row of the cpe_repo join table.
type CPERepoRow struct {
	CPEID int64
	RepoID int64
}

// CPEContentSetRow is one row of the cpe_content_set join table.
type CPEContentSetRow struct {
	CPEID        int64
	ContentSetID int64
}

// DefinitionCPERow is one row of the oval_definition_cpe join table.
type DefinitionCPERow struct {
	CPEID        int64
	DefinitionID int64
}

// PackageNameDefinitionRow associates a package name with a definition that
// mentions it somewhere in its rpminfo tests.
type PackageNameDefinitionRow struct {
	PackageNameID int64
	DefinitionID  int64
}

// DefinitionRow is one row of the oval_definition table.
type DefinitionRow struct {
	ID               int64
	DefinitionTypeID int64
	CriteriaID       int64
}

// DefinitionCVERow associates a definition with one of its CVE names.
type DefinitionCVERow struct {
	DefinitionID int64
	CVE          string
}

// CriteriaRow is one row of the oval_criteria table.
type CriteriaRow struct {
	ID         int64
	OperatorID int64
}

// CriteriaDependencyRow is one row of the oval_criteria_dependency table.
// Exactly one of DepCriteriaID, DepTestID, DepModuleTestID is non-nil.
type CriteriaDependencyRow struct {
	ParentCriteriaID int64
	DepCriteriaID    *int64
	DepTestID        *int64
	DepModuleTestID  *int64
}

// RpminfoTestRow is the join of oval_rpminfo_test with its object.
type RpminfoTestRow struct {
	ID               int64
	PackageNameID    int64
	CheckExistenceID int64
}

// RpminfoTestStateRow is the join of oval_rpminfo_test_state with its state,
// restricted to states that carry both an EVR and an EVR operation.
type RpminfoTestStateRow struct {
	TestID       int64
	StateID      int64
	EVRID        int64
	EVROperation int64
}

// ModuleTestRow is one row of the oval_module_test table.
type ModuleTestRow struct {
	ID           int64
	ModuleStream string
}

// RpminfoStateArchRow is one row of the oval_rpminfo_state_arch table.
type RpminfoStateArchRow struct {
	StateID int64
	ArchID  int64
}
