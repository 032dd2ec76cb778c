// Package ovalcache builds the evaluator's read-only, in-memory working
// set from an [ovaldb.Store].
//
// Everything here is loaded once at process startup and never mutated
// again; the criteria engine and evaluator only ever read from a [Cache] by
// reference, which is what lets request handling run with no locking.
package ovalcache

import (
	"context"
	"fmt"
	"sort"

	"github.com/jdobes/vmaas-oval/oval"
	"github.com/jdobes/vmaas-oval/ovaldb"
)

// RepoKey identifies a repository by (content-set label, basearch, release
// version). A nil BasearchID or Releasever in the source data is encoded as
// the zero value here, since map keys must be comparable by value and
// pointers aren't; ids are always >= 1 and a releasever is never the empty
// string in practice.
type RepoKey struct {
	Label      string
	BasearchID oval.ArchID // 0 means "no basearch constraint"
	Releasever string      // "" means "no releasever constraint"
}

// TestState is one (state, EVR, operation) triple attached to a test, kept
// in the order it was loaded so "at least one" short-circuits on the first
// match deterministically.
type TestState struct {
	StateID   oval.StateID
	EVRID     oval.EVRID
	Operation oval.EVROperation
}

// TestDetail is the package and existence-check an rpminfo test was built
// against.
type TestDetail struct {
	PackageNameID  oval.PackageNameID
	CheckExistence oval.CheckExistence
}

// DefinitionDetail is a definition's type and the root of its criteria tree.
type DefinitionDetail struct {
	Type       oval.DefinitionType
	CriteriaID oval.CriteriaID
}

// Cache is the complete set of indexes the criteria engine and evaluator
// need. All fields are immutable after [Load] returns; nothing in this
// package or its callers may write to a Cache's maps or slices afterward.
type Cache struct {
	ArchToID map[string]oval.ArchID
	IDToArch map[oval.ArchID]string

	PackageNameToID map[string]oval.PackageNameID

	IDToEVR map[oval.EVRID]oval.EVR

	RepoToID             map[RepoKey]oval.RepoID
	ContentSetLabelToID  map[string]oval.ContentSetID
	RepoIDToCPEIDs       map[oval.RepoID][]oval.CPEID
	ContentSetIDToCPEIDs map[oval.ContentSetID][]oval.CPEID
	CPEIDToDefinitionIDs map[oval.CPEID][]oval.DefinitionID

	// PackageNameIDToDefinitionIDs is sorted ascending per package, so the
	// evaluator can intersect it against candidate definitions (also kept
	// sorted) with a linear merge instead of hash lookups.
	PackageNameIDToDefinitionIDs map[oval.PackageNameID][]oval.DefinitionID

	DefinitionDetail map[oval.DefinitionID]DefinitionDetail
	DefinitionToCVEs map[oval.DefinitionID][]string

	CriteriaOperator        map[oval.CriteriaID]oval.CriteriaOperator
	CriteriaToChildCriteria map[oval.CriteriaID][]oval.CriteriaID
	CriteriaToTests         map[oval.CriteriaID][]oval.TestID
	CriteriaToModuleTests   map[oval.CriteriaID][]oval.ModuleTestID

	TestDetail   map[oval.TestID]TestDetail
	TestToStates map[oval.TestID][]TestState

	ModuleTestStream map[oval.ModuleTestID]string

	StateToArches map[oval.StateID][]oval.ArchID
}

// Load reads every table the evaluator needs out of store and builds a
// fully-populated Cache. It is meant to run once, synchronously, before a
// server starts accepting requests: the store is not touched again
// afterward.
func Load(ctx context.Context, store *ovaldb.Store) (*Cache, error) {
	c := &Cache{
		ArchToID:                     make(map[string]oval.ArchID),
		IDToArch:                     make(map[oval.ArchID]string),
		PackageNameToID:              make(map[string]oval.PackageNameID),
		IDToEVR:                      make(map[oval.EVRID]oval.EVR),
		RepoToID:                     make(map[RepoKey]oval.RepoID),
		ContentSetLabelToID:          make(map[string]oval.ContentSetID),
		RepoIDToCPEIDs:               make(map[oval.RepoID][]oval.CPEID),
		ContentSetIDToCPEIDs:         make(map[oval.ContentSetID][]oval.CPEID),
		CPEIDToDefinitionIDs:         make(map[oval.CPEID][]oval.DefinitionID),
		PackageNameIDToDefinitionIDs: make(map[oval.PackageNameID][]oval.DefinitionID),
		DefinitionDetail:             make(map[oval.DefinitionID]DefinitionDetail),
		DefinitionToCVEs:             make(map[oval.DefinitionID][]string),
		CriteriaOperator:             make(map[oval.CriteriaID]oval.CriteriaOperator),
		CriteriaToChildCriteria:      make(map[oval.CriteriaID][]oval.CriteriaID),
		CriteriaToTests:              make(map[oval.CriteriaID][]oval.TestID),
		CriteriaToModuleTests:        make(map[oval.CriteriaID][]oval.ModuleTestID),
		TestDetail:                   make(map[oval.TestID]TestDetail),
		TestToStates:                 make(map[oval.TestID][]TestState),
		ModuleTestStream:             make(map[oval.ModuleTestID]string),
		StateToArches:                make(map[oval.StateID][]oval.ArchID),
	}

	arches, err := store.Architectures(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load arch: %w", err)
	}
	for _, a := range arches {
		id := oval.ArchID(a.ID)
		c.ArchToID[a.Name] = id
		c.IDToArch[id] = a.Name
	}

	names, err := store.PackageNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load package_name: %w", err)
	}
	for _, n := range names {
		c.PackageNameToID[n.Name] = oval.PackageNameID(n.ID)
	}

	evrs, err := store.EVRs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load evr: %w", err)
	}
	for _, e := range evrs {
		c.IDToEVR[oval.EVRID(e.ID)] = oval.EVR{Epoch: e.Epoch, Version: e.Version, Release: e.Release}
	}

	repos, err := store.Repos(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load repo: %w", err)
	}
	for _, r := range repos {
		key := RepoKey{Label: r.Label}
		if r.BasearchID != nil {
			key.BasearchID = oval.ArchID(*r.BasearchID)
		}
		if r.Releasever != nil {
			key.Releasever = *r.Releasever
		}
		c.RepoToID[key] = oval.RepoID(r.ID)
	}

	contentSets, err := store.ContentSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load content_set: %w", err)
	}
	for _, cs := range contentSets {
		c.ContentSetLabelToID[cs.Name] = oval.ContentSetID(cs.ID)
	}

	cpeRepos, err := store.CPERepos(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load cpe_repo: %w", err)
	}
	for _, cr := range cpeRepos {
		rid := oval.RepoID(cr.RepoID)
		c.RepoIDToCPEIDs[rid] = append(c.RepoIDToCPEIDs[rid], oval.CPEID(cr.CPEID))
	}
	sortAllCPEID(c.RepoIDToCPEIDs)

	cpeContentSets, err := store.CPEContentSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load cpe_content_set: %w", err)
	}
	for _, cc := range cpeContentSets {
		csid := oval.ContentSetID(cc.ContentSetID)
		c.ContentSetIDToCPEIDs[csid] = append(c.ContentSetIDToCPEIDs[csid], oval.CPEID(cc.CPEID))
	}
	sortAllCPEID(c.ContentSetIDToCPEIDs)

	defCPEs, err := store.DefinitionCPEs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_definition_cpe: %w", err)
	}
	for _, d := range defCPEs {
		cid := oval.CPEID(d.CPEID)
		c.CPEIDToDefinitionIDs[cid] = append(c.CPEIDToDefinitionIDs[cid], oval.DefinitionID(d.DefinitionID))
	}
	sortAllDefinitionID(c.CPEIDToDefinitionIDs)

	pkgDefs, err := store.PackageNameDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load packagename_definition: %w", err)
	}
	for _, p := range pkgDefs {
		pid := oval.PackageNameID(p.PackageNameID)
		c.PackageNameIDToDefinitionIDs[pid] = append(c.PackageNameIDToDefinitionIDs[pid], oval.DefinitionID(p.DefinitionID))
	}
	sortAllDefinitionID(c.PackageNameIDToDefinitionIDs)

	defs, err := store.Definitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_definition: %w", err)
	}
	for _, d := range defs {
		c.DefinitionDetail[oval.DefinitionID(d.ID)] = DefinitionDetail{
			Type:       oval.DefinitionType(d.DefinitionTypeID),
			CriteriaID: oval.CriteriaID(d.CriteriaID),
		}
	}

	defCVEs, err := store.DefinitionCVEs(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_definition_cve: %w", err)
	}
	for _, d := range defCVEs {
		did := oval.DefinitionID(d.DefinitionID)
		c.DefinitionToCVEs[did] = append(c.DefinitionToCVEs[did], d.CVE)
	}

	criteria, err := store.Criteria(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_criteria: %w", err)
	}
	for _, cr := range criteria {
		c.CriteriaOperator[oval.CriteriaID(cr.ID)] = oval.CriteriaOperator(cr.OperatorID)
	}

	deps, err := store.CriteriaDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_criteria_dependency: %w", err)
	}
	for _, d := range deps {
		parent := oval.CriteriaID(d.ParentCriteriaID)
		switch {
		case d.DepTestID == nil && d.DepModuleTestID == nil && d.DepCriteriaID != nil:
			c.CriteriaToChildCriteria[parent] = append(c.CriteriaToChildCriteria[parent], oval.CriteriaID(*d.DepCriteriaID))
		case d.DepCriteriaID == nil && d.DepModuleTestID == nil && d.DepTestID != nil:
			c.CriteriaToTests[parent] = append(c.CriteriaToTests[parent], oval.TestID(*d.DepTestID))
		case d.DepCriteriaID == nil && d.DepTestID == nil && d.DepModuleTestID != nil:
			c.CriteriaToModuleTests[parent] = append(c.CriteriaToModuleTests[parent], oval.ModuleTestID(*d.DepModuleTestID))
		default:
			return nil, fmt.Errorf("ovalcache: criteria_dependency for parent %d names zero or more than one dependency kind", parent)
		}
	}

	tests, err := store.RpminfoTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_rpminfo_test: %w", err)
	}
	for _, t := range tests {
		c.TestDetail[oval.TestID(t.ID)] = TestDetail{
			PackageNameID:  oval.PackageNameID(t.PackageNameID),
			CheckExistence: oval.CheckExistence(t.CheckExistenceID),
		}
	}

	testStates, err := store.RpminfoTestStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_rpminfo_test_state: %w", err)
	}
	for _, ts := range testStates {
		tid := oval.TestID(ts.TestID)
		c.TestToStates[tid] = append(c.TestToStates[tid], TestState{
			StateID:   oval.StateID(ts.StateID),
			EVRID:     oval.EVRID(ts.EVRID),
			Operation: oval.EVROperation(ts.EVROperation),
		})
	}

	moduleTests, err := store.ModuleTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_module_test: %w", err)
	}
	for _, mt := range moduleTests {
		c.ModuleTestStream[oval.ModuleTestID(mt.ID)] = mt.ModuleStream
	}

	stateArches, err := store.RpminfoStateArches(ctx)
	if err != nil {
		return nil, fmt.Errorf("ovalcache: load oval_rpminfo_state_arch: %w", err)
	}
	for _, sa := range stateArches {
		sid := oval.StateID(sa.StateID)
		c.StateToArches[sid] = append(c.StateToArches[sid], oval.ArchID(sa.ArchID))
	}
	sortAllArchID(c.StateToArches)

	return c, nil
}

func sortAllCPEID[K comparable](m map[K][]oval.CPEID) {
	for _, v := range m {
		sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
	}
}

func sortAllDefinitionID[K comparable](m map[K][]oval.DefinitionID) {
	for _, v := range m {
		sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
	}
}

func sortAllArchID[K comparable](m map[K][]oval.ArchID) {
	for _, v := range m {
		sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
	}
}

// IntersectSortedDefinitionIDs returns the intersection of two ascending,
// duplicate-free DefinitionID slices via a linear merge. Both inputs coming
// out of [Cache] are already sorted this way, which keeps the evaluator's
// hot path (per-package candidate-definition intersection) out of hash maps
// entirely.
func IntersectSortedDefinitionIDs(a, b []oval.DefinitionID) []oval.DefinitionID {
	var out []oval.DefinitionID
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
