package criteria

import (
	"testing"

	"github.com/jdobes/vmaas-oval/oval"
	"github.com/jdobes/vmaas-oval/ovalcache"
	"github.com/jdobes/vmaas-oval/rpmver"
)

func testCache() *ovalcache.Cache {
	return &ovalcache.Cache{
		ArchToID: map[string]oval.ArchID{"x86_64": 1, "noarch": 2},
		IDToEVR: map[oval.EVRID]oval.EVR{
			1: {Epoch: "0", Version: "4.2.46", Release: "35.el7"},
		},
		CriteriaOperator: map[oval.CriteriaID]oval.CriteriaOperator{
			1: oval.OperatorAND,
			2: oval.OperatorOR,
			3: oval.OperatorAND,
			4: oval.OperatorOR,  // no deps at all
			5: oval.OperatorAND, // no deps at all
		},
		CriteriaToChildCriteria: map[oval.CriteriaID][]oval.CriteriaID{
			1: {2},
		},
		CriteriaToTests: map[oval.CriteriaID][]oval.TestID{
			1: {10},
			2: {11, 12},
		},
		CriteriaToModuleTests: map[oval.CriteriaID][]oval.ModuleTestID{},
		TestDetail: map[oval.TestID]ovalcache.TestDetail{
			10: {PackageNameID: 100, CheckExistence: oval.CheckAtLeastOneExists},
			11: {PackageNameID: 100, CheckExistence: oval.CheckAtLeastOneExists},
			12: {PackageNameID: 999, CheckExistence: oval.CheckNoneExist},
			13: {PackageNameID: 100, CheckExistence: oval.CheckAtLeastOneExists},
		},
		TestToStates: map[oval.TestID][]ovalcache.TestState{
			10: {{StateID: 500, EVRID: 1, Operation: oval.OpLessThan}},
			13: {{StateID: 501, EVRID: 1, Operation: oval.OpLessThan}},
		},
		StateToArches: map[oval.StateID][]oval.ArchID{
			501: {1}, // x86_64 only
		},
		ModuleTestStream: map[oval.ModuleTestID]string{1: "postgresql:12"},
	}
}

func TestEvaluateState(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	candidate := NEVRA{PackageNameID: 100, EVR: rpmver.EVR{Epoch: "0", Version: "4.2.46", Release: "30.el7"}, Arch: "x86_64"}
	matched, err := e.EvaluateState(500, ovalcache.TestState{StateID: 500, EVRID: 1, Operation: oval.OpLessThan}, candidate)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Errorf("expected 30.el7 < 35.el7 to match")
	}

	candidate.EVR.Release = "40.el7"
	matched, err = e.EvaluateState(500, ovalcache.TestState{StateID: 500, EVRID: 1, Operation: oval.OpLessThan}, candidate)
	if err != nil {
		t.Fatal(err)
	}
	if matched {
		t.Errorf("expected 40.el7 < 35.el7 to not match")
	}
}

func TestEvaluateTestAtLeastOneExists(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	// Matching name, older version than state: should match.
	ok, err := e.EvaluateTest(10, NEVRA{PackageNameID: 100, EVR: rpmver.EVR{Epoch: "0", Version: "4.2.46", Release: "1.el7"}, Arch: "x86_64"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("expected test 10 to match")
	}

	// Wrong package name: should not match.
	ok, err = e.EvaluateTest(10, NEVRA{PackageNameID: 200, EVR: rpmver.EVR{Epoch: "0", Version: "4.2.46", Release: "1.el7"}, Arch: "x86_64"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("expected test 10 to not match a different package name")
	}
}

func TestEvaluateTestCheckNoneExist(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	// Package name id 100 != 999 (the test's target), so "none exist" holds.
	ok, err := e.EvaluateTest(12, NEVRA{PackageNameID: 100, EVR: rpmver.EVR{Epoch: "0", Version: "1", Release: "1"}, Arch: "x86_64"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("expected check-none-exist test to match when package absent")
	}

	ok, err = e.EvaluateTest(12, NEVRA{PackageNameID: 999, EVR: rpmver.EVR{Epoch: "0", Version: "1", Release: "1"}, Arch: "x86_64"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("expected check-none-exist test to fail when package present")
	}
}

func TestEvaluateCriteriaANDRequiresAll(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	candidate := NEVRA{PackageNameID: 100, EVR: rpmver.EVR{Epoch: "0", Version: "4.2.46", Release: "1.el7"}, Arch: "x86_64"}
	ok, err := e.EvaluateCriteria(1, candidate, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("expected criteria 1 to match: test 10 matches, and child criteria 2 (OR of test 11 matching or test 12 matching) matches via test 11")
	}
}

func TestEvaluateCriteriaORShortCircuits(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	candidate := NEVRA{PackageNameID: 500, EVR: rpmver.EVR{Epoch: "0", Version: "1", Release: "1"}, Arch: "x86_64"}
	ok, err := e.EvaluateCriteria(2, candidate, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("expected OR criteria 2 to match via test 12 (check-none-exist, package 999 absent) even though test 11 (package 100) fails")
	}
}

func TestEvaluateCriteriaDetectsCycle(t *testing.T) {
	t.Parallel()
	c := testCache()
	c.CriteriaOperator[3] = oval.OperatorAND
	c.CriteriaToChildCriteria[3] = []oval.CriteriaID{3}
	e := New(c)

	_, err := e.EvaluateCriteria(3, NEVRA{}, nil)
	if err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestEvaluateStateArchMismatch(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	state := ovalcache.TestState{StateID: 501, EVRID: 1, Operation: oval.OpLessThan}
	candidate := NEVRA{PackageNameID: 100, EVR: rpmver.EVR{Epoch: "0", Version: "4.2.46", Release: "1.el7"}, Arch: "noarch"}
	matched, err := e.EvaluateState(501, state, candidate)
	if err != nil {
		t.Fatal(err)
	}
	if matched {
		t.Errorf("expected state 501 (constrained to x86_64) to not match a noarch candidate despite the EVR comparison holding")
	}

	candidate.Arch = "x86_64"
	matched, err = e.EvaluateState(501, state, candidate)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Errorf("expected state 501 to match an x86_64 candidate with an older EVR")
	}
}

func TestEvaluateCriteriaORWithNoDepsIsFalse(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	ok, err := e.EvaluateCriteria(4, NEVRA{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("expected OR criteria with zero dependencies to never match")
	}
}

func TestEvaluateCriteriaANDWithNoDepsIsTrue(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	ok, err := e.EvaluateCriteria(5, NEVRA{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("expected AND criteria with zero dependencies to vacuously match")
	}
}

func TestEvaluateModuleTest(t *testing.T) {
	t.Parallel()
	e := New(testCache())

	enabled := map[string]struct{}{"postgresql:12": {}}
	if !e.EvaluateModuleTest(1, enabled) {
		t.Errorf("expected module test 1 to match enabled stream")
	}
	if e.EvaluateModuleTest(1, map[string]struct{}{"postgresql:13": {}}) {
		t.Errorf("expected module test 1 to not match a different stream")
	}
}
