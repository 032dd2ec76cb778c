package ovalcache

import (
	"context"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"

	"github.com/jdobes/vmaas-oval/oval"
	"github.com/jdobes/vmaas-oval/ovaldb"
)

func TestLoadBuildsIndexes(t *testing.T) {
	t.Parallel()
	st := ovaldb.OpenTest(t)
	ctx := context.Background()

	exec := func(q string) {
		t.Helper()
		if _, err := st.ExecForTest(ctx, q); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}

	exec(`INSERT INTO arch (id, name) VALUES (1, 'x86_64'), (2, 'noarch')`)
	exec(`INSERT INTO package_name (id, name) VALUES (1, 'bash'), (2, 'kernel')`)
	exec(`INSERT INTO evr (id, epoch, version, release) VALUES (1, '0', '4.2.46', '35.el7'), (2, '0', '4.2.46', '34.el7')`)
	exec(`INSERT INTO repo (id, name, basearch_id, releasever) VALUES (1, 'rhel-7-server-rpms', 1, '7Server')`)
	exec(`INSERT INTO content_set (id, name) VALUES (1, 'rhel-7-server-rpms')`)
	exec(`INSERT INTO cpe_repo (cpe_id, repo_id) VALUES (10, 1)`)
	exec(`INSERT INTO cpe_content_set (cpe_id, content_set_id) VALUES (10, 1)`)
	exec(`INSERT INTO oval_definition (id, definition_type_id, criteria_id) VALUES (100, 1, 1)`)
	exec(`INSERT INTO oval_definition_cpe (cpe_id, definition_id) VALUES (10, 100)`)
	exec(`INSERT INTO cve (id, name) VALUES (1, 'CVE-2021-1234')`)
	exec(`INSERT INTO oval_definition_cve (definition_id, cve_id) VALUES (100, 1)`)
	exec(`INSERT INTO oval_criteria (id, operator_id, definition_id) VALUES (1, 1, 100), (2, 2, 100)`)
	exec(`INSERT INTO oval_criteria_dependency (parent_criteria_id, dep_criteria_id, dep_test_id, dep_module_test_id) VALUES (1, 2, NULL, NULL)`)
	exec(`INSERT INTO oval_criteria_dependency (parent_criteria_id, dep_criteria_id, dep_test_id, dep_module_test_id) VALUES (2, NULL, 50, NULL)`)
	exec(`INSERT INTO oval_rpminfo_object (id, package_name_id) VALUES (500, 1)`)
	exec(`INSERT INTO oval_rpminfo_test (id, rpminfo_object_id, check_existence_id) VALUES (50, 500, 1)`)
	exec(`INSERT INTO oval_rpminfo_state (id, evr_id, evr_operation_id) VALUES (700, 1, 2)`)
	exec(`INSERT INTO oval_rpminfo_test_state (rpminfo_test_id, rpminfo_state_id) VALUES (50, 700)`)
	exec(`INSERT INTO oval_rpminfo_state_arch (rpminfo_state_id, arch_id) VALUES (700, 1)`)
	exec(`INSERT INTO oval_definition_test (definition_id, rpminfo_test_id) VALUES (100, 50)`)

	c, err := Load(ctx, st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := c.ArchToID["x86_64"], oval.ArchID(1); got != want {
		t.Errorf("ArchToID[x86_64] = %d, want %d", got, want)
	}
	if got, want := c.PackageNameToID["bash"], oval.PackageNameID(1); got != want {
		t.Errorf("PackageNameToID[bash] = %d, want %d", got, want)
	}

	key := RepoKey{Label: "rhel-7-server-rpms", BasearchID: 1, Releasever: "7Server"}
	if got, want := c.RepoToID[key], oval.RepoID(1); got != want {
		t.Errorf("RepoToID[%+v] = %d, want %d", key, got, want)
	}

	if diff := gocmp.Diff([]oval.CPEID{10}, c.RepoIDToCPEIDs[1]); diff != "" {
		t.Errorf("RepoIDToCPEIDs mismatch (-want +got):\n%s", diff)
	}
	if diff := gocmp.Diff([]oval.CPEID{10}, c.ContentSetIDToCPEIDs[1]); diff != "" {
		t.Errorf("ContentSetIDToCPEIDs mismatch (-want +got):\n%s", diff)
	}
	if diff := gocmp.Diff([]oval.DefinitionID{100}, c.CPEIDToDefinitionIDs[10]); diff != "" {
		t.Errorf("CPEIDToDefinitionIDs mismatch (-want +got):\n%s", diff)
	}
	if diff := gocmp.Diff([]oval.DefinitionID{100}, c.PackageNameIDToDefinitionIDs[1]); diff != "" {
		t.Errorf("PackageNameIDToDefinitionIDs mismatch (-want +got):\n%s", diff)
	}

	dd, ok := c.DefinitionDetail[100]
	if !ok {
		t.Fatalf("DefinitionDetail missing entry for 100")
	}
	if dd.Type != oval.DefinitionPatch || dd.CriteriaID != 1 {
		t.Errorf("DefinitionDetail[100] = %+v", dd)
	}
	if diff := gocmp.Diff([]string{"CVE-2021-1234"}, c.DefinitionToCVEs[100]); diff != "" {
		t.Errorf("DefinitionToCVEs mismatch (-want +got):\n%s", diff)
	}

	if c.CriteriaOperator[1] != oval.OperatorAND {
		t.Errorf("CriteriaOperator[1] = %v, want AND", c.CriteriaOperator[1])
	}
	if c.CriteriaOperator[2] != oval.OperatorOR {
		t.Errorf("CriteriaOperator[2] = %v, want OR", c.CriteriaOperator[2])
	}
	if diff := gocmp.Diff([]oval.CriteriaID{2}, c.CriteriaToChildCriteria[1]); diff != "" {
		t.Errorf("CriteriaToChildCriteria mismatch (-want +got):\n%s", diff)
	}
	if diff := gocmp.Diff([]oval.TestID{50}, c.CriteriaToTests[2]); diff != "" {
		t.Errorf("CriteriaToTests mismatch (-want +got):\n%s", diff)
	}

	td, ok := c.TestDetail[50]
	if !ok {
		t.Fatalf("TestDetail missing entry for 50")
	}
	if td.PackageNameID != 1 || td.CheckExistence != oval.CheckAtLeastOneExists {
		t.Errorf("TestDetail[50] = %+v", td)
	}

	states := c.TestToStates[50]
	if len(states) != 1 || states[0].StateID != 700 || states[0].EVRID != 1 || states[0].Operation != oval.OpLessThan {
		t.Errorf("TestToStates[50] = %+v", states)
	}

	if diff := gocmp.Diff([]oval.ArchID{1}, c.StateToArches[700]); diff != "" {
		t.Errorf("StateToArches mismatch (-want +got):\n%s", diff)
	}
}

func TestIntersectSortedDefinitionIDs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b []oval.DefinitionID
		want []oval.DefinitionID
	}{
		{"empty", nil, []oval.DefinitionID{1, 2}, nil},
		{"disjoint", []oval.DefinitionID{1, 3}, []oval.DefinitionID{2, 4}, nil},
		{"overlap", []oval.DefinitionID{1, 2, 3, 5}, []oval.DefinitionID{2, 3, 4}, []oval.DefinitionID{2, 3}},
		{"identical", []oval.DefinitionID{1, 2}, []oval.DefinitionID{1, 2}, []oval.DefinitionID{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IntersectSortedDefinitionIDs(tt.a, tt.b)
			if diff := gocmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IntersectSortedDefinitionIDs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
