package vulnapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jdobes/vmaas-oval/evaluator"
	"github.com/jdobes/vmaas-oval/oval"
	"github.com/jdobes/vmaas-oval/ovalcache"
)

func testService() *evaluator.Service {
	c := &ovalcache.Cache{
		PackageNameToID: map[string]oval.PackageNameID{"bash": 1},
		IDToEVR: map[oval.EVRID]oval.EVR{
			1: {Epoch: "0", Version: "4.2.46", Release: "35.el7"},
		},
		RepoToID:             map[ovalcache.RepoKey]oval.RepoID{},
		ContentSetLabelToID:  map[string]oval.ContentSetID{"rhel-7-server-rpms": 1},
		RepoIDToCPEIDs:       map[oval.RepoID][]oval.CPEID{},
		ContentSetIDToCPEIDs: map[oval.ContentSetID][]oval.CPEID{1: {10}},
		CPEIDToDefinitionIDs: map[oval.CPEID][]oval.DefinitionID{10: {100}},
		PackageNameIDToDefinitionIDs: map[oval.PackageNameID][]oval.DefinitionID{
			1: {100},
		},
		DefinitionDetail: map[oval.DefinitionID]ovalcache.DefinitionDetail{
			100: {Type: oval.DefinitionPatch, CriteriaID: 1},
		},
		DefinitionToCVEs: map[oval.DefinitionID][]string{100: {"CVE-2021-0001"}},
		CriteriaOperator: map[oval.CriteriaID]oval.CriteriaOperator{1: oval.OperatorAND},
		CriteriaToTests:  map[oval.CriteriaID][]oval.TestID{1: {1}},
		TestDetail: map[oval.TestID]ovalcache.TestDetail{
			1: {PackageNameID: 1, CheckExistence: oval.CheckAtLeastOneExists},
		},
		TestToStates: map[oval.TestID][]ovalcache.TestState{
			1: {{StateID: 1, EVRID: 1, Operation: oval.OpLessThan}},
		},
		StateToArches:           map[oval.StateID][]oval.ArchID{},
		CriteriaToModuleTests:   map[oval.CriteriaID][]oval.ModuleTestID{},
		CriteriaToChildCriteria: map[oval.CriteriaID][]oval.CriteriaID{},
		ModuleTestStream:        map[oval.ModuleTestID]string{},
	}
	return evaluator.New(c)
}

func TestVulnerabilitiesHandlesValidProfile(t *testing.T) {
	t.Parallel()
	h := NewHandler(testService())

	body := bytes.NewBufferString(`{"package_list":["bash-4.2.46-30.el7.x86_64"],"repository_list":["rhel-7-server-rpms"]}`)
	req := httptest.NewRequest(http.MethodPost, "/vulnerabilities", body).WithContext(context.Background())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result evaluator.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.CVEs) != 1 || result.CVEs[0] != "CVE-2021-0001" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestVulnerabilitiesRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	h := NewHandler(testService())

	req := httptest.NewRequest(http.MethodPost, "/vulnerabilities", bytes.NewBufferString("not json")).WithContext(context.Background())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != "Request is not a JSON." {
		t.Errorf("unexpected error body: %+v", body)
	}
}

func TestVulnerabilitiesRejectsNonPost(t *testing.T) {
	t.Parallel()
	h := NewHandler(testService())

	req := httptest.NewRequest(http.MethodGet, "/vulnerabilities", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
