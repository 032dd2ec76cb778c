package ovaldb

import (
	"context"
	"database/sql"
	"testing"
)

// This file is test-only scaffolding: it creates the minimal schema these
// fetch methods assume so tests can exercise a real SQLite file instead of
// stubbing database/sql. Schema creation and migration for a production
// store is an ingestion-side concern outside this package's scope; this
// exists solely to stand up fixtures.

const testSchema = `
CREATE TABLE arch (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE);
CREATE TABLE package_name (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE);
CREATE TABLE evr (id INTEGER PRIMARY KEY, epoch TEXT NOT NULL, version TEXT NOT NULL, release TEXT NOT NULL);
CREATE TABLE content_set (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE);
CREATE TABLE repo (id INTEGER PRIMARY KEY, name TEXT NOT NULL, basearch_id INTEGER REFERENCES arch(id), releasever TEXT);
CREATE TABLE cve (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE);
CREATE TABLE cpe_repo (cpe_id INTEGER NOT NULL, repo_id INTEGER NOT NULL);
CREATE TABLE cpe_content_set (cpe_id INTEGER NOT NULL, content_set_id INTEGER NOT NULL);
CREATE TABLE oval_definition (id INTEGER PRIMARY KEY, definition_type_id INTEGER NOT NULL, criteria_id INTEGER);
CREATE TABLE oval_definition_cpe (cpe_id INTEGER NOT NULL, definition_id INTEGER NOT NULL);
CREATE TABLE oval_definition_cve (definition_id INTEGER NOT NULL, cve_id INTEGER NOT NULL);
CREATE TABLE oval_rpminfo_object (id INTEGER PRIMARY KEY, package_name_id INTEGER NOT NULL, version TEXT);
CREATE TABLE oval_rpminfo_state (id INTEGER PRIMARY KEY, evr_id INTEGER REFERENCES evr(id), evr_operation_id INTEGER, version TEXT);
CREATE TABLE oval_rpminfo_state_arch (rpminfo_state_id INTEGER NOT NULL, arch_id INTEGER NOT NULL);
CREATE TABLE oval_rpminfo_test (id INTEGER PRIMARY KEY, rpminfo_object_id INTEGER NOT NULL, check_id INTEGER, check_existence_id INTEGER NOT NULL, version TEXT);
CREATE TABLE oval_rpminfo_test_state (rpminfo_test_id INTEGER NOT NULL, rpminfo_state_id INTEGER NOT NULL);
CREATE TABLE oval_module_test (id INTEGER PRIMARY KEY, module_stream TEXT NOT NULL, version TEXT);
CREATE TABLE oval_criteria (id INTEGER PRIMARY KEY, operator_id INTEGER NOT NULL, definition_id INTEGER);
CREATE TABLE oval_definition_test (definition_id INTEGER NOT NULL, rpminfo_test_id INTEGER NOT NULL);
CREATE TABLE oval_criteria_dependency (
	parent_criteria_id INTEGER NOT NULL,
	dep_criteria_id INTEGER,
	dep_test_id INTEGER,
	dep_module_test_id INTEGER
);
`

// OpenTest opens an in-memory SQLite database with the test schema applied,
// for use by this package's and ovalcache's tests.
func OpenTest(t testing.TB) *Store {
	t.Helper()
	st, err := openDSN("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("ovaldb: open test db: %v", err)
	}
	if _, err := st.db.Exec(testSchema); err != nil {
		st.Close()
		t.Fatalf("ovaldb: create test schema: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("ovaldb: close test db: %v", err)
		}
	})
	return st
}

// ExecForTest runs a raw statement against the store's underlying database.
// It exists so other packages' tests (ovalcache) can seed fixtures through [OpenTest] without this package exporting its
// *sql.DB.
func (s *Store) ExecForTest(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}
