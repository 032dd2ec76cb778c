// Package ovaldb is the read side of the normalized OVAL/CPE relational
// store: a thin, one-shot, ordered-iteration layer over a SQLite file
// produced by an offline ingestion path.
//
// Nothing here mutates the database, and nothing here is safe to call after
// [ovalcache] has finished loading; the store exists only to get bytes out
// of SQLite and into the in-memory cache once at startup.
package ovaldb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/sqlite3" // register the "sqlite3" goqu dialect
	_ "modernc.org/sqlite"                              // register the "sqlite" database/sql driver
)

var dialect = goqu.Dialect("sqlite3")

// Store is a handle to a SQLite-backed OVAL store.
//
// Must be a file on-disk or ":memory:". This is a limitation of the
// underlying SQLite library.
//
// The returned Store must have its Close method called, or the process may
// panic.
type Store struct {
	db *sql.DB
}

// Open opens the named SQLite database file read-only.
func Open(path string) (*Store, error) {
	u := url.URL{
		Scheme: "file",
		Opaque: path,
		RawQuery: url.Values{
			"_pragma": {"query_only(1)"},
		}.Encode(),
	}
	return openDSN(u.String())
}

// openDSN opens a raw sqlite DSN. Open constructs one for an on-disk,
// read-only file; tests use this directly to stand up in-memory fixtures
// that need pragmas Open wouldn't apply.
func openDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ovaldb: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ovaldb: open: %w", err)
	}
	st := &Store{db: db}
	_, file, line, _ := runtime.Caller(2)
	runtime.SetFinalizer(st, func(st *Store) {
		panic(fmt.Sprintf("%s:%d: ovaldb.Store not closed", file, line))
	})
	return st, nil
}

// Close releases held resources.
func (s *Store) Close() error {
	runtime.SetFinalizer(s, nil)
	return s.db.Close()
}

// fetch builds and runs a goqu select, returning the raw *sql.Rows. Callers
// are responsible for closing the result. table is only used as a metrics
// label.
func (s *Store) fetch(ctx context.Context, table string, ds *goqu.SelectDataset) (*sql.Rows, error) {
	q, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("ovaldb: build query: %w", err)
	}
	stop := instrumentQuery(table)
	rows, err := s.db.QueryContext(ctx, q, args...)
	stop(err)
	if err != nil {
		return nil, fmt.Errorf("ovaldb: query: %w", err)
	}
	return rows, nil
}

// Architectures returns every row of the arch table, ordered by id.
func (s *Store) Architectures(ctx context.Context) ([]ArchRow, error) {
	rows, err := s.fetch(ctx, "arch", dialect.From("arch").Select("id", "name").Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ArchRow
	for rows.Next() {
		var r ArchRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("ovaldb: scan arch: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PackageNames returns every row of the package_name table, ordered by id.
func (s *Store) PackageNames(ctx context.Context) ([]PackageNameRow, error) {
	rows, err := s.fetch(ctx, "package_name", dialect.From("package_name").Select("id", "name").Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PackageNameRow
	for rows.Next() {
		var r PackageNameRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("ovaldb: scan package_name: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EVRs returns every row of the evr table, ordered by id.
func (s *Store) EVRs(ctx context.Context) ([]EVRRow, error) {
	rows, err := s.fetch(ctx, "evr", dialect.From("evr").
		Select("id", "epoch", "version", "release").Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EVRRow
	for rows.Next() {
		var r EVRRow
		if err := rows.Scan(&r.ID, &r.Epoch, &r.Version, &r.Release); err != nil {
			return nil, fmt.Errorf("ovaldb: scan evr: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Repos returns every row of the repo table, ordered by id. The repo's
// "name" column carries the content-set label directly, not a foreign key.
func (s *Store) Repos(ctx context.Context) ([]RepoRow, error) {
	rows, err := s.fetch(ctx, "repo", dialect.From("repo").
		Select("id", "name", "basearch_id", "releasever").Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RepoRow
	for rows.Next() {
		var r RepoRow
		var basearchID sql.NullInt64
		var releasever sql.NullString
		if err := rows.Scan(&r.ID, &r.Label, &basearchID, &releasever); err != nil {
			return nil, fmt.Errorf("ovaldb: scan repo: %w", err)
		}
		if basearchID.Valid {
			r.BasearchID = &basearchID.Int64
		}
		if releasever.Valid {
			r.Releasever = &releasever.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ContentSets returns every row of the content_set table, ordered by id.
func (s *Store) ContentSets(ctx context.Context) ([]ContentSetRow, error) {
	rows, err := s.fetch(ctx, "content_set", dialect.From("content_set").Select("id", "name").Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContentSetRow
	for rows.Next() {
		var r ContentSetRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("ovaldb: scan content_set: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CPERepos returns every row of the cpe_repo join table.
func (s *Store) CPERepos(ctx context.Context) ([]CPERepoRow, error) {
	rows, err := s.fetch(ctx, "cpe_repo", dialect.From("cpe_repo").
		Select("cpe_id", "repo_id").Order(goqu.C("cpe_id").Asc(), goqu.C("repo_id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CPERepoRow
	for rows.Next() {
		var r CPERepoRow
		if err := rows.Scan(&r.CPEID, &r.RepoID); err != nil {
			return nil, fmt.Errorf("ovaldb: scan cpe_repo: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CPEContentSets returns every row of the cpe_content_set join table.
func (s *Store) CPEContentSets(ctx context.Context) ([]CPEContentSetRow, error) {
	rows, err := s.fetch(ctx, "cpe_content_set", dialect.From("cpe_content_set").
		Select("cpe_id", "content_set_id").Order(goqu.C("cpe_id").Asc(), goqu.C("content_set_id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CPEContentSetRow
	for rows.Next() {
		var r CPEContentSetRow
		if err := rows.Scan(&r.CPEID, &r.ContentSetID); err != nil {
			return nil, fmt.Errorf("ovaldb: scan cpe_content_set: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DefinitionCPEs returns every row of the oval_definition_cpe join table.
func (s *Store) DefinitionCPEs(ctx context.Context) ([]DefinitionCPERow, error) {
	rows, err := s.fetch(ctx, "oval_definition_cpe", dialect.From("oval_definition_cpe").
		Select("cpe_id", "definition_id").Order(goqu.C("cpe_id").Asc(), goqu.C("definition_id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DefinitionCPERow
	for rows.Next() {
		var r DefinitionCPERow
		if err := rows.Scan(&r.CPEID, &r.DefinitionID); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_definition_cpe: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PackageNameDefinitions returns the distinct (package_name_id,
// definition_id) pairs reachable via
// oval_definition -> oval_definition_test -> oval_rpminfo_test -> oval_rpminfo_object.
func (s *Store) PackageNameDefinitions(ctx context.Context) ([]PackageNameDefinitionRow, error) {
	ds := dialect.From(goqu.T("oval_definition").As("d")).
		Distinct().
		Select(goqu.I("o.package_name_id"), goqu.I("d.id")).
		InnerJoin(goqu.T("oval_definition_test").As("dt"), goqu.On(goqu.I("d.id").Eq(goqu.I("dt.definition_id")))).
		InnerJoin(goqu.T("oval_rpminfo_test").As("t"), goqu.On(goqu.I("dt.rpminfo_test_id").Eq(goqu.I("t.id")))).
		InnerJoin(goqu.T("oval_rpminfo_object").As("o"), goqu.On(goqu.I("t.rpminfo_object_id").Eq(goqu.I("o.id")))).
		Order(goqu.I("o.package_name_id").Asc(), goqu.I("d.id").Asc())
	rows, err := s.fetch(ctx, "packagename_definition", ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PackageNameDefinitionRow
	for rows.Next() {
		var r PackageNameDefinitionRow
		if err := rows.Scan(&r.PackageNameID, &r.DefinitionID); err != nil {
			return nil, fmt.Errorf("ovaldb: scan packagename_definition: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Definitions returns every row of the oval_definition table, ordered by id.
func (s *Store) Definitions(ctx context.Context) ([]DefinitionRow, error) {
	rows, err := s.fetch(ctx, "oval_definition", dialect.From("oval_definition").
		Select("id", "definition_type_id", "criteria_id").Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DefinitionRow
	for rows.Next() {
		var r DefinitionRow
		if err := rows.Scan(&r.ID, &r.DefinitionTypeID, &r.CriteriaID); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_definition: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DefinitionCVEs returns the CVE names associated with each definition, via
// oval_definition_cve joined to cve, ordered by (definition_id, cve name) so
// callers get deterministic per-definition CVE ordering for free.
func (s *Store) DefinitionCVEs(ctx context.Context) ([]DefinitionCVERow, error) {
	ds := dialect.From(goqu.T("oval_definition_cve").As("dc")).
		Select(goqu.I("dc.definition_id"), goqu.I("cve.name")).
		InnerJoin(goqu.T("cve"), goqu.On(goqu.I("dc.cve_id").Eq(goqu.I("cve.id")))).
		Order(goqu.I("dc.definition_id").Asc(), goqu.I("cve.name").Asc())
	rows, err := s.fetch(ctx, "oval_definition_cve", ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DefinitionCVERow
	for rows.Next() {
		var r DefinitionCVERow
		if err := rows.Scan(&r.DefinitionID, &r.CVE); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_definition_cve: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Criteria returns every row of the oval_criteria table, ordered by id.
func (s *Store) Criteria(ctx context.Context) ([]CriteriaRow, error) {
	rows, err := s.fetch(ctx, "oval_criteria", dialect.From("oval_criteria").
		Select("id", "operator_id").Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CriteriaRow
	for rows.Next() {
		var r CriteriaRow
		if err := rows.Scan(&r.ID, &r.OperatorID); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_criteria: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CriteriaDependencies returns every row of the oval_criteria_dependency
// table, ordered by parent_criteria_id.
func (s *Store) CriteriaDependencies(ctx context.Context) ([]CriteriaDependencyRow, error) {
	rows, err := s.fetch(ctx, "oval_criteria_dependency", dialect.From("oval_criteria_dependency").
		Select("parent_criteria_id", "dep_criteria_id", "dep_test_id", "dep_module_test_id").
		Order(goqu.C("parent_criteria_id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CriteriaDependencyRow
	for rows.Next() {
		var r CriteriaDependencyRow
		var depCriteria, depTest, depModuleTest sql.NullInt64
		if err := rows.Scan(&r.ParentCriteriaID, &depCriteria, &depTest, &depModuleTest); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_criteria_dependency: %w", err)
		}
		if depCriteria.Valid {
			r.DepCriteriaID = &depCriteria.Int64
		}
		if depTest.Valid {
			r.DepTestID = &depTest.Int64
		}
		if depModuleTest.Valid {
			r.DepModuleTestID = &depModuleTest.Int64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RpminfoTests returns the join of oval_rpminfo_test with its object,
// ordered by test id.
func (s *Store) RpminfoTests(ctx context.Context) ([]RpminfoTestRow, error) {
	ds := dialect.From(goqu.T("oval_rpminfo_test").As("t")).
		Select(goqu.I("t.id"), goqu.I("o.package_name_id"), goqu.I("t.check_existence_id")).
		InnerJoin(goqu.T("oval_rpminfo_object").As("o"), goqu.On(goqu.I("t.rpminfo_object_id").Eq(goqu.I("o.id")))).
		Order(goqu.I("t.id").Asc())
	rows, err := s.fetch(ctx, "oval_rpminfo_test", ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RpminfoTestRow
	for rows.Next() {
		var r RpminfoTestRow
		if err := rows.Scan(&r.ID, &r.PackageNameID, &r.CheckExistenceID); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_rpminfo_test: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RpminfoTestStates returns the join of oval_rpminfo_test_state with its
// state, filtered to states that carry both an EVR and an EVR operation,
// ordered by test id.
func (s *Store) RpminfoTestStates(ctx context.Context) ([]RpminfoTestStateRow, error) {
	ds := dialect.From(goqu.T("oval_rpminfo_test_state").As("ts")).
		Select(goqu.I("ts.rpminfo_test_id"), goqu.I("s.id"), goqu.I("s.evr_id"), goqu.I("s.evr_operation_id")).
		InnerJoin(goqu.T("oval_rpminfo_state").As("s"), goqu.On(goqu.I("ts.rpminfo_state_id").Eq(goqu.I("s.id")))).
		Where(goqu.I("s.evr_id").IsNotNull(), goqu.I("s.evr_operation_id").IsNotNull()).
		Order(goqu.I("ts.rpminfo_test_id").Asc())
	rows, err := s.fetch(ctx, "oval_rpminfo_test_state", ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RpminfoTestStateRow
	for rows.Next() {
		var r RpminfoTestStateRow
		if err := rows.Scan(&r.TestID, &r.StateID, &r.EVRID, &r.EVROperation); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_rpminfo_test_state: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ModuleTests returns every row of the oval_module_test table, ordered by id.
func (s *Store) ModuleTests(ctx context.Context) ([]ModuleTestRow, error) {
	rows, err := s.fetch(ctx, "oval_module_test", dialect.From("oval_module_test").
		Select("id", "module_stream").Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModuleTestRow
	for rows.Next() {
		var r ModuleTestRow
		if err := rows.Scan(&r.ID, &r.ModuleStream); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_module_test: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RpminfoStateArches returns every row of the oval_rpminfo_state_arch table.
func (s *Store) RpminfoStateArches(ctx context.Context) ([]RpminfoStateArchRow, error) {
	rows, err := s.fetch(ctx, "oval_rpminfo_state_arch", dialect.From("oval_rpminfo_state_arch").
		Select("rpminfo_state_id", "arch_id").
		Order(goqu.C("rpminfo_state_id").Asc(), goqu.C("arch_id").Asc()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RpminfoStateArchRow
	for rows.Next() {
		var r RpminfoStateArchRow
		if err := rows.Scan(&r.StateID, &r.ArchID); err != nil {
			return nil, fmt.Errorf("ovaldb: scan oval_rpminfo_state_arch: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
