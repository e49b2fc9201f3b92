package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite DB with the depgraph schema and
// a small analyzed function.
func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
	CREATE TABLE functions (id TEXT PRIMARY KEY, name TEXT, package TEXT, file TEXT, line INTEGER, num_blocks INTEGER);
	CREATE TABLE blocks (func_id TEXT, block_idx INTEGER, line INTEGER);
	CREATE TABLE control_deps (func_id TEXT, controller INTEGER, dependent INTEGER);
	CREATE TABLE local_deps (func_id TEXT, instr INTEGER, instr_desc TEXT, kind TEXT, dep_instr INTEGER, dep_desc TEXT);
	CREATE TABLE nonlocal_deps (func_id TEXT, instr INTEGER, instr_desc TEXT, ord INTEGER, loc_base INTEGER, loc_offset INTEGER, block INTEGER);
	CREATE TABLE func_metrics (func_id TEXT PRIMARY KEY, num_blocks INTEGER, num_edges INTEGER, complexity INTEGER, mem_accesses INTEGER, control_dep_edges INTEGER, local_deps INTEGER, nonlocal_entries INTEGER);
	CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT);
	`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}

	const fid = "example.com/m::Branch@main.go:10"
	_, _ = db.Exec(`INSERT INTO functions VALUES (?, 'example.com/m.Branch', 'example.com/m', 'main.go', 10, 4)`, fid)
	_, _ = db.Exec(`INSERT INTO blocks VALUES (?, 0, 10), (?, 1, 11), (?, 2, 13), (?, 3, 15)`, fid, fid, fid, fid)
	_, _ = db.Exec(`INSERT INTO control_deps VALUES (?, 0, 1), (?, 0, 2)`, fid, fid)
	_, _ = db.Exec(`INSERT INTO local_deps VALUES (?, 3, 't1 = *x', 'Def', 1, '*x = 1')`, fid)
	_, _ = db.Exec(`INSERT INTO local_deps VALUES (?, 5, 'call f()', 'Unknown', -1, '')`, fid)
	_, _ = db.Exec(`INSERT INTO nonlocal_deps VALUES (?, 7, 't2 = *y', 0, 3, 0, 1), (?, 7, 't2 = *y', 1, 3, 0, 2)`, fid, fid)
	_, _ = db.Exec(`INSERT INTO func_metrics VALUES (?, 4, 4, 2, 5, 2, 2, 2)`, fid)
	_, _ = db.Exec(`INSERT INTO meta VALUES ('module_dir', '/src/m'), ('git_commit', 'abc123')`)

	return db
}

func TestAPI_Functions(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/functions?q=Branch", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/functions: want 200, got %d", rec.Code)
	}
	var funcs []Function
	if err := json.NewDecoder(rec.Body).Decode(&funcs); err != nil {
		t.Fatalf("decode functions response: %v", err)
	}
	if len(funcs) != 1 {
		t.Fatalf("expected one function, got %d", len(funcs))
	}
	if funcs[0].NumBlocks != 4 || funcs[0].Package != "example.com/m" {
		t.Errorf("unexpected function: %+v", funcs[0])
	}
}

func TestAPI_ControlDeps_MissingParam(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/controldeps", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/controldeps without func: want 400, got %d", rec.Code)
	}
}

func TestAPI_ControlDeps(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/controldeps?func=example.com/m::Branch@main.go:10", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/controldeps: want 200, got %d", rec.Code)
	}
	var deps []ControlDep
	if err := json.NewDecoder(rec.Body).Decode(&deps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(deps) != 2 || deps[0].Controller != 0 || deps[0].Dependent != 1 || deps[1].Dependent != 2 {
		t.Errorf("unexpected control deps: %+v", deps)
	}
}

func TestAPI_ControlDeps_FilterByBlock(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/controldeps?func=example.com/m::Branch@main.go:10&block=3", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var deps []ControlDep
	if err := json.NewDecoder(rec.Body).Decode(&deps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("block 3 controls nothing, got %+v", deps)
	}
}

func TestAPI_LocalDeps(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/localdeps?func=example.com/m::Branch@main.go:10", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var deps []LocalDep
	if err := json.NewDecoder(rec.Body).Decode(&deps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("expected 2 local deps, got %d", len(deps))
	}
	if deps[0].Kind != "Def" || deps[0].DepInstr != 1 {
		t.Errorf("unexpected first record: %+v", deps[0])
	}
	if deps[1].Kind != "Unknown" || deps[1].DepInstr != -1 {
		t.Errorf("unexpected second record: %+v", deps[1])
	}
}

func TestAPI_NonLocalDeps_OrderPreserved(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/nonlocaldeps?func=example.com/m::Branch@main.go:10", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var deps []NonLocalDep
	if err := json.NewDecoder(rec.Body).Decode(&deps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(deps))
	}
	if deps[0].Ord != 0 || deps[0].Block != 1 || deps[1].Ord != 1 || deps[1].Block != 2 {
		t.Errorf("entries out of order: %+v", deps)
	}
}

func TestAPI_Metrics(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/metrics?func=example.com/m::Branch@main.go:10", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var m FuncMetrics
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Complexity != 2 || m.NumBlocks != 4 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestAPI_Metrics_UnknownFunc(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/metrics?func=nope", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("want 404, got %d", rec.Code)
	}
}

func TestAPI_Meta(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db)
	req := httptest.NewRequest(http.MethodGet, "/api/meta", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var meta map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta["git_commit"] != "abc123" {
		t.Errorf("unexpected meta: %v", meta)
	}
}
