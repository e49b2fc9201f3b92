package main

import (
	"fmt"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// WriteDB writes the accumulated dependence results to a SQLite file.
func WriteDB(path string, g *DepGraph, validate bool, prog *Progress) error {
	prog.Log("Writing SQLite to %s ...", path)

	_ = os.Remove(path) // ignore if doesn't exist

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Performance pragmas
	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA journal_mode = WAL",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return err
		}
	}

	if err := createTables(conn); err != nil {
		return err
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := insertAll(conn, g, prog); err != nil {
		endFn(&err)
		return err
	}
	endFn(&err)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := createIndexes(conn); err != nil {
		return err
	}

	if validate {
		if err := validateDB(conn, g, prog); err != nil {
			return err
		}
	}

	prog.Log("Wrote %d functions, %d control deps, %d local deps, %d non-local deps",
		len(g.Funcs), len(g.ControlDeps), len(g.LocalDeps), len(g.NonLocal))
	return nil
}

func createTables(conn *sqlite.Conn) error {
	ddl := `
CREATE TABLE functions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    package TEXT NOT NULL,
    file TEXT,
    line INTEGER,
    num_blocks INTEGER
);

CREATE TABLE blocks (
    func_id TEXT NOT NULL,
    block_idx INTEGER NOT NULL,
    line INTEGER,
    PRIMARY KEY (func_id, block_idx)
);

CREATE TABLE control_deps (
    func_id TEXT NOT NULL,
    controller INTEGER NOT NULL,
    dependent INTEGER NOT NULL
);

CREATE TABLE local_deps (
    func_id TEXT NOT NULL,
    instr INTEGER NOT NULL,
    instr_desc TEXT,
    kind TEXT NOT NULL,
    dep_instr INTEGER,
    dep_desc TEXT
);

CREATE TABLE nonlocal_deps (
    func_id TEXT NOT NULL,
    instr INTEGER NOT NULL,
    instr_desc TEXT,
    ord INTEGER NOT NULL,
    loc_base INTEGER,
    loc_offset INTEGER,
    block INTEGER NOT NULL
);

CREATE TABLE func_metrics (
    func_id TEXT PRIMARY KEY,
    num_blocks INTEGER NOT NULL,
    num_edges INTEGER NOT NULL,
    complexity INTEGER NOT NULL,
    mem_accesses INTEGER NOT NULL,
    control_dep_edges INTEGER NOT NULL,
    local_deps INTEGER NOT NULL,
    nonlocal_entries INTEGER NOT NULL
);

CREATE TABLE meta (
    key TEXT PRIMARY KEY,
    value TEXT
);
`
	return sqlitex.ExecuteScript(conn, ddl, nil)
}

func createIndexes(conn *sqlite.Conn) error {
	indexes := `
CREATE INDEX idx_functions_package ON functions(package);
CREATE INDEX idx_control_deps_func ON control_deps(func_id, controller);
CREATE INDEX idx_local_deps_func ON local_deps(func_id, instr);
CREATE INDEX idx_nonlocal_deps_func ON nonlocal_deps(func_id, instr, ord);
`
	return sqlitex.ExecuteScript(conn, indexes, nil)
}

func insertAll(conn *sqlite.Conn, g *DepGraph, prog *Progress) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO functions (id, name, package, file, line, num_blocks) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare function insert: %w", err)
	}
	for _, f := range g.Funcs {
		stmt.BindText(1, f.ID)
		stmt.BindText(2, f.Name)
		stmt.BindText(3, f.Package)
		stmt.BindText(4, f.File)
		stmt.BindInt64(5, int64(f.Line))
		stmt.BindInt64(6, int64(f.NumBlocks))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert function %s: %w", f.ID, err)
		}
		_ = stmt.Reset()
	}
	_ = stmt.Finalize()

	stmt, err = conn.Prepare(`INSERT INTO blocks (func_id, block_idx, line) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare block insert: %w", err)
	}
	for _, b := range g.Blocks {
		stmt.BindText(1, b.FuncID)
		stmt.BindInt64(2, int64(b.Index))
		stmt.BindInt64(3, int64(b.Line))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert block %s/%d: %w", b.FuncID, b.Index, err)
		}
		_ = stmt.Reset()
	}
	_ = stmt.Finalize()

	stmt, err = conn.Prepare(`INSERT INTO control_deps (func_id, controller, dependent) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare control dep insert: %w", err)
	}
	for _, d := range g.ControlDeps {
		stmt.BindText(1, d.FuncID)
		stmt.BindInt64(2, int64(d.Controller))
		stmt.BindInt64(3, int64(d.Dependent))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert control dep: %w", err)
		}
		_ = stmt.Reset()
	}
	_ = stmt.Finalize()

	stmt, err = conn.Prepare(`INSERT INTO local_deps (func_id, instr, instr_desc, kind, dep_instr, dep_desc) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare local dep insert: %w", err)
	}
	for _, d := range g.LocalDeps {
		stmt.BindText(1, d.FuncID)
		stmt.BindInt64(2, int64(d.Instr))
		stmt.BindText(3, d.InstrDesc)
		stmt.BindText(4, d.Kind)
		stmt.BindInt64(5, int64(d.DepInstr))
		stmt.BindText(6, d.DepDesc)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert local dep: %w", err)
		}
		_ = stmt.Reset()
	}
	_ = stmt.Finalize()

	stmt, err = conn.Prepare(`INSERT INTO nonlocal_deps (func_id, instr, instr_desc, ord, loc_base, loc_offset, block) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare nonlocal dep insert: %w", err)
	}
	for _, d := range g.NonLocal {
		stmt.BindText(1, d.FuncID)
		stmt.BindInt64(2, int64(d.Instr))
		stmt.BindText(3, d.InstrDesc)
		stmt.BindInt64(4, int64(d.Ord))
		stmt.BindInt64(5, int64(d.LocBase))
		stmt.BindInt64(6, int64(d.LocOffset))
		stmt.BindInt64(7, int64(d.Block))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert nonlocal dep: %w", err)
		}
		_ = stmt.Reset()
	}
	_ = stmt.Finalize()

	stmt, err = conn.Prepare(`INSERT OR IGNORE INTO func_metrics (func_id, num_blocks, num_edges, complexity, mem_accesses, control_dep_edges, local_deps, nonlocal_entries) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare metrics insert: %w", err)
	}
	for _, m := range g.Metrics {
		stmt.BindText(1, m.FuncID)
		stmt.BindInt64(2, int64(m.Blocks))
		stmt.BindInt64(3, int64(m.Edges))
		stmt.BindInt64(4, int64(m.Complexity))
		stmt.BindInt64(5, int64(m.MemAccesses))
		stmt.BindInt64(6, int64(m.ControlDepEdges))
		stmt.BindInt64(7, int64(m.LocalDeps))
		stmt.BindInt64(8, int64(m.NonLocalEntries))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert metrics %s: %w", m.FuncID, err)
		}
		_ = stmt.Reset()
	}
	_ = stmt.Finalize()

	stmt, err = conn.Prepare(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare meta insert: %w", err)
	}
	for _, m := range g.Meta {
		stmt.BindText(1, m.Key)
		stmt.BindText(2, m.Value)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert meta %s: %w", m.Key, err)
		}
		_ = stmt.Reset()
	}
	_ = stmt.Finalize()

	prog.Verbose("  inserted %d function rows", len(g.Funcs))
	return nil
}

// validateDB cross-checks row counts against the in-memory accumulator.
func validateDB(conn *sqlite.Conn, g *DepGraph, prog *Progress) error {
	checks := []struct {
		table string
		want  int
	}{
		{"functions", len(g.Funcs)},
		{"blocks", len(g.Blocks)},
		{"control_deps", len(g.ControlDeps)},
		{"local_deps", len(g.LocalDeps)},
		{"nonlocal_deps", len(g.NonLocal)},
		{"func_metrics", len(g.Metrics)},
	}
	for _, c := range checks {
		var got int
		err := sqlitex.ExecuteTransient(conn, "SELECT COUNT(*) FROM "+c.table, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				got = int(stmt.ColumnInt64(0))
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("validate %s: %w", c.table, err)
		}
		if got != c.want {
			return fmt.Errorf("validate %s: %d rows in db, %d accumulated", c.table, got, c.want)
		}
	}
	prog.Log("Validation passed")
	return nil
}
