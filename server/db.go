package main

import (
	"database/sql"
)

// DB wraps *sql.DB and provides dependence query helpers over the database
// produced by depgraph-gen.
type DB struct {
	*sql.DB
}

// NewDB returns a DB wrapper.
func NewDB(db *sql.DB) *DB {
	return &DB{DB: db}
}

// Function is an analyzed function for API responses.
type Function struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Package   string `json:"package"`
	File      string `json:"file,omitempty"`
	Line      int64  `json:"line,omitempty"`
	NumBlocks int64  `json:"num_blocks"`
}

// ControlDep is one control dependence edge for API responses.
type ControlDep struct {
	Controller int64 `json:"controller"`
	Dependent  int64 `json:"dependent"`
}

// LocalDep is one same-block dependence record for API responses.
type LocalDep struct {
	Instr     int64  `json:"instr"`
	InstrDesc string `json:"instr_desc"`
	Kind      string `json:"kind"`
	DepInstr  int64  `json:"dep_instr"`
	DepDesc   string `json:"dep_desc,omitempty"`
}

// NonLocalDep is one cross-block dependence entry for API responses.
type NonLocalDep struct {
	Instr     int64  `json:"instr"`
	InstrDesc string `json:"instr_desc"`
	Ord       int64  `json:"ord"`
	LocBase   int64  `json:"loc_base"`
	LocOffset int64  `json:"loc_offset"`
	Block     int64  `json:"block"`
}

// FuncMetrics is one function's shape metrics for API responses.
type FuncMetrics struct {
	FuncID          string `json:"func_id"`
	NumBlocks       int64  `json:"num_blocks"`
	NumEdges        int64  `json:"num_edges"`
	Complexity      int64  `json:"complexity"`
	MemAccesses     int64  `json:"mem_accesses"`
	ControlDepEdges int64  `json:"control_dep_edges"`
	LocalDeps       int64  `json:"local_deps"`
	NonLocalEntries int64  `json:"nonlocal_entries"`
}

const maxListLimit = 200

// Functions lists analyzed functions, optionally filtered by a name
// substring, capped at limit.
func (db *DB) Functions(pattern string, limit int) ([]Function, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := db.Query(
		`SELECT id, name, package, file, line, num_blocks FROM functions
		 WHERE name LIKE ? ORDER BY name LIMIT ?`,
		"%"+pattern+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Function{}
	for rows.Next() {
		var f Function
		var file sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Name, &f.Package, &file, &line, &f.NumBlocks); err != nil {
			return nil, err
		}
		f.File = file.String
		f.Line = line.Int64
		out = append(out, f)
	}
	return out, rows.Err()
}

// ControlDeps returns a function's control dependence edges. block < 0
// means all controllers.
func (db *DB) ControlDeps(funcID string, block int64) ([]ControlDep, error) {
	q := `SELECT controller, dependent FROM control_deps WHERE func_id = ?`
	args := []any{funcID}
	if block >= 0 {
		q += ` AND controller = ?`
		args = append(args, block)
	}
	q += ` ORDER BY controller, dependent`
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ControlDep{}
	for rows.Next() {
		var d ControlDep
		if err := rows.Scan(&d.Controller, &d.Dependent); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LocalDeps returns a function's same-block dependence records.
func (db *DB) LocalDeps(funcID string) ([]LocalDep, error) {
	rows, err := db.Query(
		`SELECT instr, instr_desc, kind, dep_instr, dep_desc FROM local_deps
		 WHERE func_id = ? ORDER BY instr`, funcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LocalDep{}
	for rows.Next() {
		var d LocalDep
		var desc, depDesc sql.NullString
		if err := rows.Scan(&d.Instr, &desc, &d.Kind, &d.DepInstr, &depDesc); err != nil {
			return nil, err
		}
		d.InstrDesc = desc.String
		d.DepDesc = depDesc.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// NonLocalDeps returns a function's cross-block dependence entries in
// oracle order.
func (db *DB) NonLocalDeps(funcID string) ([]NonLocalDep, error) {
	rows, err := db.Query(
		`SELECT instr, instr_desc, ord, loc_base, loc_offset, block FROM nonlocal_deps
		 WHERE func_id = ? ORDER BY instr, ord`, funcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []NonLocalDep{}
	for rows.Next() {
		var d NonLocalDep
		var desc sql.NullString
		if err := rows.Scan(&d.Instr, &desc, &d.Ord, &d.LocBase, &d.LocOffset, &d.Block); err != nil {
			return nil, err
		}
		d.InstrDesc = desc.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// Metrics returns one function's metrics row, or nil when absent.
func (db *DB) Metrics(funcID string) (*FuncMetrics, error) {
	row := db.QueryRow(
		`SELECT func_id, num_blocks, num_edges, complexity, mem_accesses,
		        control_dep_edges, local_deps, nonlocal_entries
		 FROM func_metrics WHERE func_id = ?`, funcID)
	var m FuncMetrics
	err := row.Scan(&m.FuncID, &m.NumBlocks, &m.NumEdges, &m.Complexity,
		&m.MemAccesses, &m.ControlDepEdges, &m.LocalDeps, &m.NonLocalEntries)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Meta returns the run metadata of the database as a key/value map.
func (db *DB) Meta() (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM meta ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v.String
	}
	return out, rows.Err()
}
