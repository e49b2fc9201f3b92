package main

// FuncRow describes one analyzed function.
type FuncRow struct {
	ID        string
	Name      string
	Package   string
	File      string
	Line      int
	NumBlocks int
}

// BlockRow describes one basic block of an analyzed function.
type BlockRow struct {
	FuncID string
	Index  int
	Line   int
}

// ControlDepRow is one control dependence edge: Dependent executes only
// depending on the branch taken at Controller.
type ControlDepRow struct {
	FuncID     string
	Controller int
	Dependent  int
}

// LocalDepRow is one same-block dependence record.
type LocalDepRow struct {
	FuncID    string
	Instr     int
	InstrDesc string
	Kind      string
	DepInstr  int // -1 when the oracle reported no instruction
	DepDesc   string
}

// NonLocalDepRow is one cross-block dependence entry. Ord preserves the
// oracle's reporting order per instruction.
type NonLocalDepRow struct {
	FuncID    string
	Instr     int
	InstrDesc string
	Ord       int
	LocBase   int
	LocOffset int
	Block     int
}

// MetaRow is one key/value pair describing the run that produced the
// database (analyzed directory, git provenance, timestamp).
type MetaRow struct {
	Key   string
	Value string
}

// DepGraph accumulates the whole analysis result in memory before flushing
// to SQLite. Functions are deduplicated by ID (first wins).
type DepGraph struct {
	Funcs       []FuncRow
	Blocks      []BlockRow
	ControlDeps []ControlDepRow
	LocalDeps   []LocalDepRow
	NonLocal    []NonLocalDepRow
	Metrics     []FuncMetrics
	Meta        []MetaRow

	funcSeen map[string]struct{}
}

// NewDepGraph creates an empty accumulator.
func NewDepGraph() *DepGraph {
	return &DepGraph{funcSeen: make(map[string]struct{})}
}

// AddFunc registers a function row. Returns false for a duplicate ID.
func (g *DepGraph) AddFunc(f FuncRow) bool {
	if _, dup := g.funcSeen[f.ID]; dup {
		return false
	}
	g.funcSeen[f.ID] = struct{}{}
	g.Funcs = append(g.Funcs, f)
	return true
}

// AddMeta registers one run metadata pair.
func (g *DepGraph) AddMeta(key, value string) {
	g.Meta = append(g.Meta, MetaRow{Key: key, Value: value})
}

// AddMetrics registers a function's metrics row.
func (g *DepGraph) AddMetrics(m FuncMetrics) {
	g.Metrics = append(g.Metrics, m)
}

// AddControlDeps flattens a function's control dependence map into rows.
// Dependent sets are emitted in ascending block order so the output is
// deterministic regardless of map iteration.
func (g *DepGraph) AddControlDeps(funcID string, deps ControlDepMap) {
	for _, controller := range sortedDepKeys(deps) {
		for _, dependent := range sortedSet(deps[controller]) {
			g.ControlDeps = append(g.ControlDeps, ControlDepRow{
				FuncID:     funcID,
				Controller: controller,
				Dependent:  dependent,
			})
		}
	}
}

// AddDataDeps flattens a function's data dependence maps into rows.
func (g *DepGraph) AddDataDeps(funcID string, fi *FuncInfo, deps *DataDeps) {
	for _, instr := range sortedIntKeys(deps.Local) {
		info := deps.Local[instr]
		row := LocalDepRow{
			FuncID:    funcID,
			Instr:     instr,
			InstrDesc: fi.Instrs[instr].Desc,
			Kind:      info.Kind.String(),
			DepInstr:  info.Instr,
		}
		if info.Instr >= 0 {
			row.DepDesc = fi.Instrs[info.Instr].Desc
		}
		g.LocalDeps = append(g.LocalDeps, row)
	}
	for _, instr := range sortedIntKeys(deps.NonLocal) {
		for ord, e := range deps.NonLocal[instr] {
			g.NonLocal = append(g.NonLocal, NonLocalDepRow{
				FuncID:    funcID,
				Instr:     instr,
				InstrDesc: fi.Instrs[instr].Desc,
				Ord:       ord,
				LocBase:   e.Loc.Base,
				LocOffset: e.Loc.Offset,
				Block:     e.Block,
			})
		}
	}
}
