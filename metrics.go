package main

// FuncMetrics holds per-function shape metrics derived from the CFG and the
// dependence maps. Complexity is cyclomatic complexity computed on the graph
// (edges - nodes + 2); for SSA-built CFGs this matches counting decision
// points.
type FuncMetrics struct {
	FuncID          string
	Blocks          int
	Edges           int
	Complexity      int
	MemAccesses     int
	ControlDepEdges int
	LocalDeps       int
	NonLocalEntries int
}

// ComputeMetrics derives the metrics row for one analyzed function.
func ComputeMetrics(funcID string, fi *FuncInfo, cdg ControlDepMap, deps *DataDeps) FuncMetrics {
	m := FuncMetrics{
		FuncID: funcID,
		Blocks: fi.CFG.Blocks,
	}
	for _, succs := range fi.CFG.Succs {
		m.Edges += len(succs)
	}
	m.Complexity = m.Edges - m.Blocks + 2
	if m.Complexity < 1 {
		m.Complexity = 1 // degenerate graphs (no blocks) still count as one path
	}
	for _, in := range fi.Instrs {
		if in.Access != AccessNone {
			m.MemAccesses++
		}
	}
	for _, set := range cdg {
		m.ControlDepEdges += len(set)
	}
	if deps != nil {
		m.LocalDeps = len(deps.Local)
		for _, entries := range deps.NonLocal {
			m.NonLocalEntries += len(entries)
		}
	}
	return m
}
