package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemDep(fi *FuncInfo) *FuncMemDep {
	return NewFuncMemDep(fi, NewFuncAliases(fi))
}

func TestFuncMemDep_LocalDef(t *testing.T) {
	la := loc(1, 0)
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		store(la),
		load(la),
	}})
	raw := newMemDep(fi).Dependency(1)
	assert.Equal(t, RawDep{IsDef: true, Instr: 0}, raw)
}

func TestFuncMemDep_NearestAccessWins(t *testing.T) {
	la := loc(1, 0)
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		store(la),
		store(la),
		load(la),
	}})
	raw := newMemDep(fi).Dependency(2)
	assert.Equal(t, RawDep{IsDef: true, Instr: 1}, raw, "the scan stops at the nearest related access")
}

func TestFuncMemDep_MayAliasClobbers(t *testing.T) {
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		store(loc(1, -1)), // unknown offset into the same base
		load(loc(1, 2)),
	}})
	raw := newMemDep(fi).Dependency(1)
	assert.Equal(t, RawDep{IsClobber: true, Instr: 0}, raw)
}

func TestFuncMemDep_WholeObjectStoreClobbersField(t *testing.T) {
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		store(loc(1, 0)),
		load(loc(1, 2)),
	}})
	raw := newMemDep(fi).Dependency(1)
	assert.Equal(t, RawDep{IsClobber: true, Instr: 0}, raw)
}

func TestFuncMemDep_DisjointFieldsSkipped(t *testing.T) {
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		store(loc(1, 1)),
		load(loc(1, 2)),
	}})
	raw := newMemDep(fi).Dependency(1)
	assert.Equal(t, RawDep{IsNonFuncLocal: true, Instr: -1}, raw,
		"a store to a sibling field is unrelated, and the entry block scan ends the query")
}

func TestFuncMemDep_DistinctLocalsSkipped(t *testing.T) {
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		store(loc(2, 0)),
		load(loc(1, 0)),
	}})
	raw := newMemDep(fi).Dependency(1)
	assert.Equal(t, RawDep{IsNonFuncLocal: true, Instr: -1}, raw)
}

func TestFuncMemDep_OpaqueCallClobbers(t *testing.T) {
	la := loc(1, 0)
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		{Access: AccessOther, Desc: "call g()"},
		load(la),
	}})
	raw := newMemDep(fi).Dependency(1)
	assert.Equal(t, RawDep{IsClobber: true, Instr: 0}, raw)
}

func TestFuncMemDep_AntiDependence(t *testing.T) {
	la := loc(1, 0)
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		load(la),
		store(la),
		load(la),
	}})
	m := newMemDep(fi)

	raw := m.Dependency(1)
	assert.Equal(t, RawDep{IsClobber: true, Instr: 0}, raw,
		"a store must not move above a prior read of the same location")

	raw = m.Dependency(2)
	assert.Equal(t, RawDep{IsDef: true, Instr: 1}, raw,
		"loads skip over prior loads")
}

func TestFuncMemDep_StoreWithoutLocationClobbers(t *testing.T) {
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		{Access: AccessStore, Desc: "store ?"},
		load(loc(1, 0)),
	}})
	raw := newMemDep(fi).Dependency(1)
	assert.Equal(t, RawDep{IsClobber: true, Instr: 0}, raw)
}

func TestFuncMemDep_NoLocationIsUnknown(t *testing.T) {
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		{Access: AccessLoad, Desc: "load ?"},
	}})
	raw := newMemDep(fi).Dependency(0)
	assert.Equal(t, RawDep{IsUnknown: true, Instr: -1}, raw)
}

func TestFuncMemDep_NonLocalOutsideEntry(t *testing.T) {
	la := loc(1, 0)
	g := cfgFrom([][]int{{1}, {}})
	fi := newTestFuncInfo("f", g, [][]InstrInfo{
		{},
		{load(la)},
	})
	raw := newMemDep(fi).Dependency(0)
	assert.Equal(t, RawDep{IsNonLocal: true, Instr: -1}, raw,
		"an empty scan outside the entry block defers to the predecessor walk")
}

func TestFuncMemDep_OtherAccessDependsOnNearestWriter(t *testing.T) {
	la := loc(1, 0)
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		store(la),
		load(la),
		{Access: AccessOther, Desc: "call g()"},
		{Access: AccessOther, Desc: "call h()"},
	}})
	m := newMemDep(fi)

	raw := m.Dependency(2)
	assert.Equal(t, RawDep{IsClobber: true, Instr: 0}, raw, "reads are not writers")

	raw = m.Dependency(3)
	assert.Equal(t, RawDep{IsClobber: true, Instr: 2}, raw, "an opaque access counts as a writer")
}

func TestFuncMemDep_OtherAccessWithoutWriterIsUnknown(t *testing.T) {
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{
		load(loc(1, 0)),
		{Access: AccessOther, Desc: "call g()"},
	}})
	raw := newMemDep(fi).Dependency(1)
	assert.Equal(t, RawDep{IsUnknown: true, Instr: -1}, raw)
}

func TestFuncMemDep_NonLocalWalkBranches(t *testing.T) {
	// 0 → 1 | 2, 1 → 3, 2 → 3: stores on both arms, queried from the merge
	la := loc(1, 0)
	g := cfgFrom([][]int{{1, 2}, {3}, {3}, {}})
	fi := newTestFuncInfo("f", g, [][]InstrInfo{
		{store(la)}, // must not be reached: both arms hit first
		{store(la)},
		{store(la)},
		{load(la)},
	})
	entries := newMemDep(fi).NonLocalPointerDependency(la, true, 3)
	assert.Equal(t, []NonLocalEntry{
		{Loc: la, Block: 1},
		{Loc: la, Block: 2},
	}, entries, "one entry per arm, in predecessor order, and hits stop the walk")
}

func TestFuncMemDep_NonLocalWalkThroughEmptyBlocks(t *testing.T) {
	la := loc(1, 0)
	g := cfgFrom([][]int{{1}, {2}, {}})
	fi := newTestFuncInfo("f", g, [][]InstrInfo{
		{store(la)},
		{},
		{load(la)},
	})
	entries := newMemDep(fi).NonLocalPointerDependency(la, true, 2)
	assert.Equal(t, []NonLocalEntry{{Loc: la, Block: 0}}, entries)
}

func TestFuncMemDep_NonLocalWalkNoHits(t *testing.T) {
	la := loc(1, 0)
	g := cfgFrom([][]int{{1}, {}})
	fi := newTestFuncInfo("f", g, [][]InstrInfo{
		{store(loc(2, 0))},
		{load(la)},
	})
	entries := newMemDep(fi).NonLocalPointerDependency(la, true, 1)
	assert.Empty(t, entries)
}

func TestFuncMemDep_NonLocalWalkLoop(t *testing.T) {
	// back edge 1 → 0: the visited set keeps the walk finite, and the
	// querying block itself is scanned when it is its own predecessor's
	// successor
	la := loc(1, 0)
	g := cfgFrom([][]int{{1}, {0, 2}, {}})
	fi := newTestFuncInfo("f", g, [][]InstrInfo{
		{store(la)},
		{},
		{load(la)},
	})
	entries := newMemDep(fi).NonLocalPointerDependency(la, true, 2)
	require.Equal(t, []NonLocalEntry{{Loc: la, Block: 0}}, entries)
}

func TestFuncMemDep_NonLocalHitWithoutLocationReportsQueriedLoc(t *testing.T) {
	la := loc(1, 0)
	g := cfgFrom([][]int{{1}, {}})
	fi := newTestFuncInfo("f", g, [][]InstrInfo{
		{{Access: AccessOther, Desc: "call g()"}},
		{load(la)},
	})
	entries := newMemDep(fi).NonLocalPointerDependency(la, true, 1)
	assert.Equal(t, []NonLocalEntry{{Loc: la, Block: 0}}, entries)
}
