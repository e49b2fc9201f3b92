package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepGraph_AddFuncDedup(t *testing.T) {
	g := NewDepGraph()
	f := FuncRow{ID: "p::f@f.go:1", Name: "f", Package: "p", NumBlocks: 2}
	assert.True(t, g.AddFunc(f))
	assert.False(t, g.AddFunc(f), "first registration wins")
	assert.Len(t, g.Funcs, 1)
}

func TestDepGraph_AddControlDepsDeterministic(t *testing.T) {
	g := NewDepGraph()
	deps := ControlDepMap{
		3: BlockSet{5: {}, 1: {}},
		0: BlockSet{2: {}},
	}
	g.AddControlDeps("p::f@f.go:1", deps)

	require.Len(t, g.ControlDeps, 3)
	assert.Equal(t, ControlDepRow{FuncID: "p::f@f.go:1", Controller: 0, Dependent: 2}, g.ControlDeps[0])
	assert.Equal(t, ControlDepRow{FuncID: "p::f@f.go:1", Controller: 3, Dependent: 1}, g.ControlDeps[1])
	assert.Equal(t, ControlDepRow{FuncID: "p::f@f.go:1", Controller: 3, Dependent: 5}, g.ControlDeps[2])
}

func TestDepGraph_AddDataDeps(t *testing.T) {
	la := loc(1, 0)
	fi := newTestFuncInfo("f", cfgFrom([][]int{{1}, {}}), [][]InstrInfo{
		{store(la), load(la)},
		{load(la)},
	})
	deps := NewDataDeps()
	deps.setLocal(1, DepInfo{Kind: DepDef, Instr: 0})
	deps.appendNonLocal(2, []NonLocalEntry{
		{Loc: la, Block: 0},
		{Loc: loc(1, 2), Block: 0},
	})

	g := NewDepGraph()
	g.AddDataDeps("id", fi, deps)

	require.Len(t, g.LocalDeps, 1)
	assert.Equal(t, LocalDepRow{
		FuncID:    "id",
		Instr:     1,
		InstrDesc: "load",
		Kind:      "Def",
		DepInstr:  0,
		DepDesc:   "store",
	}, g.LocalDeps[0])

	require.Len(t, g.NonLocal, 2)
	assert.Equal(t, 0, g.NonLocal[0].Ord)
	assert.Equal(t, 1, g.NonLocal[1].Ord, "entry order per instruction is preserved")
	assert.Equal(t, 2, g.NonLocal[1].LocOffset)
}

func TestDepGraph_AddDataDepsNoInstrLeavesDescEmpty(t *testing.T) {
	fi := newTestFuncInfo("f", singleBlockCFG(), [][]InstrInfo{{load(loc(1, 0))}})
	deps := NewDataDeps()
	deps.setLocal(0, DepInfo{Kind: DepNonFuncLocal, Instr: -1})

	g := NewDepGraph()
	g.AddDataDeps("id", fi, deps)

	require.Len(t, g.LocalDeps, 1)
	assert.Equal(t, -1, g.LocalDeps[0].DepInstr)
	assert.Empty(t, g.LocalDeps[0].DepDesc)
}

func TestFuncID(t *testing.T) {
	assert.Equal(t, "example.com/m::Branch@main.go:10", FuncID("example.com/m", "Branch", "main.go", 10))
}

func TestBlockID(t *testing.T) {
	assert.Equal(t, "f::bb3", BlockID("f", 3))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "main.go", BaseName("/a/b/main.go"))
	assert.Equal(t, "main.go", BaseName("main.go"))
}
