package main

import (
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// CFG is an index-keyed view of a function's control flow graph. Block i
// corresponds to fn.Blocks[i]; SSA keeps block.Index in sync with slice
// position, so the block index doubles as the arena index everywhere
// downstream (post-dominator tree, control dependence map, dependence maps).
type CFG struct {
	Blocks int
	Entry  int
	Succs  [][]int
	Preds  [][]int
}

// AccessKind classifies how an instruction touches memory. The set handled
// by the dependence tracker is closed: loads, stores and map lookups get
// full (including cross-block) resolution, everything else is opaque.
type AccessKind int

const (
	AccessNone   AccessKind = iota // does not touch memory
	AccessLoad                     // pointer load (*ssa.UnOp MUL) or channel receive
	AccessStore                    // pointer store (*ssa.Store) or channel send
	AccessLookup                   // map lookup, resolved on the read-oriented path
	AccessOther                    // calls and remaining memory-touching instructions
)

func (a AccessKind) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessLoad:
		return "load"
	case AccessStore:
		return "store"
	case AccessLookup:
		return "lookup"
	case AccessOther:
		return "other"
	}
	return "invalid"
}

// InstrInfo is the arena record for one instruction.
type InstrInfo struct {
	Block   int
	Access  AccessKind
	HasLoc  bool
	Loc     MemLoc
	Ordered bool // synchronizing access: channel op or sync/atomic call
	Desc    string
}

// FuncInfo is the per-function arena consumed by the dependence tracker and
// the memory dependence oracle. Instruction indices are assigned in program
// order (block order, then instruction order within the block).
type FuncInfo struct {
	Name   string
	CFG    CFG
	Instrs []InstrInfo

	// first instruction index per block, used to scan a block backwards
	blockStart []int
	blockEnd   []int // one past the last instruction of the block
}

// BlockInstrs returns the half-open instruction index range [start, end) of
// a block.
func (fi *FuncInfo) BlockInstrs(b int) (start, end int) {
	return fi.blockStart[b], fi.blockEnd[b]
}

// ExtractCFG builds the CFG for an SSA function.
func ExtractCFG(fn *ssa.Function) CFG {
	n := len(fn.Blocks)
	g := CFG{
		Blocks: n,
		Entry:  0,
		Succs:  make([][]int, n),
		Preds:  make([][]int, n),
	}
	for i, b := range fn.Blocks {
		for _, succ := range b.Succs {
			g.Succs[i] = append(g.Succs[i], succ.Index)
			g.Preds[succ.Index] = append(g.Preds[succ.Index], i)
		}
	}
	return g
}

// ExtractFuncInfo builds the instruction arena for an SSA function. Value
// identities are interned so that must/no-alias decisions can be made by
// comparing location bases instead of SSA pointers.
func ExtractFuncInfo(fn *ssa.Function) *FuncInfo {
	fi := &FuncInfo{
		Name:       fn.String(),
		CFG:        ExtractCFG(fn),
		blockStart: make([]int, len(fn.Blocks)),
		blockEnd:   make([]int, len(fn.Blocks)),
	}
	interner := newLocInterner()
	for i, b := range fn.Blocks {
		fi.blockStart[i] = len(fi.Instrs)
		for _, instr := range b.Instrs {
			fi.Instrs = append(fi.Instrs, classifyInstr(instr, i, interner))
		}
		fi.blockEnd[i] = len(fi.Instrs)
	}
	return fi
}

// classifyInstr maps one SSA instruction to its arena record.
func classifyInstr(instr ssa.Instruction, block int, in *locInterner) InstrInfo {
	info := InstrInfo{Block: block, Desc: instrDesc(instr)}

	switch v := instr.(type) {
	case *ssa.UnOp:
		switch v.Op {
		case token.MUL:
			info.Access = AccessLoad
			info.Loc, info.HasLoc = in.location(v.X)
		case token.ARROW:
			// channel receive: an ordered read of the channel
			info.Access = AccessLoad
			info.Ordered = true
			info.Loc, info.HasLoc = in.location(v.X)
		}
	case *ssa.Store:
		info.Access = AccessStore
		info.Loc, info.HasLoc = in.location(v.Addr)
	case *ssa.Send:
		// channel send: an ordered write of the channel
		info.Access = AccessStore
		info.Ordered = true
		info.Loc, info.HasLoc = in.location(v.Chan)
	case *ssa.Lookup:
		if _, ok := v.X.Type().Underlying().(*types.Map); ok {
			info.Access = AccessLookup
			info.Loc, info.HasLoc = in.location(v.X)
		}
	case *ssa.MapUpdate:
		info.Access = AccessOther
		info.Loc, info.HasLoc = in.location(v.Map)
	case *ssa.Call:
		info.Access = AccessOther
		info.Ordered = isAtomicCall(&v.Call)
	case *ssa.Defer:
		info.Access = AccessOther
	case *ssa.Go:
		info.Access = AccessOther
	case *ssa.Alloc:
		if v.Heap {
			info.Access = AccessOther
		}
	case *ssa.Select, *ssa.Panic, *ssa.RunDefers:
		info.Access = AccessOther
	}
	return info
}

// isAtomicCall reports whether a call resolves statically to sync/atomic.
func isAtomicCall(common *ssa.CallCommon) bool {
	if common.IsInvoke() {
		return false
	}
	callee, ok := common.Value.(*ssa.Function)
	if !ok || callee.Pkg == nil {
		return false
	}
	return callee.Pkg.Pkg.Path() == "sync/atomic"
}

// instrDesc renders a compact one-line description of an instruction for
// the result model, the printed dump and the dot exporter.
func instrDesc(instr ssa.Instruction) string {
	s := instr.String()
	if v, ok := instr.(ssa.Value); ok && v.Name() != "" {
		s = v.Name() + " = " + s
	}
	return strings.ReplaceAll(s, "\n", " ")
}
