package main

import "golang.org/x/tools/go/ssa"

// MemLoc is a memory location abstracted to an interned base value plus a
// field offset. Offset -1 means the offset within the base is unknown
// (indexing, nested field chains).
type MemLoc struct {
	Base     int
	Offset   int
	BaseKind BaseKind
}

// BaseKind tags what an interned location base is, which is all the alias
// rules need at this precision.
type BaseKind int

const (
	BaseUnknown BaseKind = iota // computed pointer (loads, casts, phi)
	BaseLocal                   // function-local allocation
	BaseGlobal                  // package-level variable
	BaseParam                   // parameter or free variable
)

// AliasKind is the answer of an alias query.
type AliasKind int

const (
	NoAlias AliasKind = iota
	MayAlias
	MustAlias
)

// AliasProvider is the narrow alias-analysis interface the dependence
// tracker and the memory dependence oracle consult. Location is defined for
// memory-accessing instructions only.
type AliasProvider interface {
	Location(instr int) (MemLoc, bool)
	Alias(a, b MemLoc) AliasKind
}

// FuncAliases answers alias queries from the locations interned while
// extracting a FuncInfo.
type FuncAliases struct {
	fi *FuncInfo
}

// NewFuncAliases wraps a FuncInfo as an AliasProvider.
func NewFuncAliases(fi *FuncInfo) *FuncAliases {
	return &FuncAliases{fi: fi}
}

// Location returns the accessed memory location of an instruction.
func (fa *FuncAliases) Location(instr int) (MemLoc, bool) {
	in := fa.fi.Instrs[instr]
	return in.Loc, in.HasLoc
}

// Alias classifies the relation of two locations. Distinct local
// allocations never alias; distinct offsets into the same base never alias;
// everything the base model cannot separate is a may-alias.
func (fa *FuncAliases) Alias(a, b MemLoc) AliasKind {
	if a.Base == b.Base {
		if a.Offset >= 0 && b.Offset >= 0 {
			if a.Offset == b.Offset {
				return MustAlias
			}
			// offset 0 addresses the whole base object and overlaps
			// every field of it
			if a.Offset == 0 || b.Offset == 0 {
				return MayAlias
			}
			return NoAlias
		}
		return MayAlias
	}
	// A fresh local allocation cannot be reached through a different known
	// base. A computed pointer might point anywhere, including at a local
	// whose address escaped.
	if a.BaseKind == BaseLocal || b.BaseKind == BaseLocal {
		other := b.BaseKind
		if b.BaseKind == BaseLocal {
			other = a.BaseKind
		}
		if other != BaseUnknown {
			return NoAlias
		}
		return MayAlias
	}
	if a.BaseKind == BaseGlobal && b.BaseKind == BaseGlobal {
		return NoAlias
	}
	return MayAlias
}

// locInterner assigns stable integer ids to SSA location bases during
// extraction so the core never holds SSA pointers.
type locInterner struct {
	ids map[ssa.Value]int
}

func newLocInterner() *locInterner {
	return &locInterner{ids: make(map[ssa.Value]int)}
}

// location abstracts an address operand to a MemLoc.
func (in *locInterner) location(addr ssa.Value) (MemLoc, bool) {
	if addr == nil {
		return MemLoc{}, false
	}
	base, offset := resolveBase(addr)
	id, ok := in.ids[base]
	if !ok {
		id = len(in.ids)
		in.ids[base] = id
	}
	return MemLoc{Base: id, Offset: offset, BaseKind: baseKind(base)}, true
}

// resolveBase walks address computations down to their root value. Offset 0
// addresses the whole base object, a direct field selection of field i
// reports i+1, and deeper chains or indexing report -1 (unknown).
func resolveBase(v ssa.Value) (base ssa.Value, offset int) {
	switch a := v.(type) {
	case *ssa.FieldAddr:
		inner, innerOff := resolveBase(a.X)
		if innerOff == 0 {
			return inner, a.Field + 1
		}
		return inner, -1
	case *ssa.IndexAddr:
		inner, _ := resolveBase(a.X)
		return inner, -1
	case *ssa.MakeInterface:
		return resolveBase(a.X)
	}
	return v, 0
}

func baseKind(base ssa.Value) BaseKind {
	switch base.(type) {
	case *ssa.Alloc:
		return BaseLocal
	case *ssa.Global:
		return BaseGlobal
	case *ssa.Parameter, *ssa.FreeVar:
		return BaseParam
	}
	return BaseUnknown
}
