package main

// FuncMemDep is a block-scan memory dependence oracle over one function's
// instruction arena. It resolves a query by scanning backwards through the
// enclosing block; when the scan falls off the top of the block the answer
// is non-local (or non-function-local at the entry block), and the caller
// may follow up with a predecessor walk.
//
// The model is deliberately conservative: any alias doubt becomes a
// clobber, and opaque accesses stop every scan.
type FuncMemDep struct {
	fi      *FuncInfo
	aliases AliasProvider
}

// NewFuncMemDep builds an oracle for one function.
func NewFuncMemDep(fi *FuncInfo, aliases AliasProvider) *FuncMemDep {
	return &FuncMemDep{fi: fi, aliases: aliases}
}

// Dependency resolves one instruction within its block.
func (m *FuncMemDep) Dependency(instr int) RawDep {
	in := m.fi.Instrs[instr]

	switch in.Access {
	case AccessLoad, AccessLookup:
		if !in.HasLoc {
			return RawDep{IsUnknown: true, Instr: -1}
		}
		return m.scanBlock(instr, in.Loc, true)
	case AccessStore:
		if !in.HasLoc {
			return RawDep{IsUnknown: true, Instr: -1}
		}
		return m.scanBlock(instr, in.Loc, false)
	default:
		// Opaque accesses (calls, map updates, allocation): depend on the
		// nearest preceding writer in the block, unknown otherwise. They
		// never take the non-local path; the tracker's classification set
		// stays closed.
		start, _ := m.fi.BlockInstrs(in.Block)
		for j := instr - 1; j >= start; j-- {
			prev := m.fi.Instrs[j]
			if prev.Access == AccessStore || prev.Access == AccessOther {
				return RawDep{IsClobber: true, Instr: j}
			}
		}
		return RawDep{IsUnknown: true, Instr: -1}
	}
}

// scanBlock walks backwards from instr to the top of its block looking for
// the nearest access related to loc.
func (m *FuncMemDep) scanBlock(instr int, loc MemLoc, isRead bool) RawDep {
	in := m.fi.Instrs[instr]
	start, _ := m.fi.BlockInstrs(in.Block)
	for j := instr - 1; j >= start; j-- {
		if raw, hit := m.relate(j, loc, isRead); hit {
			return raw
		}
	}
	if in.Block == m.fi.CFG.Entry {
		return RawDep{IsNonFuncLocal: true, Instr: -1}
	}
	return RawDep{IsNonLocal: true, Instr: -1}
}

// relate classifies how instruction j relates to a query on loc, if at all.
func (m *FuncMemDep) relate(j int, loc MemLoc, isRead bool) (RawDep, bool) {
	prev := m.fi.Instrs[j]
	switch prev.Access {
	case AccessStore:
		if !prev.HasLoc {
			return RawDep{IsClobber: true, Instr: j}, true
		}
		switch m.aliases.Alias(prev.Loc, loc) {
		case MustAlias:
			return RawDep{IsDef: true, Instr: j}, true
		case MayAlias:
			return RawDep{IsClobber: true, Instr: j}, true
		}
	case AccessLoad, AccessLookup:
		// reads only matter for store queries (anti-dependence)
		if isRead || !prev.HasLoc {
			return RawDep{}, false
		}
		if m.aliases.Alias(prev.Loc, loc) != NoAlias {
			return RawDep{IsClobber: true, Instr: j}, true
		}
	case AccessOther:
		// opaque call: may read or write anything
		return RawDep{IsClobber: true, Instr: j}, true
	}
	return RawDep{}, false
}

// NonLocalPointerDependency walks predecessor blocks breadth-first from the
// containing block, reporting one entry per path: the related location and
// the block it was found in. A block that yields a hit is not walked
// through; a dependence-free path simply contributes nothing.
func (m *FuncMemDep) NonLocalPointerDependency(loc MemLoc, isRead bool, block int) []NonLocalEntry {
	var entries []NonLocalEntry
	visited := make(map[int]bool)
	queue := append([]int(nil), m.fi.CFG.Preds[block]...)
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if visited[b] {
			continue
		}
		visited[b] = true

		if j, hit := m.scanWholeBlock(b, loc, isRead); hit {
			entryLoc := loc
			if m.fi.Instrs[j].HasLoc {
				entryLoc = m.fi.Instrs[j].Loc
			}
			entries = append(entries, NonLocalEntry{Loc: entryLoc, Block: b})
			continue
		}
		queue = append(queue, m.fi.CFG.Preds[b]...)
	}
	return entries
}

// scanWholeBlock scans a full block backwards for an access related to loc.
func (m *FuncMemDep) scanWholeBlock(b int, loc MemLoc, isRead bool) (int, bool) {
	start, end := m.fi.BlockInstrs(b)
	for j := end - 1; j >= start; j-- {
		if _, hit := m.relate(j, loc, isRead); hit {
			return j, true
		}
	}
	return -1, false
}
