package main

import (
	"errors"
	"fmt"
)

// DepKind is the closed classification of a memory dependence result.
// Exactly one kind holds per result; DepInvalid marks a result that was
// never computed and must never be stored.
type DepKind int

const (
	DepInvalid      DepKind = iota
	DepClobber              // a may-aliasing access invalidates the queried value
	DepDef                  // the found instruction produces the queried value
	DepNonFuncLocal         // no dependence anywhere in the function
	DepNonLocal             // no dependence in the block; resolved via predecessors
	DepUnknown              // the oracle could not determine a relation
)

func (k DepKind) String() string {
	switch k {
	case DepInvalid:
		return "Invalid"
	case DepClobber:
		return "Clobber"
	case DepDef:
		return "Def"
	case DepNonFuncLocal:
		return "NonFuncLocal"
	case DepNonLocal:
		return "NonLocal"
	case DepUnknown:
		return "Unknown"
	}
	return fmt.Sprintf("DepKind(%d)", int(k))
}

// DepInfo is one local dependence record: the kind, and the instruction
// depended upon. Instr is -1 when the oracle reported no instruction, which
// is expected for NonFuncLocal and NonLocal results.
type DepInfo struct {
	Kind  DepKind
	Instr int
}

// NonLocalEntry is one cross-block dependence: the accessed location and
// the predecessor block it was found in (or gave up in).
type NonLocalEntry struct {
	Loc   MemLoc
	Block int
}

// RawDep is the oracle's answer to a single-instruction dependence query.
// Exactly one predicate is true.
type RawDep struct {
	IsClobber      bool
	IsDef          bool
	IsNonFuncLocal bool
	IsUnknown      bool
	IsNonLocal     bool
	Instr          int // instruction depended on, or -1
}

// Oracle is the memory dependence query service the tracker consults.
// Dependency resolves one instruction within its block;
// NonLocalPointerDependency walks predecessor blocks for a location-based
// query and is only meaningful after Dependency answered non-local.
type Oracle interface {
	Dependency(instr int) RawDep
	NonLocalPointerDependency(loc MemLoc, isRead bool, block int) []NonLocalEntry
}

var (
	// ErrOrderedAccess aborts a pass that reaches a synchronizing
	// (atomic/channel) access on the cross-block path. Unsupported by
	// design: guessing a dependence here would be wrong.
	ErrOrderedAccess = errors.New("ordered (atomic or channel) memory access is not supported")

	// ErrUnknownMemInstr aborts a pass on a memory instruction kind the
	// closed classification does not cover.
	ErrUnknownMemInstr = errors.New("unknown memory instruction kind")
)

// DataDeps holds the dependence results of one function. Every processed
// memory access lands in exactly one of the two maps: Local for results
// resolved (or definitively unresolved) within the block, NonLocal for
// accesses whose dependence lives in predecessor blocks.
type DataDeps struct {
	Local    map[int]DepInfo
	NonLocal map[int][]NonLocalEntry
}

// NewDataDeps returns an empty result set.
func NewDataDeps() *DataDeps {
	return &DataDeps{
		Local:    make(map[int]DepInfo),
		NonLocal: make(map[int][]NonLocalEntry),
	}
}

// setLocal stores a local record, overwriting any prior record for the
// instruction. Storing an Invalid record is a bug in the caller.
func (d *DataDeps) setLocal(instr int, info DepInfo) {
	if info.Kind == DepInvalid {
		panic(fmt.Sprintf("data dependence: invalid record for instruction %d", instr))
	}
	d.Local[instr] = info
}

// appendNonLocal accumulates cross-block entries for an instruction in
// oracle order. The key exists after the first query even if the oracle
// found nothing.
func (d *DataDeps) appendNonLocal(instr int, entries []NonLocalEntry) {
	if _, ok := d.NonLocal[instr]; !ok {
		d.NonLocal[instr] = nil
	}
	d.NonLocal[instr] = append(d.NonLocal[instr], entries...)
}

// RecordDeps queries the oracle for every memory-accessing instruction of
// the function, in program order, and files the result. The error paths
// abort the whole pass; partial results must be discarded by the caller.
func RecordDeps(fi *FuncInfo, oracle Oracle, aliases AliasProvider, prog *Progress) (*DataDeps, error) {
	deps := NewDataDeps()
	for i, in := range fi.Instrs {
		if in.Access == AccessNone {
			continue
		}
		if err := processDepResult(deps, fi, i, oracle, aliases, prog); err != nil {
			return nil, fmt.Errorf("%s: instruction %d (%s): %w", fi.Name, i, in.Desc, err)
		}
	}
	return deps, nil
}

// processDepResult resolves one instruction: local results are classified
// and stored directly, non-local results trigger the location-based
// predecessor walk.
func processDepResult(deps *DataDeps, fi *FuncInfo, instr int, oracle Oracle, aliases AliasProvider, prog *Progress) error {
	raw := oracle.Dependency(instr)
	if !raw.IsNonLocal {
		deps.setLocal(instr, classifyDep(raw))
		return nil
	}

	in := fi.Instrs[instr]
	switch in.Access {
	case AccessLoad, AccessStore:
		if in.Ordered {
			// Deliberate unsupported-feature boundary, reported before
			// the abort so the offending access stays diagnosable.
			prog.Warn("%s: ordered access not handled: %s", fi.Name, in.Desc)
			return ErrOrderedAccess
		}
	case AccessLookup:
		// map lookups cannot be atomic; resolved on the read path below
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMemInstr, in.Access)
	}

	loc, ok := aliases.Location(instr)
	if !ok {
		return fmt.Errorf("%w: non-local access without a location", ErrUnknownMemInstr)
	}
	isRead := in.Access != AccessStore
	entries := oracle.NonLocalPointerDependency(loc, isRead, in.Block)
	deps.appendNonLocal(instr, entries)
	return nil
}

// classifyDep translates the oracle's raw result 1:1 into a DepInfo,
// preserving the reported instruction (which may be absent). A raw result
// with no predicate set yields an Invalid record, which setLocal rejects.
func classifyDep(raw RawDep) DepInfo {
	info := DepInfo{Kind: DepInvalid, Instr: raw.Instr}
	switch {
	case raw.IsClobber:
		info.Kind = DepClobber
	case raw.IsDef:
		info.Kind = DepDef
	case raw.IsNonFuncLocal:
		info.Kind = DepNonFuncLocal
	case raw.IsUnknown:
		info.Kind = DepUnknown
	case raw.IsNonLocal:
		info.Kind = DepNonLocal
	}
	return info
}
