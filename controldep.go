package main

import "fmt"

// BlockSet is a set of block indices. Insertion is idempotent.
type BlockSet map[int]struct{}

// Add inserts a block into the set.
func (s BlockSet) Add(b int) { s[b] = struct{}{} }

// Has reports membership.
func (s BlockSet) Has(b int) bool {
	_, ok := s[b]
	return ok
}

// ControlDepMap maps a block A to the set of blocks whose execution is
// conditioned on the branch taken at A. A block appears as a key only once
// some block is control-dependent on it.
type ControlDepMap map[int]BlockSet

// ControlDeps computes the control dependence map of a CFG from its
// post-dominator tree, following Ferrante, Ottenstein and Warren.
//
// Let S be all CFG edges (A→B) such that B does not properly post-dominate
// A. For each edge in S, every node on the post-dominator tree path from B
// up to, but not including, A's tree parent is control dependent on A. The
// single upward walk covers both textbook cases: when the common ancestor L
// is A's parent it marks the path (L, B]; when L is A (the loop case) the
// walk still terminates at A's real parent and passes through A itself.
func ControlDeps(g *CFG, pdt *PostDomTree, prog *Progress) ControlDepMap {
	deps := make(ControlDepMap)
	for a := 0; a < g.Blocks; a++ {
		for _, b := range g.Succs[a] {
			if b < 0 || b >= g.Blocks {
				panic(fmt.Sprintf("control dependence: malformed CFG edge (%d -> %d) with %d blocks", a, b, g.Blocks))
			}
			if pdt.ProperlyPostDominates(b, a) {
				continue // edge outcome is unwound before the next inevitable block
			}
			markEdge(deps, pdt, a, b, prog)
		}
	}
	return deps
}

// markEdge walks the post-dominator tree upward from the head of one
// selected edge (a→b), adding every visited block to a's dependent set.
func markEdge(deps ControlDepMap, pdt *PostDomTree, a, b int, prog *Progress) {
	if _, ok := pdt.NearestCommonAncestor(a, b); !ok {
		// No common ancestor inside the function (degenerate or
		// disconnected tree). The edge contributes no dependence; noted
		// rather than silently dropped.
		prog.Verbose("control dependence: edge (%d -> %d) has no common post-dominator tree ancestor, skipped", a, b)
		return
	}

	// stop is a's tree parent, exclusive. When a has no parent the walk
	// exhausts the tree, marking everything from b up to the root.
	stop := -1
	if p, ok := pdt.Parent(a); ok {
		stop = p
	}

	for w := b; w != -1 && w != stop; {
		set, ok := deps[a]
		if !ok {
			set = make(BlockSet)
			deps[a] = set
		}
		set.Add(w)
		if p, ok := pdt.Parent(w); ok {
			w = p
		} else {
			w = -1
		}
	}
}
