package main

// PostDomTree is the post-dominator tree of a CFG, built over a virtual
// exit node that post-dominates every exit block. It answers the three
// queries the control dependence builder needs: the immediate
// post-dominator parent, the "properly post-dominates" relation, and the
// nearest common ancestor of two blocks.
type PostDomTree struct {
	parent []int // immediate post-dominator per block; -1 when the parent is the virtual exit
	reach  []bool
	depth  []int // depth below the virtual exit; -1 for unreachable blocks
}

// NewPostDomTree computes the immediate post-dominator tree using the
// Cooper-Harvey-Kennedy (CHK) iterative algorithm on the reversed CFG,
// rooted at a virtual exit connected to every block without successors.
func NewPostDomTree(g *CFG) *PostDomTree {
	n := g.Blocks
	vExit := n
	total := n + 1

	var exits []int
	for i := 0; i < n; i++ {
		if len(g.Succs[i]) == 0 {
			exits = append(exits, i)
		}
	}

	t := &PostDomTree{
		parent: make([]int, n),
		reach:  make([]bool, n),
		depth:  make([]int, n),
	}
	for i := range t.parent {
		t.parent[i] = -1
		t.depth[i] = -1
	}
	if len(exits) == 0 {
		// infinite loop with no exit: nothing post-dominates anything
		return t
	}

	// Reversed CFG adjacency: original edge (i → j) becomes (j → i), and
	// the virtual exit points at each exit block.
	revAdj := make([][]int, total)
	for i := 0; i < n; i++ {
		for _, succ := range g.Succs[i] {
			revAdj[succ] = append(revAdj[succ], i)
		}
	}
	revAdj[vExit] = append(revAdj[vExit], exits...)

	rpo := reversePostorder(revAdj, vExit, total)
	rpoPos := make([]int, total)
	for i := range rpoPos {
		rpoPos[i] = -1
	}
	for i, node := range rpo {
		rpoPos[node] = i
	}

	// Predecessor list of the reversed CFG (i.e. successors in the
	// original graph, plus the virtual exit edges).
	revPreds := make([][]int, total)
	for from, neighbors := range revAdj {
		for _, to := range neighbors {
			revPreds[to] = append(revPreds[to], from)
		}
	}

	idom := make([]int, total)
	for i := range idom {
		idom[i] = -1
	}
	idom[vExit] = vExit

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == vExit {
				continue
			}
			newIdom := -1
			for _, p := range revPreds[b] {
				if idom[p] != -1 {
					newIdom = p
					break
				}
			}
			if newIdom == -1 {
				continue // unreachable from any exit
			}
			for _, p := range revPreds[b] {
				if p == newIdom || idom[p] == -1 {
					continue
				}
				newIdom = chkIntersect(idom, rpoPos, p, newIdom)
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	for i := 0; i < n; i++ {
		if idom[i] == -1 {
			continue
		}
		t.reach[i] = true
		if idom[i] != vExit {
			t.parent[i] = idom[i]
		}
	}

	// depth below the virtual exit, by walking parent chains with
	// memoization
	var fill func(b int) int
	fill = func(b int) int {
		if t.depth[b] >= 0 {
			return t.depth[b]
		}
		if t.parent[b] == -1 {
			t.depth[b] = 1 // child of the virtual exit
		} else {
			t.depth[b] = fill(t.parent[b]) + 1
		}
		return t.depth[b]
	}
	for i := 0; i < n; i++ {
		if t.reach[i] {
			fill(i)
		}
	}
	return t
}

// Parent returns the immediate post-dominator of b. ok is false when b has
// no parent inside the function: b is unreachable in the tree, or its
// immediate post-dominator is the virtual exit. "No parent" is a valid end
// condition for the control dependence walk, not an error.
func (t *PostDomTree) Parent(b int) (int, bool) {
	if !t.reach[b] || t.parent[b] == -1 {
		return -1, false
	}
	return t.parent[b], true
}

// ProperlyPostDominates reports whether x post-dominates y and x != y.
func (t *PostDomTree) ProperlyPostDominates(x, y int) bool {
	if x == y || !t.reach[x] || !t.reach[y] {
		return false
	}
	for cur := t.parent[y]; cur != -1; cur = t.parent[cur] {
		if cur == x {
			return true
		}
	}
	return false
}

// NearestCommonAncestor returns the nearest common ancestor of x and y in
// the post-dominator tree. ok is false when no common ancestor exists
// inside the function: one of the blocks is unreachable in the tree, or the
// chains only meet at the virtual exit.
func (t *PostDomTree) NearestCommonAncestor(x, y int) (int, bool) {
	if !t.reach[x] || !t.reach[y] {
		return -1, false
	}
	for t.depth[x] > t.depth[y] {
		if x = t.parent[x]; x == -1 {
			return -1, false
		}
	}
	for t.depth[y] > t.depth[x] {
		if y = t.parent[y]; y == -1 {
			return -1, false
		}
	}
	for x != y {
		if x = t.parent[x]; x == -1 {
			return -1, false
		}
		if y = t.parent[y]; y == -1 {
			return -1, false
		}
	}
	return x, true
}

// chkIntersect finds the nearest common ancestor of a and b in the
// in-progress dominator tree, using RPO positions for the climb.
func chkIntersect(idom, rpoPos []int, a, b int) int {
	for a != b {
		for rpoPos[a] > rpoPos[b] {
			a = idom[a]
		}
		for rpoPos[b] > rpoPos[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder computes a reverse-postorder traversal of a directed
// graph given as an adjacency list.
func reversePostorder(adj [][]int, root, n int) []int {
	visited := make([]bool, n)
	order := make([]int, 0, n)

	var dfs func(int)
	dfs = func(node int) {
		visited[node] = true
		for _, next := range adj[node] {
			if !visited[next] {
				dfs(next)
			}
		}
		order = append(order, node)
	}
	dfs(root)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
