package cap

import "sync"

// dnode is one node of a capability derivation tree, held in a
// package-level arena and referenced by integer index rather than by
// pointer, so that revoke can walk and tear down a subtree without
// chasing live Go pointers through code that might still reference a
// freed Capability.
type dnode struct {
	cap      *Capability
	parent   int
	children []int
	free     bool
}

var (
	treeMu sync.Mutex
	arena  []dnode
)

func allocNode(c *Capability, parent int) int {
	treeMu.Lock()
	defer treeMu.Unlock()
	for i := range arena {
		if arena[i].free {
			arena[i] = dnode{cap: c, parent: parent}
			if parent >= 0 {
				arena[parent].children = append(arena[parent].children, i)
			}
			return i
		}
	}
	idx := len(arena)
	arena = append(arena, dnode{cap: c, parent: parent})
	if parent >= 0 {
		arena[parent].children = append(arena[parent].children, idx)
	}
	return idx
}

// detach removes idx from its parent's child list, used before freeing
// or reparenting a node.
func detach(idx int) {
	n := &arena[idx]
	if n.parent < 0 {
		return
	}
	p := &arena[n.parent]
	for i, c := range p.children {
		if c == idx {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
}

// subtree returns idx and every descendant index, root-first.
func subtree(idx int) []int {
	out := []int{idx}
	for _, c := range arena[idx].children {
		out = append(out, subtree(c)...)
	}
	return out
}

// freeNode marks idx's arena slot reusable. Caller must have already
// detached idx and torn down its Capability.
func freeNode(idx int) {
	arena[idx] = dnode{free: true, parent: -1}
}

/// Revoke destroys every capability derived from c (c's descendants in
/// the derivation tree), in depth-first order, removing each from its
/// owning CGroup. c itself is left intact. remove is called once per
/// descendant with that descendant's *Capability.
func Revoke(c *Capability, remove func(descendant *Capability)) {
	treeMu.Lock()
	idx := c.node
	if idx < 0 {
		treeMu.Unlock()
		return
	}
	descendants := []int{}
	for _, ch := range arena[idx].children {
		descendants = append(descendants, subtree(ch)...)
	}
	arena[idx].children = nil
	treeMu.Unlock()

	for _, d := range descendants {
		treeMu.Lock()
		dc := arena[d].cap
		treeMu.Unlock()
		if dc != nil {
			remove(dc)
		}
		treeMu.Lock()
		freeNode(d)
		treeMu.Unlock()
	}
}

/// destroyNode detaches idx's own node from its parent and frees it.
/// Callers that are removing a whole subtree (CGroup.Remove) must call
/// Revoke first to tear down idx's descendants; any children still
/// present at this point (a bare detach with no prior Revoke) are
/// reparented onto idx's parent so they remain reachable.
func destroyNode(idx int) {
	treeMu.Lock()
	defer treeMu.Unlock()
	n := arena[idx]
	for _, ch := range n.children {
		arena[ch].parent = n.parent
		if n.parent >= 0 {
			arena[n.parent].children = append(arena[n.parent].children, ch)
		}
	}
	detach(idx)
	freeNode(idx)
}
