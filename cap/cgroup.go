package cap

import (
	"sync"

	"github.com/sustcore-team/sustcore-sub000/kstat"
)

/// CGroup is a fixed-size container of capability slots within a
/// CSpace; it is the unit the 4-bit CSA permission window (SLOT_READ/
/// INSERT/REMOVE/SHARE) is indexed by.
type CGroup struct {
	mu    sync.Mutex
	slots [CGROUP_SLOTS]*Capability
	used  [CGROUP_SLOTS]bool
	last  int // resume cursor for LookupFree, per the original's lookup_free(last)
}

/// NewCGroup constructs an empty CGroup.
func NewCGroup() *CGroup {
	return &CGroup{last: -1}
}

/// Empty reports whether every slot in g is unused.
func (g *CGroup) Empty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, u := range g.used {
		if u {
			return false
		}
	}
	return true
}

/// LookupFree scans for the next free slot starting after last,
/// wrapping once, and returns -1 if the group is full.
func (g *CGroup) LookupFree(last int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 1; i <= CGROUP_SLOTS; i++ {
		idx := (last + i) % CGROUP_SLOTS
		if !g.used[idx] {
			return idx
		}
	}
	return -1
}

/// CreateRoot installs a brand-new root capability at slot, owning
/// payload outright.
func (g *CGroup) CreateRoot(idx CapIdx, payload Payload, perms PermissionBits) ErrCode {
	slot := int(idx.Slot)
	if slot < 0 || slot >= CGROUP_SLOTS {
		return InvalidIndex
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used[slot] {
		return SlotBusy
	}
	g.slots[slot] = newRootCapability(g, idx, payload, perms)
	g.used[slot] = true
	g.last = slot
	kstat.Global.CapsCreated.Inc()
	return Success
}

/// Clone installs a new capability at slot that derives from parent,
/// carrying perms (which must not grant more than parent's own perms).
func (g *CGroup) Clone(idx CapIdx, parent *Capability, perms PermissionBits) ErrCode {
	slot := int(idx.Slot)
	if slot < 0 || slot >= CGROUP_SLOTS {
		return InvalidIndex
	}
	if !parent.Derivable() {
		return InsufficientPermissions
	}
	if !parent.perms.Imply(perms) {
		return InsufficientPermissions
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used[slot] {
		return SlotBusy
	}
	g.slots[slot] = cloneFrom(g, parent, idx, perms)
	g.used[slot] = true
	g.last = slot
	kstat.Global.CapsCloned.Inc()
	return Success
}

/// emplaceMigrated installs an already-constructed Capability (one
/// moved in whole from another CSpace by Migrate) at slot.
func (g *CGroup) emplaceMigrated(idx CapIdx, c *Capability) ErrCode {
	slot := int(idx.Slot)
	if slot < 0 || slot >= CGROUP_SLOTS {
		return InvalidIndex
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used[slot] {
		return SlotBusy
	}
	c.idx = idx
	c.owner = g
	g.slots[slot] = c
	g.used[slot] = true
	g.last = slot
	return Success
}

/// Get returns the capability at idx's slot, or nil if unoccupied.
func (g *CGroup) Get(idx CapIdx) *Capability {
	slot := int(idx.Slot)
	if slot < 0 || slot >= CGROUP_SLOTS {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.used[slot] {
		return nil
	}
	return g.slots[slot]
}

/// Remove deletes the capability at idx's slot and, recursively, every
/// descendant in the derivation tree, wherever they live (any CSpace,
/// any holder). c's own node is then detached and freed; descendants
/// are cleared from their own owning CGroup via removeFromOwner.
func (g *CGroup) Remove(idx CapIdx) ErrCode {
	slot := int(idx.Slot)
	if slot < 0 || slot >= CGROUP_SLOTS {
		return InvalidIndex
	}
	g.mu.Lock()
	if !g.used[slot] {
		g.mu.Unlock()
		return InvalidCapability
	}
	c := g.slots[slot]
	g.slots[slot] = nil
	g.used[slot] = false
	g.mu.Unlock()

	Revoke(c, func(descendant *Capability) {
		descendant.removeFromOwner()
		kstat.Global.CapsRevoked.Inc()
	})
	destroyNode(c.node)
	kstat.Global.CapsRemoved.Inc()
	return Success
}

/// clearSlot empties slot without touching the derivation tree, used
/// by Capability.removeFromOwner while a revoke cascade tears down the
/// tree side separately.
func (g *CGroup) clearSlot(slot int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.slots[slot] = nil
	g.used[slot] = false
}

/// takeOut removes the capability at idx's slot and returns it without
/// tearing down its derivation-tree node, used by Migrate (the
/// capability moves whole into another CSpace rather than being
/// destroyed).
func (g *CGroup) takeOut(idx CapIdx) (*Capability, ErrCode) {
	slot := int(idx.Slot)
	if slot < 0 || slot >= CGROUP_SLOTS {
		return nil, InvalidIndex
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.used[slot] {
		return nil, InvalidCapability
	}
	c := g.slots[slot]
	g.slots[slot] = nil
	g.used[slot] = false
	return c, Success
}
