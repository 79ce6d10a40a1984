package cap

import (
	"sync"

	"github.com/sustcore-team/sustcore-sub000/kstat"
)

/// CSpace holds CSPACE_SIZE CGroups, created lazily on first use, and
/// belongs to exactly one CHolder.
type CSpace struct {
	mu     sync.Mutex
	groups [CSPACE_SIZE]*CGroup
	holder *CHolder
}

/// NewCSpace constructs an empty CSpace owned by holder.
func NewCSpace(holder *CHolder) *CSpace {
	return &CSpace{holder: holder}
}

/// Holder returns the CHolder that owns this CSpace.
func (s *CSpace) Holder() *CHolder { return s.holder }

func (s *CSpace) groupAt(groupIdx int) *CGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groups[groupIdx] == nil {
		s.groups[groupIdx] = NewCGroup()
	}
	return s.groups[groupIdx]
}

/// peekGroup returns the CGroup at groupIdx without lazily creating
/// it, so a scan over many groups (AllocSlot) doesn't instantiate one
/// per group it merely rules out.
func (s *CSpace) peekGroup(groupIdx int) *CGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[groupIdx]
}

/// Group returns the CGroup addressed by idx's group field, creating
/// it on first access, or nil if the index is out of range.
func (s *CSpace) Group(idx CapIdx) *CGroup {
	g := int(idx.Group)
	if g < 0 || g >= CSPACE_SIZE {
		return nil
	}
	return s.groupAt(g)
}

/// CreateRoot installs a new root capability at idx.
func (s *CSpace) CreateRoot(idx CapIdx, payload Payload, perms PermissionBits) ErrCode {
	group := s.Group(idx)
	if group == nil {
		return InvalidIndex
	}
	return group.CreateRoot(idx, payload, perms)
}

/// Clone installs a capability at idx deriving from parent.
func (s *CSpace) Clone(idx CapIdx, parent *Capability, perms PermissionBits) ErrCode {
	group := s.Group(idx)
	if group == nil {
		return InvalidIndex
	}
	return group.Clone(idx, parent, perms)
}

/// Get returns the capability at idx, or nil.
func (s *CSpace) Get(idx CapIdx) *Capability {
	g := int(idx.Group)
	if g < 0 || g >= CSPACE_SIZE {
		return nil
	}
	s.mu.Lock()
	group := s.groups[g]
	s.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Get(idx)
}

/// Remove deletes the capability at idx.
func (s *CSpace) Remove(idx CapIdx) ErrCode {
	g := int(idx.Group)
	if g < 0 || g >= CSPACE_SIZE {
		return InvalidIndex
	}
	s.mu.Lock()
	group := s.groups[g]
	s.mu.Unlock()
	if group == nil {
		return InvalidCapability
	}
	return group.Remove(idx)
}

/// emplaceMigrated installs a Capability moved in whole at idx.
func (s *CSpace) emplaceMigrated(idx CapIdx, c *Capability) ErrCode {
	group := s.Group(idx)
	if group == nil {
		return InvalidIndex
	}
	return group.emplaceMigrated(idx, c)
}

/// takeOut removes and returns the Capability at idx without tearing
/// down its derivation-tree node.
func (s *CSpace) takeOut(idx CapIdx) (*Capability, ErrCode) {
	g := int(idx.Group)
	if g < 0 || g >= CSPACE_SIZE {
		return nil, InvalidIndex
	}
	s.mu.Lock()
	group := s.groups[g]
	s.mu.Unlock()
	if group == nil {
		return nil, InvalidCapability
	}
	return group.takeOut(idx)
}

/// Empty reports whether every CGroup in s is absent or empty.
func (s *CSpace) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g != nil && !g.Empty() {
			return false
		}
	}
	return true
}

/// Tidyup drops any CGroup that has gone empty, freeing it for
/// garbage collection.
func (s *CSpace) Tidyup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.groups {
		if g != nil && g.Empty() {
			s.groups[i] = nil
		}
	}
}

/// ForkInto clones every occupied capability of s into dst at the same
/// group/slot, skipping (skipGroup, skipSlot) — typically the space's
/// own root CSA, which a forked holder derives fresh rather than
/// inherits, matching how a brand-new task always gets its own root
/// capability object rather than a copy of its parent's — and skipping
/// any capability that isn't Derivable. It returns the number of
/// capabilities successfully cloned, leaving non-derivable ones simply
/// absent from dst.
func (s *CSpace) ForkInto(dst *CSpace, skipGroup, skipSlot int) int {
	n := 0
	s.mu.Lock()
	groups := append([]*CGroup(nil), s.groups[:]...)
	s.mu.Unlock()
	for gi, g := range groups {
		if g == nil {
			continue
		}
		g.mu.Lock()
		for si := 0; si < CGROUP_SLOTS; si++ {
			if gi == skipGroup && si == skipSlot {
				continue
			}
			if !g.used[si] {
				continue
			}
			c := g.slots[si]
			idx := CapIdx{Group: uint16(gi), Slot: uint16(si)}
			if dst.Clone(idx, c, c.perms) == Success {
				n++
			}
		}
		g.mu.Unlock()
	}
	return n
}

/// Walk calls fn once for every occupied (group, slot) in s, in group
/// then slot order, the read-only counterpart to ForkInto's traversal
/// used by the operator CLI's dump-caps command.
func (s *CSpace) Walk(fn func(idx CapIdx, c *Capability)) {
	s.mu.Lock()
	groups := append([]*CGroup(nil), s.groups[:]...)
	s.mu.Unlock()
	for gi, g := range groups {
		if g == nil {
			continue
		}
		g.mu.Lock()
		for si := 0; si < CGROUP_SLOTS; si++ {
			if !g.used[si] {
				continue
			}
			fn(CapIdx{Group: uint16(gi), Slot: uint16(si)}, g.slots[si])
		}
		g.mu.Unlock()
	}
}

/// Migrate moves the capability at srcIdx (in src) whole into this
/// CSpace at dstIdx. It fails if the destination slot is occupied or
/// the source capability's own basic permissions don't grant
/// PERMISSION_MIGRATE (callers gate this further via CSpaceAccessor's
/// SLOT_INSERT/SLOT_REMOVE bits, a different permission domain: that gates the CSA
/// container's insert/remove window, not the migrated capability
/// itself).
func (s *CSpace) Migrate(dstIdx CapIdx, src *CSpace, srcIdx CapIdx) ErrCode {
	c, err := src.takeOut(srcIdx)
	if err != Success {
		return err
	}
	if !c.perms.ImplyBasic(PERMISSION_MIGRATE) {
		src.emplaceMigrated(srcIdx, c)
		return InsufficientPermissions
	}
	if rc := s.emplaceMigrated(dstIdx, c); rc != Success {
		// put it back, migration failed.
		src.emplaceMigrated(srcIdx, c)
		return rc
	}
	kstat.Global.CapsMigrated.Inc()
	return Success
}
