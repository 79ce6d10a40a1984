package cap

import "github.com/sustcore-team/sustcore-sub000/util"

/// Per-group CSA permission window: each CGroup index gets a 4-bit
/// window (read/insert/remove/share) packed into the owning
/// capability's extended bitmap.
const (
	SlotBits   = 4
	SlotMask   = 0xf
	SlotRead   = 0x1
	SlotInsert = 0x2
	SlotRemove = 0x4
	// if a capability's SLOT_SHARE bit for a group is 0, capabilities
	// cloned from it have every SLOT_* bit cleared for that group.
	SlotShare = 0x8
)

func slotOffset(groupIdx int) int {
	return groupIdx * SlotBits
}

/// CsaAlloc is the CSpaceAccessor-specific basic permission bit (first
/// of the 48 payload-specific bits above the 16 low bits reserved for
/// generic permissions such as UNWRAP/DERIVE/MIGRATE) that gates
/// AllocSlot.
const CsaAlloc uint64 = 1 << 16

/// CloneCSAPerms derives the permission bits a cloned CSpaceAccessor
/// capability gets from its parent's: for every CGroup whose SLOT_SHARE
/// bit is unset in parent, every SLOT_* bit is cleared in the clone,
/// so a clone can never see or touch a group its parent didn't mark
/// shareable.
func CloneCSAPerms(parent PermissionBits) PermissionBits {
	clone := parent.Clone()
	if len(clone.Bitmap) == 0 {
		return clone
	}
	for g := 0; g < CSPACE_SIZE; g++ {
		off := slotOffset(g)
		window := util.Window(clone.Bitmap, off, SlotBits)
		if window&SlotShare == 0 {
			util.SetWindow(clone.Bitmap, off, SlotBits, 0)
		}
	}
	return clone
}

/// CSpaceAccessorPayload wraps a *CSpace so it can be referenced
/// through the capability system (e.g. so a thread's Major/Minor
/// space can itself be migrated or shared via IPC).
type CSpaceAccessorPayload struct {
	Space *CSpace
}

func (CSpaceAccessorPayload) Kind() PayloadKind { return PayloadCSpaceAccessor }

/// CSAOperation performs a permission-checked operation against the
/// CSpace referenced by a CSpaceAccessor capability: every call is
/// gated by the capability's own per-group SLOT_* window, exactly as
/// the basic PERMISSION_UNWRAP/DERIVE bits gate Capability.Payload and
/// Clone.
type CSAOperation struct {
	cap   *Capability
	space *CSpace
}

/// NewCSAOperation builds a CSAOperation over cap, which must wrap a
/// CSpaceAccessorPayload; returns nil if cap's kind doesn't match or
/// the capability doesn't grant unwrap.
func NewCSAOperation(c *Capability) *CSAOperation {
	payload, ok := c.Payload().(CSpaceAccessorPayload)
	if !ok {
		return nil
	}
	return &CSAOperation{cap: c, space: payload.Space}
}

func (op *CSAOperation) slotImply(perm uint64, groupIdx int) bool {
	return op.cap.perms.ImpliesWindow(perm, slotOffset(groupIdx), SlotBits)
}

/// CreateRoot installs a new root capability at idx if this accessor's
/// SLOT_INSERT bit is set for idx's group.
func (op *CSAOperation) CreateRoot(idx CapIdx, payload Payload, perms PermissionBits) ErrCode {
	if !op.slotImply(SlotInsert, int(idx.Group)) {
		return InsufficientPermissions
	}
	return op.space.CreateRoot(idx, payload, perms)
}

/// Clone installs a capability at dstIdx deriving from the capability
/// at srcIdx within this accessor's space, gated by SLOT_INSERT on the
/// destination group.
func (op *CSAOperation) Clone(dstIdx CapIdx, srcIdx CapIdx, perms PermissionBits) ErrCode {
	if !op.slotImply(SlotInsert, int(dstIdx.Group)) {
		return InsufficientPermissions
	}
	parent := op.space.Get(srcIdx)
	if parent == nil {
		return InvalidCapability
	}
	return op.space.Clone(dstIdx, parent, perms)
}

/// Migrate moves the capability at srcIdx (in src's space) into this
/// accessor's space at dstIdx, gated by SLOT_INSERT on the destination
/// group and SLOT_REMOVE on src's source group. The moved capability
/// keeps its permissions unchanged.
func (op *CSAOperation) Migrate(dstIdx CapIdx, src *CSAOperation, srcIdx CapIdx) ErrCode {
	if !op.slotImply(SlotInsert, int(dstIdx.Group)) {
		return InsufficientPermissions
	}
	if !src.slotImply(SlotRemove, int(srcIdx.Group)) {
		return InsufficientPermissions
	}
	return op.space.Migrate(dstIdx, src.space, srcIdx)
}

/// Remove deletes the capability at idx, gated by SLOT_REMOVE on idx's
/// group.
func (op *CSAOperation) Remove(idx CapIdx) ErrCode {
	if !op.slotImply(SlotRemove, int(idx.Group)) {
		return InsufficientPermissions
	}
	return op.space.Remove(idx)
}

/// Get returns the capability at idx, gated by SLOT_READ on idx's
/// group.
func (op *CSAOperation) Get(idx CapIdx) *Capability {
	if !op.slotImply(SlotRead, int(idx.Group)) {
		return nil
	}
	return op.space.Get(idx)
}

/// AllocSlot linear-scans for a group that has SLOT_INSERT set in this
/// accessor's permissions and an unused slot, gated by the accessor's
/// global CsaAlloc bit. A group that hasn't been created yet counts as
/// having every slot free.
func (op *CSAOperation) AllocSlot() (CapIdx, ErrCode) {
	if !op.cap.perms.ImplyBasic(CsaAlloc) {
		return CapIdx{}, InsufficientPermissions
	}
	for g := 0; g < CSPACE_SIZE; g++ {
		if !op.slotImply(SlotInsert, g) {
			continue
		}
		group := op.space.peekGroup(g)
		slot := 0
		if group != nil {
			slot = group.LookupFree(group.last)
			if slot < 0 {
				continue
			}
		}
		return CapIdx{Space: SpaceMajor, Group: uint16(g), Slot: uint16(slot)}, Success
	}
	return CapIdx{}, InvalidIndex
}
