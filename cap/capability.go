package cap

/// Capability is one entry in a CGroup: an index, a reference to its
/// (possibly shared) payload, its own permission bits, and a node in
/// the global derivation tree. The derivation root owns the payload;
/// clones reference the same Payload value but carry independent,
/// never-wider permissions.
type Capability struct {
	idx     CapIdx
	payload Payload
	perms   PermissionBits
	node    int // index into the derivation-tree arena, or -1 if detached
	isRoot  bool
	owner   *CGroup // the CGroup whose slot holds this capability
}

/// newRootCapability creates a fresh, top-of-tree capability owning
/// payload outright, placed in owner's slot idx.Slot.
func newRootCapability(owner *CGroup, idx CapIdx, payload Payload, perms PermissionBits) *Capability {
	c := &Capability{idx: idx, payload: payload, perms: perms, isRoot: true, owner: owner}
	c.node = allocNode(c, -1)
	return c
}

/// cloneFrom creates a capability deriving from parent: same payload
/// reference, permissions no wider than parent's (downgraded at the
/// caller's request), linked as parent's child in the derivation tree,
/// placed in owner's slot idx.Slot.
func cloneFrom(owner *CGroup, parent *Capability, idx CapIdx, perms PermissionBits) *Capability {
	c := &Capability{idx: idx, payload: parent.payload, perms: perms, owner: owner}
	c.node = allocNode(c, parent.node)
	return c
}

/// removeFromOwner clears c's slot in its owning CGroup, used while
/// cascading a revoke across descendants that may live in any CSpace
/// or holder (see Revoke).
func (c *Capability) removeFromOwner() {
	if c.owner != nil {
		c.owner.clearSlot(int(c.idx.Slot))
	}
}

/// Idx returns this capability's address.
func (c *Capability) Idx() CapIdx { return c.idx }

/// Kind returns the PayloadKind of the wrapped payload.
func (c *Capability) Kind() PayloadKind { return c.payload.Kind() }

/// Payload returns the wrapped payload, gated on the PERMISSION_UNWRAP
/// bit; returns nil if the capability doesn't grant unwrap.
func (c *Capability) Payload() Payload {
	if !c.perms.ImplyBasic(PERMISSION_UNWRAP) {
		return nil
	}
	return c.payload
}

/// Perms returns this capability's own permission bits (not the
/// root's) — every clone/downgrade narrows independently.
func (c *Capability) Perms() *PermissionBits {
	return &c.perms
}

/// Derivable reports whether this capability may be cloned further.
func (c *Capability) Derivable() bool {
	return c.perms.ImplyBasic(PERMISSION_DERIVE)
}
