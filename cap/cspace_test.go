package cap

import "testing"

func testObjPerms() PermissionBits {
	return NewPermissionBits(PERMISSION_UNWRAP|PERMISSION_DERIVE|PERMISSION_MIGRATE, PayloadTestObject)
}

func TestCreateRootAndGet(t *testing.T) {
	h := NewCHolder()
	s := h.Major.SpaceAt(1)
	idx := CapIdx{Group: 0, Slot: 0}

	if rc := s.CreateRoot(idx, TestObjectPayload{Tag: 12345}, testObjPerms()); rc != Success {
		t.Fatalf("CreateRoot failed: %v", rc)
	}
	if rc := s.CreateRoot(idx, TestObjectPayload{Tag: 1}, testObjPerms()); rc != SlotBusy {
		t.Fatalf("expected SlotBusy on occupied slot, got %v", rc)
	}

	c := s.Get(idx)
	if c == nil {
		t.Fatalf("Get returned nil for freshly created capability")
	}
	obj, ok := c.Payload().(TestObjectPayload)
	if !ok || obj.Tag != 12345 {
		t.Fatalf("unexpected payload: %+v", c.Payload())
	}
}

func TestCloneSharesPayloadAndGatesOnDerive(t *testing.T) {
	h := NewCHolder()
	s := h.Major.SpaceAt(1)
	root := CapIdx{Group: 0, Slot: 0}
	s.CreateRoot(root, TestObjectPayload{Tag: 999}, testObjPerms())
	parent := s.Get(root)

	clone := CapIdx{Group: 0, Slot: 1}
	if rc := s.Clone(clone, parent, testObjPerms()); rc != Success {
		t.Fatalf("Clone failed: %v", rc)
	}
	cc := s.Get(clone)
	if cc.Payload().(TestObjectPayload).Tag != 999 {
		t.Fatalf("clone did not share parent's payload")
	}

	noDerive := NewPermissionBits(PERMISSION_UNWRAP, PayloadTestObject)
	parent.Perms().Downgrade(noDerive)
	another := CapIdx{Group: 0, Slot: 2}
	if rc := s.Clone(another, parent, noDerive); rc != InsufficientPermissions {
		t.Fatalf("expected InsufficientPermissions cloning a non-derivable parent, got %v", rc)
	}
}

func TestCloneCannotGrantWiderPermsThanParent(t *testing.T) {
	h := NewCHolder()
	s := h.Major.SpaceAt(1)
	root := CapIdx{Group: 0, Slot: 0}
	readOnly := NewPermissionBits(PERMISSION_DERIVE, PayloadTestObject)
	s.CreateRoot(root, TestObjectPayload{Tag: 1}, readOnly)
	parent := s.Get(root)

	wider := NewPermissionBits(PERMISSION_DERIVE|PERMISSION_UNWRAP, PayloadTestObject)
	clone := CapIdx{Group: 0, Slot: 1}
	if rc := s.Clone(clone, parent, wider); rc != InsufficientPermissions {
		t.Fatalf("expected InsufficientPermissions granting wider perms than parent, got %v", rc)
	}
}

func TestMigrateMovesCapabilityAcrossCSpaces(t *testing.T) {
	h0, h1 := NewCHolder(), NewCHolder()
	s0 := h0.Major.SpaceAt(1)
	s1 := h1.Major.SpaceAt(1)

	src := CapIdx{Group: 0, Slot: 0}
	s0.CreateRoot(src, TestObjectPayload{Tag: 12345}, testObjPerms())

	dst := CapIdx{Group: 0, Slot: 5}
	if rc := s1.Migrate(dst, s0, src); rc != Success {
		t.Fatalf("Migrate failed: %v", rc)
	}
	if s0.Get(src) != nil {
		t.Fatalf("source slot must be empty after migrate")
	}
	moved := s1.Get(dst)
	if moved == nil || moved.Payload().(TestObjectPayload).Tag != 12345 {
		t.Fatalf("destination slot missing or wrong payload after migrate")
	}
}

func TestMigrateRejectsCapabilityWithoutMigratePermission(t *testing.T) {
	h0, h1 := NewCHolder(), NewCHolder()
	s0 := h0.Major.SpaceAt(1)
	s1 := h1.Major.SpaceAt(1)

	src := CapIdx{Group: 0, Slot: 0}
	noMigrate := NewPermissionBits(PERMISSION_UNWRAP|PERMISSION_DERIVE, PayloadTestObject)
	s0.CreateRoot(src, TestObjectPayload{Tag: 1}, noMigrate)

	dst := CapIdx{Group: 0, Slot: 5}
	if rc := s1.Migrate(dst, s0, src); rc != InsufficientPermissions {
		t.Fatalf("expected InsufficientPermissions migrating a capability without PERMISSION_MIGRATE, got %v", rc)
	}
	if s0.Get(src) == nil {
		t.Fatalf("capability must stay in place in src after a rejected migrate")
	}
	if s1.Get(dst) != nil {
		t.Fatalf("destination slot must stay empty after a rejected migrate")
	}
}

func TestDowngradeBlocksUnwrap(t *testing.T) {
	h := NewCHolder()
	s := h.Major.SpaceAt(1)
	idx := CapIdx{Group: 0, Slot: 0}
	s.CreateRoot(idx, TestObjectPayload{Tag: 1}, testObjPerms())
	c := s.Get(idx)

	none := NewPermissionBits(0, PayloadTestObject)
	if ok := c.Perms().Downgrade(none); !ok {
		t.Fatalf("downgrade to the empty permission set must succeed (it only narrows)")
	}
	if c.Payload() != nil {
		t.Fatalf("Payload() must return nil once UNWRAP has been downgraded away")
	}
}

func TestDowngradeRejectsWideningPermissions(t *testing.T) {
	h := NewCHolder()
	s := h.Major.SpaceAt(1)
	idx := CapIdx{Group: 0, Slot: 0}
	readOnly := NewPermissionBits(PERMISSION_UNWRAP, PayloadTestObject)
	s.CreateRoot(idx, TestObjectPayload{Tag: 1}, readOnly)
	c := s.Get(idx)

	wider := NewPermissionBits(PERMISSION_UNWRAP|PERMISSION_DERIVE, PayloadTestObject)
	if ok := c.Perms().Downgrade(wider); ok {
		t.Fatalf("downgrade must reject a permission set that grants more than the original")
	}
}

// TestRemoveCascadesAcrossSpacesAndHolders builds root -> keep (sibling)
// and root -> revoke -> child -> grandchild (grandchild living in a
// second holder's CSpace, mirroring the cross-holder derivation edge
// the revoke invariant calls out), then removes the "revoke" branch
// and checks only that subtree disappears.
func TestRemoveCascadesAcrossSpacesAndHolders(t *testing.T) {
	h0, h1 := NewCHolder(), NewCHolder()
	s0 := h0.Major.SpaceAt(1)
	s1 := h1.Major.SpaceAt(1)

	root := CapIdx{Group: 0, Slot: 0}
	s0.CreateRoot(root, TestObjectPayload{Tag: 1}, testObjPerms())
	rootCap := s0.Get(root)

	keep := CapIdx{Group: 0, Slot: 1}
	s0.Clone(keep, rootCap, testObjPerms())

	revokeBranch := CapIdx{Group: 0, Slot: 2}
	s0.Clone(revokeBranch, rootCap, testObjPerms())
	revokeCap := s0.Get(revokeBranch)

	child := CapIdx{Group: 0, Slot: 3}
	s0.Clone(child, revokeCap, testObjPerms())
	childCap := s0.Get(child)

	grandchild := CapIdx{Group: 0, Slot: 0}
	s1.Clone(grandchild, childCap, testObjPerms())

	if rc := s0.Remove(revokeBranch); rc != Success {
		t.Fatalf("Remove failed: %v", rc)
	}

	if s0.Get(revokeBranch) != nil {
		t.Fatalf("removed capability's own slot must be empty")
	}
	if s0.Get(child) != nil {
		t.Fatalf("child of removed capability must be cascaded away")
	}
	if s1.Get(grandchild) != nil {
		t.Fatalf("grandchild living in a different holder's CSpace must be cascaded away too")
	}
	if s0.Get(root) == nil {
		t.Fatalf("root must survive")
	}
	if s0.Get(keep) == nil {
		t.Fatalf("sibling of the removed branch must survive")
	}
}
