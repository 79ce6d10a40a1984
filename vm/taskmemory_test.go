package vm

import (
	"testing"

	"github.com/sustcore-team/sustcore-sub000/physmem"
	"github.com/sustcore-team/sustcore-sub000/pgtbl"
)

func newTestEnv(t *testing.T, pages int) (*physmem.Allocator, *pgtbl.Manager) {
	t.Helper()
	arena := make([]byte, pages*physmem.PGSIZE)
	phys := physmem.Init(arena, 0, []physmem.MemRegion{{Base: 0, Pages: pages, Status: physmem.RegionFree}})
	return phys, pgtbl.New(phys)
}

func TestHandleFaultMapsInsideVMA(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Heap, 0x10000, 0x4000)

	if err := tm.HandleFault(0x10500, LoadFault); err != 0 {
		t.Fatalf("unexpected fault error: %v", err)
	}
	if _, _, ok := tm.Translate(0x10500); !ok {
		t.Fatalf("expected page to be mapped after fault")
	}
}

func TestHandleFaultOutsideVMAFails(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Heap, 0x10000, 0x1000)

	if err := tm.HandleFault(0x20000, LoadFault); err == 0 {
		t.Fatalf("expected fault outside any vma to fail")
	}
}

func TestForkDeepCopiesPages(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	parent := NewTaskMemory(phys, pt)
	parent.AddVMA(Heap, 0x20000, 0x1000)
	parent.HandleFault(0x20000, StoreFault)

	pa, _, _ := parent.Translate(0x20000)
	copy(phys.Dmap(pa), []byte{0x55})

	child := NewTaskMemory(phys, pt)
	if err := parent.Fork(child); err != 0 {
		t.Fatalf("fork failed: %v", err)
	}

	cpa, _, ok := child.Translate(0x20000)
	if !ok {
		t.Fatalf("expected child to have a mapping at 0x20000")
	}
	if cpa == pa {
		t.Fatalf("expected child to have its own physical frame")
	}
	if phys.Dmap(cpa)[0] != 0x55 {
		t.Fatalf("expected deep copy of parent contents")
	}

	phys.Dmap(pa)[0] = 0xAA
	if phys.Dmap(cpa)[0] != 0x55 {
		t.Fatalf("expected child's page to be independent of the parent's")
	}
}

func TestHandleFaultWriteToReadOnlyPageTerminates(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Code, 0x30000, 0x1000)

	// first touch maps the page with Code's default RX perms (no W).
	if err := tm.HandleFault(0x30000, InstPage); err != 0 {
		t.Fatalf("unexpected error mapping code page: %v", err)
	}
	if err := tm.HandleFault(0x30000, StorePage); err == 0 {
		t.Fatalf("expected a store to a read-only mapped page to fail")
	}
}

func TestHandleFaultExecuteNonExecutablePageTerminates(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Heap, 0x40000, 0x1000)

	// first touch maps the page with Heap's default RW perms (no X).
	if err := tm.HandleFault(0x40000, LoadPage); err != 0 {
		t.Fatalf("unexpected error mapping heap page: %v", err)
	}
	if err := tm.HandleFault(0x40000, InstPage); err == 0 {
		t.Fatalf("expected an execute of a non-executable mapped page to fail")
	}
}

func TestHandleFaultBenignRaceOnMappedPageSucceeds(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Heap, 0x50000, 0x1000)

	if err := tm.HandleFault(0x50000, LoadPage); err != 0 {
		t.Fatalf("unexpected error on first fault: %v", err)
	}
	// a second fault at the same already-mapped page, within the
	// page's granted permissions, is a benign race and resolves.
	if err := tm.HandleFault(0x50000, LoadPage); err != 0 {
		t.Fatalf("expected a repeat in-permission fault to resolve, got %v", err)
	}
}

func TestStackGuardPageIsWriteProtected(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Stack, 0x60000, 0x2000)

	_, flags, ok := tm.Translate(0x60000)
	if !ok {
		t.Fatalf("expected the guard page to be eagerly mapped")
	}
	if flags&pgtbl.PteW != 0 {
		t.Fatalf("expected the guard page to have W stripped, got flags %#x", flags)
	}
	if err := tm.HandleFault(0x60000, StorePage); err == 0 {
		t.Fatalf("expected a write to the stack guard page to fail")
	}
}

func TestFreeReleasesFrames(t *testing.T) {
	phys, pt := newTestEnv(t, 8)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Heap, 0x1000, 0x1000)
	tm.HandleFault(0x1000, StoreFault)

	tm.Free()
	if _, _, ok := tm.Translate(0x1000); ok {
		t.Fatalf("expected no mapping after Free")
	}
}
