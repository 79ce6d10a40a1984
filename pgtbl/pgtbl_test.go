package pgtbl

import (
	"testing"

	"github.com/sustcore-team/sustcore-sub000/physmem"
)

func newManager(t *testing.T, pages int) (*Manager, physmem.Pa_t) {
	t.Helper()
	arena := make([]byte, pages*physmem.PGSIZE)
	alloc := physmem.Init(arena, 0, []physmem.MemRegion{{Base: 0, Pages: pages, Status: physmem.RegionFree}})
	m := New(alloc)
	root := m.NewRoot()
	return m, root
}

func TestMapAndQuery4K(t *testing.T) {
	m, root := newManager(t, 64)
	frame, ok := func() (physmem.Pa_t, bool) {
		a := m.phys
		return a.AllocFrame(0)
	}()
	if !ok {
		t.Fatalf("alloc failed")
	}

	va := uintptr(0x1000)
	m.MapPage4K(root, va, frame, PteR|PteW|PteU)

	pa, flags, ok := m.QueryPage(root, va+0x10)
	if !ok {
		t.Fatalf("expected mapping to resolve")
	}
	if pa != frame+0x10 {
		t.Fatalf("got pa %#x want %#x", pa, frame+0x10)
	}
	if flags&PteU == 0 || flags&PteW == 0 {
		t.Fatalf("expected U and W flags set, got %#x", flags)
	}
}

func TestQueryUnmappedFails(t *testing.T) {
	m, root := newManager(t, 8)
	if _, _, ok := m.QueryPage(root, 0x2000); ok {
		t.Fatalf("expected unmapped query to fail")
	}
}

func TestUnmapRemovesMapping(t *testing.T) {
	m, root := newManager(t, 64)
	frame, _ := m.phys.AllocFrame(0)
	va := uintptr(0x3000)
	m.MapPage4K(root, va, frame, PteR|PteW)

	if !m.Unmap(root, va) {
		t.Fatalf("expected Unmap to report success")
	}
	if _, _, ok := m.QueryPage(root, va); ok {
		t.Fatalf("expected mapping gone after Unmap")
	}
}

func TestModifyFlags(t *testing.T) {
	m, root := newManager(t, 64)
	frame, _ := m.phys.AllocFrame(0)
	va := uintptr(0x4000)
	m.MapPage4K(root, va, frame, PteR|PteU)

	m.ModifyFlags(root, va, PteW, PteW)
	_, flags, ok := m.QueryPage(root, va)
	if !ok || flags&PteW == 0 {
		t.Fatalf("expected W flag after ModifyFlags, got %#x ok=%v", flags, ok)
	}
	if flags&PteU == 0 {
		t.Fatalf("expected ModifyFlags to preserve U (outside mask), got %#x", flags)
	}
}

func TestModifyFlagsPreservesBitsOutsideMask(t *testing.T) {
	m, root := newManager(t, 64)
	frame, _ := m.phys.AllocFrame(0)
	va := uintptr(0x4000)
	m.MapPage4K(root, va, frame, PteR|PteW|PteU)

	// clear W only; R and U must survive untouched.
	m.ModifyFlags(root, va, PteW, 0)
	_, flags, ok := m.QueryPage(root, va)
	if !ok {
		t.Fatalf("expected mapping to still resolve")
	}
	if flags&PteW != 0 {
		t.Fatalf("expected W cleared, got %#x", flags)
	}
	if flags&PteR == 0 || flags&PteU == 0 {
		t.Fatalf("expected R and U preserved, got %#x", flags)
	}
}

func TestMapRangeInstallsMultiplePagesInOneCall(t *testing.T) {
	m, root := newManager(t, 64)
	f0, _ := m.phys.AllocFrame(0)
	f1, _ := m.phys.AllocFrame(0)
	f2, _ := m.phys.AllocFrame(0)

	base := uintptr(0x10000)
	pages := []PageMapping{
		{Va: base, Pa: f0},
		{Va: base + uintptr(physmem.PGSIZE), Pa: f1},
		{Va: base + 2*uintptr(physmem.PGSIZE), Pa: f2},
	}
	m.MapRange(root, pages, PteR|PteW|PteU)

	for i, pg := range pages {
		pa, flags, ok := m.QueryPage(root, pg.Va)
		if !ok || pa != pg.Pa {
			t.Fatalf("page %d: got pa %#x ok=%v, want %#x", i, pa, ok, pg.Pa)
		}
		if flags&PteW == 0 || flags&PteU == 0 {
			t.Fatalf("page %d: expected W and U flags, got %#x", i, flags)
		}
	}
}

func TestWriteOnlyLeafRejected(t *testing.T) {
	m, root := newManager(t, 64)
	frame, _ := m.phys.AllocFrame(0)
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for write-only leaf")
		}
	}()
	m.MapPage4K(root, 0x5000, frame, PteW)
}

func TestMapPage2MSpansRegion(t *testing.T) {
	m, root := newManager(t, 1024)
	frame, _ := m.phys.AllocFrame(9) // 2^9 pages == 2MiB
	va := uintptr(0x200000)
	m.MapPage2M(root, va, frame, PteR|PteW)

	pa, _, ok := m.QueryPage(root, va+0x1000)
	if !ok {
		t.Fatalf("expected 2M mapping to resolve sub-page offsets")
	}
	if pa != frame+0x1000 {
		t.Fatalf("got pa %#x want %#x", pa, frame+0x1000)
	}
}
