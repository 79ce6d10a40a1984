package physmem

import "testing"

func newTestAllocator(t *testing.T, pages int) *Allocator {
	t.Helper()
	arena := make([]byte, pages*PGSIZE)
	regions := []MemRegion{{Base: 0, Pages: pages, Status: RegionFree}}
	return Init(arena, 0, regions)
}

func TestAllocFreeRoundTrip(t *testing.T) {
	a := newTestAllocator(t, 16)

	pa, ok := a.AllocFrame(0)
	if !ok {
		t.Fatalf("alloc order 0 failed")
	}
	a.FreeFrame(pa, 0)

	pa2, ok := a.AllocFrame(0)
	if !ok || pa2 != pa {
		t.Fatalf("expected to get back freed frame %#x, got %#x ok=%v", pa, pa2, ok)
	}
}

func TestAllocExhaustsAndCoalesces(t *testing.T) {
	a := newTestAllocator(t, 4)

	var got []Pa_t
	for i := 0; i < 4; i++ {
		pa, ok := a.AllocFrame(0)
		if !ok {
			t.Fatalf("alloc %d: expected success", i)
		}
		got = append(got, pa)
	}
	if _, ok := a.AllocFrame(0); ok {
		t.Fatalf("expected allocator to be exhausted")
	}

	for _, pa := range got {
		a.FreeFrame(pa, 0)
	}

	// after freeing all 4 single pages they should coalesce back into
	// one order-2 block.
	pa, ok := a.AllocFrame(2)
	if !ok {
		t.Fatalf("expected order-2 alloc to succeed after coalescing")
	}
	_ = pa
}

func TestDoubleFreePanics(t *testing.T) {
	a := newTestAllocator(t, 2)
	pa, ok := a.AllocFrame(0)
	if !ok {
		t.Fatalf("alloc failed")
	}
	a.FreeFrame(pa, 0)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on double free")
		}
	}()
	a.FreeFrame(pa, 0)
}

func TestDmapReflectsWrites(t *testing.T) {
	a := newTestAllocator(t, 2)
	pa, ok := a.AllocFrame(0)
	if !ok {
		t.Fatalf("alloc failed")
	}
	page := a.Dmap(pa)
	page[0] = 0x42
	if a.Dmap(pa)[0] != 0x42 {
		t.Fatalf("expected write through Dmap to be visible")
	}
}
