package vm

import (
	"bytes"
	"testing"

	"github.com/sustcore-team/sustcore-sub000/physmem"
)

func TestMemcpyK2UThenU2KRoundTrip(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Heap, 0x40000, 0x4000)

	want := []byte("hello, sv39 world")
	if err := MemcpyK2U(tm, 0x40000, want); err != 0 {
		t.Fatalf("MemcpyK2U failed: %v", err)
	}

	got := make([]byte, len(want))
	if err := MemcpyU2K(tm, got, 0x40000); err != 0 {
		t.Fatalf("MemcpyU2K failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %q want %q", got, want)
	}
}

func TestMemcpySpansPageBoundary(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Heap, 0x50000, 0x3000)

	want := bytes.Repeat([]byte{0xAB}, physmem.PGSIZE+128)
	va := uintptr(0x50000 + physmem.PGSIZE - 64)
	if err := MemcpyK2U(tm, va, want); err != 0 {
		t.Fatalf("MemcpyK2U failed: %v", err)
	}
	got := make([]byte, len(want))
	if err := MemcpyU2K(tm, got, va); err != 0 {
		t.Fatalf("MemcpyU2K failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("cross-page copy mismatch")
	}
}

func TestMemcpyU2UBridgesTwoAddressSpaces(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	srcTm := NewTaskMemory(phys, pt)
	dstTm := NewTaskMemory(phys, pt)
	srcTm.AddVMA(Heap, 0x60000, 0x1000)
	dstTm.AddVMA(Heap, 0x70000, 0x1000)

	want := []byte("cross address space")
	MemcpyK2U(srcTm, 0x60000, want)

	if err := MemcpyU2U(dstTm, 0x70000, srcTm, 0x60000, len(want)); err != 0 {
		t.Fatalf("MemcpyU2U failed: %v", err)
	}
	got := make([]byte, len(want))
	MemcpyU2K(dstTm, got, 0x70000)
	if !bytes.Equal(got, want) {
		t.Fatalf("u2u mismatch: got %q want %q", got, want)
	}
}

func TestMemsetUAndMemcmpU2U(t *testing.T) {
	phys, pt := newTestEnv(t, 64)
	tm := NewTaskMemory(phys, pt)
	tm.AddVMA(Heap, 0x80000, 0x2000)

	if err := MemsetU(tm, 0x80000, 0x7, 300); err != 0 {
		t.Fatalf("MemsetU failed: %v", err)
	}
	got := make([]byte, 300)
	MemcpyU2K(tm, got, 0x80000)
	if !bytes.Equal(got, bytes.Repeat([]byte{0x7}, 300)) {
		t.Fatalf("memset contents wrong")
	}

	tm2 := NewTaskMemory(phys, pt)
	tm2.AddVMA(Heap, 0x90000, 0x2000)
	MemsetU(tm2, 0x90000, 0x7, 300)

	cmp, err := MemcmpU2U(tm, 0x80000, tm2, 0x90000, 300)
	if err != 0 {
		t.Fatalf("MemcmpU2U failed: %v", err)
	}
	if cmp != 0 {
		t.Fatalf("expected equal buffers, got cmp=%d", cmp)
	}

	MemsetU(tm2, 0x90000, 0x8, 1)
	cmp, _ = MemcmpU2U(tm, 0x80000, tm2, 0x90000, 300)
	if cmp == 0 {
		t.Fatalf("expected differing buffers to compare non-zero")
	}
}
