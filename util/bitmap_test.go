package util

import "testing"

func TestSetClearTestBit(t *testing.T) {
	bm := make([]uint64, 2)
	SetBit(bm, 3)
	SetBit(bm, 70)
	if !TestBit(bm, 3) || !TestBit(bm, 70) {
		t.Fatalf("expected bits 3 and 70 set, got %064b %064b", bm[0], bm[1])
	}
	if TestBit(bm, 4) {
		t.Fatalf("bit 4 should not be set")
	}
	ClearBit(bm, 3)
	if TestBit(bm, 3) {
		t.Fatalf("bit 3 should be cleared")
	}
}

func TestWindowAligned(t *testing.T) {
	bm := []uint64{0, 0}
	SetWindow(bm, 0, 4, 0xA)
	if got := Window(bm, 0, 4); got != 0xA {
		t.Fatalf("got %x want 0xA", got)
	}
}

func TestWindowStraddlesBoundary(t *testing.T) {
	bm := []uint64{0, 0}
	// window at bit offset 62, width 4, straddles word 0/word 1.
	SetWindow(bm, 62, 4, 0xB)
	if got := Window(bm, 62, 4); got != 0xB {
		t.Fatalf("got %x want 0xB", got)
	}
	// shouldn't clobber neighboring bits.
	SetWindow(bm, 58, 4, 0x5)
	if got := Window(bm, 62, 4); got != 0xB {
		t.Fatalf("window at 62 got clobbered: %x", got)
	}
	if got := Window(bm, 58, 4); got != 0x5 {
		t.Fatalf("got %x want 0x5", got)
	}
}
