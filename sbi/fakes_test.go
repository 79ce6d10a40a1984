package sbi

import (
	"testing"

	"github.com/sustcore-team/sustcore-sub000/physmem"
	"github.com/sustcore-team/sustcore-sub000/pgtbl"
	"github.com/sustcore-team/sustcore-sub000/vm"
)

func TestFakeConsoleBuffersWrites(t *testing.T) {
	c := &FakeConsole{}
	if _, err := c.Write([]byte("hello ")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := c.Write([]byte("world")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := c.String(); got != "hello world" {
		t.Fatalf("got %q want %q", got, "hello world")
	}
}

func TestFakeTimerAndShutdownRecordRequests(t *testing.T) {
	tm := &FakeTimer{}
	tm.SetTimer(1000)
	if tm.Deadline != 1000 {
		t.Fatalf("expected deadline 1000, got %d", tm.Deadline)
	}

	sd := &FakeShutdown{}
	sd.PowerOff(7)
	if !sd.Halted || sd.Code != 7 {
		t.Fatalf("expected halted with code 7, got halted=%v code=%d", sd.Halted, sd.Code)
	}
}

func TestFakeMMUTracksRootAndFlushes(t *testing.T) {
	m := &FakeMMU{}
	m.LoadRoot(0x4000)
	m.FlushTLB()
	m.FlushTLB()
	if m.Root != 0x4000 || m.Flushes != 2 {
		t.Fatalf("unexpected state: root=%#x flushes=%d", m.Root, m.Flushes)
	}
}

func TestFakeFDTReportsFlatRegion(t *testing.T) {
	f := NewFakeFDT(32)
	regions := f.MemRegions()
	if len(regions) != 1 || regions[0].Pages != 32 {
		t.Fatalf("unexpected regions: %#v", regions)
	}
}

func TestFakeELFLoaderMapsImageBytes(t *testing.T) {
	arena := make([]byte, 64*physmem.PGSIZE)
	phys := physmem.Init(arena, 0, []physmem.MemRegion{{Base: 0, Pages: 64, Status: physmem.RegionFree}})
	pt := pgtbl.New(phys)
	tm := vm.NewTaskMemory(phys, pt)

	loader := NewFakeELFLoader(phys)
	image := []byte{0xde, 0xad, 0xbe, 0xef}
	entry, err := loader.Load(tm, image)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry != LoadBase {
		t.Fatalf("expected entry %#x, got %#x", LoadBase, entry)
	}
	pa, _, ok := tm.Translate(LoadBase)
	if !ok {
		t.Fatalf("expected entry point to be mapped")
	}
	page := phys.Dmap(pa)
	for i, b := range image {
		if page[i] != b {
			t.Fatalf("byte %d: got %#x want %#x", i, page[i], b)
		}
	}
}

func TestFakeBlockDeviceRoundTrip(t *testing.T) {
	d := NewFakeBlockDevice(512)
	want := make([]byte, 512)
	for i := range want {
		want[i] = byte(i)
	}
	if err := d.WriteSector(3, want); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got := make([]byte, 512)
	if err := d.ReadSector(3, got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, got[i], want[i])
		}
	}

	zeros := make([]byte, 512)
	if err := d.ReadSector(9, zeros); err != nil {
		t.Fatalf("read of unwritten sector failed: %v", err)
	}
	for i, b := range zeros {
		if b != 0 {
			t.Fatalf("expected unwritten sector to read back zero, byte %d = %#x", i, b)
		}
	}
}
