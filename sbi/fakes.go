package sbi

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/sustcore-team/sustcore-sub000/physmem"
	"github.com/sustcore-team/sustcore-sub000/vm"
)

var (
	_ Console     = (*FakeConsole)(nil)
	_ Timer       = (*FakeTimer)(nil)
	_ Shutdown    = (*FakeShutdown)(nil)
	_ MMU         = (*FakeMMU)(nil)
	_ FDT         = (*FakeFDT)(nil)
	_ ELFLoader   = (*FakeELFLoader)(nil)
	_ BlockDevice = (*FakeBlockDevice)(nil)
)

/// FakeConsole buffers every write in memory, letting a test or the
/// CLI's scenario runner assert on what write_serial produced without
/// a real UART.
type FakeConsole struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *FakeConsole) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(data)
}

/// String returns everything written so far.
func (c *FakeConsole) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

/// FakeTimer records the last deadline requested instead of arming any
/// real hardware clock.
type FakeTimer struct {
	mu       sync.Mutex
	Deadline uint64
}

func (t *FakeTimer) SetTimer(deadlineNs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Deadline = deadlineNs
}

/// FakeShutdown records that a power-off was requested rather than
/// halting the host process.
type FakeShutdown struct {
	mu     sync.Mutex
	Halted bool
	Code   int
}

func (s *FakeShutdown) PowerOff(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Halted = true
	s.Code = code
}

/// FakeMMU records the last root loaded and how many flushes were
/// requested, standing in for the real satp/sfence.vma instructions.
type FakeMMU struct {
	mu      sync.Mutex
	Root    physmem.Pa_t
	Flushes int
}

func (m *FakeMMU) LoadRoot(root physmem.Pa_t) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Root = root
}

func (m *FakeMMU) FlushTLB() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
}

/// FakeFDT reports a single free memory region spanning pages pages
/// starting at physical address 0, standing in for a parsed device
/// tree blob.
type FakeFDT struct {
	Regions []physmem.MemRegion
}

/// NewFakeFDT builds an FDT fake describing a single flat region of
/// the given page count.
func NewFakeFDT(pages int) *FakeFDT {
	return &FakeFDT{Regions: []physmem.MemRegion{{Base: 0, Pages: pages, Status: physmem.RegionFree}}}
}

func (f *FakeFDT) MemRegions() []physmem.MemRegion {
	return f.Regions
}

/// FakeELFLoader maps a raw byte image as a flat Code VMA starting at
/// a fixed base address, copying it page by page through the direct
/// map rather than parsing real ELF section headers.
type FakeELFLoader struct {
	phys *physmem.Allocator
}

/// NewFakeELFLoader builds a loader that pulls backing frames from
/// phys.
func NewFakeELFLoader(phys *physmem.Allocator) *FakeELFLoader {
	return &FakeELFLoader{phys: phys}
}

/// LoadBase is the fixed virtual address every fake-loaded image
/// starts at.
const LoadBase = 0x1000

func (l *FakeELFLoader) Load(tm *vm.TaskMemory, image []byte) (uintptr, error) {
	size := uintptr(len(image)+physmem.PGSIZE-1) &^ uintptr(physmem.PGSIZE-1)
	if size == 0 {
		size = uintptr(physmem.PGSIZE)
	}
	if !tm.AddVMA(vm.Code, LoadBase, size) {
		return 0, fmt.Errorf("sbi: fake ELF image overlaps an existing VMA at %#x", LoadBase)
	}
	for off := uintptr(0); off < size; off += uintptr(physmem.PGSIZE) {
		va := LoadBase + off
		if err := tm.HandleFault(va, vm.InstFault); err != 0 {
			return 0, fmt.Errorf("sbi: mapping fake ELF page at %#x: %v", va, err)
		}
		if int(off) >= len(image) {
			continue
		}
		pa, _, _ := tm.Translate(va)
		end := int(off) + physmem.PGSIZE
		if end > len(image) {
			end = len(image)
		}
		copy(l.phys.Dmap(pa), image[off:end])
	}
	return LoadBase, nil
}

/// FakeBlockDevice is an in-memory, sector-addressed disk.
type FakeBlockDevice struct {
	mu         sync.Mutex
	sectorSize int
	sectors    map[uint64][]byte
}

/// NewFakeBlockDevice allocates an empty device with the given sector
/// size; unwritten sectors read back as zero.
func NewFakeBlockDevice(sectorSize int) *FakeBlockDevice {
	return &FakeBlockDevice{sectorSize: sectorSize, sectors: make(map[uint64][]byte)}
}

func (d *FakeBlockDevice) ReadSector(lba uint64, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(buf) != d.sectorSize {
		return fmt.Errorf("sbi: read buffer size %d != sector size %d", len(buf), d.sectorSize)
	}
	sec, ok := d.sectors[lba]
	if !ok {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	copy(buf, sec)
	return nil
}

func (d *FakeBlockDevice) WriteSector(lba uint64, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(buf) != d.sectorSize {
		return fmt.Errorf("sbi: write buffer size %d != sector size %d", len(buf), d.sectorSize)
	}
	sec := make([]byte, d.sectorSize)
	copy(sec, buf)
	d.sectors[lba] = sec
	return nil
}
