// Package physmem implements a buddy physical frame allocator over a
// host-provided memory arena.
package physmem

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/sustcore-team/sustcore-sub000/util"
)

/// PGSHIFT is the base-2 exponent of the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

/// MaxOrder is the highest buddy order the allocator will track; a block
/// of order k spans 1<<k pages.
const MaxOrder = 15

/// Pa_t is a physical address expressed as a byte offset into the arena.
type Pa_t uintptr

/// RegionStatus classifies a MemRegion at init time.
type RegionStatus int

const (
	RegionFree RegionStatus = iota
	RegionReserved
)

/// MemRegion describes one contiguous range of the arena at init time.
type MemRegion struct {
	Base   Pa_t
	Pages  int
	Status RegionStatus
}

type freeBlock struct {
	next *freeBlock
	prev *freeBlock
}

/// Allocator is a buddy allocator over a fixed-size byte arena. The
/// zero value is not usable; construct with Init.
type Allocator struct {
	mu        sync.Mutex
	arena     []byte
	base      Pa_t
	npages    int
	freeArea  [MaxOrder + 1]*freeBlock
	orderOf   map[Pa_t]int // order of the block whose first page is at this Pa_t, while allocated
	allocated map[Pa_t]bool
}

/// Init constructs an Allocator over arena, treating arena[0] as
/// physical address `base`. regions not marked RegionFree are never
/// handed out. Panics if arena is not page-aligned in length.
func Init(arena []byte, base Pa_t, regions []MemRegion) *Allocator {
	if len(arena)%PGSIZE != 0 {
		panic("physmem: arena not a multiple of PGSIZE")
	}
	a := &Allocator{
		arena:     arena,
		base:      base,
		npages:    len(arena) / PGSIZE,
		orderOf:   make(map[Pa_t]int),
		allocated: make(map[Pa_t]bool),
	}
	for _, r := range regions {
		if r.Status != RegionFree {
			continue
		}
		a.seedRegion(r.Base, r.Pages)
	}
	return a
}

// seedRegion inserts a contiguous run of pages into the free area lists,
// greedily using the largest aligned order that fits, exactly as a
// buddy allocator's pre_init walks a region.
func (a *Allocator) seedRegion(base Pa_t, pages int) {
	for pages > 0 {
		order := util.Min(MaxOrder, orderFor(pages))
		for order > 0 && (int(base-a.base)>>PGSHIFT)%(1<<order) != 0 {
			order--
		}
		a.pushFree(base, order)
		n := 1 << order
		base += Pa_t(n * PGSIZE)
		pages -= n
	}
}

func orderFor(pages int) int {
	o := 0
	for (1 << (o + 1)) <= pages {
		o++
	}
	return o
}

func (a *Allocator) blockAt(pa Pa_t) *freeBlock {
	off := int(pa - a.base)
	return (*freeBlock)(unsafe.Pointer(&a.arena[off]))
}

func (a *Allocator) pushFree(pa Pa_t, order int) {
	b := a.blockAt(pa)
	b.prev = nil
	b.next = a.freeArea[order]
	if b.next != nil {
		b.next.prev = b
	}
	a.freeArea[order] = b
	a.orderOf[pa] = order
}

func (a *Allocator) popFree(order int) (Pa_t, bool) {
	b := a.freeArea[order]
	if b == nil {
		return 0, false
	}
	a.freeArea[order] = b.next
	if b.next != nil {
		b.next.prev = nil
	}
	pa := a.blockPa(b)
	delete(a.orderOf, pa)
	return pa, true
}

func (a *Allocator) removeFree(pa Pa_t, order int) bool {
	b := a.blockAt(pa)
	if a.freeArea[order] == b {
		a.freeArea[order] = b.next
		if b.next != nil {
			b.next.prev = nil
		}
	} else {
		if b.prev == nil {
			return false
		}
		b.prev.next = b.next
		if b.next != nil {
			b.next.prev = b.prev
		}
	}
	delete(a.orderOf, pa)
	return true
}

func (a *Allocator) blockPa(b *freeBlock) Pa_t {
	off := uintptr(unsafe.Pointer(b)) - uintptr(unsafe.Pointer(&a.arena[0]))
	return a.base + Pa_t(off)
}

func (a *Allocator) buddyOf(pa Pa_t, order int) Pa_t {
	off := int(pa - a.base)
	size := (1 << order) * PGSIZE
	return a.base + Pa_t(off^size)
}

/// AllocFrame returns the physical address of a free run of 1<<order
/// pages, splitting a larger block as needed.
func (a *Allocator) AllocFrame(order int) (Pa_t, bool) {
	if order > MaxOrder {
		panic("physmem: order exceeds MaxOrder")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	k := order
	for k <= MaxOrder && a.freeArea[k] == nil {
		k++
	}
	if k > MaxOrder {
		return 0, false
	}
	pa, _ := a.popFree(k)
	for k > order {
		k--
		buddy := a.buddyOf(pa, k)
		a.pushFree(buddy, k)
	}
	a.allocated[pa] = true
	a.orderOf[pa] = order
	return pa, true
}

/// FreeFrame returns a previously allocated 1<<order-page block to the
/// free lists, coalescing with its buddy while possible.
func (a *Allocator) FreeFrame(pa Pa_t, order int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.allocated[pa] {
		panic("physmem: double free")
	}
	delete(a.allocated, pa)

	for order < MaxOrder {
		buddy := a.buddyOf(pa, order)
		if int(buddy-a.base)+(1<<order)*PGSIZE > len(a.arena) {
			break
		}
		if o, free := a.orderOf[buddy]; !free || o != order || a.allocated[buddy] {
			break
		}
		if !a.removeFree(buddy, order) {
			break
		}
		if buddy < pa {
			pa = buddy
		}
		order++
	}
	a.pushFree(pa, order)
}

/// Dmap returns a direct-mapped byte slice for the page containing pa.
func (a *Allocator) Dmap(pa Pa_t) []byte {
	off := int(pa - a.base)
	if off < 0 || off >= len(a.arena) {
		panic(fmt.Sprintf("physmem: Dmap out of range: %#x", pa))
	}
	pgoff := util.Rounddown(off, PGSIZE)
	return a.arena[pgoff : pgoff+PGSIZE]
}

/// NPages reports the total page count of the backing arena.
func (a *Allocator) NPages() int {
	return a.npages
}
