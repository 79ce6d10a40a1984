package vm

import (
	"sync"

	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/pgtbl"
	"github.com/sustcore-team/sustcore-sub000/physmem"
)

/// FaultCause classifies why a U-mode trap reached the page fault
/// handler.
type FaultCause int

const (
	InstFault FaultCause = iota
	LoadFault
	StoreFault
	InstPage
	LoadPage
	StorePage
	IllegalInst
)

/// faultWindowPages bounds how many pages a single demand-paging
/// fault pulls in around the faulting address.
const faultWindowPages = 4

/// TaskMemory owns one SV39 page-table root and one ordered VMA list;
/// its lifetime matches the owning PCB's.
type TaskMemory struct {
	mu sync.Mutex

	phys *physmem.Allocator
	pt   *pgtbl.Manager

	Root physmem.Pa_t
	Vmas VMAList

	// frames maps a page-aligned virtual address to the physical frame
	// backing it. pgtbl has no reverse page-table walk, so TaskMemory
	// keeps this side table to support Free and Fork without one.
	frames map[uintptr]physmem.Pa_t
}

/// NewTaskMemory allocates an empty address space with a fresh page
/// table root.
func NewTaskMemory(phys *physmem.Allocator, pt *pgtbl.Manager) *TaskMemory {
	tm := &TaskMemory{
		phys:   phys,
		pt:     pt,
		frames: make(map[uintptr]physmem.Pa_t),
	}
	tm.Root = pt.NewRoot()
	return tm
}

func pageAlign(va uintptr) uintptr {
	return va &^ (uintptr(physmem.PGSIZE) - 1)
}

/// stackGuardPages is how many pages at the low end of a Stack VMA are
/// eagerly mapped and write-protected as a guard, so a stack overflow
/// write faults there immediately instead of growing past the VMA
/// unnoticed.
const stackGuardPages = 1

/// AddVMA inserts a new VMA, rejecting overlap with an existing one. A
/// Stack VMA also gets its lowest stackGuardPages eagerly mapped and
/// then write-protected via ModifyFlags, ahead of any real
/// demand-paging fault.
func (tm *TaskMemory) AddVMA(kind VMAKind, vaddr, size uintptr) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if !tm.Vmas.Add(kind, vaddr, size) {
		return false
	}
	if kind == Stack {
		tm.installStackGuard(vaddr)
	}
	return true
}

// installStackGuard eagerly maps the Stack VMA's lowest guard pages
// read-write, then strips W via ModifyFlags: a later store there is a
// real protection violation (see HandleFault/violatesProtection), not
// a benign demand-paging race, so it terminates the faulting process
// instead of silently growing the stack past its VMA.
func (tm *TaskMemory) installStackGuard(vaddr uintptr) {
	end := vaddr + uintptr(stackGuardPages)*uintptr(physmem.PGSIZE)
	if err := tm.mapWindow(vaddr, vaddr, end, pgtbl.PteR|pgtbl.PteW|pgtbl.PteU); err != 0 {
		return
	}
	for i := 0; i < stackGuardPages; i++ {
		tm.pt.ModifyFlags(tm.Root, vaddr+uintptr(i)*uintptr(physmem.PGSIZE), pgtbl.PteW, 0)
	}
}

/// FindVMA returns the VMA containing va, if any.
func (tm *TaskMemory) FindVMA(va uintptr) (*VMA, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.Vmas.Find(va)
}

/// Translate resolves va to its backing physical address and page
/// flags, if mapped.
func (tm *TaskMemory) Translate(va uintptr) (physmem.Pa_t, uint64, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.pt.QueryPage(tm.Root, va)
}

// violatesProtection reports whether a page-fault cause on an
// already-mapped leaf with the given flags is a real protection
// violation rather than a benign race between two faulting threads:
// a store to a page without W, or an instruction fetch from a page
// without X, or a load from a page without R.
func violatesProtection(cause FaultCause, flags uint64) bool {
	switch cause {
	case StorePage:
		return flags&pgtbl.PteW == 0
	case InstPage:
		return flags&pgtbl.PteX == 0
	case LoadPage:
		return flags&pgtbl.PteR == 0
	default:
		return false
	}
}

/// HandleFault resolves a page fault at va with the given cause: a
/// fault inside a known VMA allocates up to faultWindowPages frames
/// around the faulting page and maps them with that VMA's default
/// permissions; a fault outside any VMA, or an illegal instruction,
/// reports EFAULT so the caller can terminate the faulting process. A
/// fault at an already-mapped page is either a benign race between two
/// faulting threads (resolved) or a genuine protection violation — a
/// write to a read-only page or an execute of a non-executable page —
/// which also reports EFAULT so the caller terminates rather than
/// spinning on the same fault forever.
func (tm *TaskMemory) HandleFault(va uintptr, cause FaultCause) defs.Err_t {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if cause == IllegalInst {
		return defs.EFAULT
	}
	if _, flags, ok := tm.pt.QueryPage(tm.Root, va); ok {
		if violatesProtection(cause, flags) {
			return defs.EFAULT
		}
		return 0
	}
	vma, ok := tm.Vmas.Find(va)
	if !ok {
		return defs.EFAULT
	}
	flags := vma.Kind.DefaultPerms() | pgtbl.PteU

	base := pageAlign(va)
	end := vma.Vaddr + vma.Size
	return tm.mapWindow(base, vma.Vaddr, end, flags)
}

// mapWindow allocates and installs, in one pgtbl.MapRange call, every
// unmapped page of the faultWindowPages-page window starting at base
// that still falls inside [low, end).
func (tm *TaskMemory) mapWindow(base, low, end uintptr, flags uint64) defs.Err_t {
	pages := make([]pgtbl.PageMapping, 0, faultWindowPages)
	for i := 0; i < faultWindowPages; i++ {
		pva := base + uintptr(i)*uintptr(physmem.PGSIZE)
		if pva < low || pva >= end {
			continue
		}
		if _, _, mapped := tm.pt.QueryPage(tm.Root, pva); mapped {
			continue
		}
		pa, ok := tm.phys.AllocFrame(0)
		if !ok {
			for _, pg := range pages {
				tm.phys.FreeFrame(pg.Pa, 0)
			}
			return defs.ENOMEM
		}
		pages = append(pages, pgtbl.PageMapping{Va: pva, Pa: pa})
	}
	if len(pages) == 0 {
		return 0
	}
	tm.pt.MapRange(tm.Root, pages, flags|pgtbl.PteV)
	for _, pg := range pages {
		tm.frames[pg.Va] = pg.Pa
	}
	return 0
}

/// Fork deep-copies every VMA and every currently-mapped page of tm
/// into child, giving the child process its own physical frames (no
/// copy-on-write sharing).
func (tm *TaskMemory) Fork(child *TaskMemory) defs.Err_t {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	child.mu.Lock()
	defer child.mu.Unlock()

	for _, v := range tm.Vmas.list {
		if !child.Vmas.Add(v.Kind, v.Vaddr, v.Size) {
			return defs.EINVAL
		}
	}
	byFlags := make(map[uint64][]pgtbl.PageMapping)
	for va, pa := range tm.frames {
		_, flags, ok := tm.pt.QueryPage(tm.Root, va)
		if !ok {
			continue
		}
		npa, ok := child.phys.AllocFrame(0)
		if !ok {
			return defs.ENOMEM
		}
		copy(child.phys.Dmap(npa), tm.phys.Dmap(pa))
		byFlags[flags] = append(byFlags[flags], pgtbl.PageMapping{Va: va, Pa: npa})
		child.frames[va] = npa
	}
	for flags, pages := range byFlags {
		child.pt.MapRange(child.Root, pages, flags)
	}
	return 0
}

/// Free unmaps and releases every frame backing this address space.
/// It leaves the TaskMemory with an empty VMA list and page table.
func (tm *TaskMemory) Free() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	for va, pa := range tm.frames {
		tm.pt.Unmap(tm.Root, va)
		tm.phys.FreeFrame(pa, 0)
	}
	tm.frames = make(map[uintptr]physmem.Pa_t)
	tm.Vmas.Clear()
}
