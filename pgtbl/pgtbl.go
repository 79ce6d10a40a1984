// Package pgtbl builds and walks RISC-V SV39 page tables over a
// physmem.Allocator-backed arena.
package pgtbl

import (
	"fmt"

	"github.com/sustcore-team/sustcore-sub000/physmem"
)

/// PTE bit positions, per the SV39 page table entry layout.
const (
	PteV uint64 = 1 << 0 // valid
	PteR uint64 = 1 << 1 // readable
	PteW uint64 = 1 << 2 // writable
	PteX uint64 = 1 << 3 // executable
	PteU uint64 = 1 << 4 // user-accessible
	PteG uint64 = 1 << 5 // global
	PteA uint64 = 1 << 6 // accessed
	PteD uint64 = 1 << 7 // dirty
)

const ppnShift = 10

/// Pte is a single SV39 page table entry.
type Pte uint64

func mkpte(ppn physmem.Pa_t, flags uint64) Pte {
	return Pte((uint64(ppn>>physmem.PGSHIFT) << ppnShift) | flags)
}

/// Valid reports whether the entry's V bit is set.
func (p Pte) Valid() bool { return uint64(p)&PteV != 0 }

/// Leaf reports whether the entry is a leaf (any of R/W/X set).
func (p Pte) Leaf() bool { return uint64(p)&(PteR|PteW|PteX) != 0 }

/// Ppn returns the physical page number field of the entry.
func (p Pte) Ppn() physmem.Pa_t {
	return physmem.Pa_t((uint64(p) >> ppnShift)) << physmem.PGSHIFT
}

/// Flags returns the low 8 flag bits of the entry.
func (p Pte) Flags() uint64 {
	return uint64(p) & 0xff
}

// a page table page is 512 8-byte PTEs, same size as a physical frame.
const ptesPerPage = physmem.PGSIZE / 8

/// vpn returns the level-l (0, 1 or 2) 9-bit virtual page number field
/// of va, where level 0 is the least significant.
func vpn(va uintptr, l uint) uint64 {
	return (uint64(va) >> (12 + 9*l)) & 0x1ff
}

/// Manager builds and mutates SV39 page tables against a physmem.Allocator.
type Manager struct {
	phys *physmem.Allocator
}

/// New constructs a Manager over phys.
func New(phys *physmem.Allocator) *Manager {
	return &Manager{phys: phys}
}

/// NewRoot allocates a fresh, zeroed top-level (level-2) page table and
/// returns its physical address.
func (m *Manager) NewRoot() physmem.Pa_t {
	pa, ok := m.phys.AllocFrame(0)
	if !ok {
		panic("pgtbl: out of memory allocating root")
	}
	page := m.phys.Dmap(pa)
	for i := range page {
		page[i] = 0
	}
	return pa
}

func (m *Manager) ptesAt(pa physmem.Pa_t) []Pte {
	raw := m.phys.Dmap(pa)
	ptes := make([]Pte, ptesPerPage)
	for i := 0; i < ptesPerPage; i++ {
		var v uint64
		for b := 0; b < 8; b++ {
			v |= uint64(raw[i*8+b]) << (8 * b)
		}
		ptes[i] = Pte(v)
	}
	return ptes
}

func (m *Manager) writePte(pa physmem.Pa_t, idx int, pte Pte) {
	raw := m.phys.Dmap(pa)
	v := uint64(pte)
	for b := 0; b < 8; b++ {
		raw[idx*8+b] = byte(v >> (8 * b))
	}
}

func (m *Manager) readPte(pa physmem.Pa_t, idx int) Pte {
	raw := m.phys.Dmap(pa)
	var v uint64
	for b := 0; b < 8; b++ {
		v |= uint64(raw[idx*8+b]) << (8 * b)
	}
	return Pte(v)
}

// walk descends from root to the leaf level for va, allocating
// interior page-table pages as needed when create is true. leafLevel
// is 0 for a 4K mapping, 1 for 2M, 2 for 1G.
func (m *Manager) walk(root physmem.Pa_t, va uintptr, leafLevel uint, create bool) (physmem.Pa_t, int, bool) {
	tbl := root
	for l := uint(2); l > leafLevel; l-- {
		idx := int(vpn(va, l))
		pte := m.readPte(tbl, idx)
		if !pte.Valid() {
			if !create {
				return 0, 0, false
			}
			child, ok := m.phys.AllocFrame(0)
			if !ok {
				panic("pgtbl: out of memory allocating interior page")
			}
			page := m.phys.Dmap(child)
			for i := range page {
				page[i] = 0
			}
			m.writePte(tbl, idx, mkpte(child, PteV))
			tbl = child
			continue
		}
		if pte.Leaf() {
			panic(fmt.Sprintf("pgtbl: superpage collision at level %d", l))
		}
		tbl = pte.Ppn()
	}
	return tbl, int(vpn(va, leafLevel)), true
}

/// MapPage4K installs a 4KiB leaf mapping for va -> pa with the given
/// flag bits (PteR/PteW/PteX/PteU/PteG, V is added automatically).
func (m *Manager) MapPage4K(root physmem.Pa_t, va uintptr, pa physmem.Pa_t, flags uint64) {
	m.mapLeaf(root, va, pa, 0, flags)
}

/// MapPage2M installs a 2MiB leaf mapping.
func (m *Manager) MapPage2M(root physmem.Pa_t, va uintptr, pa physmem.Pa_t, flags uint64) {
	m.mapLeaf(root, va, pa, 1, flags)
}

/// MapPage1G installs a 1GiB leaf mapping.
func (m *Manager) MapPage1G(root physmem.Pa_t, va uintptr, pa physmem.Pa_t, flags uint64) {
	m.mapLeaf(root, va, pa, 2, flags)
}

/// PageMapping pairs a virtual page with the physical frame backing it,
/// for a single MapRange call.
type PageMapping struct {
	Va uintptr
	Pa physmem.Pa_t
}

/// MapRange installs a 4KiB leaf mapping for every entry of pages, all
/// with the same flags, in one call — the way a VMA-sized region gets
/// mapped instead of one MapPage4K call per page.
func (m *Manager) MapRange(root physmem.Pa_t, pages []PageMapping, flags uint64) {
	for _, pg := range pages {
		m.mapLeaf(root, pg.Va, pg.Pa, 0, flags)
	}
}

func (m *Manager) mapLeaf(root physmem.Pa_t, va uintptr, pa physmem.Pa_t, level uint, flags uint64) {
	if flags&(PteR|PteW|PteX) == 0 {
		panic("pgtbl: leaf mapping needs at least one of R/W/X")
	}
	if flags&PteW != 0 && flags&(PteR|PteX) == 0 {
		panic("pgtbl: rwx=010 (write-only) is reserved")
	}
	tbl, idx, _ := m.walk(root, va, level, true)
	m.writePte(tbl, idx, mkpte(pa, flags|PteV))
}

/// QueryPage resolves va to its mapped physical address and flags. ok
/// is false if no mapping exists at any granularity.
func (m *Manager) QueryPage(root physmem.Pa_t, va uintptr) (pa physmem.Pa_t, flags uint64, ok bool) {
	tbl := root
	for l := int(2); l >= 0; l-- {
		idx := int(vpn(va, uint(l)))
		pte := m.readPte(tbl, idx)
		if !pte.Valid() {
			return 0, 0, false
		}
		if pte.Leaf() {
			pageSize := uintptr(1) << (12 + 9*uint(l))
			off := va & (pageSize - 1)
			return pte.Ppn() + physmem.Pa_t(off), pte.Flags(), true
		}
		tbl = pte.Ppn()
	}
	return 0, 0, false
}

/// ModifyFlags selectively updates the flag bits indicated by mask on
/// the existing leaf mapping at va, preserving every bit outside mask
/// (V is always preserved regardless of mask). Panics if no mapping
/// exists.
func (m *Manager) ModifyFlags(root physmem.Pa_t, va uintptr, mask, flags uint64) {
	for l := uint(0); l <= 2; l++ {
		tbl := root
		ok := true
		for hl := uint(2); hl > l; hl-- {
			idx := int(vpn(va, hl))
			pte := m.readPte(tbl, idx)
			if !pte.Valid() || pte.Leaf() {
				ok = false
				break
			}
			tbl = pte.Ppn()
		}
		if !ok {
			continue
		}
		idx := int(vpn(va, l))
		pte := m.readPte(tbl, idx)
		if pte.Valid() && pte.Leaf() {
			newFlags := (pte.Flags() &^ mask) | (flags & mask) | PteV
			m.writePte(tbl, idx, mkpte(pte.Ppn(), newFlags))
			return
		}
	}
	panic("pgtbl: ModifyFlags on unmapped page")
}

/// Unmap clears whatever leaf mapping covers va, at any granularity.
/// Returns false if nothing was mapped there.
func (m *Manager) Unmap(root physmem.Pa_t, va uintptr) bool {
	for l := uint(0); l <= 2; l++ {
		tbl := root
		ok := true
		for hl := uint(2); hl > l; hl-- {
			idx := int(vpn(va, hl))
			pte := m.readPte(tbl, idx)
			if !pte.Valid() || pte.Leaf() {
				ok = false
				break
			}
			tbl = pte.Ppn()
		}
		if !ok {
			continue
		}
		idx := int(vpn(va, l))
		pte := m.readPte(tbl, idx)
		if pte.Valid() && pte.Leaf() {
			m.writePte(tbl, idx, 0)
			return true
		}
	}
	return false
}
