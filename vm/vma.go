// Package vm implements a task's address space: its ordered VMA list,
// SV39 page table, demand-paging fault handler, and the kernel<->user
// copy helpers syscalls use to marshal arguments. It is adapted from
// the host this package is taken from, dropping that host's COW and
// file-backed-mmap machinery (out of scope here) in favor of plain
// anonymous, eagerly-deep-copied-on-fork pages.
package vm

import "github.com/sustcore-team/sustcore-sub000/pgtbl"

/// VMAKind names the role a VMA plays, which determines its default
/// permissions.
type VMAKind int

const (
	Code VMAKind = iota
	Data
	Stack
	Heap
	Mmap
	ShareRO
	ShareRW
	ShareRX
	ShareRWX
)

func (k VMAKind) String() string {
	switch k {
	case Code:
		return "Code"
	case Data:
		return "Data"
	case Stack:
		return "Stack"
	case Heap:
		return "Heap"
	case Mmap:
		return "Mmap"
	case ShareRO:
		return "ShareRO"
	case ShareRW:
		return "ShareRW"
	case ShareRX:
		return "ShareRX"
	case ShareRWX:
		return "ShareRWX"
	default:
		return "?"
	}
}

/// DefaultPerms returns the R/W/X page table bits implied by a VMA's
/// role: Code is RX, Data/Stack/Heap/Mmap/ShareRW are RW, ShareRO is
/// R, ShareRX is RX, ShareRWX is RWX.
func (k VMAKind) DefaultPerms() uint64 {
	switch k {
	case Code, ShareRX:
		return pgtbl.PteR | pgtbl.PteX
	case ShareRO:
		return pgtbl.PteR
	case ShareRWX:
		return pgtbl.PteR | pgtbl.PteW | pgtbl.PteX
	default:
		return pgtbl.PteR | pgtbl.PteW
	}
}

/// VMA is a half-open virtual range tagged with a role. VMAs within a
/// single task's VMAList never overlap.
type VMA struct {
	Kind  VMAKind
	Vaddr uintptr
	Size  uintptr
}

/// Contains reports whether va falls within this VMA's range.
func (v *VMA) Contains(va uintptr) bool {
	return va >= v.Vaddr && va < v.Vaddr+v.Size
}

/// VMAList is a task's ordered (by Vaddr), non-overlapping set of
/// virtual memory areas.
type VMAList struct {
	list []*VMA
}

/// Add inserts a new VMA in vaddr order, rejecting any overlap with an
/// existing one. It returns false if the range overlaps.
func (l *VMAList) Add(kind VMAKind, vaddr, size uintptr) bool {
	if size == 0 {
		panic("vm: zero-size vma")
	}
	end := vaddr + size
	idx := 0
	for idx < len(l.list) && l.list[idx].Vaddr < vaddr {
		idx++
	}
	if idx > 0 {
		prev := l.list[idx-1]
		if prev.Vaddr+prev.Size > vaddr {
			return false
		}
	}
	if idx < len(l.list) && l.list[idx].Vaddr < end {
		return false
	}
	v := &VMA{Kind: kind, Vaddr: vaddr, Size: size}
	l.list = append(l.list, nil)
	copy(l.list[idx+1:], l.list[idx:])
	l.list[idx] = v
	return true
}

/// Find returns the VMA containing va, scanning the ordered list.
func (l *VMAList) Find(va uintptr) (*VMA, bool) {
	for _, v := range l.list {
		if v.Vaddr > va {
			break
		}
		if v.Contains(va) {
			return v, true
		}
	}
	return nil, false
}

/// Remove deletes the VMA starting exactly at vaddr, if any.
func (l *VMAList) Remove(vaddr uintptr) bool {
	for i, v := range l.list {
		if v.Vaddr == vaddr {
			l.list = append(l.list[:i], l.list[i+1:]...)
			return true
		}
	}
	return false
}

/// All returns the VMAs in vaddr order. Callers must not mutate the
/// returned slice.
func (l *VMAList) All() []*VMA {
	return l.list
}

/// Clear empties the VMA list.
func (l *VMAList) Clear() {
	l.list = nil
}
