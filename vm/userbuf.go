package vm

import (
	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/pgtbl"
	"github.com/sustcore-team/sustcore-sub000/physmem"
)

/// UserBuf is a bounds-checked window into a task's user virtual
/// address range, the unit syscall argument marshalling copies
/// through.
type UserBuf struct {
	tm  *TaskMemory
	Va  uintptr
	Len int
}

/// Mkuserbuf describes len bytes of user memory starting at va,
/// without touching any page table yet.
func (tm *TaskMemory) Mkuserbuf(va uintptr, len int) *UserBuf {
	return &UserBuf{tm: tm, Va: va, Len: len}
}

func pageOffset(va uintptr) int {
	return int(va) % physmem.PGSIZE
}

// translateForAccess demand-pages va for the given cause when it is not
// yet mapped with the required permission, then returns the backing
// kernel-physical byte slice from va's page offset onward. A write to a
// page that is still not writable after the fault reports EFAULT.
func (tm *TaskMemory) translateForAccess(va uintptr, cause FaultCause, needWrite bool) ([]byte, defs.Err_t) {
	pa, flags, ok := tm.Translate(va)
	if !ok || (needWrite && flags&pgtbl.PteW == 0) {
		if err := tm.HandleFault(va, cause); err != 0 {
			return nil, err
		}
		pa, flags, ok = tm.Translate(va)
		if !ok || (needWrite && flags&pgtbl.PteW == 0) {
			return nil, defs.EFAULT
		}
	}
	page := tm.phys.Dmap(pa)
	return page[pageOffset(va):], 0
}

/// MemcpyK2U copies src into the calling task's user virtual address
/// space starting at uva, walking the destination page table one
/// page at a time and demand-paging as needed. It never sets
/// sstatus.SUM; all writes go through the kernel-physical alias.
func MemcpyK2U(tm *TaskMemory, uva uintptr, src []byte) defs.Err_t {
	for len(src) > 0 {
		dst, err := tm.translateForAccess(uva, StoreFault, true)
		if err != 0 {
			return err
		}
		n := len(dst)
		if n > len(src) {
			n = len(src)
		}
		copy(dst, src[:n])
		src = src[n:]
		uva += uintptr(n)
	}
	return 0
}

/// MemcpyU2K copies len(dst) bytes from the user virtual address uva
/// into dst.
func MemcpyU2K(tm *TaskMemory, dst []byte, uva uintptr) defs.Err_t {
	for len(dst) > 0 {
		src, err := tm.translateForAccess(uva, LoadFault, false)
		if err != 0 {
			return err
		}
		n := copy(dst, src)
		dst = dst[n:]
		uva += uintptr(n)
	}
	return 0
}

/// MemcpyU2U copies n bytes from srcTm's address space at srcVa into
/// dstTm's address space at dstVa. Since both sides are only ever
/// visible through their kernel-physical aliases, a small stack
/// bounce buffer bridges the two copies.
func MemcpyU2U(dstTm *TaskMemory, dstVa uintptr, srcTm *TaskMemory, srcVa uintptr, n int) defs.Err_t {
	var bounce [physmem.PGSIZE]byte
	for n > 0 {
		chunk := n
		if chunk > len(bounce) {
			chunk = len(bounce)
		}
		if err := MemcpyU2K(srcTm, bounce[:chunk], srcVa); err != 0 {
			return err
		}
		if err := MemcpyK2U(dstTm, dstVa, bounce[:chunk]); err != 0 {
			return err
		}
		srcVa += uintptr(chunk)
		dstVa += uintptr(chunk)
		n -= chunk
	}
	return 0
}

/// MemsetU fills n bytes of user memory at uva with val.
func MemsetU(tm *TaskMemory, uva uintptr, val byte, n int) defs.Err_t {
	for n > 0 {
		dst, err := tm.translateForAccess(uva, StoreFault, true)
		if err != 0 {
			return err
		}
		c := n
		if c > len(dst) {
			c = len(dst)
		}
		for i := 0; i < c; i++ {
			dst[i] = val
		}
		uva += uintptr(c)
		n -= c
	}
	return 0
}

/// MemcmpU2U compares n bytes of user memory starting at va1 in tm1
/// against va2 in tm2. It returns 0 if equal, a negative value if the
/// tm1 side compares less, positive if greater.
func MemcmpU2U(tm1 *TaskMemory, va1 uintptr, tm2 *TaskMemory, va2 uintptr, n int) (int, defs.Err_t) {
	for n > 0 {
		s1, err := tm1.translateForAccess(va1, LoadFault, false)
		if err != 0 {
			return 0, err
		}
		s2, err := tm2.translateForAccess(va2, LoadFault, false)
		if err != 0 {
			return 0, err
		}
		c := n
		if c > len(s1) {
			c = len(s1)
		}
		if c > len(s2) {
			c = len(s2)
		}
		for i := 0; i < c; i++ {
			if s1[i] != s2[i] {
				return int(s1[i]) - int(s2[i]), 0
			}
		}
		va1 += uintptr(c)
		va2 += uintptr(c)
		n -= c
	}
	return 0, 0
}

/// Copyout writes up to ub.Len bytes of src into the buffer.
func (ub *UserBuf) Copyout(src []byte) defs.Err_t {
	if len(src) > ub.Len {
		src = src[:ub.Len]
	}
	return MemcpyK2U(ub.tm, ub.Va, src)
}

/// Copyin reads up to len(dst) bytes from the buffer into dst.
func (ub *UserBuf) Copyin(dst []byte) defs.Err_t {
	if len(dst) > ub.Len {
		dst = dst[:ub.Len]
	}
	return MemcpyU2K(ub.tm, dst, ub.Va)
}
