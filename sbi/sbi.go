// Package sbi names the firmware and platform collaborators the CORE
// depends on but does not implement: the RISC-V SBI console and timer
// calls, the parsed device tree, an ELF loader, a block device, and
// the privileged satp/TLB operations a context switch needs. Each is a
// narrow interface, the same idiom the teacher uses for its own
// out-of-package collaborators (mem.Page_i, mem.Unpin_i,
// vm.Cpumap(f func(int) uint32)) rather than importing the real
// subsystem.
package sbi

import (
	"github.com/sustcore-team/sustcore-sub000/physmem"
	"github.com/sustcore-team/sustcore-sub000/vm"
)

/// Console is the SBI DBCN debug console write path the write_serial
/// syscall is backed by.
type Console interface {
	Write(data []byte) (int, error)
}

/// Timer schedules the next timer interrupt (SBI TIME), consulted
/// after a scheduler tick to rearm the clock.
type Timer interface {
	SetTimer(deadlineNs uint64)
}

/// Shutdown powers the machine off (SBI SRST).
type Shutdown interface {
	PowerOff(code int)
}

/// MMU loads a new page-table root into satp and flushes stale TLB
/// entries, the privileged operation a context switch needs after
/// sched.Scheduler.Schedule picks a new thread.
type MMU interface {
	LoadRoot(root physmem.Pa_t)
	FlushTLB()
}

/// FDT exposes the parsed device tree's usable memory regions, handed
/// to physmem.Init at boot.
type FDT interface {
	MemRegions() []physmem.MemRegion
}

/// ELFLoader maps an ELF image's segments into a fresh TaskMemory and
/// reports its entry point.
type ELFLoader interface {
	Load(tm *vm.TaskMemory, image []byte) (entry uintptr, err error)
}

/// BlockDevice is a raw sector-addressed storage device, the
/// collaborator a TarFS/VFS layer would sit on top of.
type BlockDevice interface {
	ReadSector(lba uint64, buf []byte) error
	WriteSector(lba uint64, buf []byte) error
}
