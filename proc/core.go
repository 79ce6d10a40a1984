// Package proc implements the process/thread control blocks and the
// fork/create-thread/exit/getpid operations that wire every other core
// package together: capabilities, address spaces, physical memory, and
// scheduling.
package proc

import (
	"sync"

	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/limits"
	"github.com/sustcore-team/sustcore-sub000/pgtbl"
	"github.com/sustcore-team/sustcore-sub000/physmem"
	"github.com/sustcore-team/sustcore-sub000/sched"
	"github.com/sustcore-team/sustcore-sub000/tinfo"
)

// Core owns every piece of system-wide task state: the physical
// allocator and page-table manager address spaces are built over, the
// scheduler, the pid/tid directory, and the id allocators, mirroring
// how pid.c's RecycleAllocator and proc.c's create_pcb/create_tcb are
// both reached through one kernel-wide table in the original.
type Core struct {
	mu sync.Mutex

	phys *physmem.Allocator
	pt   *pgtbl.Manager

	Sched *sched.Scheduler
	Dir   *Directory
	Notes tinfo.Threadinfo_t

	pids *recycleAllocator
	tids *recycleAllocator
}

// NewCore builds task-management state over phys, with the scheduler's
// RP1/RP2 quanta set from rp1Quantum/rp2Quantum.
func NewCore(phys *physmem.Allocator, rp1Quantum, rp2Quantum int) *Core {
	c := &Core{
		phys: phys,
		pt:   pgtbl.New(phys),
		Dir:  NewDirectory(int(limits.Syslimit.Procs)),
		pids: newRecycleAllocator(1),
		tids: newRecycleAllocator(1),
	}
	c.Notes.Init()
	c.Sched = sched.NewScheduler(int(limits.Syslimit.Threads), c.runtime)
	c.Sched.SetQuanta(rp1Quantum, rp2Quantum)
	return c
}

func (c *Core) runtime(tid defs.Tid_t) int64 {
	tcb, ok := c.Dir.LookupTCB(tid)
	if !ok {
		return 0
	}
	return tcb.RunTime()
}

// NewProcess allocates a pid and an empty PCB, registering it as a
// child of parent (nil for the first process in the system) at
// rpLevel, gated on the system-wide process limit.
func (c *Core) NewProcess(parent *PCB, rpLevel sched.Level) (*PCB, defs.Err_t) {
	if !limits.Syslimit.Procs.Take() {
		return nil, defs.ENOMEM
	}
	pid := defs.Pid_t(c.pids.alloc())
	p := newPCB(pid, parent, c.phys, c.pt, rpLevel)
	c.Dir.addPCB(p)
	if parent != nil {
		parent.addChild(p)
	}
	return p, 0
}

// CreateThread allocates a tid and a TCB running within p at p's
// default RP level starting at entrypoint, registers it with the
// directory, thread-info table, and scheduler, gated on the
// system-wide thread limit. Matches spec.md's create_thread syscall
// row (pcb_cap, entrypoint, priority -> tcb_cap), with p's
// DefaultRPLevel standing in for the requested priority.
func (c *Core) CreateThread(p *PCB, entrypoint uintptr) (*TCB, defs.Err_t) {
	return c.createThreadAt(p, p.DefaultRPLevel, entrypoint)
}

// CreateThreadAt is CreateThread with an explicit RP level, the
// "priority" argument of spec.md's create_thread syscall row.
func (c *Core) CreateThreadAt(p *PCB, rpLevel sched.Level, entrypoint uintptr) (*TCB, defs.Err_t) {
	return c.createThreadAt(p, rpLevel, entrypoint)
}

func (c *Core) createThreadAt(p *PCB, rpLevel sched.Level, entrypoint uintptr) (*TCB, defs.Err_t) {
	if !limits.Syslimit.Threads.Take() {
		return nil, defs.ENOMEM
	}
	tid := defs.Tid_t(c.tids.alloc())
	t, err := newTCB(p, tid, rpLevel, entrypoint, c.phys)
	if err != 0 {
		limits.Syslimit.Threads.Give()
		c.tids.dealloc(int32(tid))
		return nil, err
	}
	p.addThread(t)
	c.Dir.addTCB(t)
	c.Notes.Add(tid, t.Note)
	c.Sched.Add(tid, rpLevel)
	return t, 0
}

// Fork duplicates parent into a new child process: a deep copy of its
// address space (per vm.TaskMemory.Fork, no copy-on-write), every
// derivable capability in its root CSpace cloned by derivation (per
// cap.CSpace.ForkInto, skipping the root CSA which the child's own
// CHolder already derived fresh), and one initial thread resuming at
// callerPC with the calling thread's RP level. Matches spec.md's fork
// syscall row; the parent's own caller is responsible for splitting
// the (pid, 0)/(0, 0) return pair across the two execution contexts
// this call produces.
func (c *Core) Fork(parent *PCB, callerRPLevel sched.Level, callerPC uintptr) (*PCB, defs.Err_t) {
	child, err := c.NewProcess(parent, parent.DefaultRPLevel)
	if err != 0 {
		return nil, err
	}
	if err := parent.Mem.Fork(child.Mem); err != 0 {
		c.destroyProcess(child)
		return nil, err
	}

	skipGroup := int(parent.Holder.CsaIdx.Group)
	skipSlot := int(parent.Holder.CsaIdx.Slot)
	parent.Holder.Major.SpaceAt(0).ForkInto(child.Holder.Major.SpaceAt(0), skipGroup, skipSlot)

	if _, err := c.createThreadAt(child, callerRPLevel, callerPC); err != 0 {
		c.destroyProcess(child)
		return nil, err
	}
	return child, 0
}

// Exit tears down every thread of p and marks p a zombie; p's address
// space stays intact until Reap is called, and neither Exit nor Reap
// tears down its capability holder. This mirrors terminate_tcb (immediate, per-thread) versus terminate_pcb
// (deferred, whole-process) in the original.
func (c *Core) Exit(p *PCB) {
	for _, t := range p.Threads() {
		c.exitThread(t)
	}
	p.markZombie()
}

func (c *Core) exitThread(t *TCB) {
	c.Sched.Exit(t.Tid)
	c.Dir.delTCB(t.Tid)
	c.Notes.Del(t.Tid)
	c.phys.FreeFrame(t.KStack, 0)
	c.tids.dealloc(int32(t.Tid))
	limits.Syslimit.Threads.Give()
}

// Reap finishes tearing down a zombie process: frees its address space,
// drops it from the directory, and recycles its pid. It is a no-op if
// p is still running.
func (c *Core) Reap(p *PCB) {
	if p.State() != ProcZombie {
		return
	}
	p.Mem.Free()
	c.Dir.delPCB(p.Pid)
	c.pids.dealloc(int32(p.Pid))
	limits.Syslimit.Procs.Give()
}

// destroyProcess unwinds a partially constructed child when Fork fails
// partway through, without requiring it to have reached ProcZombie.
func (c *Core) destroyProcess(p *PCB) {
	for _, t := range p.Threads() {
		c.exitThread(t)
	}
	p.Mem.Free()
	c.Dir.delPCB(p.Pid)
	c.pids.dealloc(int32(p.Pid))
	limits.Syslimit.Procs.Give()
}

// GetPid returns t's owning process id, the getpid syscall's whole
// job.
func GetPid(t *TCB) defs.Pid_t {
	return t.Owner.Pid
}
