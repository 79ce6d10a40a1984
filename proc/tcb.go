package proc

import (
	"github.com/sustcore-team/sustcore-sub000/accnt"
	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/physmem"
	"github.com/sustcore-team/sustcore-sub000/sched"
	"github.com/sustcore-team/sustcore-sub000/tinfo"
)

// TCB is one schedulable thread of a PCB. It owns its kernel-stack
// frame, a saved register context, and the scheduling state
// sched.Scheduler actually consults: the ready-queue level it runs at
// and the accounting RP3's shortest-job-first ordering reads from.
// Grounded on task_struct.h's per-thread fields (rp1_count/rp2_count/
// run_time), folded here into TCB rather than PCB since the scheduler
// is keyed by tid, not pid.
type TCB struct {
	Tid   defs.Tid_t
	Owner *PCB

	RPLevel sched.Level

	// PC is the saved program counter: where this thread resumes (or,
	// for a freshly created thread, the entrypoint create_thread
	// installed it with). Kept separate from Regs since the RISC-V
	// trapframe carries pc outside x1-x31.
	PC uintptr

	// KStack is the physical frame backing this thread's kernel stack,
	// freed on termination the way terminate_tcb releases it.
	KStack physmem.Pa_t

	// Regs holds the saved user-mode register context, opaque here
	// since the trap/context-switch assembly that reads and writes it
	// is out of scope for this package.
	Regs [32]uint64

	Accnt accnt.Accnt_t
	Note  *tinfo.Tnote_t
}

// newTCB allocates a TCB for owner at rpLevel, pulling one kernel-stack
// frame from phys the way alloc_thread_stack does for a new thread.
func newTCB(owner *PCB, tid defs.Tid_t, rpLevel sched.Level, pc uintptr, phys *physmem.Allocator) (*TCB, defs.Err_t) {
	stack, ok := phys.AllocFrame(0)
	if !ok {
		return nil, defs.ENOMEM
	}
	return &TCB{
		Tid:     tid,
		Owner:   owner,
		RPLevel: rpLevel,
		PC:      pc,
		KStack:  stack,
		Note:    tinfo.NewTnote(),
	}, 0
}

// RunTime reports this thread's cumulative run time in nanoseconds, the
// value sched.RuntimeFunc wires to for RP3's SJF ordering.
func (t *TCB) RunTime() int64 {
	return t.Accnt.RunTime()
}
