package trap

import (
	"github.com/sustcore-team/sustcore-sub000/cap"
	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/notif"
	"github.com/sustcore-team/sustcore-sub000/proc"
	"github.com/sustcore-team/sustcore-sub000/sched"
)

// pcb_cap/tcb_cap arguments in spec.md's syscall table resolve, in
// this implementation, to the calling thread's own TCB/PCB directly:
// process and thread identity are not wrapped in a dedicated Payload
// kind, since everything else reachable from a PCB is already gated by
// its CHolder's root CSpaceAccessor capability. A syscall handler here
// always starts from the already-scheduled *proc.TCB the trap belongs
// to, the same way a real trap entry knows "current" from the
// hartid's running-thread pointer before it ever looks at a register
// argument.

/// Sysno names one of the eight syscalls spec.md's table defines.
type Sysno int

const (
	SysExit Sysno = iota + 1
	SysYield
	SysFork
	SysGetpid
	SysCreateThread
	SysWaitNotification
	SysNotification
	SysWriteSerial
)

/// NotifOp selects which of the three bit-level operations a
/// SysNotification call performs, the "set/reset/check" fan-out spec.md
/// groups under syscall number 7.
type NotifOp int

const (
	NotifSet NotifOp = iota
	NotifReset
	NotifCheck
)

// Exit marks the caller's owning process Zombie. It never returns to
// the caller, matching spec.md's "Returns: never".
func (d *Dispatcher) Exit(t *proc.TCB) {
	d.Core.Exit(t.Owner)
}

// Yield voluntarily releases the CPU, returning the caller to the tail
// of its own RP level's ready queue (biscuit's Sched_t distinguishes "runnable" from
// "running" the same way).
func (d *Dispatcher) Yield(t *proc.TCB) {
	d.Core.Sched.Yield(t.Tid)
}

// Fork duplicates t's owning process, resuming the new child's sole
// thread at t's current PC and RP level. Returns the child process and
// its pid; per spec.md the caller is responsible for returning pid 0
// within the child's own execution context (this function only ever
// runs in the parent).
func (d *Dispatcher) Fork(t *proc.TCB) (*proc.PCB, defs.Pid_t, defs.Err_t) {
	child, err := d.Core.Fork(t.Owner, t.RPLevel, t.PC)
	if err != 0 {
		return nil, defs.NoPid, err
	}
	return child, child.Pid, 0
}

// Getpid returns the identity of t's owning process.
func (d *Dispatcher) Getpid(t *proc.TCB) defs.Pid_t {
	return proc.GetPid(t)
}

// CreateThread allocates a new thread within t's owning process,
// starting at entrypoint with the requested RP-level priority.
func (d *Dispatcher) CreateThread(t *proc.TCB, entrypoint uintptr, priority sched.Level) (*proc.TCB, defs.Err_t) {
	return d.Core.CreateThreadAt(t.Owner, priority, entrypoint)
}

// notificationOf resolves notifIdx (a RECV-space index uses recvCtx;
// MAJOR/MINOR ignore it) against t's holder and checks it wraps a
// notif.Notification, returning the capability's permission window
// alongside the object so callers can pass both straight into the
// gated notif method.
func notificationOf(t *proc.TCB, notifIdx cap.CapIdx, recvCtx int) (*notif.Notification, cap.PermissionBits, defs.Err_t) {
	c, rc := resolveCap(t, notifIdx, recvCtx)
	if rc != cap.Success {
		return nil, cap.PermissionBits{}, rc.ToErrt()
	}
	payload := c.Payload()
	n, ok := payload.(*notif.Notification)
	if !ok {
		logDenied("thread %d: %#x is not a notification capability", t.Tid, notifIdx.Raw())
		return nil, cap.PermissionBits{}, cap.TypeNotMatched.ToErrt()
	}
	return n, *c.Perms(), 0
}

// WaitNotification blocks the caller until any bit named in mask is
// set on the notification reached through notifIdx, returning the bit
// that woke it. There is no separate waiter argument: this
// implementation always waits on behalf of the calling thread t.
func (d *Dispatcher) WaitNotification(t *proc.TCB, notifIdx cap.CapIdx, recvCtx int, mask []int) (int, defs.Err_t) {
	n, perms, err := notificationOf(t, notifIdx, recvCtx)
	if err != 0 {
		return 0, err
	}
	d.Core.Sched.Block(t.Tid)
	bit, rc := n.Wait(perms, mask)
	d.Core.Sched.Wake(t.Tid)
	return bit, rc
}

// Notification performs one of set/reset/check on bit of the
// notification reached through notifIdx, permission-gated by the
// capability's own window over that bit, per spec.md's syscall 7 row.
func (d *Dispatcher) Notification(t *proc.TCB, notifIdx cap.CapIdx, recvCtx int, op NotifOp, bit int) (bool, defs.Err_t) {
	n, perms, err := notificationOf(t, notifIdx, recvCtx)
	if err != 0 {
		return false, err
	}
	switch op {
	case NotifSet:
		return false, n.Set(perms, bit)
	case NotifReset:
		return false, n.Reset(perms, bit)
	case NotifCheck:
		return n.Check(perms, bit)
	default:
		return false, defs.EINVAL
	}
}

// WriteSerial writes str to the debug console via SBI DBCN, returning
// the number of bytes written.
func (d *Dispatcher) WriteSerial(str string) (int, error) {
	return d.Console.Write([]byte(str))
}
