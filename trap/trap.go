// Package trap classifies RISC-V SV39 traps and dispatches the eight
// syscalls the core defines, grounded on vm/as.go's Sys_pgfault cause
// switch for the classification style and wired to proc.Core, notif,
// and sbi.Console for the effects themselves.
package trap

import (
	"fmt"

	"github.com/sustcore-team/sustcore-sub000/caller"
	"github.com/sustcore-team/sustcore-sub000/cap"
	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/kstat"
	"github.com/sustcore-team/sustcore-sub000/proc"
	"github.com/sustcore-team/sustcore-sub000/sbi"
	"github.com/sustcore-team/sustcore-sub000/vm"
)

/// Cause is a RISC-V scause register value: the low bits name the
/// exception or interrupt code, and the top bit distinguishes an
/// interrupt from a synchronous exception.
type Cause uint64

const interruptBit uint64 = 1 << 63

const (
	ExcIllegalInstruction Cause = 2
	ExcUserEcall          Cause = 8
	ExcInstPageFault      Cause = 12
	ExcLoadPageFault      Cause = 13
	ExcStorePageFault     Cause = 15
)

/// TimerInterrupt is scause with the interrupt bit set and cause 5, the
/// supervisor timer interrupt spec.md calls out by name.
const TimerInterrupt Cause = Cause(interruptBit) | 5

/// IsInterrupt reports whether c's top bit marks it an interrupt rather
/// than a synchronous exception.
func (c Cause) IsInterrupt() bool { return uint64(c)&interruptBit != 0 }

/// Code returns c's low 63 bits, the exception/interrupt number proper.
func (c Cause) Code() uint64 { return uint64(c) &^ interruptBit }

func (c Cause) String() string {
	switch c {
	case ExcIllegalInstruction:
		return "illegal instruction"
	case ExcUserEcall:
		return "U-mode ecall"
	case ExcInstPageFault:
		return "instruction page fault"
	case ExcLoadPageFault:
		return "load page fault"
	case ExcStorePageFault:
		return "store page fault"
	case TimerInterrupt:
		return "timer interrupt"
	default:
		return fmt.Sprintf("scause %#x", uint64(c))
	}
}

// diagnostics gates one-time permission-failure stack dumps, per
// spec.md's "permission failures are never silent" propagation policy.
// Disabled by default; EnableDiagnostics turns it on. Each denial is
// logged either way; only the stack dump is gated.
var diagnostics caller.Distinct_caller_t

// EnableDiagnostics turns on first-occurrence stack dumps for denied
// operations dispatched through this package.
func EnableDiagnostics() { diagnostics.Enabled = true }

func logDenied(format string, args ...interface{}) {
	fmt.Printf("trap: permission denied: "+format+"\n", args...)
	if distinct, stack := diagnostics.Distinct(); distinct {
		fmt.Printf("%s", stack)
	}
}

/// Dispatcher resolves traps against one proc.Core, routing page
/// faults to the faulting thread's TaskMemory and routing syscalls to
/// Core's process/thread operations, notif's bitmap operations, and an
/// sbi.Console for write_serial.
type Dispatcher struct {
	Core    *proc.Core
	Console sbi.Console
}

/// NewDispatcher builds a Dispatcher wired to core and console.
func NewDispatcher(core *proc.Core, console sbi.Console) *Dispatcher {
	return &Dispatcher{Core: core, Console: console}
}

func pageFaultCause(c Cause) (vm.FaultCause, bool) {
	switch c {
	case ExcInstPageFault:
		return vm.InstPage, true
	case ExcLoadPageFault:
		return vm.LoadPage, true
	case ExcStorePageFault:
		return vm.StorePage, true
	case ExcIllegalInstruction:
		return vm.IllegalInst, true
	default:
		return 0, false
	}
}

// HandlePageFault resolves a page fault belonging to thread t at
// virtual address va, updates kstat's page-fault counters, and applies
// spec.md §7's policy on unrecoverable faults: the owning process is
// terminated, not panicked.
func (d *Dispatcher) HandlePageFault(t *proc.TCB, va uintptr, cause Cause) defs.Err_t {
	fc, ok := pageFaultCause(cause)
	if !ok {
		panic("trap: HandlePageFault called with a non-page-fault cause: " + cause.String())
	}
	err := t.Owner.Mem.HandleFault(va, fc)
	if err == 0 {
		kstat.Global.PageFaultsOK.Inc()
		return 0
	}
	kstat.Global.PageFaultsFailed.Inc()
	d.Core.Exit(t.Owner)
	return err
}

// HandleTimer advances the scheduler by one tick and counts it, the
// supervisor timer interrupt's whole job at this layer; rearming the
// next deadline through an sbi.Timer is the caller's concern.
func (d *Dispatcher) HandleTimer() {
	d.Core.Sched.Tick()
	kstat.Global.ScheduleTicks.Inc()
}

// resolveCap looks up idx in t's owning process's capability holder,
// logging (and, on the first occurrence of this call chain, dumping a
// stack trace for) any denial, per spec.md §7's "permission failures
// are never silent" rule.
func resolveCap(t *proc.TCB, idx cap.CapIdx, recvCtx int) (*cap.Capability, cap.ErrCode) {
	c, rc := t.Owner.Holder.Access(idx, recvCtx)
	if rc != cap.Success {
		logDenied("thread %d: resolving %#x: %s", t.Tid, idx.Raw(), rc.String())
	}
	return c, rc
}
