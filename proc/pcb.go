package proc

import (
	"sync"

	"github.com/sustcore-team/sustcore-sub000/cap"
	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/pgtbl"
	"github.com/sustcore-team/sustcore-sub000/physmem"
	"github.com/sustcore-team/sustcore-sub000/sched"
	"github.com/sustcore-team/sustcore-sub000/vm"
)

// ProcState mirrors the lifecycle states task_struct.h's PCBStruct
// moves through.
type ProcState int

const (
	ProcRunning ProcState = iota
	ProcZombie
)

// PCB is one process: one address space, one capability holder, a
// process-tree position, and the set of TCBs currently running within
// it. Grounded on task_struct.h's PCBStruct field list; DefaultRPLevel
// carries that struct's rp_level field as a template new threads
// inherit at creation (the scheduling state sched.Scheduler actually
// reads lives on TCB, per DESIGN.md's Open Question decision).
type PCB struct {
	Pid    defs.Pid_t
	Parent *PCB

	mu       sync.Mutex
	children []*PCB
	threads  []*TCB
	state    ProcState

	DefaultRPLevel sched.Level

	Holder *cap.CHolder
	Mem    *vm.TaskMemory
}

// newPCB constructs an empty process: a fresh CHolder (own root CSA,
// never inherited) and an empty TaskMemory over the given allocator
// and page-table manager.
func newPCB(pid defs.Pid_t, parent *PCB, phys *physmem.Allocator, pt *pgtbl.Manager, rpLevel sched.Level) *PCB {
	p := &PCB{
		Pid:            pid,
		Parent:         parent,
		DefaultRPLevel: rpLevel,
		Holder:         cap.NewCHolder(),
		Mem:            vm.NewTaskMemory(phys, pt),
	}
	return p
}

func (p *PCB) addChild(child *PCB) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children = append(p.children, child)
}

func (p *PCB) addThread(t *TCB) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, t)
}

// Threads returns the process's live thread list. Callers must not
// mutate the returned slice.
func (p *PCB) Threads() []*TCB {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threads
}

// Children returns the process's child list. Callers must not mutate
// the returned slice.
func (p *PCB) Children() []*PCB {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.children
}

// State reports whether the process is still running or has exited
// and is awaiting reaping.
func (p *PCB) State() ProcState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PCB) markZombie() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = ProcZombie
}
