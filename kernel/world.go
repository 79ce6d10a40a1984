// Package kernel is the operator CLI: it boots a simulated CORE
// instance over sbi's fakes and drives it through scenarios, grounded
// on ja7ad-consumption's cmd/consumption/main.go cobra.Command tree.
package kernel

import (
	"fmt"

	"github.com/sustcore-team/sustcore-sub000/limits"
	"github.com/sustcore-team/sustcore-sub000/physmem"
	"github.com/sustcore-team/sustcore-sub000/proc"
	"github.com/sustcore-team/sustcore-sub000/sbi"
	"github.com/sustcore-team/sustcore-sub000/sched"
	"github.com/sustcore-team/sustcore-sub000/trap"
)

// World bundles one simulated machine: its physical memory, the CORE
// task-management state built over it, the syscall/trap dispatcher,
// and the SBI fakes standing in for firmware.
type World struct {
	Phys    *physmem.Allocator
	Core    *proc.Core
	Trap    *trap.Dispatcher
	Console *sbi.FakeConsole
	Timer   *sbi.FakeTimer
	MMU     *sbi.FakeMMU
}

// Config tunes a World's size and scheduler quanta, the CLI-exposed
// stand-in for limits.Syslimit_t's compile-time constants.
type Config struct {
	Pages      int
	RP1Quantum int
	RP2Quantum int
	Threads    uint
	Procs      uint
}

// DefaultConfig mirrors limits.MkSysLimit's defaults, scaled down to a
// size a single CLI invocation can comfortably simulate.
func DefaultConfig() Config {
	return Config{
		Pages:      4096,
		RP1Quantum: 5,
		RP2Quantum: 2,
		Threads:    256,
		Procs:      64,
	}
}

// NewWorld builds a fresh simulated machine from cfg. It overwrites
// the process-wide limits.Syslimit thread/process caps, matching how
// the teacher configures itself through typed entry points rather
// than a config file.
func NewWorld(cfg Config) *World {
	limits.Syslimit.Threads = limits.Sysatomic_t(cfg.Threads)
	limits.Syslimit.Procs = limits.Sysatomic_t(cfg.Procs)

	arena := make([]byte, cfg.Pages*physmem.PGSIZE)
	phys := physmem.Init(arena, 0, []physmem.MemRegion{
		{Base: 0, Pages: cfg.Pages, Status: physmem.RegionFree},
	})
	core := proc.NewCore(phys, cfg.RP1Quantum, cfg.RP2Quantum)
	console := &sbi.FakeConsole{}
	return &World{
		Phys:    phys,
		Core:    core,
		Trap:    trap.NewDispatcher(core, console),
		Console: console,
		Timer:   &sbi.FakeTimer{},
		MMU:     &sbi.FakeMMU{},
	}
}

// SpawnInit creates the system's first process with a single thread at
// the given entrypoint, running at RP1, the way the original boots its
// first task before any fork has happened.
func (w *World) SpawnInit(entrypoint uintptr) (*proc.PCB, *proc.TCB, error) {
	p, err := w.Core.NewProcess(nil, sched.RP1)
	if err != 0 {
		return nil, nil, fmt.Errorf("kernel: NewProcess: %v", err)
	}
	t, err := w.Core.CreateThread(p, entrypoint)
	if err != 0 {
		return nil, nil, fmt.Errorf("kernel: CreateThread: %v", err)
	}
	return p, t, nil
}
