package kernel

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Main builds and executes the operator CLI's root command. It is
// called from cmd/kernel/main.go, a thin package main the way
// ja7ad-consumption keeps its own cobra wiring out of package main's
// body.
func Main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := DefaultConfig()

	root := &cobra.Command{
		Use:   "kernel",
		Short: "Drive a simulated capability-based microkernel core",
		Long: `kernel boots a simulated RISC-V SV39 capability-based microkernel core
entirely in user space: physical memory, page tables, the capability
object system, process/thread control blocks, the four-level scheduler,
and trap dispatch, standing in SBI fakes for firmware the core itself
does not implement.`,
	}

	root.PersistentFlags().IntVar(&cfg.Pages, "pages", cfg.Pages, "physical pages available to the simulated machine")
	root.PersistentFlags().IntVar(&cfg.RP1Quantum, "rp1-quantum", cfg.RP1Quantum, "RP1 round-robin quantum, in scheduler ticks")
	root.PersistentFlags().IntVar(&cfg.RP2Quantum, "rp2-quantum", cfg.RP2Quantum, "RP2 round-robin quantum, in scheduler ticks")
	root.PersistentFlags().UintVar(&cfg.Threads, "max-threads", cfg.Threads, "system-wide live thread cap")
	root.PersistentFlags().UintVar(&cfg.Procs, "max-procs", cfg.Procs, "system-wide live process cap")

	root.AddCommand(newBootCmd(&cfg))
	root.AddCommand(newRunScenarioCmd(&cfg))
	root.AddCommand(newDumpCapsCmd(&cfg))
	root.AddCommand(newTraceSchedCmd(&cfg))
	return root
}
