package kernel

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBootCmd(cfg *Config) *cobra.Command {
	var entrypoint int64

	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Boot the simulated machine and create its first process",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := NewWorld(*cfg)
			p, t, err := w.SpawnInit(uintptr(entrypoint))
			if err != nil {
				return err
			}
			fmt.Printf("booted: pid=%d tid=%d entrypoint=%#x holder=%d\n", p.Pid, t.Tid, t.PC, p.Holder.ID)
			fmt.Printf("limits: pages=%d rp1_quantum=%d rp2_quantum=%d\n", cfg.Pages, cfg.RP1Quantum, cfg.RP2Quantum)
			fmt.Print(kstatString())
			return nil
		},
	}
	cmd.Flags().Int64Var(&entrypoint, "entrypoint", 0x1000, "virtual address the first thread starts at")
	return cmd
}
