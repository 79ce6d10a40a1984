package kernel

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/kstat"
	"github.com/sustcore-team/sustcore-sub000/sched"
)

func newTraceSchedCmd(cfg *Config) *cobra.Command {
	var ticks int

	cmd := &cobra.Command{
		Use:   "trace-sched",
		Short: "Populate all four RP levels and trace the scheduler tick by tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := NewWorld(*cfg)

			levels := []sched.Level{sched.RP0, sched.RP1, sched.RP1, sched.RP2, sched.RP3}
			for i, l := range levels {
				p, err := w.Core.NewProcess(nil, l)
				if err != 0 {
					return fmt.Errorf("kernel: NewProcess(%d): %v", i, err)
				}
				t, err := w.Core.CreateThread(p, uintptr(0x1000*(i+1)))
				if err != 0 {
					return fmt.Errorf("kernel: CreateThread(%d): %v", i, err)
				}
				fmt.Printf("thread %d registered at %s\n", t.Tid, l)
			}

			var last defs.Tid_t
			var havePrev bool
			for i := 0; i < ticks; i++ {
				tid, ok := w.Core.Sched.Schedule()
				if !ok {
					fmt.Printf("tick %d: no runnable thread\n", i)
					continue
				}
				if !havePrev || tid != last {
					kstat.Global.ContextSwitches.Inc()
					havePrev, last = true, tid
				}
				fmt.Printf("tick %d: running tid=%d state=%s\n", i, tid, w.Core.Sched.State(tid))
				w.Trap.HandleTimer()
			}
			fmt.Print(kstatString())
			return nil
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 20, "number of scheduler ticks to trace")
	return cmd
}
