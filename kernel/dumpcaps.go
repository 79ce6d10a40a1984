package kernel

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sustcore-team/sustcore-sub000/cap"
)

func payloadKindString(k cap.PayloadKind) string {
	switch k {
	case cap.PayloadNone:
		return "None"
	case cap.PayloadTestObject:
		return "TestObject"
	case cap.PayloadCSpaceAccessor:
		return "CSpaceAccessor"
	case cap.PayloadNotification:
		return "Notification"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

func newDumpCapsCmd(cfg *Config) *cobra.Command {
	var entrypoint int64

	cmd := &cobra.Command{
		Use:   "dump-caps",
		Short: "Boot the machine and dump its init process's root capability space",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := NewWorld(*cfg)
			p, _, err := w.SpawnInit(uintptr(entrypoint))
			if err != nil {
				return err
			}

			root := p.Holder.Major.SpaceAt(0)
			fmt.Printf("capability space for pid %d (holder %d):\n", p.Pid, p.Holder.ID)
			count := 0
			root.Walk(func(idx cap.CapIdx, c *cap.Capability) {
				count++
				fmt.Printf("  [group=%d slot=%d] raw=%#x kind=%s derivable=%v\n",
					idx.Group, idx.Slot, idx.Raw(), payloadKindString(c.Kind()), c.Derivable())
			})
			fmt.Printf("%d capabilities installed\n", count)
			return nil
		},
	}
	cmd.Flags().Int64Var(&entrypoint, "entrypoint", 0x1000, "virtual address the init thread starts at")
	return cmd
}
