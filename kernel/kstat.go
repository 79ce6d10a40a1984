package kernel

import "github.com/sustcore-team/sustcore-sub000/kstat"

// kstatString renders the process-wide kernel counters for the CLI's
// own commands to print, reusing kstat.Counters.String rather than
// re-deriving the same reflect-based dump here.
func kstatString() string {
	return kstat.Global.String()
}
