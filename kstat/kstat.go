// Package kstat holds the kernel-wide counters the operator CLI's
// boot and trace-sched commands report, built on stats.Counter_t
// the way the original counted per-subsystem events.
package kstat

import "github.com/sustcore-team/sustcore-sub000/stats"

/// Counters aggregates kernel-wide event counts. A single instance,
/// Global, is shared across the process.
type Counters struct {
	ScheduleTicks    stats.Counter_t
	ContextSwitches  stats.Counter_t
	PageFaultsOK     stats.Counter_t
	PageFaultsFailed stats.Counter_t
	CapsCreated      stats.Counter_t
	CapsCloned       stats.Counter_t
	CapsMigrated     stats.Counter_t
	CapsRemoved      stats.Counter_t
	CapsRevoked      stats.Counter_t
}

/// Global is the process-wide counter set.
var Global = &Counters{}

/// String renders the counters via stats.Stats2String.
func (c *Counters) String() string {
	return stats.Stats2String(*c)
}
