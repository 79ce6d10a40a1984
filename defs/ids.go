package defs

/// Pid_t identifies a process (task) uniquely for the lifetime of the system.
type Pid_t int32

/// Tid_t identifies a thread uniquely within its owning process's lifetime.
type Tid_t int32

const (
	NoPid Pid_t = 0
	NoTid Tid_t = 0
)
