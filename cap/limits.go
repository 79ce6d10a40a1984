package cap

/// Resource caps for the capability system, mirroring limits.Syslimit_t's
/// role of centralizing tunables the rest of the kernel treats as
/// constants.
const (
	CGROUP_SLOTS  = 64
	CSPACE_SIZE   = 1024
	CUNIVERSE_SIZE = 1024
)
