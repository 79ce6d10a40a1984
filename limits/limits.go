package limits

import "unsafe"
import "sync/atomic"

/// Lhits counts limit hits.
var Lhits int

/// Sysatomic_t is a numeric limit that can be atomically updated.
type Sysatomic_t int64

/// Syslimit_t centralizes the kernel's resource caps, the way the
/// scattered consts elsewhere would otherwise be spread across
/// packages. Most of these mirror fixed compile-time constants (the
/// capability system's CGROUP_SLOTS/CSPACE_SIZE/CUNIVERSE_SIZE, the
/// buddy allocator's MaxOrder, the scheduler's RP1/RP2 quanta); the
/// Sysatomic_t fields are the ones actually consumed at runtime by
/// more than one caller and so benefit from atomic accounting.
type Syslimit_t struct {
	// capability system
	CGroupSlots   int
	CSpaceSize    int
	CUniverseSize int
	// buddy allocator
	MaxOrder int
	// scheduler RP1/RP2 time quanta, in scheduler ticks
	RP1Quantum int
	RP2Quantum int
	// live thread/process count, atomically enforced
	Threads Sysatomic_t
	Procs   Sysatomic_t
}

/// Syslimit describes the configured system wide limits.
var Syslimit *Syslimit_t = MkSysLimit()

/// MkSysLimit returns a pointer to the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		CGroupSlots:   64,
		CSpaceSize:    1024,
		CUniverseSize: 1024,
		MaxOrder:      15,
		RP1Quantum:    5,
		RP2Quantum:    2,
		Threads:       4096,
		Procs:         1024,
	}
}

func (s *Sysatomic_t) _aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

/// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(_n uint) {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	atomic.AddInt64(s._aptr(), n)
}

/// Taken tries to decrement the limit by the provided amount.
/// It returns true on success.
func (s *Sysatomic_t) Taken(_n uint) bool {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	g := atomic.AddInt64(s._aptr(), -n)
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s._aptr(), n)
	return false
}

/// Take decrements the limit and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

/// Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}
