package stats

import "reflect"
import "sync/atomic"
import "strconv"
import "strings"
import "time"
import "unsafe"

// Stats and Timing are always on: unlike the host this package is
// adapted from (which gated expensive profiling behind a build-time
// const so it could be flipped off on real hardware), nothing here
// runs in a context where that overhead matters, and the kernel-wide
// counters in kstat exist specifically so they can always be read.
const Stats = true
const Timing = true

/// Rdtsc returns a monotonically increasing nanosecond timestamp. The
/// host this package is adapted from reads the CPU's cycle counter
/// directly; lacking that register here, wall-clock nanoseconds serve
/// the same role for Cycles_t deltas.
func Rdtsc() uint64 {
	return uint64(time.Now().UnixNano())
}

/// Counter_t is a statistical counter.
type Counter_t int64

/// Cycles_t holds a cycle count.
type Cycles_t int64

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	n := (*int64)(unsafe.Pointer(c))
	atomic.AddInt64(n, 1)
}

/// Add adds elapsed cycles to the counter.
func (c *Cycles_t) Add(m uint64) {
	n := (*int64)(unsafe.Pointer(c))
	atomic.AddInt64(n, int64(Rdtsc()-m))
}

/// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
		if strings.HasSuffix(t, "Cycles_t") {
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}

	}
	return s + "\n"
}
