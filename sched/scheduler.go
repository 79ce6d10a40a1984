// Package sched implements the four ready-queue priority levels a
// thread can run under: RP0 runs First-Come-First-Served to
// completion or block, RP1 and RP2 are round robin with distinct time
// quanta, and RP3 is shortest-job-first ordered by a thread's
// cumulative run time. A strict level priority governs which queue is
// consulted first, the way the host this package is adapted from
// picked a single active scheduler and consulted its ready queue
// front-to-back every tick.
package sched

import (
	"sync"

	"github.com/sustcore-team/sustcore-sub000/defs"
)

/// ThreadState mirrors the states a scheduled thread moves through.
type ThreadState int

const (
	StateEmpty ThreadState = iota
	StateReady
	StateRunning
	StateYield
	StateWaiting
)

func (s ThreadState) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateYield:
		return "YIELD"
	case StateWaiting:
		return "WAITING"
	default:
		return "UNKNOWN"
	}
}

/// Level identifies one of the four ready-queue priority levels.
type Level int

const (
	RP0 Level = iota /// first-come-first-served
	RP1               /// round robin, long quantum
	RP2               /// round robin, short quantum
	RP3               /// shortest-job-first
	numLevels
)

func (l Level) String() string {
	switch l {
	case RP0:
		return "RP0"
	case RP1:
		return "RP1"
	case RP2:
		return "RP2"
	case RP3:
		return "RP3"
	default:
		return "RP?"
	}
}

/// RuntimeFunc reports a thread's cumulative run time, used by RP3 to
/// rank its pool shortest-job-first. Callers wire this to
/// accnt.Accnt_t.RunTime.
type RuntimeFunc func(defs.Tid_t) int64

const defaultRP1Quantum = 5
const defaultRP2Quantum = 2

/// Scheduler holds the four ready queues and the per-thread state
/// needed to run them.
type Scheduler struct {
	mu sync.Mutex

	rp0 *ReadyQueue_t
	rp1 *ReadyQueue_t
	rp2 *ReadyQueue_t
	rp3 []defs.Tid_t /// unordered pool, ranked by RuntimeFunc at schedule time

	rp1Quantum int
	rp2Quantum int
	quantum    map[defs.Tid_t]int /// ticks remaining in the current RP1/RP2 slice

	state map[defs.Tid_t]ThreadState
	level map[defs.Tid_t]Level

	runtime RuntimeFunc

	current      defs.Tid_t
	currentLevel Level
	running      bool
}

/// NewScheduler allocates a scheduler whose RP0/RP1/RP2 queues can
/// each hold up to cap threads, ranking RP3 by the given RuntimeFunc.
func NewScheduler(cap int, runtime RuntimeFunc) *Scheduler {
	if runtime == nil {
		panic("sched: nil RuntimeFunc")
	}
	return &Scheduler{
		rp0:        NewReadyQueue(cap),
		rp1:        NewReadyQueue(cap),
		rp2:        NewReadyQueue(cap),
		rp1Quantum: defaultRP1Quantum,
		rp2Quantum: defaultRP2Quantum,
		quantum:    make(map[defs.Tid_t]int),
		state:      make(map[defs.Tid_t]ThreadState),
		level:      make(map[defs.Tid_t]Level),
		runtime:    runtime,
	}
}

/// SetQuanta overrides the RP1/RP2 time-slice lengths, in scheduler
/// ticks. Both must be positive; the defaults give RP1 the longer
/// slice (5 ticks) and RP2 the shorter one (2 ticks).
func (s *Scheduler) SetQuanta(rp1, rp2 int) {
	if rp1 <= 0 || rp2 <= 0 {
		panic("sched: non-positive quantum")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rp1Quantum = rp1
	s.rp2Quantum = rp2
}

func (s *Scheduler) queueFor(l Level) *ReadyQueue_t {
	switch l {
	case RP0:
		return s.rp0
	case RP1:
		return s.rp1
	case RP2:
		return s.rp2
	default:
		return nil
	}
}

func (s *Scheduler) quantumFor(l Level) int {
	switch l {
	case RP1:
		return s.rp1Quantum
	case RP2:
		return s.rp2Quantum
	default:
		return 0
	}
}

/// Add makes tid runnable at the given level. A thread already known
/// to the scheduler is re-added at its prior level if l is the same,
/// or migrated if not.
func (s *Scheduler) Add(tid defs.Tid_t, l Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(tid, l)
}

func (s *Scheduler) add(tid defs.Tid_t, l Level) bool {
	s.state[tid] = StateReady
	s.level[tid] = l
	switch l {
	case RP0:
		return s.rp0.PushBack(tid)
	case RP1, RP2:
		s.quantum[tid] = s.quantumFor(l)
		return s.queueFor(l).PushBack(tid)
	case RP3:
		s.rp3 = append(s.rp3, tid)
		return true
	default:
		panic("sched: bad level")
	}
}

/// Current returns the thread id currently running, if any.
func (s *Scheduler) Current() (defs.Tid_t, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return defs.NoTid, false
	}
	return s.current, true
}

/// Schedule picks the next thread to run, consulting RP0 before RP1
/// before RP2 before RP3, and marks it running. A thread still running
/// keeps the CPU unless a strictly higher level has a queued thread, in
/// which case it is requeued at the tail of its own level. It returns
/// false if no thread is runnable.
func (s *Scheduler) Schedule() (defs.Tid_t, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running && s.state[s.current] == StateRunning {
		// current thread kept its slice (e.g. RP0 never preempts itself);
		// caller decides whether to call Tick first.
		preempt := false
		for l := RP0; l < s.currentLevel && l < RP3; l++ {
			if !s.queueFor(l).Empty() {
				preempt = true
			}
		}
		if !preempt {
			return s.current, true
		}
		s.add(s.current, s.currentLevel)
	}

	if tid, ok := s.popRunnable(s.rp0, RP0); ok {
		s.setCurrent(tid, RP0)
		return tid, true
	}
	if tid, ok := s.popRunnable(s.rp1, RP1); ok {
		s.setCurrent(tid, RP1)
		return tid, true
	}
	if tid, ok := s.popRunnable(s.rp2, RP2); ok {
		s.setCurrent(tid, RP2)
		return tid, true
	}
	if tid, ok := s.popSJF(); ok {
		s.setCurrent(tid, RP3)
		return tid, true
	}

	s.running = false
	return defs.NoTid, false
}

func (s *Scheduler) setCurrent(tid defs.Tid_t, l Level) {
	s.state[tid] = StateRunning
	s.level[tid] = l
	s.current = tid
	s.currentLevel = l
	s.running = true
}

func (s *Scheduler) popRunnable(q *ReadyQueue_t, l Level) (defs.Tid_t, bool) {
	for !q.Empty() {
		tid, _ := q.PopFront()
		switch s.state[tid] {
		case StateReady, StateRunning:
			return tid, true
		case StateYield:
			s.add(tid, l)
		default:
			// blocked or destroyed while queued: drop it
		}
	}
	return defs.NoTid, false
}

/// popSJF picks the RP3 pool member with the least cumulative run
/// time, breaking ties by pool order (oldest entry wins).
func (s *Scheduler) popSJF() (defs.Tid_t, bool) {
	best := -1
	var bestRT int64
	for i, tid := range s.rp3 {
		switch s.state[tid] {
		case StateReady, StateRunning, StateYield:
		default:
			continue
		}
		rt := s.runtime(tid)
		if best == -1 || rt < bestRT {
			best, bestRT = i, rt
		}
	}
	if best == -1 {
		s.rp3 = s.rp3[:0]
		return defs.NoTid, false
	}
	tid := s.rp3[best]
	s.rp3 = append(s.rp3[:best], s.rp3[best+1:]...)
	return tid, true
}

/// Tick advances the clock by one scheduler tick. For a running RP1 or
/// RP2 thread it decrements the remaining quantum and, once it hits
/// zero, ends the thread's slice and requeues it at the tail of its
/// level.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	if s.currentLevel != RP1 && s.currentLevel != RP2 {
		return
	}
	tid := s.current
	s.quantum[tid]--
	if s.quantum[tid] > 0 {
		return
	}
	if s.state[tid] == StateRunning {
		s.state[tid] = StateReady
		s.add(tid, s.currentLevel)
	}
	s.running = false
}

/// Yield marks tid, which must be the currently running thread, as
/// willing to give up the remainder of its slice. RP0 re-admits a
/// yielded thread at the tail of its queue; RP1/RP2/RP3 behave the
/// same way on their next Schedule call.
func (s *Scheduler) Yield(tid defs.Tid_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || tid != s.current {
		return
	}
	s.state[tid] = StateYield
	s.running = false
	if q := s.queueFor(s.currentLevel); q != nil {
		q.PushBack(tid)
	} else {
		s.rp3 = append(s.rp3, tid)
	}
}

/// Block removes tid from scheduling until Wake is called, e.g. while
/// it awaits a capability operation or notification.
func (s *Scheduler) Block(tid defs.Tid_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[tid] = StateWaiting
	if s.running && s.current == tid {
		s.running = false
	}
}

/// Wake makes a previously blocked thread runnable again at its last
/// level.
func (s *Scheduler) Wake(tid defs.Tid_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state[tid] != StateWaiting {
		return
	}
	l, ok := s.level[tid]
	if !ok {
		l = RP2
	}
	s.add(tid, l)
}

/// Exit removes tid from scheduling permanently.
func (s *Scheduler) Exit(tid defs.Tid_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[tid] = StateEmpty
	delete(s.quantum, tid)
	delete(s.level, tid)
	if s.running && s.current == tid {
		s.running = false
	}
}

/// State reports the last known state of tid.
func (s *Scheduler) State(tid defs.Tid_t) ThreadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[tid]
}
