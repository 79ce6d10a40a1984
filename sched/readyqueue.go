package sched

import "github.com/sustcore-team/sustcore-sub000/defs"

// ReadyQueue_t is a fixed-capacity FIFO of runnable thread ids, tracked
// with ever-increasing head/tail indices modulo the backing slice length,
// the same wraparound arithmetic the host this package is adapted from
// used for its byte circular buffer. RP0 (FCFS) and RP1/RP2 (round robin)
// all share this structure; only how a thread gets re-enqueued differs.
type ReadyQueue_t struct {
	buf   []defs.Tid_t
	head  int
	tail  int
}

/// NewReadyQueue allocates a ready queue with room for cap runnable
/// threads. cap must be positive.
func NewReadyQueue(cap int) *ReadyQueue_t {
	if cap <= 0 {
		panic("bad ready queue capacity")
	}
	return &ReadyQueue_t{buf: make([]defs.Tid_t, cap)}
}

/// Cap returns the queue's maximum occupancy.
func (q *ReadyQueue_t) Cap() int {
	return len(q.buf)
}

/// Len returns the number of queued thread ids.
func (q *ReadyQueue_t) Len() int {
	return q.head - q.tail
}

/// Full reports whether the queue has no room left.
func (q *ReadyQueue_t) Full() bool {
	return q.Len() == len(q.buf)
}

/// Empty reports whether the queue holds no thread ids.
func (q *ReadyQueue_t) Empty() bool {
	return q.head == q.tail
}

/// PushBack enqueues tid at the tail. It returns false if the queue is
/// full.
func (q *ReadyQueue_t) PushBack(tid defs.Tid_t) bool {
	if q.Full() {
		return false
	}
	idx := q.head % len(q.buf)
	q.buf[idx] = tid
	q.head++
	return true
}

/// PopFront dequeues and returns the thread id at the head of the
/// queue. ok is false if the queue is empty.
func (q *ReadyQueue_t) PopFront() (tid defs.Tid_t, ok bool) {
	if q.Empty() {
		return defs.NoTid, false
	}
	idx := q.tail % len(q.buf)
	tid = q.buf[idx]
	q.tail++
	return tid, true
}

/// Requeue appends tid, already popped from the head, at the tail: the
/// round-robin re-enqueue RP1/RP2 perform when a thread's quantum
/// expires without it blocking or exiting.
func (q *ReadyQueue_t) Requeue(tid defs.Tid_t) bool {
	return q.PushBack(tid)
}

/// Remove deletes the first occurrence of tid wherever it sits in the
/// queue, compacting the remaining entries. It reports whether tid was
/// found. Used when a thread blocks or is destroyed while still ready.
func (q *ReadyQueue_t) Remove(tid defs.Tid_t) bool {
	n := q.Len()
	found := false
	kept := make([]defs.Tid_t, 0, n)
	for i := 0; i < n; i++ {
		cur := q.buf[(q.tail+i)%len(q.buf)]
		if !found && cur == tid {
			found = true
			continue
		}
		kept = append(kept, cur)
	}
	if !found {
		return false
	}
	q.head = 0
	q.tail = 0
	for _, t := range kept {
		q.buf[q.head%len(q.buf)] = t
		q.head++
	}
	return true
}
