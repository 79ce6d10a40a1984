package tinfo

import "sync"

import "github.com/sustcore-team/sustcore-sub000/defs"

/// Tnote_t stores per-thread state consulted by the scheduler and by
/// anything that needs to interrupt or kill a blocked thread. Unlike
/// the original goroutine-local lookup, the owning proc.TCB holds its
/// Tnote_t directly as a field rather than through a per-goroutine
/// pointer.
type Tnote_t struct {
	// XXX "alive" should be "terminated"
	State    interface{}
	Alive    bool
	Killed   bool
	Isdoomed bool // XXX maybe don't need doomed, but can use killed?
	// protects killed, Killnaps.Cond and Kerr, and is a leaf lock
	sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

/// Doomed reports whether the thread is marked as doomed.
func (t *Tnote_t) Doomed() bool {
	return t.Isdoomed
}

/// NewTnote allocates a Tnote_t ready for use, with its Killnaps
/// channel and condvar wired up.
func NewTnote() *Tnote_t {
	t := &Tnote_t{Alive: true}
	t.Killnaps.Killch = make(chan bool, 1)
	t.Killnaps.Cond = sync.NewCond(&t.Mutex)
	return t
}

/// Threadinfo_t tracks all thread notes in the system, keyed by Tid_t.
type Threadinfo_t struct {
	Notes map[defs.Tid_t]*Tnote_t
	sync.Mutex
}

/// Init initializes the thread info map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}

/// Add registers note under tid.
func (t *Threadinfo_t) Add(tid defs.Tid_t, note *Tnote_t) {
	t.Lock()
	defer t.Unlock()
	t.Notes[tid] = note
}

/// Get returns the note registered for tid, or nil.
func (t *Threadinfo_t) Get(tid defs.Tid_t) *Tnote_t {
	t.Lock()
	defer t.Unlock()
	return t.Notes[tid]
}

/// Del forgets tid's note.
func (t *Threadinfo_t) Del(tid defs.Tid_t) {
	t.Lock()
	defer t.Unlock()
	delete(t.Notes, tid)
}
