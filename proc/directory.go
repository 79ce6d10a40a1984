package proc

import (
	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/hashtable"
)

// Directory is the pid/tid lookup table every running PCB and TCB is
// registered in, the Go-native analogue of the host's hash-table-keyed
// process table.
type Directory struct {
	pids *hashtable.Hashtable_t
	tids *hashtable.Hashtable_t
}

// NewDirectory allocates an empty directory sized for up to size
// concurrently-live pids and tids each.
func NewDirectory(size int) *Directory {
	return &Directory{
		pids: hashtable.MkHash(size),
		tids: hashtable.MkHash(size),
	}
}

func (d *Directory) addPCB(p *PCB) {
	d.pids.Set(int32(p.Pid), p)
}

// LookupPCB returns the running process identified by pid, if any.
func (d *Directory) LookupPCB(pid defs.Pid_t) (*PCB, bool) {
	v, ok := d.pids.Get(int32(pid))
	if !ok {
		return nil, false
	}
	return v.(*PCB), true
}

func (d *Directory) delPCB(pid defs.Pid_t) {
	if _, ok := d.pids.Get(int32(pid)); ok {
		d.pids.Del(int32(pid))
	}
}

func (d *Directory) addTCB(t *TCB) {
	d.tids.Set(int32(t.Tid), t)
}

// LookupTCB returns the running thread identified by tid, if any.
func (d *Directory) LookupTCB(tid defs.Tid_t) (*TCB, bool) {
	v, ok := d.tids.Get(int32(tid))
	if !ok {
		return nil, false
	}
	return v.(*TCB), true
}

func (d *Directory) delTCB(tid defs.Tid_t) {
	if _, ok := d.tids.Get(int32(tid)); ok {
		d.tids.Del(int32(tid))
	}
}
