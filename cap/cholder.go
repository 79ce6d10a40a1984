package cap

import (
	"sync"
	"sync/atomic"
)

var nextHolderID int64

/// CHolder is the root of one process's capability state: a MAJOR
/// universe, a MINOR universe, a RecvSpace per space-index for
/// asymmetric IPC, a unique id used by RecvSpace origin checks, and a
/// root CSpaceAccessor capability granting self-management over its
/// own MAJOR space 0.
type CHolder struct {
	ID    int64
	Major *CUniverse
	Minor *CUniverse

	mu   sync.Mutex
	recv [CUNIVERSE_SIZE]*RecvSpace

	/// CsaIdx is the cached index of the root CSA capability, always
	/// {Space: SpaceMajor, Group: 0, Slot: 0}.
	CsaIdx CapIdx
}

/// NewCHolder allocates a fresh CHolder with its root CSA capability
/// already installed at CsaIdx.
func NewCHolder() *CHolder {
	h := &CHolder{ID: atomic.AddInt64(&nextHolderID, 1)}
	h.Major = NewCUniverse(h)
	h.Minor = NewCUniverse(h)
	h.CsaIdx = CapIdx{Space: SpaceMajor, Group: 0, Slot: 0}

	root := h.Major.SpaceAt(0)
	payload := CSpaceAccessorPayload{Space: root}
	if rc := root.CreateRoot(h.CsaIdx, payload, AllPerm(PayloadCSpaceAccessor)); rc != Success {
		panic("cap: failed to install root CSA capability: " + rc.String())
	}
	return h
}

/// RecvSpaceAt returns the RecvSpace at index i, creating it on first
/// access.
func (h *CHolder) RecvSpaceAt(i int) *RecvSpace {
	if i < 0 || i >= CUNIVERSE_SIZE {
		panic("cap: recv space index out of range")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.recv[i] == nil {
		h.recv[i] = NewRecvSpace(h)
	}
	return h.recv[i]
}

/// Csa returns the holder's root CSA capability.
func (h *CHolder) Csa() *Capability {
	return h.Major.SpaceAt(0).Get(h.CsaIdx)
}

/// Access resolves idx against h's state: MAJOR/MINOR dispatch to the
/// respective universe's space 0, RECV dispatches to the RecvSpace
/// named by recvCtx (the current thread's recv context; ignored for
/// non-RECV indices), and any other space flavor yields InvalidIndex.
func (h *CHolder) Access(idx CapIdx, recvCtx int) (*Capability, ErrCode) {
	switch idx.Space {
	case SpaceMajor:
		c := h.Major.SpaceAt(0).Get(idx)
		if c == nil {
			return nil, InvalidIndex
		}
		return c, Success
	case SpaceMinor:
		c := h.Minor.SpaceAt(0).Get(idx)
		if c == nil {
			return nil, InvalidIndex
		}
		return c, Success
	case SpaceRecv:
		c := h.RecvSpaceAt(recvCtx).Get(idx)
		if c == nil {
			return nil, InvalidIndex
		}
		return c, Success
	default:
		return nil, InvalidIndex
	}
}
