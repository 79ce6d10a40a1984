package cap

import "sync"

/// CUniverse holds up to CUNIVERSE_SIZE CSpaces, created lazily on
/// first use. A CHolder owns two: MAJOR and MINOR. CapIdx-based lookup
/// always targets index 0 of the selected universe, matching the
/// single-CSpace-per-role addressing the capability system actually
/// exercises; the remaining capacity is available for kernel-internal
/// bookkeeping that addresses a CSpace directly rather than via CapIdx.
type CUniverse struct {
	mu     sync.Mutex
	spaces [CUNIVERSE_SIZE]*CSpace
	holder *CHolder
}

/// NewCUniverse constructs an empty CUniverse for holder.
func NewCUniverse(holder *CHolder) *CUniverse {
	return &CUniverse{holder: holder}
}

/// SpaceAt returns the CSpace at index i, creating it on first access.
func (u *CUniverse) SpaceAt(i int) *CSpace {
	if i < 0 || i >= CUNIVERSE_SIZE {
		panic("cap: CUniverse index out of range")
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.spaces[i] == nil {
		u.spaces[i] = NewCSpace(u.holder)
	}
	return u.spaces[i]
}
