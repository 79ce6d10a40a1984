// Package notif implements the 256-bit notification bitmap: the
// core's synchronous wake primitive. A setter flips a bit; a waiter
// blocks on a mask over the whole bitmap until any masked bit
// appears set.
package notif

import (
	"sync"

	"github.com/sustcore-team/sustcore-sub000/cap"
	"github.com/sustcore-team/sustcore-sub000/defs"
	"github.com/sustcore-team/sustcore-sub000/util"
)

/// NumBits is the width of a Notification's bitmap.
const NumBits = 256

/// BitWidth is how many permission-flag bits a capability's extended
/// bitmap dedicates to each notification index.
const BitWidth = 4

const (
	PermSet   uint64 = 1 << 0
	PermReset uint64 = 1 << 1
	PermCheck uint64 = 1 << 2
)

func offset(bit int) int {
	return bit * BitWidth
}

/// Notification is the kernel object a Notification-kind Capability
/// points at: a 256-bit bitmap plus the condition variable threads
/// wait on.
type Notification struct {
	mu   sync.Mutex
	cond *sync.Cond
	bits [NumBits / 64]uint64
}

/// Kind identifies this as a cap.Payload of kind PayloadNotification.
func (n *Notification) Kind() cap.PayloadKind { return cap.PayloadNotification }

/// New allocates an empty (all-bits-clear) notification object.
func New() *Notification {
	n := &Notification{}
	n.cond = sync.NewCond(&n.mu)
	return n
}

func checkBit(bit int) defs.Err_t {
	if bit < 0 || bit >= NumBits {
		return defs.EINVAL
	}
	return 0
}

/// Set atomically marks bit, gated by perms' PermSet flag for that
/// bit's window, and wakes any waiter whose mask includes it.
func (n *Notification) Set(perms cap.PermissionBits, bit int) defs.Err_t {
	if err := checkBit(bit); err != 0 {
		return err
	}
	if !perms.ImpliesWindow(PermSet, offset(bit), BitWidth) {
		return defs.EPERM
	}
	n.mu.Lock()
	util.SetBit(n.bits[:], bit)
	n.cond.Broadcast()
	n.mu.Unlock()
	return 0
}

/// Reset clears bit, gated by PermReset. Resetting is racy by design:
/// callers are expected to reset only after observing a bit set via
/// Check, with no guarantee another setter hasn't already re-set it.
func (n *Notification) Reset(perms cap.PermissionBits, bit int) defs.Err_t {
	if err := checkBit(bit); err != 0 {
		return err
	}
	if !perms.ImpliesWindow(PermReset, offset(bit), BitWidth) {
		return defs.EPERM
	}
	n.mu.Lock()
	util.ClearBit(n.bits[:], bit)
	n.mu.Unlock()
	return 0
}

/// Check reports bit's current value, gated by PermCheck.
func (n *Notification) Check(perms cap.PermissionBits, bit int) (bool, defs.Err_t) {
	if err := checkBit(bit); err != 0 {
		return false, err
	}
	if !perms.ImpliesWindow(PermCheck, offset(bit), BitWidth) {
		return false, defs.EPERM
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return util.TestBit(n.bits[:], bit), 0
}

func (n *Notification) anySetLocked(mask []int) (int, bool) {
	for _, b := range mask {
		if util.TestBit(n.bits[:], b) {
			return b, true
		}
	}
	return 0, false
}

/// Wait blocks the caller until any bit named in mask is set,
/// returning the bit that woke it. Every bit in mask must be gated by
/// PermCheck in perms, or Wait fails immediately with EPERM.
func (n *Notification) Wait(perms cap.PermissionBits, mask []int) (int, defs.Err_t) {
	for _, b := range mask {
		if err := checkBit(b); err != 0 {
			return 0, err
		}
		if !perms.ImpliesWindow(PermCheck, offset(b), BitWidth) {
			return 0, defs.EPERM
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for {
		if bit, ok := n.anySetLocked(mask); ok {
			return bit, 0
		}
		n.cond.Wait()
	}
}
