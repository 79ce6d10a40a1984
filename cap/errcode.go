package cap

import "github.com/sustcore-team/sustcore-sub000/defs"

/// ErrCode is the capability system's own error taxonomy, narrower and
/// more specific than the kernel-wide defs.Err_t.
type ErrCode int32

const (
	Success ErrCode = iota
	InvalidCapability
	InvalidIndex
	InsufficientPermissions
	TypeNotMatched
	PayloadError
	CreationFailed
	SlotBusy
	UnknownError
)

func (e ErrCode) String() string {
	switch e {
	case Success:
		return "Success"
	case InvalidCapability:
		return "InvalidCapability"
	case InvalidIndex:
		return "InvalidIndex"
	case InsufficientPermissions:
		return "InsufficientPermissions"
	case TypeNotMatched:
		return "TypeNotMatched"
	case PayloadError:
		return "PayloadError"
	case CreationFailed:
		return "CreationFailed"
	case SlotBusy:
		return "SlotBusy"
	default:
		return "UnknownError"
	}
}

/// ToErrt bridges a capability ErrCode into the kernel-wide Err_t used
/// at the syscall boundary.
func (e ErrCode) ToErrt() defs.Err_t {
	switch e {
	case Success:
		return defs.OK
	case InvalidCapability, InvalidIndex:
		return defs.EINVAL
	case InsufficientPermissions:
		return defs.EPERM
	case TypeNotMatched, PayloadError, CreationFailed:
		return defs.EINVAL
	case SlotBusy:
		return defs.EBUSY
	default:
		return defs.EINVAL
	}
}
