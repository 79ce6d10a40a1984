package defs

import "fmt"

/// Err_t is a kernel-wide error code. Zero is success; negative values
/// are -errno-style codes, mirroring how syscalls report failure.
type Err_t int32

const (
	OK          Err_t = 0
	EINVAL      Err_t = -1
	EPERM       Err_t = -2
	ENOENT      Err_t = -3
	EEXIST      Err_t = -4
	ENOMEM      Err_t = -5
	EAGAIN      Err_t = -6
	EFAULT      Err_t = -7
	ENOSPC      Err_t = -8
	EBUSY       Err_t = -9
	ESRCH       Err_t = -10
	ECHILD      Err_t = -11
)

func (e Err_t) Error() string {
	if e == OK {
		return "success"
	}
	return fmt.Sprintf("errno %d", int32(e))
}

/// Rc reports an Err_t the way a syscall return value is checked: rc < 0
/// is failure.
func (e Err_t) Rc() int {
	return int(e)
}
