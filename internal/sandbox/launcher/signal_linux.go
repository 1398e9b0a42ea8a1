//go:build linux && (amd64 || arm64)

package launcher

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// kernel struct sigaction as taken by rt_sigaction on amd64 and arm64
type kernelSigaction struct {
	handler  uintptr
	flags    uint64
	restorer uintptr
	mask     uint64
}

// resetSignal sets sig back to SIG_DFL behind the runtime's back.
func resetSignal(sig unix.Signal) error {
	var act kernelSigaction
	_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION,
		uintptr(sig), uintptr(unsafe.Pointer(&act)), 0, unsafe.Sizeof(act.mask), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
