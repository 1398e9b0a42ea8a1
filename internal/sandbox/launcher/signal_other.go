//go:build linux && !(amd64 || arm64)

package launcher

import "golang.org/x/sys/unix"

func resetSignal(sig unix.Signal) error {
	return unix.ENOSYS
}
