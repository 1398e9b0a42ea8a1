//go:build linux

package watchdog

import "golang.org/x/sys/unix"

// SignalKiller sends SIGKILL with kill(2).
type SignalKiller struct{}

func (SignalKiller) KillGroup(pgid int) error {
	return unix.Kill(-pgid, unix.SIGKILL)
}

func (SignalKiller) Kill(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}
