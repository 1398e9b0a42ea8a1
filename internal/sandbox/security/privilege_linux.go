//go:build linux

package security

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DropPrivileges switches the calling process to uid and gid with gid as the
// only supplementary group. The parent-death signal is re-armed afterwards
// since the kernel clears it on a credential change.
func DropPrivileges(uid, gid int) error {
	if err := unix.Setgroups([]int{gid}); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := unix.Setgid(gid); err != nil {
		return fmt.Errorf("setgid %d: %w", gid, err)
	}
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("setuid %d: %w", uid, err)
	}
	if err := unix.Prctl(unix.PR_SET_PDEATHSIG, uintptr(unix.SIGKILL), 0, 0, 0); err != nil {
		return fmt.Errorf("set pdeathsig: %w", err)
	}
	return nil
}
