//go:build linux

package limits

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var rlimitResources = map[Resource]int{
	CPU:          unix.RLIMIT_CPU,
	FileSize:     unix.RLIMIT_FSIZE,
	Processes:    unix.RLIMIT_NPROC,
	AddressSpace: unix.RLIMIT_AS,
}

// Apply installs the planned limits on the calling process, in order.
// It stops at the first failure.
func Apply(plan []Limit) error {
	for _, l := range plan {
		res, ok := rlimitResources[l.Resource]
		if !ok {
			return fmt.Errorf("set rlimit %s: unsupported resource", l.Resource)
		}
		if err := unix.Setrlimit(res, &unix.Rlimit{Cur: l.Value, Max: l.Value}); err != nil {
			return fmt.Errorf("set rlimit %s: %w", l.Resource, err)
		}
	}
	return nil
}
