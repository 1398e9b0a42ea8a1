// Package limits maps an execution config onto kernel resource limits.
package limits

import (
	"fmt"

	"ojbox/internal/sandbox/spec"
)

// Resource names one rlimit dimension.
type Resource int

const (
	CPU Resource = iota
	FileSize
	Processes
	AddressSpace
)

func (r Resource) String() string {
	switch r {
	case CPU:
		return "cpu"
	case FileSize:
		return "fsize"
	case Processes:
		return "nproc"
	case AddressSpace:
		return "as"
	default:
		return fmt.Sprintf("resource(%d)", int(r))
	}
}

// Limit is one rlimit with soft and hard set to Value.
type Limit struct {
	Resource Resource
	Value    uint64
}

// Plan returns the rlimits for cfg in install order.
// Unlimited dimensions are skipped. The address space limit is always last
// because the launcher cannot allocate once it is in place.
func Plan(cfg spec.ExecutionConfig) []Limit {
	var plan []Limit
	if !spec.IsUnlimited(cfg.MaxCPUTime) {
		// one second of slack so the verdict comes from measured usage
		seconds := (cfg.MaxCPUTime + 1000) / 1000
		plan = append(plan, Limit{Resource: CPU, Value: uint64(seconds)})
	}
	if !spec.IsUnlimited(cfg.MaxOutputSize) {
		plan = append(plan, Limit{Resource: FileSize, Value: uint64(cfg.MaxOutputSize)})
	}
	if !spec.IsUnlimited(cfg.MaxProcessNumber) {
		plan = append(plan, Limit{Resource: Processes, Value: uint64(cfg.MaxProcessNumber)})
	}
	if !spec.IsUnlimited(cfg.MaxMemory) {
		plan = append(plan, Limit{Resource: AddressSpace, Value: uint64(cfg.MaxMemory) * 2})
	}
	return plan
}
