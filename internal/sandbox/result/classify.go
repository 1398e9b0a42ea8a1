package result

import (
	"syscall"

	"ojbox/internal/sandbox/spec"
)

// SignalClass groups terminating signals by what they mean for the verdict.
type SignalClass int

const (
	OtherSignal SignalClass = iota
	// MemoryFault is raised by bad memory accesses, often after an allocation failed.
	MemoryFault
	// SandboxFault is the launcher reporting its own setup failure.
	SandboxFault
)

var signalClasses = map[syscall.Signal]SignalClass{
	syscall.SIGSEGV: MemoryFault,
	syscall.SIGUSR1: SandboxFault,
}

// ClassifySignal returns the class of a terminating signal.
func ClassifySignal(sig syscall.Signal) SignalClass {
	if class, ok := signalClasses[sig]; ok {
		return class
	}
	return OtherSignal
}

// Measurement is the raw termination status and usage of a reaped child.
type Measurement struct {
	Exited      bool
	ExitCode    int
	Signaled    bool
	Signal      syscall.Signal
	CPUTimeMs   int64
	RealTimeMs  int64
	MemoryBytes int64
}

// Classify derives the verdict. Later rules override earlier ones, so a
// program over both time caps reports CPU_TIME_LIMIT_EXCEEDED.
func Classify(m Measurement, cfg spec.ExecutionConfig) Verdict {
	verdict := Success
	memoryOver := spec.Exceeds(m.MemoryBytes, cfg.MaxMemory)

	if m.Exited && m.ExitCode != 0 {
		verdict = RuntimeError
	}
	if m.Signaled {
		switch ClassifySignal(m.Signal) {
		case MemoryFault:
			if memoryOver {
				verdict = MemoryLimitExceeded
			} else {
				verdict = RuntimeError
			}
		case SandboxFault:
			verdict = SystemError
		default:
			verdict = RuntimeError
		}
	}
	if memoryOver && verdict != SystemError {
		verdict = MemoryLimitExceeded
	}
	if spec.Exceeds(m.RealTimeMs, cfg.MaxRealTime) {
		verdict = RealTimeLimitExceeded
	}
	if spec.Exceeds(m.CPUTimeMs, cfg.MaxCPUTime) {
		verdict = CPUTimeLimitExceeded
	}
	return verdict
}

// Apply copies the measurement into r and sets the verdict.
func (r *ExecutionResult) Apply(m Measurement, cfg spec.ExecutionConfig) {
	r.CPUTimeMs = m.CPUTimeMs
	r.RealTimeMs = m.RealTimeMs
	r.MemoryBytes = m.MemoryBytes
	if m.Exited {
		r.ExitCode = m.ExitCode
	}
	if m.Signaled {
		r.Signal = int(m.Signal)
	}
	r.Verdict = Classify(m, cfg)
}
