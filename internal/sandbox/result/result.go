// Package result defines sandbox execution results and verdict mapping.
package result

import (
	"fmt"
	"strings"

	"ojbox/pkg/errors"
)

// Verdict represents the final outcome of execution.
type Verdict int

const (
	Success Verdict = iota
	CPUTimeLimitExceeded
	RealTimeLimitExceeded
	MemoryLimitExceeded
	RuntimeError
	SystemError
)

var verdictNames = map[Verdict]string{
	Success:               "SUCCESS",
	CPUTimeLimitExceeded:  "CPU_TIME_LIMIT_EXCEEDED",
	RealTimeLimitExceeded: "REAL_TIME_LIMIT_EXCEEDED",
	MemoryLimitExceeded:   "MEMORY_LIMIT_EXCEEDED",
	RuntimeError:          "RUNTIME_ERROR",
	SystemError:           "SYSTEM_ERROR",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("VERDICT(%d)", int(v))
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	if _, ok := verdictNames[v]; !ok {
		return nil, fmt.Errorf("unknown verdict %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText decodes a verdict name.
func (v *Verdict) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for k, n := range verdictNames {
		if n == name {
			*v = k
			return nil
		}
	}
	return fmt.Errorf("unknown verdict %q", string(text))
}

// SetupError is the sandbox's own failure code for a run.
type SetupError int

const (
	SetupSuccess      SetupError = 0
	InvalidConfig     SetupError = -1
	ForkFailed        SetupError = -2
	PthreadFailed     SetupError = -3
	WaitFailed        SetupError = -4
	RootRequired      SetupError = -5
	LoadSeccompFailed SetupError = -6
	SetrlimitFailed   SetupError = -7
	Dup2Failed        SetupError = -8
	SetuidFailed      SetupError = -9
	ExecveFailed      SetupError = -10
)

var setupErrorNames = map[SetupError]string{
	SetupSuccess:      "SUCCESS",
	InvalidConfig:     "INVALID_CONFIG",
	ForkFailed:        "FORK_FAILED",
	PthreadFailed:     "PTHREAD_FAILED",
	WaitFailed:        "WAIT_FAILED",
	RootRequired:      "ROOT_REQUIRED",
	LoadSeccompFailed: "LOAD_SECCOMP_FAILED",
	SetrlimitFailed:   "SETRLIMIT_FAILED",
	Dup2Failed:        "DUP2_FAILED",
	SetuidFailed:      "SETUID_FAILED",
	ExecveFailed:      "EXECVE_FAILED",
}

var setupErrorCodes = map[SetupError]errors.ErrorCode{
	SetupSuccess:      errors.Success,
	InvalidConfig:     errors.InvalidConfig,
	ForkFailed:        errors.ForkFailed,
	PthreadFailed:     errors.PthreadFailed,
	WaitFailed:        errors.WaitFailed,
	RootRequired:      errors.RootRequired,
	LoadSeccompFailed: errors.LoadSeccompFailed,
	SetrlimitFailed:   errors.SetrlimitFailed,
	Dup2Failed:        errors.Dup2Failed,
	SetuidFailed:      errors.SetuidFailed,
	ExecveFailed:      errors.ExecveFailed,
}

func (s SetupError) String() string {
	if name, ok := setupErrorNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SETUP_ERROR(%d)", int(s))
}

// MarshalText encodes the setup error by name.
func (s SetupError) MarshalText() ([]byte, error) {
	if _, ok := setupErrorNames[s]; !ok {
		return nil, fmt.Errorf("unknown setup error %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a setup error name.
func (s *SetupError) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for k, n := range setupErrorNames {
		if n == name {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown setup error %q", string(text))
}

// Code maps the setup error onto the error code space used by pkg/errors.
func (s SetupError) Code() errors.ErrorCode {
	if code, ok := setupErrorCodes[s]; ok {
		return code
	}
	return errors.JudgeSystemError
}

// Err wraps the setup error as an *errors.Error, nil for SetupSuccess.
func (s SetupError) Err(cause error) error {
	if s == SetupSuccess {
		return nil
	}
	if cause == nil {
		return errors.New(s.Code())
	}
	return errors.Wrap(cause, s.Code())
}

// ExecutionResult is the output of one run. The zero value is the initial state.
type ExecutionResult struct {
	Verdict    Verdict    `json:"result" yaml:"result"`
	SetupError SetupError `json:"error" yaml:"error"`
	CPUTimeMs  int64      `json:"cpu_time" yaml:"cpuTime"`
	RealTimeMs int64      `json:"real_time" yaml:"realTime"`
	// MemoryBytes is the peak observed memory.
	MemoryBytes int64 `json:"memory" yaml:"memory"`
	ExitCode    int   `json:"exit_code" yaml:"exitCode"`
	Signal      int   `json:"signal" yaml:"signal"`
}

// Failed reports whether the sandbox itself failed to run the program.
func (r ExecutionResult) Failed() bool {
	return r.SetupError != SetupSuccess
}

// Fail records a setup error and forces SYSTEM_ERROR.
func (r *ExecutionResult) Fail(code SetupError) {
	r.SetupError = code
	r.Verdict = SystemError
}
