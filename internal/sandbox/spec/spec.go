// Package spec defines the execution configuration for one sandboxed run.
package spec

import (
	"ojbox/pkg/errors"
)

// Unlimited disables a numeric limit.
const Unlimited = -1

const (
	// MaxArgs bounds the argument vector, the executable path excluded.
	MaxArgs = 255
	// MaxEnv bounds the environment vector.
	MaxEnv = 255
)

// Nobody is the uid and gid of the unprivileged account runs default to.
const Nobody = 65534

// ExecutionConfig is the immutable input of one run.
// Times are in milliseconds, sizes in bytes.
type ExecutionConfig struct {
	MaxCPUTime       int64    `json:"max_cpu_time" yaml:"maxCpuTime" toml:"max_cpu_time"`
	MaxRealTime      int64    `json:"max_real_time" yaml:"maxRealTime" toml:"max_real_time"`
	MaxMemory        int64    `json:"max_memory" yaml:"maxMemory" toml:"max_memory"`
	MaxOutputSize    int64    `json:"max_output_size" yaml:"maxOutputSize" toml:"max_output_size"`
	MaxProcessNumber int64    `json:"max_process_number" yaml:"maxProcessNumber" toml:"max_process_number"`
	ExecutablePath   string   `json:"exe_path" yaml:"exePath" toml:"exe_path"`
	InputPath        string   `json:"input_path" yaml:"inputPath" toml:"input_path"`
	OutputPath       string   `json:"output_path" yaml:"outputPath" toml:"output_path"`
	ErrorPath        string   `json:"error_path" yaml:"errorPath" toml:"error_path"`
	Args             []string `json:"args" yaml:"args" toml:"args"`
	Env              []string `json:"env" yaml:"env" toml:"env"`
	LogPath          string   `json:"log_path" yaml:"logPath" toml:"log_path"`
	SeccompProfile   string   `json:"seccomp_rule_name" yaml:"seccompProfile" toml:"seccomp_profile"`
	UID              int      `json:"uid" yaml:"uid" toml:"uid"`
	GID              int      `json:"gid" yaml:"gid" toml:"gid"`
}

// IsUnlimited reports whether a limit value disables its dimension.
func IsUnlimited(v int64) bool {
	return v == Unlimited
}

// Exceeds reports whether used is over a limit. Unlimited never trips.
func Exceeds(used, limit int64) bool {
	return !IsUnlimited(limit) && used > limit
}

// Validate checks the config before any process is created.
// All failures carry errors.InvalidConfig.
func (c ExecutionConfig) Validate() error {
	limits := []struct {
		name  string
		value int64
	}{
		{"max_cpu_time", c.MaxCPUTime},
		{"max_real_time", c.MaxRealTime},
		{"max_memory", c.MaxMemory},
		{"max_process_number", c.MaxProcessNumber},
		{"max_output_size", c.MaxOutputSize},
	}
	for _, l := range limits {
		if l.value < 1 && !IsUnlimited(l.value) {
			return invalid(l.name, "must be positive or unlimited")
		}
	}
	if c.ExecutablePath == "" {
		return invalid("exe_path", "required")
	}
	if len(c.Args) > MaxArgs {
		return invalid("args", "too many arguments")
	}
	if len(c.Env) > MaxEnv {
		return invalid("env", "too many environment entries")
	}
	if c.UID < 0 || c.GID < 0 {
		return invalid("uid/gid", "must not be negative")
	}
	if c.UID == 0 || c.GID == 0 {
		return invalid("uid/gid", "must name an unprivileged account")
	}
	return nil
}

// Argv returns the argument vector passed to execve.
func (c ExecutionConfig) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.ExecutablePath)
	return append(argv, c.Args...)
}

func invalid(field, reason string) error {
	return errors.Newf(errors.InvalidConfig, "invalid config: %s %s", field, reason).
		WithDetail("field", field).
		WithDetail("reason", reason)
}
