// Package engine runs one program under the sandbox and classifies the outcome.
package engine

import (
	"context"
	"time"

	"ojbox/internal/sandbox/monitor"
	"ojbox/internal/sandbox/observer"
	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/spec"
)

// Engine executes an ExecutionConfig inside the sandbox.
//
// Run always returns a complete result. The error is non-nil exactly when
// the result carries a setup error; its code is result.SetupError.Code().
// ctx only carries log fields: cancelling it does not stop a started run,
// the real-time watchdog does.
type Engine interface {
	Run(ctx context.Context, cfg spec.ExecutionConfig) (result.ExecutionResult, error)
}

// DefaultHelperPath is resolved through PATH when no helper is configured.
const DefaultHelperPath = "sandbox-init"

// Config controls sandbox engine behavior.
type Config struct {
	// HelperPath names the sandbox-init binary.
	HelperPath string `yaml:"helperPath" toml:"helper_path"`
	// HelperEnv is the launcher's environment. The target gets cfg.Env.
	HelperEnv    []string      `yaml:"helperEnv" toml:"helper_env"`
	InitialDelay time.Duration `yaml:"initialDelay" toml:"initial_delay"`
	PollInterval time.Duration `yaml:"pollInterval" toml:"poll_interval"`
	ProcMount    string        `yaml:"procMount" toml:"proc_mount"`

	Recorder observer.Recorder `yaml:"-" toml:"-"`
}

func (c *Config) applyDefaults() {
	if c.HelperPath == "" {
		c.HelperPath = DefaultHelperPath
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = monitor.DefaultInitialDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = monitor.DefaultInterval
	}
	if c.Recorder == nil {
		c.Recorder = observer.Noop{}
	}
}

// Option customizes an engine beyond its Config.
type Option func(*options)

type options struct {
	privileged func() bool
	source     monitor.SnapshotSource
}

// WithPrivilegeCheck replaces the effective-uid check.
func WithPrivilegeCheck(fn func() bool) Option {
	return func(o *options) { o.privileged = fn }
}

// WithSnapshotSource replaces the procfs sampler.
func WithSnapshotSource(src monitor.SnapshotSource) Option {
	return func(o *options) { o.source = src }
}
