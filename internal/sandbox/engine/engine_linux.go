//go:build linux

package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"ojbox/internal/sandbox/launcher"
	"ojbox/internal/sandbox/monitor"
	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/security"
	"ojbox/internal/sandbox/spec"
	"ojbox/internal/sandbox/watchdog"
	"ojbox/pkg/errors"
	"ojbox/pkg/utils/contextkey"
	"ojbox/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

type linuxEngine struct {
	cfg        Config
	helper     string
	privileged func() bool
	source     monitor.SnapshotSource
	reaper     monitor.Reaper
	killer     watchdog.Killer
}

// NewEngine creates a Linux sandbox engine. The helper binary must exist.
func NewEngine(cfg Config, opts ...Option) (Engine, error) {
	cfg.applyDefaults()
	o := options{privileged: func() bool { return os.Geteuid() == 0 }}
	for _, opt := range opts {
		opt(&o)
	}

	helper, err := resolveHelper(cfg.HelperPath)
	if err != nil {
		return nil, err
	}
	if o.source == nil {
		src, err := monitor.NewProcFS(cfg.ProcMount)
		if err != nil {
			return nil, errors.Wrapf(err, errors.JudgeSystemError, "open proc filesystem")
		}
		o.source = src
	}
	return &linuxEngine{
		cfg:        cfg,
		helper:     helper,
		privileged: o.privileged,
		source:     o.source,
		reaper:     monitor.Wait4Reaper{},
		killer:     watchdog.SignalKiller{},
	}, nil
}

// resolveHelper returns the absolute, symlink-free helper path; the monitor
// compares it with /proc/<pid>/exe.
func resolveHelper(path string) (string, error) {
	found, err := exec.LookPath(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.HelperUnavailable, "find helper %s", path)
	}
	abs, err := filepath.Abs(found)
	if err != nil {
		return "", errors.Wrapf(err, errors.HelperUnavailable, "resolve helper %s", found)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

// run carries the state of one Run call.
type run struct {
	id  string
	ctx context.Context
	cfg spec.ExecutionConfig
	log *zap.Logger
	res result.ExecutionResult
}

func (e *linuxEngine) Run(ctx context.Context, cfg spec.ExecutionConfig) (result.ExecutionResult, error) {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, contextkey.RunID, runID)
	r := &run{id: runID, ctx: ctx, cfg: cfg, log: logger.NewNop().Zap()}

	if !e.privileged() {
		return e.finish(r, result.RootRequired, errors.New(errors.RootRequired))
	}
	if err := cfg.Validate(); err != nil {
		return e.finish(r, result.InvalidConfig, err)
	}
	if _, err := security.Lookup(cfg.SeccompProfile); err != nil {
		return e.finish(r, result.InvalidConfig, err)
	}

	runLog := openRunLog(ctx, cfg.LogPath)
	defer runLog.Close()
	r.log = runLog.WithContext(ctx)

	return e.execute(r)
}

func openRunLog(ctx context.Context, path string) *logger.Logger {
	if path == "" {
		return logger.NewNop()
	}
	l, err := logger.NewLogger(logger.Config{Level: "debug", Format: "json", OutputPath: path})
	if err != nil {
		logger.Warn(ctx, "open run log failed", zap.String("path", path), zap.Error(err))
		return logger.NewNop()
	}
	return l
}

func (e *linuxEngine) execute(r *run) (result.ExecutionResult, error) {
	// Pdeathsig is tied to the thread that starts the helper.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	statusR, statusW, err := os.Pipe()
	if err != nil {
		return e.finish(r, result.ForkFailed, err)
	}
	defer statusR.Close()
	reqR, reqW, err := os.Pipe()
	if err != nil {
		statusW.Close()
		return e.finish(r, result.ForkFailed, err)
	}

	cmd := exec.Command(e.helper)
	cmd.Env = e.cfg.HelperEnv
	cmd.Stdin = reqR
	cmd.ExtraFiles = []*os.File{statusW}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	start := time.Now()
	err = cmd.Start()
	reqR.Close()
	statusW.Close()
	if err != nil {
		reqW.Close()
		return e.finish(r, result.ForkFailed, err)
	}
	pid := cmd.Process.Pid
	defer cmd.Process.Release()
	r.log.Debug("launcher started", zap.Int("pid", pid), zap.String("helper", e.helper))

	sent := make(chan error, 1)
	go func() {
		err := launcher.WriteRequest(reqW, launcher.Request{
			RunID:  r.id,
			Config: r.cfg,
		})
		reqW.Close()
		sent <- err
	}()
	statuses := make(chan statusRead, 1)
	go func() {
		st, err := launcher.ReadStatus(statusR)
		statuses <- statusRead{status: st, err: err}
	}()

	wd := watchdog.New(e.killer)
	if !spec.IsUnlimited(r.cfg.MaxRealTime) {
		if err := wd.Arm(pid, time.Duration(r.cfg.MaxRealTime)*time.Millisecond); err != nil {
			e.abort(pid)
			<-sent
			<-statuses
			return e.finish(r, result.PthreadFailed, err)
		}
	}

	mon := monitor.New(e.source, e.reaper, monitor.Options{
		InitialDelay:     e.cfg.InitialDelay,
		Interval:         e.cfg.PollInterval,
		IgnoreExecutable: e.helper,
	})
	obs, err := mon.Watch(pid)
	realTime := time.Since(start)
	wd.Cancel()
	if err != nil {
		e.abort(pid)
		<-sent
		<-statuses
		return e.finish(r, result.WaitFailed, err)
	}

	if err := <-sent; err != nil {
		r.log.Debug("request write incomplete", zap.Error(err))
	}
	sr := <-statuses

	status := obs.Exit.Status
	r.res.Apply(result.Measurement{
		Exited:      status.Exited(),
		ExitCode:    status.ExitStatus(),
		Signaled:    status.Signaled(),
		Signal:      status.Signal(),
		CPUTimeMs:   monitor.CPUTimeMs(obs.Exit.Rusage),
		RealTimeMs:  realTime.Milliseconds(),
		MemoryBytes: obs.MemoryBytes(sr.status.LauncherMaxRSS),
	}, r.cfg)
	r.log.Debug("child reaped",
		zap.Int("pid", pid),
		zap.Int("samples", obs.Samples),
		zap.String("last_state", obs.LastState),
		zap.Duration("last_sampled_cpu", obs.LastCPUTime),
		zap.Int64("launcher_max_rss", sr.status.LauncherMaxRSS),
		zap.Bool("watchdog_fired", wd.Fired()),
	)

	if sr.err != nil {
		r.log.Warn("status pipe unreadable", zap.Error(sr.err))
	}
	if f := sr.status.Fault; f != nil {
		return e.finish(r, f.SetupError, f)
	}
	return e.finish(r, result.SetupSuccess, nil)
}

type statusRead struct {
	status launcher.Status
	err    error
}

// abort kills the child and its group and reaps it.
func (e *linuxEngine) abort(pid int) {
	_ = e.killer.KillGroup(pid)
	_ = e.killer.Kill(pid)
	var status unix.WaitStatus
	_, _ = unix.Wait4(pid, &status, 0, nil)
}

// finish records the outcome, logs it and builds the Run return values.
func (e *linuxEngine) finish(r *run, code result.SetupError, cause error) (result.ExecutionResult, error) {
	var err error
	if code != result.SetupSuccess {
		r.res.Fail(code)
		err = code.Err(cause)
		r.log.Error("run failed", zap.Stringer("setup_error", code), zap.Error(cause))
		logger.Warn(r.ctx, "sandbox setup failed",
			zap.Stringer("setup_error", code),
			zap.String("exe_path", r.cfg.ExecutablePath),
			zap.Error(cause),
		)
	}
	r.log.Info("run finished",
		zap.Stringer("verdict", r.res.Verdict),
		zap.Int64("cpu_time_ms", r.res.CPUTimeMs),
		zap.Int64("real_time_ms", r.res.RealTimeMs),
		zap.Int64("memory_bytes", r.res.MemoryBytes),
		zap.Int("exit_code", r.res.ExitCode),
		zap.Int("signal", r.res.Signal),
	)
	e.cfg.Recorder.ObserveRun(r.ctx, r.cfg.SeccompProfile, r.res)
	return r.res, err
}
