// Package observer defines logging and metrics hooks for sandbox execution.
package observer

import (
	"context"

	"ojbox/internal/sandbox/result"
	"ojbox/pkg/utils/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Recorder is notified once per finished run.
type Recorder interface {
	ObserveRun(ctx context.Context, profile string, res result.ExecutionResult)
}

// Noop discards observations.
type Noop struct{}

func (Noop) ObserveRun(context.Context, string, result.ExecutionResult) {}

// LogRecorder writes one structured line per run.
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogRecorder{log: log}
}

func (r *LogRecorder) ObserveRun(ctx context.Context, profile string, res result.ExecutionResult) {
	level := zapcore.InfoLevel
	if res.Failed() {
		level = zapcore.WarnLevel
	}
	ce := r.log.With(logger.ContextFields(ctx)...).Check(level, "run finished")
	if ce == nil {
		return
	}
	ce.Write(
		zap.String("profile", profile),
		zap.Stringer("verdict", res.Verdict),
		zap.Stringer("setup_error", res.SetupError),
		zap.Int64("cpu_time_ms", res.CPUTimeMs),
		zap.Int64("real_time_ms", res.RealTimeMs),
		zap.Int64("memory_bytes", res.MemoryBytes),
		zap.Int("exit_code", res.ExitCode),
		zap.Int("signal", res.Signal),
	)
}
