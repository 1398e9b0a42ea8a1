//go:build !linux

package engine

import (
	"context"

	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/spec"
	"ojbox/pkg/errors"
)

type stubEngine struct{}

func NewEngine(cfg Config, opts ...Option) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Run(ctx context.Context, cfg spec.ExecutionConfig) (result.ExecutionResult, error) {
	var res result.ExecutionResult
	res.Fail(result.ForkFailed)
	return res, errors.Newf(errors.ForkFailed, "sandbox engine is only supported on linux")
}
