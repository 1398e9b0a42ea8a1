// Package server exposes the sandbox over HTTP, one run per request.
package server

import (
	"context"

	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/security"
	"ojbox/internal/sandbox/spec"
	"ojbox/pkg/errors"
	"ojbox/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// Runner executes one sandboxed run.
type Runner interface {
	Run(ctx context.Context, cfg spec.ExecutionConfig) (result.ExecutionResult, error)
}

// RunController handles run requests. Runs beyond the concurrency limit
// are rejected, not queued.
type RunController struct {
	runner Runner
	slots  *semaphore.Weighted
}

func NewRunController(runner Runner, maxConcurrent int64) *RunController {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &RunController{runner: runner, slots: semaphore.NewWeighted(maxConcurrent)}
}

// Run handles POST /api/v1/run.
func (rc *RunController) Run(c *gin.Context) {
	// omitted ids run as nobody, never as the server's own root
	cfg := spec.ExecutionConfig{UID: spec.Nobody, GID: spec.Nobody}
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.BadRequest(c, "invalid run config: "+err.Error())
		return
	}
	if !rc.slots.TryAcquire(1) {
		response.ErrorWithCode(c, errors.TooManyRequests, "")
		return
	}
	defer rc.slots.Release(1)

	res, err := rc.runner.Run(c.Request.Context(), cfg)
	if err != nil {
		response.ErrorWithData(c, err, res)
		return
	}
	response.Success(c, res)
}

// Profiles handles GET /api/v1/profiles.
func (rc *RunController) Profiles(c *gin.Context) {
	response.Success(c, gin.H{"profiles": security.Names()})
}

// Health handles GET /health.
func Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
