package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/spec"
	"ojbox/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	res     result.ExecutionResult
	err     error
	got     spec.ExecutionConfig
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, cfg spec.ExecutionConfig) (result.ExecutionResult, error) {
	f.got = cfg
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.res, f.err
}

type envelope struct {
	Code    errors.ErrorCode       `json:"code"`
	Message string                 `json:"message"`
	Data    result.ExecutionResult `json:"data"`
	TraceID string                 `json:"trace_id"`
}

const runBody = `{"max_cpu_time":1000,"max_real_time":2000,"max_memory":134217728,
"max_output_size":-1,"max_process_number":-1,"exe_path":"/tmp/main","seccomp_rule_name":"c_cpp","uid":65534,"gid":65534}`

func post(t *testing.T, h http.Handler, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trace-Id", "trace-1")
	if auth {
		req.SetBasicAuth("judge", "secret")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func testConfig() Config {
	return Config{Username: "judge", Password: "secret", MaxConcurrentRuns: 1}
}

func TestRunSuccess(t *testing.T) {
	runner := &fakeRunner{res: result.ExecutionResult{Verdict: result.Success, CPUTimeMs: 12}}
	w := post(t, NewRouter(testConfig(), runner), runBody, true)

	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, errors.Success, env.Code)
	assert.Equal(t, int64(12), env.Data.CPUTimeMs)
	assert.Equal(t, "trace-1", env.TraceID)
	assert.Equal(t, "/tmp/main", runner.got.ExecutablePath)
	assert.Equal(t, "c_cpp", runner.got.SeccompProfile)
	assert.Equal(t, int64(spec.Unlimited), runner.got.MaxProcessNumber)
}

func TestRunSetupErrorKeepsResult(t *testing.T) {
	var res result.ExecutionResult
	res.Fail(result.ExecveFailed)
	runner := &fakeRunner{res: res, err: result.ExecveFailed.Err(nil)}
	w := post(t, NewRouter(testConfig(), runner), runBody, true)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, errors.ExecveFailed, env.Code)
	assert.Equal(t, result.SystemError, env.Data.Verdict)
	assert.Equal(t, result.ExecveFailed, env.Data.SetupError)
}

func TestRunInvalidConfigIsBadRequest(t *testing.T) {
	var res result.ExecutionResult
	res.Fail(result.InvalidConfig)
	runner := &fakeRunner{res: res, err: result.InvalidConfig.Err(nil)}
	w := post(t, NewRouter(testConfig(), runner), runBody, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunOmittedIDsRunAsNobody(t *testing.T) {
	runner := &fakeRunner{res: result.ExecutionResult{Verdict: result.Success}}
	body := `{"max_cpu_time":1000,"max_real_time":2000,"max_memory":134217728,
"max_output_size":-1,"max_process_number":-1,"exe_path":"/tmp/main"}`
	w := post(t, NewRouter(testConfig(), runner), body, true)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, spec.Nobody, runner.got.UID)
	assert.Equal(t, spec.Nobody, runner.got.GID)
}

func TestRunMalformedBody(t *testing.T) {
	w := post(t, NewRouter(testConfig(), &fakeRunner{}), "{", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunRequiresAuth(t *testing.T) {
	w := post(t, NewRouter(testConfig(), &fakeRunner{}), runBody, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
}

func TestRunRejectsWhenBusy(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	h := NewRouter(testConfig(), runner)

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- post(t, h, runBody, true) }()
	<-runner.entered

	w := post(t, h, runBody, true)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	close(runner.block)
	assert.Equal(t, http.StatusOK, (<-done).Code)
}

func TestHealthWithoutAuth(t *testing.T) {
	h := NewRouter(testConfig(), &fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestProfiles(t *testing.T) {
	h := NewRouter(Config{}, &fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", bytes.NewReader(nil))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"c_cpp"`)
}
