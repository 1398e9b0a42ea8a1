package launcher

import (
	"bytes"
	"strings"
	"testing"

	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/spec"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{
		RunID: "run-7",
		Config: spec.ExecutionConfig{
			MaxCPUTime:     1000,
			ExecutablePath: "/usr/bin/python3",
			Args:           []string{"main.py"},
			SeccompProfile: "py",
		},
	}
	if err := WriteRequest(&buf, req); err != nil {
		t.Fatalf("write request: %v", err)
	}
	got, err := ReadRequest(&buf)
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if got.RunID != "run-7" || got.Config.ExecutablePath != "/usr/bin/python3" || got.Config.SeccompProfile != "py" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestReadRequestGarbage(t *testing.T) {
	if _, err := ReadRequest(strings.NewReader("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestReadStatusEmptyPipe(t *testing.T) {
	st, err := ReadStatus(strings.NewReader(""))
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if st.Fault != nil || st.LauncherMaxRSS != 0 {
		t.Fatalf("expected empty status, got %+v", st)
	}
}

func TestReadStatusDecodesFault(t *testing.T) {
	st, err := ReadStatus(strings.NewReader(`{"setup_error":"DUP2_FAILED","message":"open input /x: no such file or directory"}`))
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if st.Fault == nil || st.Fault.SetupError != result.Dup2Failed {
		t.Fatalf("expected DUP2_FAILED, got %+v", st.Fault)
	}
	if !strings.Contains(st.Fault.Error(), "DUP2_FAILED") {
		t.Fatalf("fault error should name the code: %s", st.Fault.Error())
	}
}

func TestReadStatusHandoffThenExecFailure(t *testing.T) {
	stream := "{\"launcher_max_rss\":7700480}\n" +
		"{\"setup_error\":\"EXECVE_FAILED\",\"message\":\"execve: errno 2\"}\n"
	st, err := ReadStatus(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if st.LauncherMaxRSS != 7700480 {
		t.Fatalf("expected launcher rss 7700480, got %d", st.LauncherMaxRSS)
	}
	if st.Fault == nil || st.Fault.SetupError != result.ExecveFailed {
		t.Fatalf("expected EXECVE_FAILED, got %+v", st.Fault)
	}
}

func TestReadStatusHandoffOnly(t *testing.T) {
	st, err := ReadStatus(strings.NewReader("{\"launcher_max_rss\":4096}\n"))
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if st.Fault != nil || st.LauncherMaxRSS != 4096 {
		t.Fatalf("expected clean handoff, got %+v", st)
	}
}

func TestReadStatusGarbage(t *testing.T) {
	if _, err := ReadStatus(strings.NewReader("{\"setup_error\":")); err == nil {
		t.Fatalf("expected decode error")
	}
}
