package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/spec"
	"ojbox/pkg/errors"

	"github.com/urfave/cli/v3"
)

func parseRun(t *testing.T, args ...string) (spec.ExecutionConfig, error) {
	t.Helper()
	cmd := runCommand()
	var cfg spec.ExecutionConfig
	var buildErr error
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		cfg, buildErr = buildRunConfig(c)
		return nil
	}
	if err := cmd.Run(context.Background(), append([]string{"run"}, args...)); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cfg, buildErr
}

func TestBuildRunConfigFromCmd(t *testing.T) {
	cfg, err := parseRun(t,
		"--cmd", `/usr/bin/python3 -c "print('hi there')"`,
		"--max-cpu-time", "1000",
		"--max-memory", "67108864",
		"--seccomp", "py",
		"--env", "LANG=C",
		"--env", "PYTHONHASHSEED=0",
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.ExecutablePath != "/usr/bin/python3" {
		t.Fatalf("unexpected exe %q", cfg.ExecutablePath)
	}
	if len(cfg.Args) != 2 || cfg.Args[1] != "print('hi there')" {
		t.Fatalf("quoted argument not preserved: %q", cfg.Args)
	}
	if cfg.MaxCPUTime != 1000 || cfg.MaxMemory != 64<<20 || cfg.MaxRealTime != spec.Unlimited {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if cfg.SeccompProfile != "py" || len(cfg.Env) != 2 || cfg.UID != nobody {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestBuildRunConfigTrailingArgs(t *testing.T) {
	cfg, err := parseRun(t, "--", "/bin/echo", "a", "b")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.ExecutablePath != "/bin/echo" || strings.Join(cfg.Args, ",") != "a,b" {
		t.Fatalf("unexpected argv %q %q", cfg.ExecutablePath, cfg.Args)
	}
}

func TestBuildRunConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	body := `
max_cpu_time = 1000
max_real_time = 3000
max_memory = 134217728
exe_path = "/tmp/main"
seccomp_profile = "c_cpp"
uid = 1000
gid = 1000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := parseRun(t, "--config", path, "--max-real-time", "500")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.MaxRealTime != 500 || cfg.MaxCPUTime != 1000 {
		t.Fatalf("flag should override file only where set: %+v", cfg)
	}
	if cfg.ExecutablePath != "/tmp/main" || cfg.SeccompProfile != "c_cpp" || cfg.UID != 1000 {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.MaxOutputSize != spec.Unlimited {
		t.Fatalf("omitted limits should stay unlimited, got %d", cfg.MaxOutputSize)
	}
}

func TestBuildRunConfigNoProgram(t *testing.T) {
	_, err := parseRun(t, "--max-cpu-time", "10")
	if errors.GetCode(err) != errors.InvalidParams {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}

func TestBuildRunConfigBadQuoting(t *testing.T) {
	_, err := parseRun(t, "--cmd", `/bin/sh -c "unterminated`)
	if err == nil {
		t.Fatalf("expected shlex error")
	}
}

func TestLoadRunConfigFormats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"run.yaml": "maxCpuTime: 2000\nexePath: /tmp/a.out\nargs: [x]\n",
		"run.json": `{"max_cpu_time":2000,"exe_path":"/tmp/a.out","args":["x"]}`,
		"run.toml": "max_cpu_time = 2000\nexe_path = \"/tmp/a.out\"\nargs = [\"x\"]\n",
	}
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			cfg, err := loadRunConfig(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.MaxCPUTime != 2000 || cfg.ExecutablePath != "/tmp/a.out" || len(cfg.Args) != 1 {
				t.Fatalf("unexpected config %+v", cfg)
			}
			if cfg.MaxMemory != spec.Unlimited || cfg.GID != nobody {
				t.Fatalf("defaults lost: %+v", cfg)
			}
		})
	}
}

func TestLoadRunConfigErrors(t *testing.T) {
	dir := t.TempDir()
	ini := filepath.Join(dir, "run.ini")
	if err := os.WriteFile(ini, []byte("x=1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadRunConfig(ini); errors.GetCode(err) != errors.ConfigLoadFailed {
		t.Fatalf("expected ConfigLoadFailed for unknown extension, got %v", err)
	}
	bad := filepath.Join(dir, "run.toml")
	if err := os.WriteFile(bad, []byte("max_cpu_time = ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadRunConfig(bad); errors.GetCode(err) != errors.ConfigLoadFailed {
		t.Fatalf("expected ConfigLoadFailed for bad toml, got %v", err)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	res := result.ExecutionResult{
		Verdict:     result.RealTimeLimitExceeded,
		RealTimeMs:  2003,
		MemoryBytes: 3 << 20,
		Signal:      9,
	}
	printSummary(&buf, res)
	out := buf.String()
	for _, want := range []string{"REAL_TIME_LIMIT_EXCEEDED", "2003 ms", "3.0 MiB", "9 (SIGKILL)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, result.ExecutionResult{Verdict: result.MemoryLimitExceeded}); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(buf.String(), `"result": "MEMORY_LIMIT_EXCEEDED"`) {
		t.Fatalf("unexpected json %s", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		5 << 30: "5.0 GiB",
	}
	for n, want := range cases {
		if got := formatBytes(n); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
