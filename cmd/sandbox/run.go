package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"ojbox/internal/sandbox/engine"
	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/spec"
	"ojbox/pkg/errors"

	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/urfave/cli/v3"
	"golang.org/x/sys/unix"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "execute a program and print the result",
		ArgsUsage: "[-- exe args...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "run config file (.toml, .yaml, .json)"},
			&cli.StringFlag{Name: "cmd", Usage: "command line, split with shell quoting rules"},
			&cli.Int64Flag{Name: "max-cpu-time", Value: spec.Unlimited, Usage: "CPU time limit in ms"},
			&cli.Int64Flag{Name: "max-real-time", Value: spec.Unlimited, Usage: "wall clock limit in ms"},
			&cli.Int64Flag{Name: "max-memory", Value: spec.Unlimited, Usage: "memory limit in bytes"},
			&cli.Int64Flag{Name: "max-output-size", Value: spec.Unlimited, Usage: "output file size limit in bytes"},
			&cli.Int64Flag{Name: "max-process-number", Value: spec.Unlimited, Usage: "process count limit"},
			&cli.StringFlag{Name: "input", Usage: "stdin file"},
			&cli.StringFlag{Name: "output", Usage: "stdout file"},
			&cli.StringFlag{Name: "error", Usage: "stderr file"},
			&cli.StringSliceFlag{Name: "env", Usage: "KEY=VALUE for the program, repeatable"},
			&cli.StringFlag{Name: "log", Usage: "per-run log file"},
			&cli.StringFlag{Name: "seccomp", Usage: "syscall filter profile"},
			&cli.IntFlag{Name: "uid", Value: nobody},
			&cli.IntFlag{Name: "gid", Value: nobody},
			&cli.StringFlag{Name: "helper", Value: engine.DefaultHelperPath, Usage: "sandbox-init binary"},
			&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := buildRunConfig(cmd)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			eng, err := engine.NewEngine(engine.Config{HelperPath: cmd.String("helper")})
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			res, runErr := eng.Run(ctx, cfg)

			out := cmd.Root().Writer
			if cmd.Bool("json") {
				err = printJSON(out, res)
			} else {
				printSummary(out, res)
			}
			if err != nil {
				return err
			}
			if runErr != nil {
				return cli.Exit(runErr.Error(), 1)
			}
			return nil
		},
	}
}

// buildRunConfig starts from the config file, if any, and applies every
// flag the user set explicitly.
func buildRunConfig(cmd *cli.Command) (spec.ExecutionConfig, error) {
	cfg := unlimitedConfig()
	if path := cmd.String("config"); path != "" {
		loaded, err := loadRunConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	int64Flags := map[string]*int64{
		"max-cpu-time":       &cfg.MaxCPUTime,
		"max-real-time":      &cfg.MaxRealTime,
		"max-memory":         &cfg.MaxMemory,
		"max-output-size":    &cfg.MaxOutputSize,
		"max-process-number": &cfg.MaxProcessNumber,
	}
	for name, dst := range int64Flags {
		if cmd.IsSet(name) {
			*dst = cmd.Int64(name)
		}
	}
	stringFlags := map[string]*string{
		"input":   &cfg.InputPath,
		"output":  &cfg.OutputPath,
		"error":   &cfg.ErrorPath,
		"log":     &cfg.LogPath,
		"seccomp": &cfg.SeccompProfile,
	}
	for name, dst := range stringFlags {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	if cmd.IsSet("uid") {
		cfg.UID = cmd.Int("uid")
	}
	if cmd.IsSet("gid") {
		cfg.GID = cmd.Int("gid")
	}
	if cmd.IsSet("env") {
		cfg.Env = cmd.StringSlice("env")
	}

	argv := cmd.Args().Slice()
	if line := cmd.String("cmd"); line != "" {
		fields, err := shlex.Split(line)
		if err != nil {
			return cfg, errors.Wrapf(err, errors.InvalidParams, "parse --cmd")
		}
		argv = fields
	}
	if len(argv) > 0 {
		cfg.ExecutablePath = argv[0]
		cfg.Args = argv[1:]
	}
	if cfg.ExecutablePath == "" {
		return cfg, errors.Newf(errors.InvalidParams, "no program given: use --cmd, a config file or trailing arguments")
	}
	return cfg, nil
}

func printJSON(w io.Writer, res result.ExecutionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func printSummary(w io.Writer, res result.ExecutionResult) {
	verdict := verdictColor(res.Verdict).SprintFunc()
	fmt.Fprintf(w, "%-10s %s\n", "verdict", verdict(res.Verdict))
	if res.Failed() {
		fmt.Fprintf(w, "%-10s %s\n", "error", color.RedString(res.SetupError.String()))
	}
	fmt.Fprintf(w, "%-10s %d ms\n", "cpu_time", res.CPUTimeMs)
	fmt.Fprintf(w, "%-10s %d ms\n", "real_time", res.RealTimeMs)
	fmt.Fprintf(w, "%-10s %s\n", "memory", formatBytes(res.MemoryBytes))
	fmt.Fprintf(w, "%-10s %d\n", "exit_code", res.ExitCode)
	fmt.Fprintf(w, "%-10s %s\n", "signal", signalName(res.Signal))
}

func verdictColor(v result.Verdict) *color.Color {
	switch v {
	case result.Success:
		return color.New(color.FgGreen, color.Bold)
	case result.SystemError:
		return color.New(color.FgMagenta, color.Bold)
	case result.RuntimeError:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow, color.Bold)
	}
}

func signalName(sig int) string {
	if sig == 0 {
		return "0"
	}
	if name := unix.SignalName(unix.Signal(sig)); name != "" {
		return fmt.Sprintf("%d (%s)", sig, name)
	}
	return fmt.Sprint(sig)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
