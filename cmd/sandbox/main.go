// Command sandbox runs one program under the sandbox from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"ojbox/internal/sandbox/security"
	"ojbox/pkg/utils/logger"

	"github.com/urfave/cli/v3"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "sandbox",
		Usage:   "run one program under resource limits and a syscall filter",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "process log level"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			err := logger.Init(logger.Config{Level: cmd.String("log-level"), Format: "console", OutputPath: "stderr"})
			return ctx, err
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			_ = logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			runCommand(),
			{
				Name:  "profiles",
				Usage: "list the built-in syscall filter profiles",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					for _, name := range security.Names() {
						fmt.Fprintln(cmd.Root().Writer, name)
					}
					return nil
				},
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintln(cmd.Root().Writer, version)
					return nil
				},
			},
		},
	}
}
