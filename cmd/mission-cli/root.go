package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/mission-control/internal/config"
	"github.com/cuongbtq/mission-control/internal/control/backend"
	"github.com/cuongbtq/mission-control/shared/logger"
)

const defaultBackendURL = "http://localhost:8000"

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

type commandContext struct {
	backendURL string
	logLevel   string
	timeout    time.Duration
}

func (c *commandContext) client() (*backend.Client, error) {
	return backend.NewClient(backend.Config{
		BaseURL:        c.backendURL,
		RequestTimeout: c.timeout,
	})
}

// logger writes diagnostics to w so they never mix with command output.
func (c *commandContext) logger(w io.Writer) *slog.Logger {
	l, err := logger.New(&logger.Config{
		Level:      c.logLevel,
		Format:     "console",
		TimeFormat: time.Kitchen,
		Writer:     w,
	})
	if err != nil {
		return slog.New(slog.NewTextHandler(w, nil))
	}
	return l.Logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "mission-cli",
		Short:         "Submit source videos to the mission backend and follow their progress",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	backendURL := strings.TrimSpace(os.Getenv(config.EnvBackendURL))
	if backendURL == "" {
		backendURL = defaultBackendURL
	}

	rootCmd.PersistentFlags().StringVar(&ctx.backendURL, "backend", backendURL, "Mission backend base URL")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "warn", "Diagnostic log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&ctx.timeout, "timeout", 30*time.Second, "Per-request timeout for status queries")

	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
