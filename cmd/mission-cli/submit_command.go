package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cuongbtq/mission-control/internal/control/controller"
	"github.com/cuongbtq/mission-control/internal/control/domain"
)

var errMissionFailed = errors.New("mission failed")

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		interval time.Duration
		deadline time.Duration
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a source video and follow the mission until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact := domain.NewFileArtifact(args[0])

			info, err := os.Stat(artifact.Path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", artifact.Path)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", artifact.Path)
			}
			if info.Size() == 0 {
				return fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, artifact.Path)
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}

			// Progress goes to stderr when stdout carries JSON.
			var progress io.Writer = cmd.OutOrStdout()
			if jsonOut {
				progress = cmd.ErrOrStderr()
			}

			ctrl := controller.New(client, newConsoleSubscriber(progress), ctx.logger(cmd.ErrOrStderr()),
				controller.WithPollInterval(interval),
				controller.WithPollDeadline(deadline),
			)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(progress, "Submitting %s (%s) to %s\n",
				artifact.Name(), humanize.Bytes(uint64(info.Size())), ctx.backendURL)

			if err := ctrl.Submit(runCtx, artifact); err != nil {
				return err
			}

			snap, err := ctrl.Wait(runCtx)
			if err != nil {
				ctrl.Teardown()
				if snap.JobID != "" {
					fmt.Fprintf(progress, "Stopped following job %s\n", snap.JobID)
				}
				return err
			}

			if jsonOut {
				if err := writeJSON(cmd, snap); err != nil {
					return err
				}
			} else if snap.State == domain.StateCompleted {
				fmt.Fprintln(progress)
				renderResult(cmd.OutOrStdout(), snap.Result)
			}

			if snap.State == domain.StateFailed {
				return errMissionFailed
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", controller.DefaultPollInterval, "Delay between status queries")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "Give up polling after this long (0 polls until the mission finishes)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the final mission snapshot as JSON")

	return cmd
}
