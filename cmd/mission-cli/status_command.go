package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status <job_id>",
		Short: "Query the backend once for a job's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := strings.TrimSpace(args[0])
			if jobID == "" {
				return fmt.Errorf("job_id is required")
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}

			resp, err := client.Status(cmd.Context(), jobID)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			state, known := domain.StateFromToken(resp.Status)
			fmt.Fprintf(out, "Job:    %s\n", jobID)
			if known {
				fmt.Fprintf(out, "Status: %s (%s)\n", resp.Status, stateLabels[state])
			} else {
				fmt.Fprintf(out, "Status: %s (unrecognised)\n", resp.Status)
			}

			switch state {
			case domain.StateFailed:
				msg := resp.Error
				if msg == "" {
					msg = domain.DefaultBackendFailure
				}
				fmt.Fprintf(out, "Error:  %s\n", msg)
			case domain.StateCompleted:
				fmt.Fprintln(out)
				renderResult(out, resp.Result)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw status response as JSON")

	return cmd
}
