package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"apexgrab/internal/domain"
)

func StatusCmd(deps Deps, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show the progress of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(deps, root)
			if err != nil {
				return err
			}
			status, err := api.Status(cmd.Context(), domain.JobHandle(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			state := "running"
			switch {
			case status.Cancelled:
				state = "cancelled"
			case status.Ready:
				state = "ready"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.0f%%\t%s\n", args[0], status.Percent, state)
			if status.Ready && !status.Cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), api.DownloadURL(domain.JobHandle(args[0])))
			}
			return nil
		},
	}
}

func CancelCmd(deps Deps, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Ask the job server to stop a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(deps, root)
			if err != nil {
				return err
			}
			if err := api.Cancel(cmd.Context(), domain.JobHandle(args[0])); err != nil {
				return fmt.Errorf("failed to cancel job: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancel requested for %s.\n", args[0])
			return nil
		},
	}
}
