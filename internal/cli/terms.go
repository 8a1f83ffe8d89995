package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"apexgrab/internal/consent"
)

func TermsCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Show or accept the usage policy",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the usage policy and whether it was accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, consent.Notice)
			if deps.Consent.Accepted() {
				fmt.Fprintln(out, "Accepted for this session.")
			} else {
				fmt.Fprintln(out, "Not accepted yet.")
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "accept",
		Short: "Accept the usage policy for this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Consent.Accept(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Usage policy accepted.")
			return nil
		},
	})
	return cmd
}
