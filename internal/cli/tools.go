package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"apexgrab/internal/domain"
)

func ToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOOL\tTITLE\tQUALITY\tOPTIONS")
			for _, spec := range domain.Tools() {
				quality := "-"
				if len(spec.Qualities) > 0 {
					quality = strings.Join(spec.Qualities, "|")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Kind, spec.Title, quality, toolOptions(spec))
			}
			return tw.Flush()
		},
	}
}

func toolOptions(spec domain.ToolSpec) string {
	var opts []string
	if len(spec.SubQualities) > 0 {
		opts = append(opts, "sub-quality="+strings.Join(spec.SubQualities, "|"))
	}
	if len(spec.Formats) > 0 {
		opts = append(opts, "format="+strings.Join(spec.Formats, "|"))
	}
	if spec.NeedsLanguage {
		opts = append(opts, "language")
	}
	if spec.NeedsTimestamps {
		opts = append(opts, "timestamps="+domain.TimestampsOn+"|"+domain.TimestampsOff)
	}
	if len(opts) == 0 {
		return "-"
	}
	return strings.Join(opts, " ")
}
