package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"apexgrab/internal/consent"
	"apexgrab/internal/infra"
	"apexgrab/internal/providers/jobapi"
)

// Deps are built once in main and shared by every command.
type Deps struct {
	Config  *infra.Config
	Logger  *infra.Logger
	Consent *consent.Gate
	// HTTPClient is optional; nil uses a default client.
	HTTPClient *http.Client
}

type rootOptions struct {
	apiURL string
}

// NewRootCmd assembles the apexgrab command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "apexgrab",
		Short:         "Download videos, audio and transcripts through an ApexGrab job server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", deps.Config.APIBaseURL, "job server base URL (env APEXGRAB_API_URL)")

	root.AddCommand(GetCmd(deps, opts))
	root.AddCommand(ToolsCmd())
	root.AddCommand(StatusCmd(deps, opts))
	root.AddCommand(CancelCmd(deps, opts))
	root.AddCommand(TermsCmd(deps))
	return root
}

// Execute runs the command line and returns the first error.
func Execute(deps Deps, args []string) error {
	root := NewRootCmd(deps)
	root.SetArgs(args)
	return root.Execute()
}

func newAPIClient(deps Deps, opts *rootOptions) (*jobapi.Client, error) {
	return jobapi.NewClient(jobapi.Options{
		BaseURL:        opts.apiURL,
		HTTPClient:     deps.HTTPClient,
		Logger:         deps.Logger,
		RequestTimeout: deps.Config.RequestTimeout,
	})
}
