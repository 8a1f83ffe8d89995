package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"apexgrab/internal/consent"
	"apexgrab/internal/domain"
	"apexgrab/internal/jobfile"
	"apexgrab/internal/jobs"
	"apexgrab/internal/providers/jobapi"
	"apexgrab/internal/storage"
)

const cancelTimeout = 5 * time.Second

// ErrInterrupted is returned when a signal stopped a running job.
var ErrInterrupted = errors.New("interrupted")

type getOptions struct {
	tool        string
	quality     string
	subQuality  string
	language    string
	timestamps  string
	format      string
	output      string
	file        string
	linkOnly    bool
	acceptTerms bool
}

func GetCmd(deps Deps, root *rootOptions) *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get [URL]",
		Short: "Submit a job, follow its progress and fetch the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var requests []domain.JobRequest
			switch {
			case opts.file != "" && len(args) > 0:
				return fmt.Errorf("pass either a URL or --file, not both")
			case opts.file != "":
				reqs, err := jobfile.Load(opts.file)
				if err != nil {
					return err
				}
				requests = reqs
			case len(args) == 1:
				req, err := opts.request(args[0])
				if err != nil {
					return err
				}
				requests = append(requests, req)
			default:
				return fmt.Errorf("a URL or --file is required")
			}

			if err := ensureConsent(cmd, deps.Consent, opts.acceptTerms); err != nil {
				return err
			}

			api, err := newAPIClient(deps, root)
			if err != nil {
				return err
			}
			var retriever jobs.Retriever
			if opts.linkOnly {
				retriever = jobapi.NewLinkPrinter(api, cmd.OutOrStdout())
			} else {
				outDir := opts.output
				if outDir == "" {
					outDir = deps.Config.OutputDir
				}
				store, err := storage.NewFileStore(outDir)
				if err != nil {
					return err
				}
				retriever = jobapi.NewDownloader(api, store, func(a jobapi.SavedArtifact) {
					fmt.Fprintln(cmd.OutOrStdout(), a.Path)
				})
			}

			view := newProgressView(cmd.ErrOrStderr())
			client := jobs.New(api, retriever, jobs.Options{
				PollInterval:    deps.Config.PollInterval,
				MaxPollFailures: deps.Config.PollMaxFailures,
				Logger:          deps.Logger,
				OnChange:        view.update,
			})
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for _, req := range requests {
				if err := runJob(ctx, cmd, client, req); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.tool, "tool", "t", string(domain.ToolYouTubeVideo), "tool to run (see `apexgrab tools`)")
	f.StringVarP(&opts.quality, "quality", "q", "", "quality option, defaults to the tool's first choice")
	f.StringVar(&opts.subQuality, "sub-quality", "", "video resolution when --quality is Video")
	f.StringVarP(&opts.language, "language", "l", "", "transcript or summary language, as a code (de) or Name:code")
	f.StringVar(&opts.timestamps, "timestamps", "", "include transcript timestamps (True or False)")
	f.StringVarP(&opts.format, "format", "f", "", "audio container for yt-audio")
	f.StringVarP(&opts.output, "output", "o", "", "directory for downloaded files (env OUTPUT_DIR)")
	f.StringVar(&opts.file, "file", "", "YAML file listing several jobs")
	f.BoolVar(&opts.linkOnly, "link-only", false, "print the download link instead of fetching the file")
	f.BoolVar(&opts.acceptTerms, "accept-terms", false, "accept the usage policy for this session")
	return cmd
}

func (o *getOptions) request(url string) (domain.JobRequest, error) {
	kind := domain.ToolKind(o.tool)
	spec, err := domain.LookupTool(kind)
	if err != nil {
		return domain.JobRequest{}, err
	}
	req := domain.JobRequest{
		URL:        url,
		Tool:       kind,
		Quality:    o.quality,
		SubQuality: o.subQuality,
		Timestamps: o.timestamps,
		Format:     o.format,
	}
	if o.language != "" {
		lang, err := domain.NormalizeLanguage(o.language)
		if err != nil {
			return domain.JobRequest{}, err
		}
		req.Language = lang
	}
	req.ApplyDefaults(spec)
	return req, req.Validate()
}

func ensureConsent(cmd *cobra.Command, gate *consent.Gate, accept bool) error {
	if gate.Accepted() {
		return nil
	}
	if accept {
		return gate.Accept(cmd.Context())
	}
	fmt.Fprintln(cmd.ErrOrStderr(), consent.Notice)
	fmt.Fprintln(cmd.ErrOrStderr(), "Run `apexgrab terms accept` or pass --accept-terms to continue.")
	return consent.ErrNotAccepted
}

func runJob(ctx context.Context, cmd *cobra.Command, client *jobs.Client, req domain.JobRequest) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", req.Tool, req.URL)
	if err := client.Start(ctx, req); err != nil {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		return err
	}

	result, err := client.Wait(ctx)
	if err != nil {
		cctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
		defer cancel()
		_ = client.Cancel(cctx)
		return ErrInterrupted
	}

	switch result.Outcome {
	case jobs.OutcomeReady:
		return result.Err
	case jobs.OutcomeCancelled:
		return fmt.Errorf("job %s was cancelled by the server", result.Handle)
	default:
		if result.Err != nil {
			return result.Err
		}
		return fmt.Errorf("job %s ended: %s", result.Handle, result.Outcome)
	}
}
