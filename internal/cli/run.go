package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/hejijunhao/authbayes/internal/config"
	"github.com/hejijunhao/authbayes/internal/engine/classifier"
	"github.com/hejijunhao/authbayes/internal/model"
	"github.com/hejijunhao/authbayes/internal/output"
	"github.com/hejijunhao/authbayes/internal/output/file"
	"github.com/hejijunhao/authbayes/internal/output/multi"
	"github.com/hejijunhao/authbayes/internal/output/stdout"
	"github.com/hejijunhao/authbayes/internal/output/webhook"
	"github.com/hejijunhao/authbayes/internal/pipeline"
	"github.com/hejijunhao/authbayes/internal/report"
	"github.com/hejijunhao/authbayes/internal/summary"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		start, end   int
		fullTabulate bool
		fromSnapshot bool
		trace        string
		missesOnly   bool
		printAll     bool
		verbosity    string
		webhookURL   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify a range of chunks",
		Long: "Predict every event of chunks start..end from the previous chunk's counts, " +
			"write a summary per chunk and print the totals for the range.",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if fullTabulate {
				cfg.Engine.FullTabulate = true
			}
			if fromSnapshot {
				cfg.Engine.RolloverFromSnapshot = true
			}
			if trace != "" {
				cfg.Output.TracePath = trace
			}
			if missesOnly {
				cfg.Output.MispredictionsOnly = true
			}
			if printAll {
				cfg.Output.Print = true
			}
			if verbosity != "" {
				cfg.Output.Verbosity = verbosity
			}
			if webhookURL != "" {
				cfg.Output.WebhookURL = webhookURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out, err := buildOutput(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			var opts []pipeline.Option
			if out != nil {
				opts = append(opts, pipeline.WithOutput(out))
			}
			cls := classifier.New(0,
				classifier.WithFullTabulation(cfg.Engine.FullTabulate),
				classifier.WithSentinel(cfg.Engine.Sentinel),
			)
			s, err := newSession(cfg, cls, opts...)
			if err != nil {
				if out != nil {
					out.Close()
				}
				return err
			}
			defer func() {
				if cerr := s.Close(); err == nil {
					err = cerr
				}
			}()

			if err := s.pipeline.Run(cmd.Context(), start, end); err != nil {
				return err
			}

			totals, err := summary.Aggregate(s.summaries, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "classified %s..%s\n", model.ChunkName(start), model.ChunkName(end))
			return report.Render(cmd.OutOrStdout(), totals, language.English)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&start, "start-chunk", "s", 1, "First chunk to classify (must be > 0)")
	f.IntVarP(&end, "end-chunk", "e", 1, "Last chunk to classify")
	f.BoolVarP(&fullTabulate, "full-tabulate", "f", false, "Also save each chunk's raw event log")
	f.BoolVar(&fromSnapshot, "rollover-from-snapshot", false, "Restore the previous window from the saved snapshot at each boundary")
	f.StringVar(&trace, "trace", "", "Append every decision as NDJSON to this file")
	f.BoolVar(&missesOnly, "mispredictions-only", false, "Trace only incorrect predictions")
	f.BoolVar(&printAll, "print", false, "Print every decision to stdout as JSON")
	f.StringVar(&verbosity, "verbosity", "", "Printed decision detail: minimal or standard")
	f.StringVar(&webhookURL, "webhook", "", "POST predicted failures to this URL in batches")

	return cmd
}

// buildOutput assembles the configured decision outputs. It returns nil
// when none is configured.
func buildOutput(cfg config.Config, stdoutW io.Writer) (output.Output, error) {
	var outs []output.Output

	if cfg.Output.TracePath != "" {
		var fileOpts []file.Option
		if cfg.Output.TraceMaxSize > 0 {
			fileOpts = append(fileOpts, file.WithMaxSize(cfg.Output.TraceMaxSize))
		}
		if cfg.Output.MispredictionsOnly {
			fileOpts = append(fileOpts, file.WithMispredictionsOnly())
		}
		out, err := file.New(cfg.Output.TracePath, fileOpts...)
		if err != nil {
			return nil, fmt.Errorf("open trace: %w", err)
		}
		outs = append(outs, out)
	}
	if cfg.Output.Print {
		outs = append(outs, stdout.NewWriter(stdoutW, output.ParseVerbosity(cfg.Output.Verbosity), false))
	}
	if cfg.Output.WebhookURL != "" {
		outs = append(outs, webhook.New(cfg.Output.WebhookURL))
	}

	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		return outs[0], nil
	default:
		return multi.New(outs...), nil
	}
}
