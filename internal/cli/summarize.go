package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/hejijunhao/authbayes/internal/report"
	"github.com/hejijunhao/authbayes/internal/summary"
)

func newSummarizeCmd(g *globalFlags) *cobra.Command {
	var (
		start, end int
		output     string
		lang       string
	)

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Total the summaries of a range of chunks",
		Long: "Read summary_xNNNNN.json for chunks start..end, write the aggregated totals " +
			"and percentages to final_summary.json and print them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			tag, err := language.Parse(lang)
			if err != nil {
				return fmt.Errorf("invalid --lang %q: %w", lang, err)
			}

			sums := summary.NewDir(cfg.Data.SummaryDir)
			totals, err := summary.Aggregate(sums, start, end)
			if err != nil {
				return err
			}
			if output == "" {
				output = sums.FinalPath()
			}
			if err := summary.WriteFinal(output, totals); err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), totals, tag)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&start, "start-chunk", "s", 0, "First summary to include")
	f.IntVarP(&end, "end-chunk", "e", 0, "Last summary to include")
	f.StringVarP(&output, "output", "o", "", "Where to write the totals (default <summary-dir>/final_summary.json)")
	f.StringVar(&lang, "lang", "en", "Language tag for digit grouping in the report")
	_ = cmd.MarkFlagRequired("end-chunk")

	return cmd
}
