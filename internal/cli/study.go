package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/authbayes/internal/model"
	"github.com/hejijunhao/authbayes/internal/report"
)

func newStudyCmd(g *globalFlags) *cobra.Command {
	var (
		chunk int
		rates string
	)

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Sanity-check a chunk's saved counts and raw log",
		Long: "Load the counts snapshot and raw log of a fully tabulated chunk, verify they agree " +
			"and print per-key and per-second statistics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			snaps, err := openSnapshots(cfg)
			if err != nil {
				return err
			}
			defer snaps.Close()

			ctx := cmd.Context()
			counts, err := snaps.LoadCounts(ctx, chunk)
			if err != nil {
				return err
			}
			raw, err := snaps.LoadRawLog(ctx, chunk)
			if err != nil {
				return err
			}
			st, err := report.Study(counts, raw)
			if err != nil {
				return fmt.Errorf("%s: %w", model.ChunkName(chunk), err)
			}
			if err := report.RenderStats(cmd.OutOrStdout(), model.ChunkName(chunk), st); err != nil {
				return err
			}

			if rates == "" {
				return nil
			}
			f, err := os.Create(rates)
			if err != nil {
				return fmt.Errorf("create rates file: %w", err)
			}
			if err := report.WriteRates(f, report.Rates(raw)); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().IntVarP(&chunk, "chunk", "c", 0, "Chunk number to study")
	cmd.Flags().StringVar(&rates, "rates", "", "Write per-second success/fail counts as TSV to this file")

	return cmd
}
