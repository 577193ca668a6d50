package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/authbayes/internal/engine/classifier"
	"github.com/hejijunhao/authbayes/internal/model"
)

func newTrainCmd(g *globalFlags) *cobra.Command {
	var chunk int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Count the first chunk without predicting",
		Long: "Process one chunk with prediction disabled, saving its counts snapshot, raw log and " +
			"summary so that later chunks have a prior and a previous window.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}

			cls := classifier.New(0,
				classifier.WithPrediction(false),
				classifier.WithFullTabulation(true),
				classifier.WithSentinel(cfg.Engine.Sentinel),
			)
			s, err := newSession(cfg, cls)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.pipeline.Train(cmd.Context(), chunk); err != nil {
				return err
			}
			current := cls.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "trained %s: %d successes, %d failures\n",
				model.ChunkName(chunk), current.Success, current.Fail)
			return nil
		},
	}

	cmd.Flags().IntVarP(&chunk, "chunk", "c", 0, "Chunk number to train on")

	return cmd
}
