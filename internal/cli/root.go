package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "authbayes",
		Short: "Online Bayesian classifier for authentication logs",
		Long: "Authbayes predicts whether each authentication event succeeds or fails from the " +
			"likelihood ratio of its key over the two most recent log chunks, then scores the predictions.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "authbayes.toml", "Config file (.toml, .yaml or .json)")
	pf.StringVarP(&g.inputDir, "input-dir", "i", "", "Directory holding the xNNNNN chunk files")
	pf.StringVarP(&g.intermediateDir, "intermediate-dir", "I", "", "Directory for counts and raw log snapshots")
	pf.StringVarP(&g.summaryDir, "summary-dir", "S", "", "Directory for summary_xNNNNN.json files")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format (text or json)")

	root.AddCommand(
		newTrainCmd(g),
		newRunCmd(g),
		newSummarizeCmd(g),
		newStudyCmd(g),
	)

	root.Version = Version
	root.SetVersionTemplate(fmt.Sprintf("authbayes %s\n", Version))

	return root
}

func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
