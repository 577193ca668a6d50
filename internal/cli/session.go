package cli

import (
	"errors"
	"fmt"

	"github.com/hejijunhao/authbayes/internal/config"
	"github.com/hejijunhao/authbayes/internal/connector"
	"github.com/hejijunhao/authbayes/internal/engine"
	"github.com/hejijunhao/authbayes/internal/engine/classifier"
	"github.com/hejijunhao/authbayes/internal/engine/parser"
	"github.com/hejijunhao/authbayes/internal/logging"
	"github.com/hejijunhao/authbayes/internal/pipeline"
	"github.com/hejijunhao/authbayes/internal/snapshot"
	snapfile "github.com/hejijunhao/authbayes/internal/snapshot/file"
	"github.com/hejijunhao/authbayes/internal/snapshot/sqlite"
	"github.com/hejijunhao/authbayes/internal/summary"

	// Register chunk sources.
	_ "github.com/hejijunhao/authbayes/internal/connector/dir"
	_ "github.com/hejijunhao/authbayes/internal/connector/remote"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath      string
	inputDir        string
	intermediateDir string
	summaryDir      string
	logLevel        string
	logFormat       string
}

// load reads the config file, applies flag overrides and sets up logging.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.inputDir != "" {
		cfg.Data.InputDir = g.inputDir
	}
	if g.intermediateDir != "" {
		cfg.Data.IntermediateDir = g.intermediateDir
	}
	if g.summaryDir != "" {
		cfg.Data.SummaryDir = g.summaryDir
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

func openSnapshots(cfg config.Config) (snapshot.Store, error) {
	switch cfg.Snapshot.Backend {
	case "sqlite":
		s, err := sqlite.Open(cfg.SnapshotPath())
		if err != nil {
			return nil, err
		}
		return s, nil
	case "file":
		s, err := snapfile.New(cfg.Data.IntermediateDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %s", cfg.Snapshot.Backend)
	}
}

// session bundles the components a pipeline command needs.
type session struct {
	snapshots snapshot.Store
	summaries *summary.Dir
	pipeline  *pipeline.Pipeline
}

func newSession(cfg config.Config, cls *classifier.Classifier, opts ...pipeline.Option) (*session, error) {
	prs, err := parser.New(parser.WithFieldCount(cfg.Engine.FieldCount))
	if err != nil {
		return nil, err
	}
	src, err := connector.New(connector.SourceConfig{
		Provider: cfg.Data.Source,
		Dir:      cfg.Data.InputDir,
		Extra:    map[string]string{"token": cfg.Data.Token},
	})
	if err != nil {
		return nil, err
	}
	snaps, err := openSnapshots(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Engine.RolloverFromSnapshot {
		opts = append(opts, pipeline.WithRolloverFromSnapshot())
	}
	if cfg.Engine.RejectBlankLines {
		opts = append(opts, pipeline.WithRejectBlankLines())
	}
	eng := engine.New(prs, cls)
	sums := summary.NewDir(cfg.Data.SummaryDir)

	return &session{
		snapshots: snaps,
		summaries: sums,
		pipeline:  pipeline.New(src, eng, snaps, sums, opts...),
	}, nil
}

func (s *session) Close() error {
	return errors.Join(s.pipeline.Close(), s.snapshots.Close())
}
