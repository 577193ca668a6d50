package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds all authbayes configuration.
type Config struct {
	Data     DataConfig     `toml:"data" yaml:"data" json:"data"`
	Engine   EngineConfig   `toml:"engine" yaml:"engine" json:"engine"`
	Snapshot SnapshotConfig `toml:"snapshot" yaml:"snapshot" json:"snapshot"`
	Output   OutputConfig   `toml:"output" yaml:"output" json:"output"`
	Log      LogConfig      `toml:"log" yaml:"log" json:"log"`
}

// DataConfig locates chunk input and summary output.
type DataConfig struct {
	Source          string `toml:"source" yaml:"source" json:"source"`          // "dir", "gzip" or "http"
	InputDir        string `toml:"input_dir" yaml:"input_dir" json:"input_dir"` // base URL for "http"
	Token           string `toml:"token" yaml:"token" json:"token"`             // bearer token for "http"
	IntermediateDir string `toml:"intermediate_dir" yaml:"intermediate_dir" json:"intermediate_dir"`
	SummaryDir      string `toml:"summary_dir" yaml:"summary_dir" json:"summary_dir"`
}

// EngineConfig holds classifier settings.
type EngineConfig struct {
	Sentinel             float64 `toml:"sentinel" yaml:"sentinel" json:"sentinel"`
	FullTabulate         bool    `toml:"full_tabulate" yaml:"full_tabulate" json:"full_tabulate"`
	FieldCount           int     `toml:"field_count" yaml:"field_count" json:"field_count"` // 0 = any
	RolloverFromSnapshot bool    `toml:"rollover_from_snapshot" yaml:"rollover_from_snapshot" json:"rollover_from_snapshot"`
	RejectBlankLines     bool    `toml:"reject_blank_lines" yaml:"reject_blank_lines" json:"reject_blank_lines"`
}

// SnapshotConfig selects where window snapshots are kept.
type SnapshotConfig struct {
	Backend string `toml:"backend" yaml:"backend" json:"backend"` // "file" or "sqlite"
	Path    string `toml:"path" yaml:"path" json:"path"`          // sqlite database; defaults under IntermediateDir
}

// OutputConfig holds the optional decision outputs.
type OutputConfig struct {
	TracePath          string `toml:"trace_path" yaml:"trace_path" json:"trace_path"` // empty = no trace
	TraceMaxSize       int64  `toml:"trace_max_size" yaml:"trace_max_size" json:"trace_max_size"`
	MispredictionsOnly bool   `toml:"mispredictions_only" yaml:"mispredictions_only" json:"mispredictions_only"`
	Print              bool   `toml:"print" yaml:"print" json:"print"`                   // decisions to stdout
	Verbosity          string `toml:"verbosity" yaml:"verbosity" json:"verbosity"`       // "minimal" or "standard"
	WebhookURL         string `toml:"webhook_url" yaml:"webhook_url" json:"webhook_url"` // predicted failures are posted here
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Data: DataConfig{
			Source:          "dir",
			InputDir:        "data/input_data",
			IntermediateDir: "data/intermediate_data",
			SummaryDir:      "data/summary_data",
		},
		Engine: EngineConfig{
			Sentinel: 1e9,
		},
		Snapshot: SnapshotConfig{
			Backend: "file",
		},
		Output: OutputConfig{
			Verbosity: "standard",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .toml, .json, .yaml)", ext)
	}
	return nil
}

// ApplyEnv overrides fields from AUTHBAYES_* environment variables.
func (c *Config) ApplyEnv() {
	c.Data.Source = getenv("AUTHBAYES_SOURCE", c.Data.Source)
	c.Data.InputDir = getenv("AUTHBAYES_INPUT_DIR", c.Data.InputDir)
	c.Data.IntermediateDir = getenv("AUTHBAYES_INTERMEDIATE_DIR", c.Data.IntermediateDir)
	c.Data.SummaryDir = getenv("AUTHBAYES_SUMMARY_DIR", c.Data.SummaryDir)
	c.Data.Token = getenv("AUTHBAYES_SOURCE_TOKEN", c.Data.Token)
	c.Engine.Sentinel = getenvFloat("AUTHBAYES_SENTINEL", c.Engine.Sentinel)
	c.Engine.FullTabulate = getenvBool("AUTHBAYES_FULL_TABULATE", c.Engine.FullTabulate)
	c.Engine.FieldCount = getenvInt("AUTHBAYES_FIELD_COUNT", c.Engine.FieldCount)
	c.Engine.RolloverFromSnapshot = getenvBool("AUTHBAYES_ROLLOVER_FROM_SNAPSHOT", c.Engine.RolloverFromSnapshot)
	c.Engine.RejectBlankLines = getenvBool("AUTHBAYES_REJECT_BLANK_LINES", c.Engine.RejectBlankLines)
	c.Snapshot.Backend = getenv("AUTHBAYES_SNAPSHOT_BACKEND", c.Snapshot.Backend)
	c.Snapshot.Path = getenv("AUTHBAYES_SNAPSHOT_PATH", c.Snapshot.Path)
	c.Output.TracePath = getenv("AUTHBAYES_TRACE_PATH", c.Output.TracePath)
	c.Output.WebhookURL = getenv("AUTHBAYES_WEBHOOK_URL", c.Output.WebhookURL)
	c.Log.Level = getenv("AUTHBAYES_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("AUTHBAYES_LOG_FORMAT", c.Log.Format)
}

// Validate rejects settings the classifier cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Data.Source {
	case "dir", "gzip", "http":
	default:
		errs = append(errs, fmt.Errorf("data.source must be dir, gzip or http, got %q", c.Data.Source))
	}
	if c.Engine.Sentinel <= 1 || math.IsInf(c.Engine.Sentinel, 0) || math.IsNaN(c.Engine.Sentinel) {
		errs = append(errs, fmt.Errorf("engine.sentinel must be a finite number > 1, got %v", c.Engine.Sentinel))
	}
	if c.Engine.FieldCount < 0 || c.Engine.FieldCount == 1 {
		errs = append(errs, fmt.Errorf("engine.field_count must be 0 or at least 2, got %d", c.Engine.FieldCount))
	}
	switch c.Snapshot.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("snapshot.backend must be file or sqlite, got %q", c.Snapshot.Backend))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	switch c.Output.Verbosity {
	case "minimal", "standard":
	default:
		errs = append(errs, fmt.Errorf("output.verbosity must be minimal or standard, got %q", c.Output.Verbosity))
	}
	if c.Output.TraceMaxSize < 0 {
		errs = append(errs, fmt.Errorf("output.trace_max_size must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SnapshotPath returns the sqlite database path, defaulting to
// {IntermediateDir}/snapshots.db.
func (c Config) SnapshotPath() string {
	if c.Snapshot.Path != "" {
		return c.Snapshot.Path
	}
	return filepath.Join(c.Data.IntermediateDir, "snapshots.db")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
