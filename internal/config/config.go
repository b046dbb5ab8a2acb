package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/obinexus/bpets/internal/pruning"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultWorkers  = 4
	DefaultOutput   = "-"
	DefaultLogLevel = "info"
)

// Config is the top-level configuration parsed from bpets.yaml.
type Config struct {
	Pruning PruningConfig `yaml:"pruning"`
	Batch   BatchConfig   `yaml:"batch"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
	Rules   []Rule        `yaml:"rules"`
}

// PruningConfig holds the operator tunables.
type PruningConfig struct {
	// HCrit normalizes summed feature weight into H_norm (default 1.0).
	HCrit float64 `yaml:"h_crit"`

	// RankTolerance is the singular-value cutoff for numerical rank
	// (default 1e-10).
	RankTolerance float64 `yaml:"rank_tolerance"`
}

// BatchConfig controls how many jobs are evaluated concurrently.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// ReportConfig controls where the metrics report is written.
type ReportConfig struct {
	// Output is a file path, or "-" for stdout.
	Output string `yaml:"output"`
}

// LogConfig sets the slog level: debug | info | warn | error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Rule defines a threshold condition checked against every job result.
type Rule struct {
	// Name is the human-readable identifier, unique per config.
	Name string `yaml:"name"`

	// Condition is "field operator value", e.g. "fod < 1" or "energy >= 1".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info. Defaults to warning.
	Severity string `yaml:"severity"`
}

// Params converts the pruning section into operator parameters.
func (c *Config) Params() pruning.Params {
	return pruning.Params{HCrit: c.Pruning.HCrit, RankTolerance: c.Pruning.RankTolerance}
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values. It is what
// Load starts from and what the CLI uses when no config file is given.
func Default() *Config {
	return &Config{
		Pruning: PruningConfig{
			HCrit:         pruning.DefaultHCrit,
			RankTolerance: pruning.DefaultRankTolerance,
		},
		Batch:  BatchConfig{Workers: DefaultWorkers},
		Report: ReportConfig{Output: DefaultOutput},
		Log:    LogConfig{Level: DefaultLogLevel},
	}
}

// ruleFields are the Result fields a rule condition may reference.
var ruleFields = map[string]bool{
	"energy":          true,
	"fod":             true,
	"rank":            true,
	"features_kept":   true,
	"features_pruned": true,
	"edges_kept":      true,
	"edges_pruned":    true,
	"near_tolerance":  true,
}

// ruleOperators are the comparison operators a rule condition may use.
var ruleOperators = map[string]bool{">": true, ">=": true, "<": true, "<=": true, "==": true}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if err := cfg.Params().Validate(); err != nil {
		return fmt.Errorf("pruning: %w", err)
	}
	if cfg.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive")
	}
	if cfg.Report.Output == "" {
		return fmt.Errorf("report.output is required (use \"-\" for stdout)")
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}

	seen := make(map[string]bool, len(cfg.Rules))
	for i, r := range cfg.Rules {
		if r.Name == "" {
			return fmt.Errorf("rules[%d]: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("rules[%d]: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = true
		if _, err := r.Parse(); err != nil {
			return fmt.Errorf("rules[%d] %q: %w", i, r.Name, err)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	return nil
}

// Condition is a parsed rule condition.
type Condition struct {
	Field string
	Op    string
	Value float64
}

// Parse splits r.Condition into field, operator and numeric value and
// checks each against the supported sets.
func (r Rule) Parse() (Condition, error) {
	parts := strings.Fields(r.Condition)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want \"field operator value\"", r.Condition)
	}
	field, op, rhs := parts[0], parts[1], parts[2]
	if !ruleFields[field] {
		return Condition{}, fmt.Errorf("condition %q: unknown field %q", r.Condition, field)
	}
	if !ruleOperators[op] {
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", r.Condition, op)
	}
	v, err := strconv.ParseFloat(rhs, 64)
	if err != nil || math.IsNaN(v) {
		return Condition{}, fmt.Errorf("condition %q: value %q is not a number", r.Condition, rhs)
	}
	return Condition{Field: field, Op: op, Value: v}, nil
}
