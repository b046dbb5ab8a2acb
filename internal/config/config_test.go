package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
pruning:
  h_crit: 2.5
  rank_tolerance: 1e-8
batch:
  workers: 8
report:
  output: /tmp/bpets.prom
log:
  level: debug
rules:
  - name: low-dexterity
    condition: "fod < 1"
    severity: critical
`
	cfg := loadFromString(t, yaml)

	if cfg.Pruning.HCrit != 2.5 {
		t.Errorf("h_crit: got %v", cfg.Pruning.HCrit)
	}
	if cfg.Pruning.RankTolerance != 1e-8 {
		t.Errorf("rank_tolerance: got %v", cfg.Pruning.RankTolerance)
	}
	if cfg.Batch.Workers != 8 {
		t.Errorf("workers: got %d", cfg.Batch.Workers)
	}
	if cfg.Report.Output != "/tmp/bpets.prom" {
		t.Errorf("output: got %q", cfg.Report.Output)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level: got %v", cfg.SlogLevel())
	}
	if len(cfg.Rules) != 1 {
		t.Fatalf("rules: got %d, want 1", len(cfg.Rules))
	}
	if r := cfg.Rules[0]; r.Name != "low-dexterity" || r.Severity != "critical" {
		t.Errorf("rule: got %+v", r)
	}

	p := cfg.Params()
	if p.HCrit != 2.5 || p.RankTolerance != 1e-8 {
		t.Errorf("Params(): got %+v", p)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "pruning:\n  h_crit: 3\n")

	if cfg.Pruning.HCrit != 3 {
		t.Errorf("h_crit: got %v, want 3", cfg.Pruning.HCrit)
	}
	if cfg.Pruning.RankTolerance != 1e-10 {
		t.Errorf("default rank_tolerance: got %v, want 1e-10", cfg.Pruning.RankTolerance)
	}
	if cfg.Batch.Workers != DefaultWorkers {
		t.Errorf("default workers: got %d, want %d", cfg.Batch.Workers, DefaultWorkers)
	}
	if cfg.Report.Output != DefaultOutput {
		t.Errorf("default output: got %q, want %q", cfg.Report.Output, DefaultOutput)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("default level: got %v", cfg.SlogLevel())
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg := loadFromString(t, "")
	if cfg.Pruning.HCrit != 1.0 {
		t.Errorf("h_crit: got %v, want 1.0", cfg.Pruning.HCrit)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero h_crit", "pruning:\n  h_crit: 0\n"},
		{"negative h_crit", "pruning:\n  h_crit: -1\n"},
		{"negative tolerance", "pruning:\n  rank_tolerance: -1e-10\n"},
		{"zero workers", "batch:\n  workers: 0\n"},
		{"empty output", "report:\n  output: \"\"\n"},
		{"unknown log level", "log:\n  level: chatty\n"},
		{"rule without name", "rules:\n  - condition: \"fod < 1\"\n"},
		{"duplicate rule", "rules:\n  - name: a\n    condition: \"fod < 1\"\n  - name: a\n    condition: \"rank > 2\"\n"},
		{"unknown field", "rules:\n  - name: a\n    condition: \"throughput < 1\"\n"},
		{"unknown operator", "rules:\n  - name: a\n    condition: \"fod != 1\"\n"},
		{"non-numeric value", "rules:\n  - name: a\n    condition: \"fod < high\"\n"},
		{"two tokens", "rules:\n  - name: a\n    condition: \"fod<1\"\n"},
		{"unknown severity", "rules:\n  - name: a\n    condition: \"fod < 1\"\n    severity: meh\n"},
		{"malformed yaml", "pruning: [h_crit\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestRule_Parse(t *testing.T) {
	tests := []struct {
		cond  string
		field string
		op    string
		value float64
	}{
		{"fod < 1", "fod", "<", 1},
		{"energy >= 0.95", "energy", ">=", 0.95},
		{"  rank   ==   0 ", "rank", "==", 0},
		{"near_tolerance > 0", "near_tolerance", ">", 0},
		{"edges_pruned <= -2.5", "edges_pruned", "<=", -2.5},
	}
	for _, tc := range tests {
		t.Run(tc.cond, func(t *testing.T) {
			c, err := Rule{Name: "r", Condition: tc.cond}.Parse()
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if c.Field != tc.field || c.Op != tc.op || c.Value != tc.value {
				t.Errorf("Parse() = %+v, want {%s %s %v}", c, tc.field, tc.op, tc.value)
			}
		})
	}
}

func TestLoad_Severities(t *testing.T) {
	for _, sev := range []string{"critical", "warning", "info", ""} {
		t.Run("severity="+sev, func(t *testing.T) {
			yaml := `
rules:
  - name: r
    condition: "fod < 1"
    severity: "` + sev + `"
`
			cfg := loadFromString(t, yaml)
			if cfg.Rules[0].Severity != sev {
				t.Errorf("severity: got %q, want %q", cfg.Rules[0].Severity, sev)
			}
		})
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bpets.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}
