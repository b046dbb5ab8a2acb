package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/obinexus/bpets/internal/config"
	"github.com/obinexus/bpets/internal/job"
	"github.com/obinexus/bpets/internal/pipeline"
	"github.com/obinexus/bpets/internal/report"
	"github.com/obinexus/bpets/internal/rules"
)

// batch holds what one run needs and what survives between runs in watch
// mode: the current config, the rule engine and its firing state.
type batch struct {
	configPath string
	jobsPath   string
	outPath    string // empty: use cfg.Report.Output

	mu     sync.Mutex
	cfg    *config.Config
	engine *rules.Engine
}

func newBatch(cmd *cobra.Command) (*batch, error) {
	b := &batch{
		configPath: flagString(cmd, "config"),
		jobsPath:   flagString(cmd, "jobs"),
		outPath:    flagString(cmd, "out"),
	}
	if err := b.loadConfig(); err != nil {
		return nil, err
	}
	return b, nil
}

// loadConfig (re)reads the config file and rebuilds the rule engine. On
// failure the previous config stays in effect.
func (b *batch) loadConfig() error {
	cfg := config.Default()
	if b.configPath != "" {
		var err error
		if cfg, err = config.Load(b.configPath); err != nil {
			return err
		}
	}
	engine, err := rules.New(cfg.Rules)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.cfg, b.engine = cfg, engine
	b.mu.Unlock()

	logLevel.Set(cfg.SlogLevel())
	slog.Info("config loaded",
		"path", b.configPath,
		"workers", cfg.Batch.Workers,
		"h_crit", cfg.Pruning.HCrit,
		"rank_tolerance", cfg.Pruning.RankTolerance,
		"rules", len(cfg.Rules),
	)
	return nil
}

// run loads the jobs file, evaluates every job, applies the rules and
// writes the report.
func (b *batch) run(ctx context.Context) error {
	b.mu.Lock()
	cfg, engine := b.cfg, b.engine
	b.mu.Unlock()

	jobs, err := job.Load(b.jobsPath)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := pipeline.EvaluateAll(ctx, jobs, cfg.Params(), cfg.Batch.Workers)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(results))
	for _, res := range results {
		keep[res.JobID] = true
		engine.Evaluate(res)
	}
	engine.Forget(keep)

	out := cfg.Report.Output
	if b.outPath != "" {
		out = b.outPath
	}
	firing := engine.Active()
	if err := report.WriteFile(out, results, firing); err != nil {
		return err
	}

	slog.Info("batch complete",
		"jobs", len(results),
		"firing", len(firing),
		"output", out,
		"elapsed", time.Since(start),
	)
	return nil
}

// onChange returns the watch callback: reload the config when it changed,
// then re-run the batch. Errors are logged and the watcher keeps going.
func (b *batch) onChange(ctx context.Context) func(path string) {
	configAbs := ""
	if b.configPath != "" {
		configAbs, _ = filepath.Abs(b.configPath)
	}
	return func(path string) {
		if path == configAbs {
			if err := b.loadConfig(); err != nil {
				slog.Error("config reload failed, keeping previous config", "err", err)
				return
			}
		}
		if err := b.run(ctx); err != nil {
			slog.Error("batch failed", "err", fmt.Errorf("after change to %s: %w", path, err))
		}
	}
}
