// Package config loads and watches the bpets configuration file (bpets.yaml).
//
// Top-level types:
//   - Config{Pruning, Batch, Report, Log, Rules}: full config tree parsed from YAML
//   - PruningConfig: h_crit, rank_tolerance; Params() converts to pruning.Params
//   - BatchConfig: workers used by pipeline.EvaluateAll
//   - ReportConfig: output path for the metrics report ("-" = stdout)
//   - Rule: name, condition ("fod < 1"), severity (critical|warning|info)
//
// Load(path) reads the YAML file, applies defaults (h_crit 1.0, rank tolerance
// 1e-10, 4 workers, stdout, info), then validates ranges, enums and rule
// conditions.
//
// Watch(ctx, onChange, paths...) uses fsnotify on the parent directories so
// the rename→create pattern of atomic-save editors (vim, VS Code) is seen,
// and debounces bursts into one onChange call per file.
package config
