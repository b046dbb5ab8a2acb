// Package report exports pipeline results in the Prometheus text exposition
// format and reads such reports back.
//
// Gather registers one GaugeVec per diagnostic (bpets_energy,
// bpets_fod_score, bpets_numerical_rank, ...) labelled by job, plus
// bpets_rule_firing{job,rule,severity}, on a private registry and returns
// the gathered families. Write/WriteFile encode them with expfmt so the
// report can be dropped into a node_exporter textfile directory or diffed
// between runs.
//
// Read/ReadFile parse a report with expfmt's TextParser; Summaries folds the
// families back into one row per job for `bpets inspect`.
package report
