// Package pipeline chains the pruning operators into one evaluation per job.
//
// Evaluate(job, params) prunes the job's tensor, scores the result and, when
// the job has a graph, prunes its adjacency matrix. The returned Result
// carries the diagnostics (energy, rank, FOD) plus kept/pruned counts for
// reporting and rule evaluation.
//
// EvaluateAll fans a batch out over an errgroup with a worker limit. The
// operators share no state, so jobs need no synchronisation beyond the
// result slice, which each goroutine writes at its own index.
package pipeline
