package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/obinexus/bpets/internal/pruning"
	"github.com/obinexus/bpets/internal/tensor"
)

// Job is one unit of work: a (Time, Space, Feature, Channel) tensor with its
// feature weights and, optionally, the feature graph to prune alongside it.
type Job struct {
	ID      string
	Tensor  *tensor.Tensor
	Weights []float64
	Tau     float64

	// Graph is nil when the job has no adjacency input.
	Graph *Graph
}

// Graph is the edge/cluster pruning input of a Job.
type Graph struct {
	Adjacency   *mat.Dense
	EdgeWeights *mat.Dense
	Clusters    []int
	Tau         float64
}

// Result is the derived outcome of one Job.
type Result struct {
	JobID string

	// Energy is H_norm from node pruning.
	Energy float64

	// Rank is the numerical rank of the flattened pruned tensor.
	Rank int

	// FOD is the Freedom-of-Dexterity score in [0, 6].
	FOD float64

	FeaturesKept   int
	FeaturesPruned int

	// Edge counts cover non-zero adjacency entries only and are zero when
	// the job has no graph.
	EdgesKept   int
	EdgesPruned int

	// NearTolerance counts singular values close enough to the rank
	// tolerance that Rank may be off by that much on another platform.
	NearTolerance int

	Pruned    *tensor.Tensor
	Adjacency *mat.Dense // nil when the job has no graph
}

// Evaluate runs node pruning, FOD scoring and, when the job carries a
// graph, edge/cluster pruning. It is pure apart from logging.
func Evaluate(job Job, p pruning.Params) (*Result, error) {
	pruned, energy, err := p.PruneNodes(job.Tensor, job.Weights, job.Tau)
	if err != nil {
		return nil, fmt.Errorf("pipeline: job %q: %w", job.ID, err)
	}

	info, err := p.TensorRank(pruned)
	if err != nil {
		return nil, fmt.Errorf("pipeline: job %q: %w", job.ID, err)
	}
	fod, err := pruning.FODFromRank(info.Rank, energy)
	if err != nil {
		return nil, fmt.Errorf("pipeline: job %q: %w", job.ID, err)
	}

	out := &Result{
		JobID:         job.ID,
		Energy:        energy,
		Rank:          info.Rank,
		FOD:           fod,
		NearTolerance: info.NearTolerance,
		Pruned:        pruned,
	}
	for _, keep := range pruning.NodeMask(job.Weights, job.Tau) {
		if keep {
			out.FeaturesKept++
		} else {
			out.FeaturesPruned++
		}
	}

	if info.NearTolerance > 0 {
		slog.Warn("pipeline: singular values near rank tolerance, rank may vary across platforms",
			"job", job.ID,
			"rank", info.Rank,
			"near_tolerance", info.NearTolerance,
			"tolerance", p.RankTolerance,
		)
	}

	if g := job.Graph; g != nil {
		if g.Adjacency == nil || g.EdgeWeights == nil {
			return nil, fmt.Errorf("pipeline: job %q: %w: graph without adjacency or edge weights",
				job.ID, pruning.ErrInvalidInput)
		}
		adj, err := pruning.PruneEdges(g.Adjacency, g.Clusters, g.EdgeWeights, g.Tau)
		if err != nil {
			return nil, fmt.Errorf("pipeline: job %q: %w", job.ID, err)
		}
		out.Adjacency = adj
		out.EdgesKept, out.EdgesPruned = countEdges(g.Adjacency, adj)
	}

	slog.Debug("pipeline: job evaluated",
		"job", job.ID,
		"energy", out.Energy,
		"rank", out.Rank,
		"fod", out.FOD,
		"features_kept", out.FeaturesKept,
		"edges_kept", out.EdgesKept,
	)
	return out, nil
}

// EvaluateAll evaluates jobs with at most workers running at once and
// returns results in input order. The first failing job cancels the rest
// and its error is returned.
func EvaluateAll(ctx context.Context, jobs []Job, p pruning.Params, workers int) ([]*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Evaluate(jobs[i], p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// countEdges returns how many non-zero entries of before survive in after
// and how many were zeroed.
func countEdges(before, after mat.Matrix) (kept, pruned int) {
	r, c := before.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if before.At(i, j) == 0 {
				continue
			}
			if after.At(i, j) != 0 {
				kept++
			} else {
				pruned++
			}
		}
	}
	return kept, pruned
}
