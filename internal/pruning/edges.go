package pruning

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PruneEdges returns a copy of adj in which edge (i, j) survives when its
// weight w[i, j] >= tau or when both endpoints share a cluster, and is zero
// otherwise. Intra-cluster edges, and therefore the diagonal, are never
// pruned.
//
// adj must be square, w must have the same shape, and cluster must have one
// entry per row.
func PruneEdges(adj mat.Matrix, cluster []int, w mat.Matrix, tau float64) (*mat.Dense, error) {
	n, err := checkEdgeShapes(adj, cluster, w)
	if err != nil {
		return nil, fmt.Errorf("prune edges: %w", err)
	}

	keep := EdgeMask(cluster, w, tau)
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if keep[i][j] {
				out.Set(i, j, adj.At(i, j))
			}
		}
	}
	return out, nil
}

// EdgeMask evaluates the keep rule (w[i,j] >= tau) || (cluster[i] == cluster[j])
// for every pair. w must be len(cluster) x len(cluster).
func EdgeMask(cluster []int, w mat.Matrix, tau float64) [][]bool {
	n := len(cluster)
	keep := make([][]bool, n)
	for i := 0; i < n; i++ {
		keep[i] = make([]bool, n)
		for j := 0; j < n; j++ {
			keep[i][j] = w.At(i, j) >= tau || cluster[i] == cluster[j]
		}
	}
	return keep
}

func checkEdgeShapes(adj mat.Matrix, cluster []int, w mat.Matrix) (int, error) {
	if adj == nil || w == nil {
		return 0, fmt.Errorf("%w: nil matrix", ErrInvalidInput)
	}
	r, c := adj.Dims()
	if r != c {
		return 0, fmt.Errorf("%w: adjacency is %dx%d, want square", ErrShapeMismatch, r, c)
	}
	if r == 0 {
		return 0, fmt.Errorf("%w: empty adjacency", ErrInvalidInput)
	}
	if wr, wc := w.Dims(); wr != r || wc != c {
		return 0, fmt.Errorf("%w: edge weights are %dx%d, adjacency is %dx%d", ErrShapeMismatch, wr, wc, r, c)
	}
	if len(cluster) != r {
		return 0, fmt.Errorf("%w: %d cluster labels for %d features", ErrShapeMismatch, len(cluster), r)
	}
	return r, nil
}
