// Package pruning implements the dimension-control pruning operators.
//
// pruning.go: PruneNodes masks feature slices of a (Time, Space, Feature,
// Channel) tensor whose weight is below tau and returns the normalized
// Hamiltonian energy H_norm = min(1, sum(w)/HCrit).
//
// edges.go: PruneEdges keeps an adjacency entry when its edge weight clears
// tau or both endpoints belong to the same cluster.
//
// fod.go: ComputeFODScore flattens a pruned tensor, counts singular values
// above RankTolerance and maps the rank to a Freedom-of-Dexterity score in
// [0, 6] as rank * (1 - H_norm).
//
// All operators are pure: inputs are never modified and no state is shared
// between calls, so they are safe for concurrent use. HCrit and
// RankTolerance travel in Params; the package-level functions use
// DefaultParams. Failures wrap ErrShapeMismatch or ErrInvalidInput.
package pruning
