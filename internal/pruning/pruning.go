package pruning

import (
	"errors"
	"fmt"
	"math"

	"github.com/obinexus/bpets/internal/tensor"
)

// Defaults for Params.
const (
	// DefaultHCrit is the critical energy the summed feature weight is
	// normalized against.
	DefaultHCrit = 1.0

	// DefaultRankTolerance is the singular-value cutoff for numerical rank.
	// Values within a decade of it may count differently across BLAS
	// implementations; see RankInfo.NearTolerance.
	DefaultRankTolerance = 1e-10
)

// FeatureAxis is the axis of a (Time, Space, Feature, Channel) tensor that
// node weights apply to.
const FeatureAxis = 2

// tensorAxes is the rank a node-pruning input must have.
const tensorAxes = 4

// Error taxonomy. Both are always wrapped with detail; test with errors.Is.
var (
	// ErrShapeMismatch means the declared dimensions of the inputs disagree.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidInput means an input is degenerate for the computation,
	// e.g. an empty matrix handed to the SVD.
	ErrInvalidInput = errors.New("invalid input")
)

// Params carries the two tunables of the pruning operators. The zero value
// is not usable; start from DefaultParams.
type Params struct {
	// HCrit normalizes the summed node weight into H_norm. Must be > 0.
	HCrit float64

	// RankTolerance is the exclusive lower bound a singular value must
	// exceed to count towards the numerical rank. Must be >= 0.
	RankTolerance float64
}

// DefaultParams returns Params{HCrit: 1.0, RankTolerance: 1e-10}.
func DefaultParams() Params {
	return Params{HCrit: DefaultHCrit, RankTolerance: DefaultRankTolerance}
}

// Validate checks that both fields are finite and in range.
func (p Params) Validate() error {
	if !(p.HCrit > 0) || math.IsInf(p.HCrit, 0) {
		return fmt.Errorf("%w: h_crit must be positive and finite, got %v", ErrInvalidInput, p.HCrit)
	}
	if !(p.RankTolerance >= 0) || math.IsInf(p.RankTolerance, 0) {
		return fmt.Errorf("%w: rank tolerance must be non-negative and finite, got %v", ErrInvalidInput, p.RankTolerance)
	}
	return nil
}

// PruneNodes applies node pruning with DefaultParams.
func PruneNodes(t *tensor.Tensor, w []float64, tau float64) (*tensor.Tensor, float64, error) {
	return DefaultParams().PruneNodes(t, w, tau)
}

// PruneNodes zeroes every feature slice T[:, :, f, :] whose weight w[f] is
// below tau and returns the pruned copy together with the normalized energy
// H_norm = min(1, sum(w)/HCrit). A weight equal to tau is kept. t is not
// modified.
func (p Params) PruneNodes(t *tensor.Tensor, w []float64, tau float64) (*tensor.Tensor, float64, error) {
	if t == nil {
		return nil, 0, fmt.Errorf("prune nodes: %w: nil tensor", ErrInvalidInput)
	}
	if t.NDim() != tensorAxes {
		return nil, 0, fmt.Errorf("prune nodes: %w: tensor has %d axes, want %d (time, space, feature, channel)",
			ErrShapeMismatch, t.NDim(), tensorAxes)
	}
	if f := t.Dim(FeatureAxis); len(w) != f {
		return nil, 0, fmt.Errorf("prune nodes: %w: %d weights for feature axis of length %d",
			ErrShapeMismatch, len(w), f)
	}

	energy, err := Energy(w, p.HCrit)
	if err != nil {
		return nil, 0, fmt.Errorf("prune nodes: %w", err)
	}

	pruned, err := t.MaskAxis(FeatureAxis, NodeMask(w, tau))
	if err != nil {
		return nil, 0, fmt.Errorf("prune nodes: %w: %v", ErrShapeMismatch, err)
	}
	return pruned, energy, nil
}

// NodeMask reports, per feature, whether w[f] >= tau.
func NodeMask(w []float64, tau float64) []bool {
	keep := make([]bool, len(w))
	for f, v := range w {
		keep[f] = v >= tau
	}
	return keep
}

// Energy returns min(1, sum(w)/hCrit). Negative weights lower the sum and
// there is no lower clamp. A NaN sum (a NaN weight, or +Inf and -Inf
// together) is ErrInvalidInput.
func Energy(w []float64, hCrit float64) (float64, error) {
	if !(hCrit > 0) || math.IsInf(hCrit, 0) {
		return 0, fmt.Errorf("%w: h_crit must be positive and finite, got %v", ErrInvalidInput, hCrit)
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	if math.IsNaN(sum) {
		return 0, fmt.Errorf("%w: weights sum to NaN", ErrInvalidInput)
	}
	return math.Min(1.0, sum/hCrit), nil
}
