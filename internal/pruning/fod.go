package pruning

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/obinexus/bpets/internal/tensor"
)

// MaxDegreesOfFreedom is the ceiling of the FOD score.
const MaxDegreesOfFreedom = 6.0

// nearToleranceFactor bounds the advisory window around the rank tolerance:
// tol/factor < s <= tol*factor.
const nearToleranceFactor = 10.0

// RankInfo is the outcome of a numerical-rank computation.
type RankInfo struct {
	// Rank is the count of singular values strictly greater than the tolerance.
	Rank int

	// SingularValues in descending order.
	SingularValues []float64

	// NearTolerance counts singular values within one decade of the
	// tolerance on either side. Non-zero means Rank may differ by that much
	// on another platform. Advisory only.
	NearTolerance int
}

// ComputeFODScore scores a pruned tensor with DefaultParams.
func ComputeFODScore(pruned *tensor.Tensor, energy float64) (float64, error) {
	return DefaultParams().ComputeFODScore(pruned, energy)
}

// ComputeFODScore returns the Freedom-of-Dexterity score of a pruned tensor:
//
//	fod = 6 * (rank / 6) * (1 - energy)   clamped to [0, 6]
//
// where rank is the numerical rank of the tensor flattened to
// (product of leading axes) x (last axis).
func (p Params) ComputeFODScore(pruned *tensor.Tensor, energy float64) (float64, error) {
	info, err := p.TensorRank(pruned)
	if err != nil {
		return 0, fmt.Errorf("fod score: %w", err)
	}
	fod, err := FODFromRank(info.Rank, energy)
	if err != nil {
		return 0, fmt.Errorf("fod score: %w", err)
	}
	return fod, nil
}

// FODFromRank maps a numerical rank and a normalized energy to the FOD
// score. The 6*(rank/6) factor equals rank; it is kept in this form so the
// score reads as a fraction of MaxDegreesOfFreedom.
func FODFromRank(rank int, energy float64) (float64, error) {
	if math.IsNaN(energy) {
		return 0, fmt.Errorf("%w: energy is NaN", ErrInvalidInput)
	}
	if rank <= 0 {
		// 0 * (1 - energy) would be NaN for an infinite energy.
		return 0, nil
	}
	fod := MaxDegreesOfFreedom * (float64(rank) / MaxDegreesOfFreedom) * (1 - energy)
	return clamp(fod, 0, MaxDegreesOfFreedom), nil
}

// TensorRank flattens t with tensor.Matrix and returns its numerical rank.
func (p Params) TensorRank(t *tensor.Tensor) (RankInfo, error) {
	if t == nil {
		return RankInfo{}, fmt.Errorf("%w: nil tensor", ErrInvalidInput)
	}
	m, err := t.Matrix()
	if err != nil {
		switch {
		case errors.Is(err, tensor.ErrEmpty):
			return RankInfo{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		case errors.Is(err, tensor.ErrShape):
			return RankInfo{}, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
		}
		return RankInfo{}, err
	}
	return p.Rank(m)
}

// Rank computes the singular values of m and counts those strictly greater
// than p.RankTolerance. NaN or infinite entries are rejected.
func (p Params) Rank(m mat.Matrix) (RankInfo, error) {
	if m == nil {
		return RankInfo{}, fmt.Errorf("%w: nil matrix", ErrInvalidInput)
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return RankInfo{}, fmt.Errorf("%w: %dx%d matrix has no singular values", ErrInvalidInput, r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return RankInfo{}, fmt.Errorf("%w: non-finite value %v at (%d, %d)", ErrInvalidInput, v, i, j)
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDNone); !ok {
		return RankInfo{}, fmt.Errorf("%w: singular value decomposition did not converge", ErrInvalidInput)
	}
	values := svd.Values(nil)
	for _, s := range values {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return RankInfo{}, fmt.Errorf("%w: singular values overflowed", ErrInvalidInput)
		}
	}

	tol := p.RankTolerance
	info := RankInfo{SingularValues: values}
	for _, s := range values {
		if s > tol {
			info.Rank++
		}
		if s > tol/nearToleranceFactor && s <= tol*nearToleranceFactor {
			info.NearTolerance++
		}
	}
	return info, nil
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
