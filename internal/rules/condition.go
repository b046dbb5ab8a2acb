package rules

import (
	"github.com/obinexus/bpets/internal/config"
	"github.com/obinexus/bpets/internal/pipeline"
)

// evalCondition tests a parsed condition against a job result.
//
// Supported fields:
//
//	energy, fod, rank, features_kept, features_pruned,
//	edges_kept, edges_pruned, near_tolerance
//
// Returns (fires bool, observed value float64).
func evalCondition(c config.Condition, res *pipeline.Result) (bool, float64) {
	v, ok := numericField(c.Field, res)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.Op, c.Value), v
}

// numericField maps a field name to its value in the result.
func numericField(field string, res *pipeline.Result) (float64, bool) {
	switch field {
	case "energy":
		return res.Energy, true
	case "fod":
		return res.FOD, true
	case "rank":
		return float64(res.Rank), true
	case "features_kept":
		return float64(res.FeaturesKept), true
	case "features_pruned":
		return float64(res.FeaturesPruned), true
	case "edges_kept":
		return float64(res.EdgesKept), true
	case "edges_pruned":
		return float64(res.EdgesPruned), true
	case "near_tolerance":
		return float64(res.NearTolerance), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
