package alerts

import (
	"math"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
)

// thresholdTolerance is the float comparison slack applied to equality
// and inequality operators so "== 80" matches 79.995 sampled at a slightly
// different instant (spec §4.4). It applies uniformly across metric types,
// including ones that are conceptually integer counts (sessions, threats).
const thresholdTolerance = 0.01

// EvaluateThreshold reports whether actual crosses threshold under op.
func EvaluateThreshold(actual, threshold float64, op models.Operator) bool {
	switch op {
	case models.OpGT:
		return actual > threshold
	case models.OpLT:
		return actual < threshold
	case models.OpGE:
		return actual >= threshold
	case models.OpLE:
		return actual <= threshold
	case models.OpEQ:
		return math.Abs(actual-threshold) <= thresholdTolerance
	case models.OpNE:
		return math.Abs(actual-threshold) > thresholdTolerance
	default:
		return false
	}
}
