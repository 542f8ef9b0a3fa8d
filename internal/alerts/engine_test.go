package alerts

import (
	"testing"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateThresholdComparisons(t *testing.T) {
	cases := []struct {
		name     string
		actual   float64
		op       models.Operator
		expected bool
	}{
		{"gt true", 90, models.OpGT, true},
		{"gt false", 70, models.OpGT, false},
		{"lt true", 10, models.OpLT, true},
		{"ge boundary", 80, models.OpGE, true},
		{"le boundary", 80, models.OpLE, true},
		{"eq within tolerance", 79.995, models.OpEQ, true},
		{"eq outside tolerance", 79.9, models.OpEQ, false},
		{"ne outside tolerance", 79.9, models.OpNE, true},
		{"ne within tolerance", 80.005, models.OpNE, false},
		{"unknown operator", 100, models.Operator("?"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, EvaluateThreshold(tc.actual, 80, tc.op))
		})
	}
}
