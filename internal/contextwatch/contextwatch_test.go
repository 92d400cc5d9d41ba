package contextwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestClassify_TableDriven tests the usage classification thresholds.
func TestClassify_TableDriven(t *testing.T) {
	tests := []struct {
		name          string
		inputTokens   int
		contextWindow int
		isCompacting  bool
		wantState     State
		wantRatio     float64
		wantThreshold int
	}{
		{
			name:          "warning at eighty percent of compaction threshold",
			inputTokens:   62000,
			contextWindow: 100000,
			wantState:     StateWarning,
			wantRatio:     0.80,
			wantThreshold: 77500,
		},
		{
			name:          "normal below warning threshold",
			inputTokens:   50000,
			contextWindow: 100000,
			wantState:     StateNormal,
			wantRatio:     0.645,
			wantThreshold: 77500,
		},
		{
			name:          "no data when tokens absent",
			inputTokens:   0,
			contextWindow: 100000,
			wantState:     StateNoData,
			wantThreshold: 77500,
		},
		{
			name:          "no data when tokens negative",
			inputTokens:   -5,
			contextWindow: 100000,
			wantState:     StateNoData,
			wantThreshold: 77500,
		},
		{
			name:          "no data when window missing",
			inputTokens:   1000,
			contextWindow: 0,
			wantState:     StateNoData,
		},
		{
			name:          "compacting overrides numbers",
			inputTokens:   10,
			contextWindow: 100000,
			isCompacting:  true,
			wantState:     StateCompacting,
			wantRatio:     float64(10) / 77500,
			wantThreshold: 77500,
		},
		{
			name:          "compacting with no tokens still compacting",
			inputTokens:   0,
			contextWindow: 100000,
			isCompacting:  true,
			wantState:     StateCompacting,
			wantThreshold: 77500,
		},
		{
			name:          "floor on odd window",
			inputTokens:   1,
			contextWindow: 99999,
			wantState:     StateNormal,
			wantRatio:     float64(1) / 77499,
			wantThreshold: 77499, // floor(99999 * 0.775)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.inputTokens, tt.contextWindow, tt.isCompacting)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantThreshold, got.CompactionThreshold)
			assert.InDelta(t, tt.wantRatio, got.Ratio, 0.0001)
		})
	}
}

// TestWarningThreshold tests the exact warning boundary.
func TestWarningThreshold(t *testing.T) {
	// warning = 80% of 77500 = 62000
	assert.Equal(t, StateNormal, Classify(61999, 100000, false).State)
	assert.Equal(t, StateWarning, Classify(62000, 100000, false).State)
	assert.Equal(t, StateWarning, Classify(99000, 100000, false).State)
}
