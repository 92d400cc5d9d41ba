// Package contextwatch classifies context-window consumption for a
// conversation and estimates token counts when the provider reports
// none.
package contextwatch

// State is the ternary usage classification, plus the compacting
// override.
type State string

const (
	// StateNoData means no usable token count was supplied; distinct
	// from zero usage.
	StateNoData State = "no-data"
	// StateNormal means usage is below the warning threshold.
	StateNormal State = "normal"
	// StateWarning means the UI should offer a manual compaction action.
	StateWarning State = "warning"
	// StateCompacting means a compaction is in progress and overrides
	// the numeric comparison.
	StateCompacting State = "compacting"
)

// compactionNumerator/Denominator encode the 0.775 auto-compact point
// in integer math so the floor is exact.
const (
	compactionNumerator   = 775
	compactionDenominator = 1000
)

// Usage is the derived context consumption for one conversation.
type Usage struct {
	State State `json:"state"`
	// Ratio is inputTokens over the compaction threshold: 1.0 means the
	// upstream runtime is about to auto-compact.
	Ratio float64 `json:"ratio"`
	// CompactionThreshold is floor(contextWindow * 0.775), the token
	// count at which the upstream agent runtime auto-compacts.
	CompactionThreshold int `json:"compactionThreshold"`
	// WarningThreshold is 80% of the compaction threshold.
	WarningThreshold int `json:"warningThreshold"`
}

// Classify derives the usage state from the tokens consumed so far, the
// model's context window, and whether a compaction is already running.
// Pure and stateless: this engine never triggers compaction itself.
func Classify(inputTokens, contextWindow int, isCompacting bool) Usage {
	u := Usage{State: StateNormal}
	if contextWindow > 0 {
		u.CompactionThreshold = contextWindow * compactionNumerator / compactionDenominator
		u.WarningThreshold = u.CompactionThreshold * 80 / 100
	}

	if isCompacting {
		u.State = StateCompacting
		if u.CompactionThreshold > 0 && inputTokens > 0 {
			u.Ratio = float64(inputTokens) / float64(u.CompactionThreshold)
		}
		return u
	}

	if inputTokens <= 0 || u.CompactionThreshold <= 0 {
		u.State = StateNoData
		return u
	}

	u.Ratio = float64(inputTokens) / float64(u.CompactionThreshold)
	if inputTokens >= u.WarningThreshold {
		u.State = StateWarning
	}
	return u
}
