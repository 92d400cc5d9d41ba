package contextwatch

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/meridianhq/agentdesk/pkg/models"
)

// Estimator approximates token counts for transcripts whose provider
// usage counters are absent. The cl100k vocabulary is close enough for
// a warning-threshold estimate.
type Estimator struct {
	codec tokenizer.Codec
}

// NewEstimator loads the cl100k tokenizer.
func NewEstimator() (*Estimator, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &Estimator{codec: codec}, nil
}

// Count returns the token count of one text block.
func (e *Estimator) Count(text string) (int, error) {
	ids, _, err := e.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return len(ids), nil
}

// CountMessages estimates the combined token count of a transcript,
// with a small per-message overhead for role framing.
func (e *Estimator) CountMessages(messages []models.Message) (int, error) {
	const perMessageOverhead = 4
	total := 0
	for _, msg := range messages {
		n, err := e.Count(msg.Content)
		if err != nil {
			return 0, err
		}
		total += n + perMessageOverhead
	}
	return total, nil
}
