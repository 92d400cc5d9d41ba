package contextwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/agentdesk/pkg/models"
)

// TestEstimatorCount tests basic token counting.
func TestEstimatorCount(t *testing.T) {
	est, err := NewEstimator()
	require.NoError(t, err)

	n, err := est.Count("hello world")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Less(t, n, 10)

	zero, err := est.Count("")
	require.NoError(t, err)
	assert.Equal(t, 0, zero)
}

// TestEstimatorCountMessages tests transcript-level estimation.
func TestEstimatorCountMessages(t *testing.T) {
	est, err := NewEstimator()
	require.NoError(t, err)

	messages := []models.Message{
		{Role: models.RoleUser, Content: "summarize the design document"},
		{Role: models.RoleAssistant, Content: "the document describes a session engine"},
	}
	total, err := est.CountMessages(messages)
	require.NoError(t, err)

	single, err := est.Count(messages[0].Content)
	require.NoError(t, err)
	assert.Greater(t, total, single)
}
