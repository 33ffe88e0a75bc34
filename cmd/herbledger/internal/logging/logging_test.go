package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)

	logger.Debug().Msg("hidden")
	logger.Info().Int64("batch_id", 7).Msg("batch created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "batch created", entry["message"])
	assert.Equal(t, float64(7), entry["batch_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_DebugConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true)

	logger.Debug().Msg("stage recorded")
	assert.Contains(t, buf.String(), "stage recorded")
	assert.False(t, json.Valid(buf.Bytes()))
}
