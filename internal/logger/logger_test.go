package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

func TestLogger_IncludesStackAndServiceOnError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "sideb-test", "info")
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	line := lastNonEmptyLine(buf.String())
	require.NotEmpty(t, line, "no output captured")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &payload), line)
	assert.Equal(t, "sideb-test", payload["service"])
	assert.Equal(t, "error", payload["level"])
	assert.Contains(t, payload, "stack")
	assert.Contains(t, payload, "time")
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "sideb-test", "warn")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	loud := NewWithWriter(&buf, "sideb-test", "loud")
	loud.Debug().Msg("debug is below the info fallback")
	assert.Empty(t, buf.String())

	buf.Reset()
	disabled := NewWithWriter(&buf, "sideb-test", "disabled")
	disabled.Error().Msg("nothing")
	assert.Empty(t, buf.String())
}
