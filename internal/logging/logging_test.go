package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-match-client/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestJSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "PROD", "debug")
	logger.Debug().Str("component", "session").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "session", line["component"])
	require.Equal(t, "debug", line["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "PROD", "warn")
	logger.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "PROD", "chatty")
	logger.Debug().Msg("dropped")
	logger.Info().Msg("kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}

func TestConsoleWriterInDev(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "DEV", "info")
	logger.Info().Msg("pretty")
	require.Contains(t, buf.String(), "pretty")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
