package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valentin-kaiser/omniversion/logging"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.Install(zerolog.New(&buf).Level(zerolog.DebugLevel))
	t.Cleanup(logging.Reset)
	return &buf
}

func TestLoggerFollowsInstall(t *testing.T) {
	logger := logging.For("logging-test")
	assert.False(t, logger.Enabled(zerolog.ErrorLevel))
	logger.Info().Msg("dropped")

	buf := capture(t)
	assert.True(t, logger.Enabled(zerolog.DebugLevel))
	assert.False(t, logger.Enabled(zerolog.TraceLevel))
	logger.Debug().Str("format", "n.n").Msg("compiled format")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "logging-test", entry["package"])
	assert.Equal(t, "n.n", entry["format"])
	assert.Equal(t, "compiled format", entry["message"])
}

func TestPackageLevel(t *testing.T) {
	buf := capture(t)
	logger := logging.For("logging-level")

	logging.SetPackageLevel("logging-level", zerolog.WarnLevel)
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, zerolog.WarnLevel, logging.PackageLevel("logging-level"))
	assert.Equal(t, zerolog.DebugLevel, logging.PackageLevel("other"))
	assert.Equal(t, []string{"logging-level"}, logging.Packages())

	logger.Warn().Msg("visible")
	assert.Contains(t, buf.String(), "visible")

	logging.ResetPackageLevel("logging-level")
	assert.Empty(t, logging.Packages())
	assert.True(t, logger.Enabled(zerolog.InfoLevel))
}

func TestPackageLevelCannotLowerInstalledLevel(t *testing.T) {
	var buf bytes.Buffer
	logging.Install(zerolog.New(&buf).Level(zerolog.WarnLevel))
	t.Cleanup(logging.Reset)

	logging.SetPackageLevel("logging-low", zerolog.DebugLevel)
	logging.For("logging-low").Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, zerolog.WarnLevel, logging.PackageLevel("logging-low"))
}

func TestDisabledPackage(t *testing.T) {
	buf := capture(t)
	logging.SetPackageLevel("logging-off", zerolog.Disabled)

	logger := logging.For("logging-off")
	assert.False(t, logger.Enabled(zerolog.ErrorLevel))
	logger.Error().Msg("hidden")
	assert.Empty(t, buf.String())

	logging.ResetPackageLevel("logging-off")
	logger.Error().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestResetDiscardsEvents(t *testing.T) {
	buf := capture(t)
	logging.SetPackageLevel("logging-reset", zerolog.ErrorLevel)

	logging.Reset()
	assert.Empty(t, logging.Packages())
	logging.For("logging-reset").Error().Msg("hidden")
	assert.Empty(t, buf.String())
}
