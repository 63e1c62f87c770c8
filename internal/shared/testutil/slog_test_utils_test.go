package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecorder_KeepsBoundAttrs(t *testing.T) {
	logger, logs := NewTestLogger(t)

	fitLogger := logger.With(slog.String("group", "E1_P1_WT_ancestral_0_2024-01-01"))
	fitLogger.Warn("curve fit did not converge", slog.String("model", "hill"))
	logger.Info("MIC calculation complete", slog.Int("curves", 2))

	require.Equal(t, 2, logs.Count())
	assert.Len(t, logs.AtLevel(slog.LevelWarn), 1)
	assert.True(t, logs.ContainsMessage("calculation complete"))
	assert.True(t, logs.ContainsAttr("curves", int64(2)))
	AssertWarnAttr(t, logs, "did not converge", "model", "hill")
	AssertWarnAttr(t, logs, "did not converge", "group", "E1_P1_WT_ancestral_0_2024-01-01")
}

func TestLogRecorder_GroupsPrefixKeys(t *testing.T) {
	logger, logs := NewTestLogger(t)

	logger.WithGroup("fit").With(slog.String("model", "gompertz")).Info("fitted", slog.Float64("mic", 2))

	AssertLogAttr(t, logs, "fit.model", "gompertz")
	AssertLogAttr(t, logs, "fit.mic", 2.0)
	AssertLogContains(t, logs, slog.LevelInfo, "fitted")
	assert.Empty(t, logs.AtLevel(slog.LevelError))
}

func TestLogRecorder_DerivedLoggersShareRecords(t *testing.T) {
	logger, logs := NewTestLogger(t)

	logger.With("a", 1).Debug("one")
	logger.WithGroup("g").Error("two")

	assert.Equal(t, 2, logs.Count())
	assert.Len(t, logs.Records(nil), 2)
}
