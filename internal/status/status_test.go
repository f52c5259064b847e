package status_test

import (
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_LastWriteWins(t *testing.T) {
	t.Parallel()

	reporter := status.NewReporter(nil)
	reporter.Info("Preparing download...")
	reporter.Error("Error: boom")

	assert.Equal(t, status.Status{Message: "Error: boom", Severity: status.SeverityError}, reporter.Current())
}

func TestReporter_ClearEmptiesSlot(t *testing.T) {
	t.Parallel()

	reporter := status.NewReporter(nil)
	reporter.Success("File loaded successfully!")
	reporter.Clear()

	assert.True(t, reporter.Current().IsZero())
	assert.Empty(t, reporter.Current().Severity.String())
}

func TestReporter_SubscribersSeeEveryChange(t *testing.T) {
	t.Parallel()

	reporter := status.NewReporter(nil)

	var seen []status.Status

	reporter.Subscribe(func(s status.Status) {
		seen = append(seen, s)
	})

	reporter.Info("Playing audio...")
	reporter.Clear()

	require.Len(t, seen, 2)
	assert.Equal(t, status.SeverityInfo, seen[0].Severity)
	assert.True(t, seen[1].IsZero())
}

func TestReporter_WritesToLogger(t *testing.T) {
	t.Parallel()

	log, err := logger.New(t.TempDir(), "status-test.log")
	require.NoError(t, err)

	defer func() { _ = log.Close() }()

	reporter := status.NewReporter(log)
	reporter.Error("Error reading file")

	assert.Equal(t, "Error reading file", reporter.Current().Message)
}

func TestSeverity_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "info", status.SeverityInfo.String())
	assert.Equal(t, "success", status.SeveritySuccess.String())
	assert.Equal(t, "error", status.SeverityError.String())
	assert.Equal(t, "unknown", status.Severity(42).String())
}
