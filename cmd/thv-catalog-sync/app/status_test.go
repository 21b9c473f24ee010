package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-catalog-sync/internal/status"
)

func testStatuses() map[string]*status.CycleStatus {
	attempt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	success := attempt.Add(2 * time.Second)
	return map[string]*status.CycleStatus{
		"tables": {
			Phase:       status.CyclePhaseFailed,
			Message:     "metadata types unavailable",
			CycleCount:  3,
			LastAttempt: &attempt,
		},
		"topics": {
			Phase:       status.CyclePhaseComplete,
			CycleCount:  12,
			LastAttempt: &attempt,
			LastSuccess: &success,
			LastSummary: &status.CycleSummary{Records: 5, Elements: 5, Applied: 2, Skipped: 3},
		},
	}
}

func TestRenderStatuses_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, renderStatuses(&buf, testStatuses(), "table"))

	out := buf.String()
	tablesAt := strings.Index(out, "tables")
	topicsAt := strings.Index(out, "topics")
	require.NotEqual(t, -1, tablesAt)
	require.NotEqual(t, -1, topicsAt)
	assert.Less(t, tablesAt, topicsAt, "rows are sorted by connector name")

	assert.Contains(t, out, "Complete")
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "metadata types unavailable")
	assert.Contains(t, out, "2026-03-01T10:00:02Z")
}

func TestRenderStatuses_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, renderStatuses(&buf, testStatuses(), "JSON"))

	var decoded map[string]*status.CycleStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Contains(t, decoded, "topics")
	assert.Equal(t, status.CyclePhaseComplete, decoded["topics"].Phase)
	assert.Equal(t, 2, decoded["topics"].LastSummary.Applied)
}

func TestRenderStatuses_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, renderStatuses(&buf, testStatuses(), "yaml"))

	var decoded map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Failed", decoded["tables"]["phase"])
}

func TestRenderStatuses_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	err := renderStatuses(&bytes.Buffer{}, testStatuses(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", formatTime(nil))
	assert.Equal(t, "-", formatTime(&time.Time{}))

	ts := time.Date(2026, 3, 1, 11, 0, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "2026-03-01T10:00:00Z", formatTime(&ts))
}
