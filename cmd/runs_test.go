package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/pavement-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Kind:      store.KindPSV,
			Sources:   []string{"segments.xlsx", "reference.csv"},
			Rows:      42,
			CreatedAt: now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Kind:      store.KindTRACS,
			Sources:   []string{"a-very-long-survey-export-file-name-from-the-contractor.xlsx"},
			Rows:      3,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "KIND")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "psv")
	assert.Contains(t, output, "42")
	assert.Contains(t, output, "segments.xlsx, reference.csv")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "tracs")
	assert.Contains(t, output, "...")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
