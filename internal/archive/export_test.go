package archive

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/narrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type exportCounter struct {
	ok, failed int
}

func (c *exportCounter) RecordExport(_ string, err error) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	series := core.Series{
		{Date: start, Price: 145, PhaseIndex: 4, PriceChangePercent: 1.5},
		{Date: start.AddDate(0, 0, 1), Price: 146.2, PhaseIndex: 4, PriceChangePercent: 0.83},
	}
	report, err := analytics.Run(series)
	require.NoError(t, err)

	return &Snapshot{
		GeneratedAt:  time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC),
		SessionID:    "abc",
		RefreshToken: 2,
		Series:       series,
		Report:       report,
		Narration:    narrator.Narration{Text: narrator.Rules(report), Source: narrator.SourceRules},
	}
}

func TestEncode_JSON(t *testing.T) {
	data, contentType, err := Encode(testSnapshot(t), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded["session_id"])
	assert.Len(t, decoded["series"], 2)

	report := decoded["report"].(map[string]any)
	newMoon := report["new_moon_effect"].(map[string]any)
	assert.Nil(t, newMoon["mean_change_percent"], "undefined effect encodes as null")
	assert.NotContains(t, decoded, "forecast")
}

func TestEncode_YAML(t *testing.T) {
	data, contentType, err := Encode(testSnapshot(t), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "application/yaml", contentType)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded["session_id"])
	assert.Equal(t, 2, decoded["refresh_token"])
	assert.Contains(t, string(data), "source: rules")
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, _, err := Encode(testSnapshot(t), "xml")
	assert.True(t, errors.Is(err, core.ErrInvalidArgument))
}

func TestSnapshotPath(t *testing.T) {
	got := SnapshotPath(testSnapshot(t), FormatYAML)
	assert.Equal(t, "reports/2025-03-03/lunar-2d-093000.000000000.yaml", got)
}

func TestExporter_Export(t *testing.T) {
	dir := t.TempDir()
	store, err := New(config.ArchiveConfig{Type: "localfs", Path: dir})
	require.NoError(t, err)

	exp := NewExporter(store, nil)
	counter := &exportCounter{}
	exp.SetRecorder(counter)

	ctx := context.Background()
	path, err := exp.Export(ctx, testSnapshot(t), "", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	custom, err := exp.Export(ctx, testSnapshot(t), FormatYAML, "custom/out.yaml")
	require.NoError(t, err)
	assert.Equal(t, "custom/out.yaml", custom)

	listed, err := exp.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, listed)

	_, err = exp.Export(ctx, testSnapshot(t), "csv", "")
	assert.Error(t, err)
	assert.Equal(t, 2, counter.ok)
	assert.Equal(t, 1, counter.failed)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(config.ArchiveConfig{Type: "tape"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
