package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/narrator"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Snapshot is everything known about one series at export time.
type Snapshot struct {
	GeneratedAt  time.Time           `json:"generated_at" yaml:"generated_at"`
	SessionID    string              `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	RefreshToken uint64              `json:"refresh_token" yaml:"refresh_token"`
	Series       core.Series         `json:"series" yaml:"series"`
	Report       *analytics.Report   `json:"report" yaml:"report"`
	Narration    narrator.Narration  `json:"narration" yaml:"narration"`
	Forecast     *analytics.Forecast `json:"forecast,omitempty" yaml:"forecast,omitempty"`
}

// Recorder counts exports. metrics.Registry satisfies it.
type Recorder interface {
	RecordExport(format string, err error)
}

// Encode renders snap in format.
func Encode(snap *Snapshot, format string) ([]byte, string, error) {
	switch format {
	case "", FormatJSON:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encoding json: %w", err)
		}
		return append(data, '\n'), "application/json", nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return nil, "", fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, "", fmt.Errorf("encoding yaml: %w", err)
		}
		return buf.Bytes(), "application/yaml", nil
	default:
		return nil, "", core.WrapError(core.ErrInvalidArgument, fmt.Errorf("unknown export format %q", format))
	}
}

// Exporter encodes snapshots and writes them to a Storage.
type Exporter struct {
	storage  Storage
	recorder Recorder
	logger   *zap.Logger
}

// NewExporter creates an exporter over storage.
func NewExporter(storage Storage, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{storage: storage, logger: logger}
}

// SetRecorder routes export counts to rec.
func (e *Exporter) SetRecorder(rec Recorder) {
	e.recorder = rec
}

// Export writes snap and returns the path it was stored under. An empty
// path derives one from the snapshot time and day count.
func (e *Exporter) Export(ctx context.Context, snap *Snapshot, format, path string) (string, error) {
	if format == "" {
		format = FormatJSON
	}
	if path == "" {
		path = SnapshotPath(snap, format)
	}

	data, contentType, err := Encode(snap, format)
	if err == nil {
		err = e.storage.Write(ctx, path, data, contentType)
	}
	if e.recorder != nil {
		e.recorder.RecordExport(format, err)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("snapshot exported",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("days", len(snap.Series)),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}

// List returns stored snapshot paths.
func (e *Exporter) List(ctx context.Context) ([]string, error) {
	return e.storage.List(ctx, SnapshotDir)
}

// SnapshotDir is where derived snapshot paths live.
const SnapshotDir = "reports"

// SnapshotPath derives reports/<date>/lunar-<days>d-<time>.<ext>.
func SnapshotPath(snap *Snapshot, format string) string {
	at := snap.GeneratedAt.UTC()
	return fmt.Sprintf("%s/%s/lunar-%dd-%s.%s",
		SnapshotDir, at.Format(core.DateLayout), len(snap.Series), at.Format("150405.000000000"), format)
}
