package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Archive.Path = t.TempDir()
	return cfg
}

func TestNew_WiresComponents(t *testing.T) {
	a, err := New(testConfig(t), nil, Options{Source: random.NewSeeded(3)})
	require.NoError(t, err)

	assert.NotNil(t, a.Generator())
	assert.NotNil(t, a.Forecaster())
	assert.NotNil(t, a.Sessions())
	assert.NotNil(t, a.Narrator())
	assert.NotNil(t, a.Exporter())
	assert.NotNil(t, a.Server())

	stats := a.Stats()
	assert.Equal(t, false, stats["running"])
	assert.Equal(t, 0, stats["sessions"])
}

func TestNew_DefersArchiveUntilExport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Path = filepath.Join(t.TempDir(), "exports")

	a, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	_, err = os.Stat(cfg.Archive.Path)
	assert.True(t, os.IsNotExist(err), "wiring must not touch the archive")

	paths, err := a.Exporter().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, paths)
	_, err = os.Stat(cfg.Archive.Path)
	assert.NoError(t, err)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "carrier-pigeon"

	_, err := New(cfg, nil, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestNew_BadSweepSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sessions.SweepSchedule = "every now and then"

	_, err := New(cfg, nil, Options{})
	assert.Error(t, err)
}

func TestApp_ServesSessionsAndMetrics(t *testing.T) {
	a, err := New(testConfig(t), nil, Options{Source: random.NewSeeded(5)})
	require.NoError(t, err)

	h := a.Server().Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"days":7}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, a.Sessions().Len())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lunar_series_generated_total 1")
	assert.Contains(t, rec.Body.String(), "lunar_sessions_active 1")
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false

	a, err := New(cfg, nil, Options{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApp_StartStop(t *testing.T) {
	a, err := New(testConfig(t), nil, Options{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- a.Start(context.Background())
	}()

	require.Eventually(t, func() bool {
		return a.Stats()["running"] == true
	}, time.Second, 10*time.Millisecond)

	assert.Error(t, a.Start(context.Background()), "second start must fail")

	a.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, false, a.Stats()["running"])
}
