package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/api/response"
	"github.com/newthinker/lunar/internal/archive"
	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/lunar"
	"github.com/newthinker/lunar/internal/narrator"
	"github.com/newthinker/lunar/internal/session"
	"go.uber.org/zap"
)

// CreateSessionRequest is the request body for starting a session.
type CreateSessionRequest struct {
	Days int `json:"days"`
}

// ExportRequest is the request body for exporting a session snapshot.
type ExportRequest struct {
	Format string `json:"format"`
}

// DayView is one row of a series as served to clients.
type DayView struct {
	Date               string  `json:"date"`
	Price              float64 `json:"price"`
	PriceChangePercent float64 `json:"price_change_percent"`
	PhaseIndex         int     `json:"phase_index"`
	PhaseName          string  `json:"phase_name"`
	Glyph              string  `json:"glyph"`
}

// SeriesView pairs a session summary with its series.
type SeriesView struct {
	Session session.Info `json:"session"`
	Days    []DayView    `json:"days"`
}

// AnalyticsView is a report with its narrated outlook.
type AnalyticsView struct {
	Session   session.Info       `json:"session"`
	Report    *analytics.Report  `json:"report"`
	Narration narrator.Narration `json:"narration"`
}

// SessionHandler handles session API requests.
type SessionHandler struct {
	store    *session.Store
	narrator *narrator.Narrator
	exporter *archive.Exporter
	sim      config.SimulationConfig
	logger   *zap.Logger
}

// NewSessionHandler creates a new session handler. exporter may be nil.
func NewSessionHandler(
	store *session.Store,
	narr *narrator.Narrator,
	exporter *archive.Exporter,
	sim config.SimulationConfig,
	logger *zap.Logger,
) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if narr == nil {
		narr = narrator.New(nil, 0, 0, logger)
	}
	return &SessionHandler{
		store:    store,
		narrator: narr,
		exporter: exporter,
		sim:      sim,
		logger:   logger,
	}
}

// CanExport reports whether an exporter is configured.
func (h *SessionHandler) CanExport() bool {
	return h.exporter != nil
}

// Create starts a session. A missing days field uses the configured default.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		response.Fail(w, err)
		return
	}
	if req.Days == 0 {
		req.Days = h.sim.DefaultDays
	}
	if err := h.sim.CheckDays(req.Days); err != nil {
		response.Fail(w, err)
		return
	}

	sess, err := h.store.Create(req.Days)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, sess.Info())
}

// List returns every live session.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.List()
	response.JSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// Get returns a session summary.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, sess.Info())
}

// Delete ends a session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.PathValue("id")); err != nil {
		response.Fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Series returns the session's series. The optional days query parameter
// switches the session's day count; the series for a day count is stable
// until refresh.
func (h *SessionHandler) Series(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var (
		series core.Series
		err    error
	)
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, convErr := strconv.Atoi(raw)
		if convErr != nil {
			response.Fail(w, core.WrapError(core.ErrInvalidArgument, fmt.Errorf("days %q is not an integer", raw)))
			return
		}
		if err := h.sim.CheckDays(days); err != nil {
			response.Fail(w, err)
			return
		}
		series, err = sess.Series(days)
	} else {
		series, err = sess.Current()
	}
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, SeriesView{Session: sess.Info(), Days: dayViews(series)})
}

// Refresh resamples the session's series.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	series, err := sess.Refresh()
	if err != nil {
		response.Fail(w, err)
		return
	}
	h.logger.Debug("session refreshed",
		zap.String("session_id", sess.ID()),
		zap.Int("days", len(series)),
	)
	response.JSON(w, http.StatusOK, SeriesView{Session: sess.Info(), Days: dayViews(series)})
}

// Analytics returns the report and narrated outlook.
func (h *SessionHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	report, err := sess.Analytics()
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, AnalyticsView{
		Session:   sess.Info(),
		Report:    report,
		Narration: h.narrator.Narrate(r.Context(), report),
	})
}

// Forecast draws a next-day forecast. Every call draws anew.
func (h *SessionHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	f, err := sess.Forecast()
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, f)
}

// BestPhase returns the phase with the highest mean change.
func (h *SessionHandler) BestPhase(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	best, err := sess.BestPhase()
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, best)
}

// Export writes a snapshot of the session to the archive.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.exporter == nil {
		response.Error(w, http.StatusNotImplemented,
			core.WrapError(core.ErrConfigMissing, errors.New("no archive configured")))
		return
	}

	var req ExportRequest
	if err := decodeBody(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	current, err := sess.Snapshot()
	if err != nil {
		response.Fail(w, err)
		return
	}

	snap := &archive.Snapshot{
		GeneratedAt:  time.Now().UTC(),
		SessionID:    current.Info.ID,
		RefreshToken: current.Info.RefreshToken,
		Series:       current.Series,
		Report:       current.Report,
		Narration:    h.narrator.Narrate(r.Context(), current.Report),
	}
	path, err := h.exporter.Export(r.Context(), snap, req.Format, "")
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]any{
		"path":   path,
		"format": formatOrDefault(req.Format),
	})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return nil, false
	}
	return sess, true
}

// decodeBody decodes an optional JSON body; an empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return core.WrapError(core.ErrInvalidArgument, fmt.Errorf("decoding body: %w", err))
}

func formatOrDefault(format string) string {
	if format == "" {
		return archive.FormatJSON
	}
	return format
}

func dayViews(series core.Series) []DayView {
	out := make([]DayView, len(series))
	for i, d := range series {
		p := lunar.FromIndex(d.PhaseIndex)
		out[i] = DayView{
			Date:               d.Date.Format(core.DateLayout),
			Price:              d.Price,
			PriceChangePercent: d.PriceChangePercent,
			PhaseIndex:         d.PhaseIndex,
			PhaseName:          p.Name(),
			Glyph:              p.Glyph(),
		}
	}
	return out
}
