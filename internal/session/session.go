// Package session scopes a generated series to one interactive session.
//
// A session memoizes the series it generated for each day count so repeated
// reads stay stable. Only Refresh resamples; it also bumps the session's
// refresh token so clients can tell a new series from a cached one.
package session

import (
	"sync"
	"time"

	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/simulator"
)

// Info is a point-in-time summary of a session.
type Info struct {
	ID           string    `json:"id"`
	DayCount     int       `json:"day_count"`
	RefreshToken uint64    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
	RefreshedAt  time.Time `json:"refreshed_at"`
	LastAccessAt time.Time `json:"last_access_at"`
}

// Session owns the series generated on its behalf. Methods are safe for
// concurrent use; nothing is shared with other sessions.
type Session struct {
	id         string
	gen        *simulator.Generator
	forecaster *analytics.Forecaster
	recorder   Recorder
	now        func() time.Time

	mu           sync.Mutex
	dayCount     int
	cache        map[int]core.Series
	token        uint64
	createdAt    time.Time
	refreshedAt  time.Time
	lastAccessAt time.Time
}

func newSession(id string, gen *simulator.Generator, fc *analytics.Forecaster, rec Recorder, now func() time.Time) *Session {
	t := now()
	return &Session{
		id:           id,
		gen:          gen,
		forecaster:   fc,
		recorder:     rec,
		now:          now,
		cache:        make(map[int]core.Series),
		createdAt:    t,
		refreshedAt:  t,
		lastAccessAt: t,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Series returns the session's series for dayCount, generating it on first
// request. Later requests for the same day count return the same days until
// Refresh is called. The returned slice is a copy.
func (s *Session) Series(dayCount int) (core.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.seriesLocked(dayCount)
	if err != nil {
		return nil, err
	}
	return series.Tail(0), nil
}

func (s *Session) seriesLocked(dayCount int) (core.Series, error) {
	s.lastAccessAt = s.now()

	if series, ok := s.cache[dayCount]; ok {
		s.dayCount = dayCount
		return series, nil
	}

	series, err := s.gen.Generate(dayCount)
	if err != nil {
		return nil, err
	}
	s.cache[dayCount] = series
	s.dayCount = dayCount
	s.recorder.RecordSeriesGenerated(dayCount)
	return series, nil
}

// currentLocked returns the most recently requested series.
func (s *Session) currentLocked() (core.Series, error) {
	if s.dayCount == 0 {
		return nil, core.ErrPreconditionViolated
	}
	return s.seriesLocked(s.dayCount)
}

// Current returns the most recently requested series.
func (s *Session) Current() (core.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.currentLocked()
	if err != nil {
		return nil, err
	}
	return series.Tail(0), nil
}

// Refresh discards every cached series, resamples the current day count and
// advances the refresh token.
func (s *Session) Refresh() (core.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dayCount == 0 {
		return nil, core.ErrPreconditionViolated
	}

	series, err := s.gen.Generate(s.dayCount)
	if err != nil {
		return nil, err
	}

	s.cache = map[int]core.Series{s.dayCount: series}
	s.token++
	s.refreshedAt = s.now()
	s.lastAccessAt = s.refreshedAt
	s.recorder.RecordSeriesGenerated(s.dayCount)
	return series.Tail(0), nil
}

// Analytics runs the full report over the current series.
func (s *Session) Analytics() (*analytics.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.currentLocked()
	if err != nil {
		return nil, err
	}

	report, err := analytics.Run(series)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordAnalyticsRun()
	return report, nil
}

// Forecast draws a fresh next-day forecast from the newest price.
// It is recomputed on every call.
func (s *Session) Forecast() (analytics.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.currentLocked()
	if err != nil {
		return analytics.Forecast{}, err
	}
	latest, ok := series.Latest()
	if !ok {
		return analytics.Forecast{}, core.ErrPreconditionViolated
	}

	f := s.forecaster.ForecastNextDay(latest.Price)
	s.recorder.RecordForecast(f.PhaseName)
	return f, nil
}

// BestPhase returns the best historical phase of the current series.
func (s *Session) BestPhase() (analytics.PhaseStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.currentLocked()
	if err != nil {
		return analytics.PhaseStat{}, err
	}
	return analytics.BestHistoricalPhase(series)
}

// Snapshot is the current series, its report and the session summary,
// all taken from the same sample.
type Snapshot struct {
	Info   Info
	Series core.Series
	Report *analytics.Report
}

// Snapshot reads the current series, runs the report over it and
// summarizes the session under one lock, so a concurrent Refresh cannot
// split them across samples.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.currentLocked()
	if err != nil {
		return Snapshot{}, err
	}
	report, err := analytics.Run(series)
	if err != nil {
		return Snapshot{}, err
	}
	s.recorder.RecordAnalyticsRun()

	return Snapshot{
		Info:   s.infoLocked(),
		Series: series.Tail(0),
		Report: report,
	}, nil
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() Info {
	return Info{
		ID:           s.id,
		DayCount:     s.dayCount,
		RefreshToken: s.token,
		CreatedAt:    s.createdAt,
		RefreshedAt:  s.refreshedAt,
		LastAccessAt: s.lastAccessAt,
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessAt
}
