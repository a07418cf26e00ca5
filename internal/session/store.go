package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/simulator"
	"go.uber.org/zap"
)

// Recorder receives session activity. metrics.Registry satisfies it.
type Recorder interface {
	RecordSeriesGenerated(days int)
	RecordAnalyticsRun()
	RecordForecast(phase string)
	RecordSessionEvicted(reason string)
	SetSessionsActive(count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSeriesGenerated(int)   {}
func (nopRecorder) RecordAnalyticsRun()         {}
func (nopRecorder) RecordForecast(string)       {}
func (nopRecorder) RecordSessionEvicted(string) {}
func (nopRecorder) SetSessionsActive(int)       {}

// Store holds live sessions. The store lock guards only the index; each
// session guards its own series.
type Store struct {
	gen        *simulator.Generator
	forecaster *analytics.Forecaster
	recorder   Recorder
	logger     *zap.Logger

	clockMu sync.RWMutex
	now     func() time.Time

	sessions map[string]*Session
	order    []string // insertion order for eviction
	maxSize  int
	ttl      time.Duration
	mu       sync.RWMutex
}

// NewStore creates a session store. Sessions idle longer than ttl are
// removed by Sweep; a zero ttl disables expiry.
func NewStore(gen *simulator.Generator, fc *analytics.Forecaster, maxSize int, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fc == nil {
		fc = analytics.NewForecaster(nil)
	}
	return &Store{
		gen:        gen,
		forecaster: fc,
		recorder:   nopRecorder{},
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*Session),
		order:      make([]string, 0, maxSize),
		maxSize:    maxSize,
		ttl:        ttl,
	}
}

// SetRecorder routes session activity to rec.
func (s *Store) SetRecorder(rec Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec == nil {
		rec = nopRecorder{}
	}
	s.recorder = rec
}

// SetClock overrides the time source of the store and of every session
// in it, including sessions created earlier.
func (s *Store) SetClock(now func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = now
}

// clock is the time source handed to sessions.
func (s *Store) clock() time.Time {
	s.clockMu.RLock()
	now := s.now
	s.clockMu.RUnlock()
	return now()
}

// Create starts a session and generates its first series.
func (s *Store) Create(dayCount int) (*Session, error) {
	if dayCount <= 0 {
		return nil, core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("day count must be positive, got %d", dayCount))
	}

	s.mu.RLock()
	sess := newSession(uuid.NewString(), s.gen, s.forecaster, s.recorder, s.clock)
	s.mu.RUnlock()

	if _, err := sess.Series(dayCount); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Evict oldest if at capacity
	if s.maxSize > 0 && len(s.sessions) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		s.removeLocked(oldest)
		s.recorder.RecordSessionEvicted("capacity")
		s.logger.Info("session evicted", zap.String("session_id", oldest), zap.String("reason", "capacity"))
	}

	s.sessions[sess.id] = sess
	s.order = append(s.order, sess.id)
	s.recorder.SetSessionsActive(len(s.sessions))

	s.logger.Info("session created", zap.String("session_id", sess.id), zap.Int("days", dayCount))
	return sess, nil
}

// Get returns the session with id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.WrapError(core.ErrSessionNotFound, fmt.Errorf("id %q", id))
	}
	return sess, nil
}

// Delete ends a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return core.WrapError(core.ErrSessionNotFound, fmt.Errorf("id %q", id))
	}
	s.removeLocked(id)
	s.recorder.SetSessionsActive(len(s.sessions))
	return nil
}

// List returns a summary of every live session, oldest first.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Info, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.sessions[id].Info())
	}
	return result
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the store's ttl and returns
// how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl <= 0 {
		return 0
	}

	cutoff := s.clock().Add(-s.ttl)
	var expired []string
	for _, id := range s.order {
		if s.sessions[id].idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}

	for _, id := range expired {
		s.removeLocked(id)
		s.recorder.RecordSessionEvicted("expired")
	}
	if len(expired) > 0 {
		s.recorder.SetSessionsActive(len(s.sessions))
		s.logger.Info("expired sessions swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (s *Store) removeLocked(id string) {
	delete(s.sessions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
