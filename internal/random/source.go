// Package random is the single provider of random draws for the simulator
// and forecaster. Production code uses Entropy; tests substitute Scripted or
// Seeded to get fixed sequences.
package random

import (
	"math/rand/v2"
	"sync"
)

// Source supplies random draws.
type Source interface {
	// Uniform returns a value in [lo, hi].
	Uniform(lo, hi float64) float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// Entropy draws from the runtime's randomly seeded generator.
// Successive runs differ. Safe for concurrent use.
type Entropy struct{}

// NewEntropy returns the production source.
func NewEntropy() Entropy {
	return Entropy{}
}

func (Entropy) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*rand.Float64()
}

func (Entropy) Intn(n int) int {
	return rand.IntN(n)
}

// Seeded is a reproducible source for tests and benchmarks.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded creates a source whose sequence depends only on seed.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Seeded) Uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + (hi-lo)*s.rng.Float64()
}

func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Scripted replays fixed values. Uniform returns the next entry of Floats
// verbatim, ignoring the bounds; Intn returns the next entry of Ints modulo n.
// Both sequences wrap around when exhausted. An empty sequence yields lo for
// Uniform and 0 for Intn.
type Scripted struct {
	Floats []float64
	Ints   []int

	mu       sync.Mutex
	floatPos int
	intPos   int
}

// NewScripted creates a scripted source that replays floats for Uniform.
func NewScripted(floats ...float64) *Scripted {
	return &Scripted{Floats: floats}
}

// WithInts sets the sequence returned by Intn.
func (s *Scripted) WithInts(ints ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Ints = ints
	s.intPos = 0
	return s
}

func (s *Scripted) Uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return lo
	}
	v := s.Floats[s.floatPos%len(s.Floats)]
	s.floatPos++
	return v
}

func (s *Scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 || n <= 0 {
		return 0
	}
	v := s.Ints[s.intPos%len(s.Ints)] % n
	if v < 0 {
		v += n
	}
	s.intPos++
	return v
}

// Draws reports how many Uniform values have been consumed.
func (s *Scripted) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.floatPos
}
