package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntropy_UniformBounds(t *testing.T) {
	src := NewEntropy()
	for i := 0; i < 10000; i++ {
		v := src.Uniform(-4, 4)
		if v < -4 || v > 4 {
			t.Fatalf("draw %f outside [-4, 4]", v)
		}
	}
}

func TestEntropy_IntnBounds(t *testing.T) {
	src := NewEntropy()
	seen := make(map[int]bool)
	for i := 0; i < 10000; i++ {
		v := src.Intn(8)
		if v < 0 || v >= 8 {
			t.Fatalf("draw %d outside [0, 8)", v)
		}
		seen[v] = true
	}
	assert.Len(t, seen, 8, "every bucket should be drawn at least once")
}

func TestSeeded_Reproducible(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Uniform(-3, 3), b.Uniform(-3, 3))
		assert.Equal(t, a.Intn(8), b.Intn(8))
	}
}

func TestSeeded_DifferentSeedsDiffer(t *testing.T) {
	a := NewSeeded(1)
	b := NewSeeded(2)
	same := 0
	for i := 0; i < 20; i++ {
		if a.Uniform(0, 1) == b.Uniform(0, 1) {
			same++
		}
	}
	assert.Less(t, same, 20)
}

func TestScripted_ReplaysAndWraps(t *testing.T) {
	src := NewScripted(2.0, 1.0)
	assert.Equal(t, 2.0, src.Uniform(-4, 4))
	assert.Equal(t, 1.0, src.Uniform(0.5, 1.5))
	assert.Equal(t, 2.0, src.Uniform(-4, 4))
	assert.Equal(t, 3, src.Draws())
}

func TestScripted_Empty(t *testing.T) {
	src := NewScripted()
	assert.Equal(t, -4.0, src.Uniform(-4, 4))
	assert.Equal(t, 0, src.Intn(8))
}

func TestScripted_Ints(t *testing.T) {
	src := NewScripted().WithInts(4, 9, -1)
	assert.Equal(t, 4, src.Intn(8))
	assert.Equal(t, 1, src.Intn(8))
	assert.Equal(t, 7, src.Intn(8))
	assert.Equal(t, 4, src.Intn(8))
}
