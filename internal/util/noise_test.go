package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoise_Deterministic(t *testing.T) {
	a, b := NewNoise(42), NewNoise(42)
	assert.Equal(t, int64(42), a.Seed())

	for x := 0.0; x < 10; x += 0.37 {
		n1 := a.Noise1D(x)
		assert.Equal(t, n1, b.Noise1D(x))
		assert.GreaterOrEqual(t, n1, -1.0)
		assert.LessOrEqual(t, n1, 1.0)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, -1.0, clamp(-3, -1, 1))
	assert.Equal(t, 1.0, clamp(2, -1, 1))
	assert.Equal(t, 0.5, clamp(0.5, -1, 1))
}
