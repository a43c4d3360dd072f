package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	t.Parallel()
	a, b := New(99), New(99)
	for range 10 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestSeededAdvances(t *testing.T) {
	t.Parallel()
	src := Seeded(5)
	first := src().Uint64()
	second := src().Uint64()
	assert.Equal(t, New(5).Uint64(), first)
	assert.Equal(t, New(6).Uint64(), second)
}

func TestNewSecureDiffers(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, NewSecure().Uint64(), NewSecure().Uint64())
}
