package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDegrees(t *testing.T) {
	assert.InDelta(t, 270.0, NormalizeDegrees(90+180), 1e-9)
	assert.InDelta(t, 90.0, NormalizeDegrees(450), 1e-9)
	assert.InDelta(t, 350.0, NormalizeDegrees(-10), 1e-9)
	assert.InDelta(t, 0.0, NormalizeDegrees(360), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.2, Clamp(0.01, 0.2, 2.6))
	assert.Equal(t, 2.6, Clamp(9, 0.2, 2.6))
	assert.Equal(t, 1.0, Clamp(1, 0.2, 2.6))
}
