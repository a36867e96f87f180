package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func maxAbs(samples []int16) int {
	m := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

func TestNormalize_PeakIsFullScale(t *testing.T) {
	inputs := [][]float64{
		{0.1, -0.3, 0.2},
		{-5, 2, 4.9},
		{1e-9, 3e-9},
		{1234.5},
	}
	for _, in := range inputs {
		out, peak := Normalize(in)
		assert.Equal(t, FullScale, maxAbs(out), "input %v", in)
		assert.Greater(t, peak, 0.0)
	}
}

func TestNormalize_NegativePeak(t *testing.T) {
	out, peak := Normalize([]float64{-2, 1})
	assert.Equal(t, 2.0, peak)
	assert.Equal(t, []int16{-32767, 16383}, out)
}

func TestNormalize_SilentGuard(t *testing.T) {
	out, peak := Normalize([]float64{0, 0, 0})
	assert.Equal(t, []int16{0, 0, 0}, out)
	assert.Zero(t, peak)

	out, peak = Normalize(nil)
	assert.Empty(t, out)
	assert.Zero(t, peak)

	out, peak = Normalize([]float64{math.Inf(1), math.NaN()})
	assert.Equal(t, []int16{0, 0}, out)
	assert.Zero(t, peak)
}

func TestNormalize_NonFiniteSamplesCountAsZero(t *testing.T) {
	out, peak := Normalize([]float64{math.NaN(), 0.5, -1, math.Inf(-1)})
	assert.Equal(t, 1.0, peak)
	assert.Equal(t, []int16{0, 16383, -32767, 0}, out)
}
