package field

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat/distuv"
)

// Noise is a Gaussian sample sequence on a time grid that can be evaluated at any t.
// Between grid points it is linearly interpolated; outside the grid it holds the edge value.
type Noise struct {
	times   []float64
	samples []float64
	pl      interp.PiecewiseLinear
}

// NewNoise draws one N(0, std²) sample per grid time.
func NewNoise(times []float64, std float64, src rand.Source) (*Noise, error) {
	if std < 0 {
		return nil, fmt.Errorf("%w: negative noise deviation %g", ErrInvalidField, std)
	}
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: src}
	samples := make([]float64, len(times))
	if std > 0 {
		for i := range samples {
			samples[i] = dist.Rand()
		}
	}
	return NoiseFromSamples(times, samples)
}

// NoiseFromSamples wraps precomputed samples. times must be strictly increasing.
func NoiseFromSamples(times, samples []float64) (*Noise, error) {
	if len(times) != len(samples) {
		return nil, fmt.Errorf("%w: %d noise samples for %d grid points", ErrInvalidField, len(samples), len(times))
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: empty noise grid", ErrInvalidField)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("%w: noise grid not strictly increasing at %d", ErrInvalidField, i)
		}
	}

	n := &Noise{
		times:   append([]float64(nil), times...),
		samples: append([]float64(nil), samples...),
	}
	if len(times) >= 2 {
		if err := n.pl.Fit(n.times, n.samples); err != nil {
			return nil, fmt.Errorf("fit noise interpolant: %w", err)
		}
	}
	return n, nil
}

// At returns the interpolated noise at t.
func (n *Noise) At(t float64) float64 {
	last := len(n.times) - 1
	if last == 0 || t <= n.times[0] {
		return n.samples[0]
	}
	if t >= n.times[last] {
		return n.samples[last]
	}
	return n.pl.Predict(t)
}

// Samples returns a copy of the grid samples.
func (n *Noise) Samples() []float64 {
	return append([]float64(nil), n.samples...)
}
