package evolution

import (
	"fmt"
	"math"
)

// TimeGrid returns round(sampleRate*duration) evenly spaced times from 0 to duration,
// both ends included.
func TimeGrid(duration float64, sampleRate int) ([]float64, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: duration %g", ErrInvalidTimeGrid, duration)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidTimeGrid, sampleRate)
	}

	n := int(math.Round(float64(sampleRate) * duration))
	if n < 1 {
		return nil, fmt.Errorf("%w: %g s at %d Hz yields no samples", ErrInvalidTimeGrid, duration, sampleRate)
	}
	if n == 1 {
		return []float64{0}, nil
	}

	times := make([]float64, n)
	step := duration / float64(n-1)
	for i := range times {
		times[i] = float64(i) * step
	}
	times[n-1] = duration
	return times, nil
}

func validateGrid(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidTimeGrid)
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: non-finite time at %d", ErrInvalidTimeGrid, i)
		}
		if i > 0 && t <= times[i-1] {
			return fmt.Errorf("%w: times not strictly increasing at %d", ErrInvalidTimeGrid, i)
		}
	}
	return nil
}
