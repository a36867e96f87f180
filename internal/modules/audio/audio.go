// Package audio turns expectation-value trajectories into 16-bit PCM WAV files.
package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// SampleRate is the output rate in Hz; one trajectory point becomes one sample.
	SampleRate = 44100
	// BitDepth of the encoded PCM samples.
	BitDepth = 16
	// FullScale is the largest int16 magnitude a normalised sample can reach.
	FullScale = math.MaxInt16
	// FileName is the download name offered for produced sounds.
	FileName = "Sound of Larmor Precession.wav"
)

// Normalize divides the trajectory by its peak magnitude and scales it to the int16 range,
// truncating toward zero. Non-finite samples count as zero. A trajectory whose peak is zero
// yields silence and a zero peak.
func Normalize(trajectory []float64) ([]int16, float64) {
	out := make([]int16, len(trajectory))
	if len(trajectory) == 0 {
		return out, 0
	}

	finite := make([]float64, len(trajectory))
	for i, v := range trajectory {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite[i] = v
		}
	}

	peak := floats.Norm(finite, math.Inf(1))
	if peak == 0 {
		return out, 0
	}

	for i, v := range finite {
		// v/peak is exactly ±1 at the peak, so the peak always maps to ±FullScale
		out[i] = int16(v / peak * FullScale)
	}
	return out, peak
}
