package audio

import (
	"github.com/markcheno/go-talib"
)

// Bin is the sample range covered by one point of a waveform preview.
type Bin struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Envelope reduces a trajectory to at most points min/max bins for drawing. Each bin spans
// len/points consecutive samples; trailing samples that do not fill a bin are dropped.
func Envelope(trajectory []float64, points int) []Bin {
	if points <= 0 || len(trajectory) == 0 {
		return []Bin{}
	}

	window := len(trajectory) / points
	if window < 2 {
		bins := make([]Bin, len(trajectory))
		for i, v := range trajectory {
			bins[i] = Bin{Min: v, Max: v}
		}
		return bins
	}

	highs := talib.Max(trajectory, window)
	lows := talib.Min(trajectory, window)

	bins := make([]Bin, points)
	for b := range bins {
		end := (b+1)*window - 1
		bins[b] = Bin{Min: lows[end], Max: highs[end]}
	}
	return bins
}
