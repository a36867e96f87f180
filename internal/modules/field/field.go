// Package field evaluates the time-dependent magnetic field B(t) that drives the spins:
// a constant offset, a periodic waveform and optional interpolated Gaussian noise.
package field

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownWaveform is returned for waveform names other than sine, square or sawtooth.
	ErrUnknownWaveform = errors.New("unknown waveform")
	// ErrInvalidField is returned for out-of-range field parameters.
	ErrInvalidField = errors.New("invalid field parameters")
)

// Waveform names the periodic component of the field.
type Waveform string

const (
	WaveSine     Waveform = "sine"
	WaveSquare   Waveform = "square"
	WaveSawtooth Waveform = "sawtooth"
)

// Field is B(t) = Offset + Amplitude*wave(t) + noise(t).
type Field struct {
	Offset    float64
	Amplitude float64
	Frequency float64
	Waveform  Waveform
	Duty      float64 // square wave: fraction of the period spent at +1
	Width     float64 // sawtooth: fraction of the period spent rising
	Noise     *Noise
}

// Validate checks the waveform name and the duty/width ratios.
func (f Field) Validate() error {
	switch f.Waveform {
	case WaveSine, WaveSquare, WaveSawtooth:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownWaveform, f.Waveform)
	}
	if f.Duty < 0 || f.Duty > 1 {
		return fmt.Errorf("%w: duty %g outside [0, 1]", ErrInvalidField, f.Duty)
	}
	if f.Width < 0 || f.Width > 1 {
		return fmt.Errorf("%w: width %g outside [0, 1]", ErrInvalidField, f.Width)
	}
	for _, v := range []float64{f.Offset, f.Amplitude, f.Frequency} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidField)
		}
	}
	return nil
}

// At evaluates the field at time t. Any real t is accepted; noise is clamped outside its grid.
func (f Field) At(t float64) float64 {
	b := f.Offset + f.Amplitude*f.wave(t)
	if f.Noise != nil {
		b += f.Noise.At(t)
	}
	return b
}

// Func returns At as a plain coefficient function.
func (f Field) Func() func(float64) float64 {
	return f.At
}

func (f Field) wave(t float64) float64 {
	if f.Amplitude == 0 {
		return 0
	}
	phase := 2 * math.Pi * f.Frequency * t
	switch f.Waveform {
	case WaveSquare:
		return Square(phase, f.Duty)
	case WaveSawtooth:
		return Sawtooth(phase, f.Width)
	default:
		return math.Sin(phase)
	}
}

// Square is a period-2π square wave equal to +1 for the first duty fraction of each
// period and -1 for the rest.
func Square(phase, duty float64) float64 {
	if duty < 0 || duty > 1 {
		return math.NaN()
	}
	if wrap(phase) < duty*2*math.Pi {
		return 1
	}
	return -1
}

// Sawtooth is a period-2π ramp rising from -1 to 1 over the first width fraction of each
// period and falling back to -1 over the rest. Width 1 is a rising ramp, 0 a falling one.
func Sawtooth(phase, width float64) float64 {
	if width < 0 || width > 1 {
		return math.NaN()
	}
	tm := wrap(phase)
	if tm < width*2*math.Pi {
		return tm/(math.Pi*width) - 1
	}
	return math.Pi*(width+1)/(math.Pi*(1-width)) - tm/(math.Pi*(1-width))
}

// wrap reduces phase into [0, 2π).
func wrap(phase float64) float64 {
	tm := math.Mod(phase, 2*math.Pi)
	if tm < 0 {
		tm += 2 * math.Pi
	}
	return tm
}
