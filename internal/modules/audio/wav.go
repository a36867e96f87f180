package audio

import (
	"bytes"
	"errors"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when bytes cannot be decoded as a PCM WAV file.
var ErrInvalidWAV = errors.New("invalid wav data")

const pcmFormat = 1

// Decoded is the content of a decoded WAV file.
type Decoded struct {
	SampleRate int
	BitDepth   int
	Channels   int
	Samples    []int
}

// EncodeWAV writes mono 16-bit PCM samples into a RIFF/WAVE container.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	ws := &writeSeeker{buf: make([]byte, 0, 44+2*len(samples))}
	enc := wav.NewEncoder(ws, sampleRate, BitDepth, 1, pcmFormat)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write pcm data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalise wav container: %w", err)
	}
	return ws.Bytes(), nil
}

// DecodeWAV parses a WAV file produced by EncodeWAV or any other PCM writer.
func DecodeWAV(data []byte) (*Decoded, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return nil, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	return &Decoded{
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
		Channels:   int(dec.NumChans),
		Samples:    buf.Data,
	}, nil
}
