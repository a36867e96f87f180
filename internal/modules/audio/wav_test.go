package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV_Header(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767}
	data, err := EncodeWAV(samples, SampleRate)
	require.NoError(t, err)

	require.Len(t, data, 44+2*len(samples))
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]), "PCM")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]), "mono")
	assert.Equal(t, uint32(SampleRate), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(2*len(samples)), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, int16(-1000), int16(binary.LittleEndian.Uint16(data[48:50])))
}

func TestEncodeWAV_InvalidRate(t *testing.T) {
	_, err := EncodeWAV([]int16{1}, 0)
	assert.Error(t, err)
}

func TestRoundTrip_Sine(t *testing.T) {
	const n = SampleRate
	trajectory := make([]float64, n)
	for i := range trajectory {
		trajectory[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/SampleRate)
	}

	samples, peak := Normalize(trajectory)
	data, err := EncodeWAV(samples, SampleRate)
	require.NoError(t, err)

	decoded, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, SampleRate, decoded.SampleRate)
	assert.Equal(t, BitDepth, decoded.BitDepth)
	assert.Equal(t, 1, decoded.Channels)
	require.Len(t, decoded.Samples, n)

	// one quantisation step of the normalised waveform
	quantum := peak / FullScale
	for i, s := range decoded.Samples {
		assert.Equal(t, int(samples[i]), s)
		reconstructed := float64(s) / FullScale * peak
		assert.InDelta(t, trajectory[i], reconstructed, quantum, "sample %d", i)
	}
}

func TestRoundTrip_Silence(t *testing.T) {
	samples, _ := Normalize(make([]float64, 100))
	data, err := EncodeWAV(samples, SampleRate)
	require.NoError(t, err)

	decoded, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Len(t, decoded.Samples, 100)
	for _, s := range decoded.Samples {
		assert.Zero(t, s)
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	_, err := DecodeWAV([]byte("definitely not a wav file"))
	assert.ErrorIs(t, err, ErrInvalidWAV)

	_, err = DecodeWAV(nil)
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func TestWriteSeeker(t *testing.T) {
	ws := &writeSeeker{}
	_, err := ws.Write([]byte("hello world"))
	require.NoError(t, err)

	pos, err := ws.Seek(0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)
	_, err = ws.Write([]byte("J"))
	require.NoError(t, err)

	pos, err = ws.Seek(-5, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)
	_, err = ws.Write([]byte("W"))
	require.NoError(t, err)

	pos, err = ws.Seek(2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(9), pos)

	assert.Equal(t, "Jello World", string(ws.Bytes()))

	_, err = ws.Seek(-1, 0)
	assert.Error(t, err)
	_, err = ws.Seek(0, 7)
	assert.Error(t, err)
}
