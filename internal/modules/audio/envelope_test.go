package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	values := []float64{1, -2, 3, 0, 5, -1, 2, 2, -7}
	bins := Envelope(values, 3)
	require.Len(t, bins, 3)
	assert.Equal(t, Bin{Min: -2, Max: 3}, bins[0])
	assert.Equal(t, Bin{Min: -1, Max: 5}, bins[1])
	assert.Equal(t, Bin{Min: -7, Max: 2}, bins[2])
}

func TestEnvelope_DropsIncompleteTail(t *testing.T) {
	values := []float64{1, 2, 3, 4, 100}
	bins := Envelope(values, 2)
	require.Len(t, bins, 2)
	assert.Equal(t, Bin{Min: 1, Max: 2}, bins[0])
	assert.Equal(t, Bin{Min: 3, Max: 4}, bins[1])
}

func TestEnvelope_ShortInput(t *testing.T) {
	bins := Envelope([]float64{0.5, -0.5}, 10)
	assert.Equal(t, []Bin{{Min: 0.5, Max: 0.5}, {Min: -0.5, Max: -0.5}}, bins)

	assert.Empty(t, Envelope(nil, 10))
	assert.Empty(t, Envelope([]float64{1}, 0))
}
