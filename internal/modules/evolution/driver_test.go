package evolution

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aristath/qmusic/internal/modules/field"
	"github.com/aristath/qmusic/internal/modules/hamiltonian"
	"github.com/aristath/qmusic/internal/modules/quantum"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver() *Driver {
	return NewDriver(newTestSolver(1), zerolog.Nop())
}

func sineField(b0 float64) field.Field {
	return field.Field{Offset: b0, Frequency: 5, Waveform: field.WaveSine, Duty: 0.5, Width: 1}
}

func TestDriver_SingleQubitLarmorPrecession(t *testing.T) {
	initial, err := quantum.ParseAmplitudes(1, []string{"1", "1"})
	require.NoError(t, err)

	traj, err := newTestDriver().Run(context.Background(), Spec{
		Topology:   hamiltonian.Chain{N: 1},
		Couplings:  hamiltonian.Couplings{},
		DriveMode:  hamiltonian.DriveCollective,
		Observable: hamiltonian.ObservableTensorY,
		Field:      sineField(1000),
		Initial:    initial,
		Duration:   1,
		SampleRate: 44100,
	})
	require.NoError(t, err)

	require.Len(t, traj.Values, 44100)
	assert.False(t, traj.Open)
	assert.Equal(t, 44099, traj.Steps)
	for k := 0; k < len(traj.Times); k += 97 {
		tk := traj.Times[k]
		assert.InDelta(t, math.Sin(2*1000*tk), traj.Values[k], 1e-8, "t=%g", tk)
	}
}

func TestDriver_ChainAndLatticeAgreeWithoutCoupling(t *testing.T) {
	off := hamiltonian.Couplings{J: 0, Exchange: 0}
	initial := plusState(t, 4)

	base := Spec{
		Couplings:  off,
		DriveMode:  hamiltonian.DriveCollective,
		Observable: hamiltonian.ObservableSumY,
		Field:      field.Field{Offset: 50, Amplitude: 10, Frequency: 5, Waveform: field.WaveSine},
		Initial:    initial,
		Duration:   0.01,
		SampleRate: 44100,
	}

	chainSpec := base
	chainSpec.Topology = hamiltonian.Chain{N: 4}
	chain, err := newTestDriver().Run(context.Background(), chainSpec)
	require.NoError(t, err)

	latticeSpec := base
	latticeSpec.Topology = hamiltonian.SquareLattice()
	lattice, err := newTestDriver().Run(context.Background(), latticeSpec)
	require.NoError(t, err)

	assert.InDeltaSlice(t, chain.Values, lattice.Values, 1e-10)

	// Four independent qubits each contribute the single-qubit signal.
	single := base
	single.Topology = hamiltonian.Chain{N: 1}
	single.Initial = plusState(t, 1)
	one, err := newTestDriver().Run(context.Background(), single)
	require.NoError(t, err)

	for k := range one.Values {
		assert.InDelta(t, 4*one.Values[k], chain.Values[k], 1e-9)
	}
}

func TestDriver_OpenSystem(t *testing.T) {
	traj, err := newTestDriver().Run(context.Background(), Spec{
		Topology:   hamiltonian.Chain{N: 1},
		DriveMode:  hamiltonian.DriveCollective,
		Observable: hamiltonian.ObservableTensorY,
		Field:      sineField(100),
		Initial:    plusState(t, 1),
		Duration:   0.1,
		SampleRate: 44100,
		DecayRate:  4,
	})
	require.NoError(t, err)
	assert.True(t, traj.Open)

	last := len(traj.Times) - 1
	want := math.Exp(-4*traj.Times[last]/2) * math.Sin(200*traj.Times[last])
	assert.InDelta(t, want, traj.Values[last], 1e-6)
}

func TestDriver_NoiseIsReproducibleWithSeed(t *testing.T) {
	spec := Spec{
		Topology:   hamiltonian.Chain{N: 1},
		DriveMode:  hamiltonian.DriveCollective,
		Observable: hamiltonian.ObservableTensorY,
		Field:      sineField(1000),
		Initial:    plusState(t, 1),
		Duration:   0.01,
		SampleRate: 44100,
		NoiseStd:   100,
	}

	spec.NoiseSource = rand.NewPCG(5, 6)
	a, err := newTestDriver().Run(context.Background(), spec)
	require.NoError(t, err)

	spec.NoiseSource = rand.NewPCG(5, 6)
	b, err := newTestDriver().Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, a.Values, b.Values)

	clean := spec
	clean.NoiseStd = 0
	c, err := newTestDriver().Run(context.Background(), clean)
	require.NoError(t, err)
	assert.NotEqual(t, a.Values, c.Values)
}

func TestDriver_Errors(t *testing.T) {
	base := Spec{
		Topology:   hamiltonian.Chain{N: 2},
		DriveMode:  hamiltonian.DriveCollective,
		Observable: hamiltonian.ObservableTensorY,
		Field:      sineField(1),
		Initial:    plusState(t, 2),
		Duration:   0.001,
		SampleRate: 44100,
	}

	s := base
	s.Initial = plusState(t, 1)
	_, err := newTestDriver().Run(context.Background(), s)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	s = base
	s.Initial = nil
	_, err = newTestDriver().Run(context.Background(), s)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	s = base
	s.Field.Waveform = "noise"
	_, err = newTestDriver().Run(context.Background(), s)
	assert.ErrorIs(t, err, field.ErrUnknownWaveform)

	s = base
	s.Observable = "sigma_q"
	_, err = newTestDriver().Run(context.Background(), s)
	assert.ErrorIs(t, err, hamiltonian.ErrUnknownObservable)

	s = base
	s.Duration = 0
	_, err = newTestDriver().Run(context.Background(), s)
	assert.ErrorIs(t, err, ErrInvalidTimeGrid)

	s = base
	s.DecayRate = -1
	_, err = newTestDriver().Run(context.Background(), s)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)
}

func TestCollapseOperators(t *testing.T) {
	assert.Nil(t, CollapseOperators(2, 0))

	ops := CollapseOperators(2, 4)
	require.Len(t, ops, 1)
	// 2 * |00><11|
	assert.Equal(t, complex128(2), ops[0].At(0, 3))
	assert.Equal(t, complex128(0), ops[0].At(3, 0))
}
