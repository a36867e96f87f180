package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aristath/qmusic/internal/metrics"
	"github.com/aristath/qmusic/internal/modules/artifacts"
	"github.com/aristath/qmusic/internal/modules/audio"
	"github.com/aristath/qmusic/internal/modules/evolution"
	"github.com/aristath/qmusic/internal/modules/quantum"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// memoryStore is an ArtifactStore that round-trips metadata through msgpack.
type memoryStore struct {
	mu   sync.Mutex
	wav  map[string][]byte
	meta map[string][]byte
	ttl  time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{wav: map[string][]byte{}, meta: map[string][]byte{}}
}

func (m *memoryStore) Store(id string, wav []byte, meta interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	b, err := msgpack.Marshal(meta)
	if err != nil {
		return err
	}
	m.wav[id] = wav
	m.meta[id] = b
	m.ttl = ttl
	return nil
}

func (m *memoryStore) Get(id string) (*artifacts.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wav, ok := m.wav[id]
	if !ok {
		return nil, artifacts.ErrNotFound
	}
	return &artifacts.Artifact{ID: id, WAV: wav}, nil
}

func (m *memoryStore) GetMeta(id string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.meta[id]
	if !ok {
		return artifacts.ErrNotFound
	}
	return msgpack.Unmarshal(b, out)
}

type recordingPublisher struct {
	err error
	ids []string
}

func (p *recordingPublisher) Publish(_ context.Context, id string, _ []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.ids = append(p.ids, id)
	return "qmusic/" + id + ".wav", nil
}

func newTestService(store ArtifactStore, pub Publisher) *Service {
	log := zerolog.Nop()
	driver := evolution.NewDriver(evolution.NewSolver(evolution.Options{Substeps: 1}, log), log)
	return NewService(driver, store, pub, metrics.NewCollector(), Config{MaxDuration: 5}, log)
}

func TestProduce_Default(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)

	run, err := svc.Produce(context.Background(), DefaultRequest())
	require.NoError(t, err)

	assert.Len(t, run.ID, 36)
	assert.Equal(t, "(0.707107+0j)|0⟩ + (0.707107+0j)|1⟩", run.State)
	assert.Equal(t, 1, run.Qubits)
	assert.Equal(t, "chain", run.Topology)
	assert.Equal(t, 44100, run.Samples)
	assert.Equal(t, 44100, run.SampleRate)
	assert.Equal(t, 1.0, run.Duration)
	assert.False(t, run.Silent)
	assert.False(t, run.Open)
	assert.InDelta(t, 1.0, run.Peak, 1e-3)
	assert.Len(t, run.Envelope, EnvelopePoints)
	assert.Equal(t, 44+2*44100, run.AudioBytes)
	assert.Equal(t, artifacts.DefaultTTL, store.ttl)

	wav, err := svc.Audio(run.ID)
	require.NoError(t, err)
	decoded, err := audio.DecodeWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, 44100, decoded.SampleRate)
	require.Len(t, decoded.Samples, 44100)

	maxAbs := 0
	for _, s := range decoded.Samples {
		if s < 0 {
			s = -s
		}
		if s > maxAbs {
			maxAbs = s
		}
	}
	assert.Equal(t, 32767, maxAbs)

	got, err := svc.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.State, got.State)
	assert.Equal(t, run.Envelope, got.Envelope)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
}

func TestProduce_LatticeForcesFourQubits(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)

	req := DefaultRequest()
	req.Topology = TopologyLattice
	req.Qubits = 1

	run, err := svc.Produce(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, run.Qubits)
	assert.Equal(t, "lattice", run.Topology)
	assert.Equal(t, 44100, run.Samples)
}

func TestProduce_SilentTrajectory(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)

	// No field: |+⟩ has ⟨Y⟩ = 0 forever.
	req := DefaultRequest()
	req.Field.B0 = 0

	run, err := svc.Produce(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, run.Silent)
	assert.Equal(t, 0.0, run.Peak)

	wav, err := svc.Audio(run.ID)
	require.NoError(t, err)
	decoded, err := audio.DecodeWAV(wav)
	require.NoError(t, err)
	for _, s := range decoded.Samples {
		require.Equal(t, 0, s)
	}
}

func TestProduce_CustomAndRandomStates(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)

	req := DefaultRequest()
	req.InitialState = InitialStateParams{Mode: InitialCustom, Amplitudes: []string{"1", "1j"}}
	run, err := svc.Produce(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "(0.707107+0j)|0⟩ + (0+0.707107j)|1⟩", run.State)

	seed := uint64(7)
	req.InitialState = InitialStateParams{Mode: InitialRandom, Seed: &seed}
	a, err := svc.Produce(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Produce(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.State, b.State)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestProduce_SeededNoiseIsReproducible(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)

	seed := uint64(42)
	req := DefaultRequest()
	req.Noise = NoiseParams{Enabled: true, Std: 50, Seed: &seed}

	a, err := svc.Produce(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Produce(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Envelope, b.Envelope)
	assert.Equal(t, a.Peak, b.Peak)
}

func TestProduce_OpenSystem(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)

	req := DefaultRequest()
	req.Decoherence = DecoherenceParams{Enabled: true, Rate: 2}

	run, err := svc.Produce(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, run.Open)
	assert.Equal(t, 44100, run.Samples)
	assert.Less(t, run.Peak, 1.0)
}

func TestProduce_InputErrors(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)

	tests := []struct {
		name   string
		modify func(*Request)
		target error
	}{
		{"too many qubits", func(r *Request) { r.Qubits = 5 }, ErrInvalidRequest},
		{"zero qubits", func(r *Request) { r.Qubits = 0 }, ErrInvalidRequest},
		{"duration above limit", func(r *Request) { r.Duration = 6 }, ErrInvalidRequest},
		{"duration below one", func(r *Request) { r.Duration = 0.5 }, ErrInvalidRequest},
		{"unknown topology", func(r *Request) { r.Topology = "ring" }, ErrInvalidRequest},
		{"unknown waveform", func(r *Request) { r.Field.Waveform = "triangle" }, ErrInvalidRequest},
		{"duty above one", func(r *Request) { r.Field.Duty = 1.5 }, ErrInvalidRequest},
		{"negative rate", func(r *Request) { r.Decoherence.Rate = -1 }, ErrInvalidRequest},
		{"unknown observable", func(r *Request) { r.Observable = "x" }, ErrInvalidRequest},
		{"missing amplitudes", func(r *Request) {
			r.InitialState = InitialStateParams{Mode: InitialCustom, Amplitudes: []string{"1", ""}}
		}, quantum.ErrMissingAmplitudes},
		{"invalid amplitude", func(r *Request) {
			r.InitialState = InitialStateParams{Mode: InitialCustom, Amplitudes: []string{"1", "abc"}}
		}, quantum.ErrInvalidAmplitude},
		{"zero state", func(r *Request) {
			r.InitialState = InitialStateParams{Mode: InitialCustom, Amplitudes: []string{"0", "0"}}
		}, quantum.ErrZeroState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DefaultRequest()
			tt.modify(&req)

			_, err := svc.Produce(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, metrics.OutcomeInvalidInput, Outcome(err))
		})
	}
}

func TestProduce_Cancelled(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Produce(ctx, DefaultRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, metrics.OutcomeCanceled, Outcome(err))
}

func TestProduce_StoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("disk full")
	svc := newTestService(store, nil)

	_, err := svc.Produce(context.Background(), DefaultRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, metrics.OutcomeError, Outcome(err))
}

func TestProduce_Publishing(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(newMemoryStore(), pub)

	run, err := svc.Produce(context.Background(), DefaultRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{run.ID}, pub.ids)
	assert.Equal(t, "qmusic/"+run.ID+".wav", run.PublishedKey)

	failing := &recordingPublisher{err: errors.New("bucket down")}
	svc = newTestService(newMemoryStore(), failing)

	run, err = svc.Produce(context.Background(), DefaultRequest())
	require.NoError(t, err, "publish failures never fail a run")
	assert.Empty(t, run.PublishedKey)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)

	_, err := svc.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Audio("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, metrics.OutcomeSuccess, Outcome(nil))
	assert.Equal(t, metrics.OutcomeSolverFailed,
		Outcome(fmt.Errorf("%w: %w", ErrSolverFailed, evolution.ErrNonConvergence)))
	assert.Equal(t, metrics.OutcomeCanceled, Outcome(context.DeadlineExceeded))
	assert.Equal(t, metrics.OutcomeInvalidInput, Outcome(&quantum.AmplitudeError{Index: 0, Label: "0", Text: "x"}))
	assert.Equal(t, metrics.OutcomeError, Outcome(errors.New("other")))
}

func TestRequestSpec(t *testing.T) {
	seed := uint64(1)
	req := DefaultRequest()
	req.Topology = TopologyLattice
	req.Field.GradientX = 2
	req.Field.GradientY = 3
	req.Field.Gradient = 99
	req.Noise = NoiseParams{Enabled: true, Std: 100, Seed: &seed}
	req.Decoherence = DecoherenceParams{Enabled: false, Rate: 4}
	req.Normalize()

	state, err := req.BuildState()
	require.NoError(t, err)
	assert.Equal(t, 4, state.Qubits)

	spec := req.Spec(state)
	assert.Equal(t, "lattice", spec.Topology.Name())
	assert.Equal(t, 2.0, spec.Gradient.X)
	assert.Equal(t, 3.0, spec.Gradient.Y)
	assert.Equal(t, 1000.0, spec.Field.Offset)
	assert.Equal(t, 100.0, spec.NoiseStd)
	assert.NotNil(t, spec.NoiseSource)
	assert.Equal(t, 0.0, spec.DecayRate, "disabled decoherence keeps the system closed")
	assert.Equal(t, audio.SampleRate, spec.SampleRate)

	chain := DefaultRequest()
	chain.Field.Gradient = 5
	chainSpec := chain.Spec(state)
	assert.Equal(t, 5.0, chainSpec.Gradient.X)
	assert.Equal(t, 0.0, chainSpec.Gradient.Y)
	assert.False(t, math.IsNaN(chainSpec.Field.Duty))
}

func TestValidate_Messages(t *testing.T) {
	req := DefaultRequest()
	req.Qubits = 9
	req.Field.Waveform = "triangle"

	err := req.Validate(5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qubits must be at most 4")
	assert.Contains(t, err.Error(), "field.waveform must be one of: sine square sawtooth")
}

func TestDefaultRequest(t *testing.T) {
	req := DefaultRequest()

	assert.Equal(t, TopologyChain, req.Topology)
	assert.Equal(t, 1, req.Qubits)
	assert.Equal(t, 1.0, req.Duration)
	assert.Equal(t, InitialDefault, req.InitialState.Mode)
	assert.Equal(t, FieldParams{
		B0:        1000,
		Gradient:  100,
		Frequency: 5,
		Waveform:  "sine",
		Duty:      0.1,
		Width:     0.1,
	}, req.Field)
	assert.Equal(t, CouplingParams{J: -20, Exchange: 1}, req.Coupling)
	assert.Equal(t, 50.0, req.Noise.Std)
	assert.Equal(t, 1.0, req.Decoherence.Rate)
	assert.Equal(t, "tensor_y", req.Observable)
	assert.NoError(t, req.Validate(5))
}

func TestCheck(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)

	assert.NoError(t, svc.Check(DefaultRequest()))

	req := DefaultRequest()
	req.InitialState = InitialStateParams{Mode: InitialCustom, Amplitudes: []string{"1", ")1("}}
	assert.ErrorIs(t, svc.Check(req), quantum.ErrInvalidAmplitude)

	req = DefaultRequest()
	req.Duration = 6
	assert.ErrorIs(t, svc.Check(req), ErrInvalidRequest)

	assert.Empty(t, store.wav, "checking never stores a run")
}
