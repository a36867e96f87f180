package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/qmusic/internal/metrics"
	"github.com/aristath/qmusic/internal/modules/artifacts"
	"github.com/aristath/qmusic/internal/modules/audio"
	"github.com/aristath/qmusic/internal/modules/evolution"
	"github.com/aristath/qmusic/internal/modules/quantum"
	"github.com/rs/zerolog"
)

var (
	// ErrSolverFailed wraps every failure of the evolution step.
	ErrSolverFailed = errors.New("solver failed")
	// ErrNotFound is returned for unknown or expired runs.
	ErrNotFound = artifacts.ErrNotFound
)

// EnvelopePoints is the number of min/max bins in a run's waveform preview.
const EnvelopePoints = 512

// ArtifactStore keeps rendered WAV files and their run metadata.
type ArtifactStore interface {
	Store(id string, wav []byte, meta interface{}, ttl time.Duration) error
	Get(id string) (*artifacts.Artifact, error)
	GetMeta(id string, out interface{}) error
}

// Publisher copies a WAV to remote storage.
type Publisher interface {
	Publish(ctx context.Context, id string, wav []byte) (string, error)
}

// Run is the result of one produce action.
type Run struct {
	ID           string      `json:"id" msgpack:"id"`
	State        string      `json:"state" msgpack:"state"`
	Topology     string      `json:"topology" msgpack:"topology"`
	Qubits       int         `json:"qubits" msgpack:"qubits"`
	Observable   string      `json:"observable" msgpack:"observable"`
	Open         bool        `json:"open" msgpack:"open"`
	Samples      int         `json:"samples" msgpack:"samples"`
	Duration     float64     `json:"duration" msgpack:"duration"`
	SampleRate   int         `json:"sample_rate" msgpack:"sample_rate"`
	Peak         float64     `json:"peak" msgpack:"peak"`
	Silent       bool        `json:"silent" msgpack:"silent"`
	Envelope     []audio.Bin `json:"envelope" msgpack:"envelope"`
	AudioBytes   int         `json:"audio_bytes" msgpack:"audio_bytes"`
	ElapsedMs    int64       `json:"elapsed_ms" msgpack:"elapsed_ms"`
	PublishedKey string      `json:"published_key,omitempty" msgpack:"published_key"`
	CreatedAt    time.Time   `json:"created_at" msgpack:"created_at"`
}

// Config tunes the service.
type Config struct {
	MaxDuration float64
	TTL         time.Duration
}

// Service runs the Collector -> Assembler -> Driver -> Encoder pipeline.
type Service struct {
	driver    *evolution.Driver
	store     ArtifactStore
	publisher Publisher
	metrics   *metrics.Collector
	cfg       Config
	log       zerolog.Logger
}

// NewService creates a simulation service. publisher and collector may be nil.
func NewService(
	driver *evolution.Driver,
	store ArtifactStore,
	publisher Publisher,
	collector *metrics.Collector,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = artifacts.DefaultTTL
	}
	return &Service{
		driver:    driver,
		store:     store,
		publisher: publisher,
		metrics:   collector,
		cfg:       cfg,
		log:       log.With().Str("service", "simulation").Logger(),
	}
}

// Produce validates req, evolves the system, encodes the trajectory and stores the WAV.
func (s *Service) Produce(ctx context.Context, req Request) (*Run, error) {
	start := time.Now()

	run, err := s.produce(ctx, req, start)

	outcome := Outcome(err)
	if s.metrics != nil {
		bytes := 0
		if run != nil {
			bytes = run.AudioBytes
		}
		s.metrics.ObserveSimulation(outcome, time.Since(start), bytes)
	}

	if err != nil {
		ev := s.log.Warn()
		if outcome == metrics.OutcomeError {
			ev = s.log.Error()
		}
		ev.Err(err).Str("outcome", outcome).Msg("Produce failed")
		return nil, err
	}

	s.log.Info().
		Str("id", run.ID).
		Int("qubits", run.Qubits).
		Str("topology", run.Topology).
		Int("samples", run.Samples).
		Bool("silent", run.Silent).
		Int64("elapsed_ms", run.ElapsedMs).
		Msg("Sound produced")

	return run, nil
}

// Check reports whether Produce would accept req, without evolving anything.
// Rejections are counted like failed runs.
func (s *Service) Check(req Request) error {
	if _, err := s.prepare(&req); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveSimulation(Outcome(err), 0, 0)
		}
		s.log.Warn().Err(err).Str("outcome", Outcome(err)).Msg("Request rejected")
		return err
	}
	return nil
}

func (s *Service) prepare(req *Request) (*quantum.State, error) {
	req.Normalize()
	if err := req.Validate(s.cfg.MaxDuration); err != nil {
		return nil, err
	}
	return req.BuildState()
}

func (s *Service) produce(ctx context.Context, req Request, start time.Time) (*Run, error) {
	initial, err := s.prepare(&req)
	if err != nil {
		return nil, err
	}

	trajectory, err := s.driver.Run(ctx, req.Spec(initial))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSolverFailed, err)
	}

	samples, peak := audio.Normalize(trajectory.Values)
	wav, err := audio.EncodeWAV(samples, trajectory.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audio: %w", err)
	}

	run := &Run{
		ID:         artifacts.NewID(),
		State:      initial.Render(),
		Topology:   req.Topology,
		Qubits:     req.Qubits,
		Observable: req.Observable,
		Open:       trajectory.Open,
		Samples:    len(samples),
		Duration:   float64(len(samples)) / float64(trajectory.SampleRate),
		SampleRate: trajectory.SampleRate,
		Peak:       peak,
		Silent:     peak == 0,
		Envelope:   audio.Envelope(trajectory.Values, EnvelopePoints),
		AudioBytes: len(wav),
		CreatedAt:  start.UTC(),
	}

	if s.publisher != nil {
		key, err := s.publisher.Publish(ctx, run.ID, wav)
		if err != nil {
			s.log.Warn().Err(err).Str("id", run.ID).Msg("Failed to publish artifact")
		} else {
			run.PublishedKey = key
		}
	}

	run.ElapsedMs = time.Since(start).Milliseconds()

	if err := s.store.Store(run.ID, wav, run, s.cfg.TTL); err != nil {
		return nil, fmt.Errorf("failed to store artifact: %w", err)
	}

	return run, nil
}

// Get returns the metadata of a stored run.
func (s *Service) Get(id string) (*Run, error) {
	var run Run
	if err := s.store.GetMeta(id, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Audio returns the WAV bytes of a stored run.
func (s *Service) Audio(id string) ([]byte, error) {
	a, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return a.WAV, nil
}

// Outcome classifies a Produce error for metrics and HTTP mapping.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case IsInputError(err):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, ErrSolverFailed):
		return metrics.OutcomeSolverFailed
	default:
		return metrics.OutcomeError
	}
}

// IsInputError reports whether err was caused by user input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, quantum.ErrInvalidAmplitude) ||
		errors.Is(err, quantum.ErrMissingAmplitudes) ||
		errors.Is(err, quantum.ErrZeroState) ||
		errors.Is(err, quantum.ErrQubitCount)
}
