package evolution

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/aristath/qmusic/internal/modules/field"
	"github.com/aristath/qmusic/internal/modules/hamiltonian"
	"github.com/aristath/qmusic/internal/modules/quantum"
	"github.com/rs/zerolog"
)

// Spec is a fully collected simulation: spin layout, couplings, field, initial state and
// the measurement to record.
type Spec struct {
	Topology   hamiltonian.Topology
	Couplings  hamiltonian.Couplings
	Gradient   hamiltonian.Gradient
	DriveMode  hamiltonian.DriveMode
	Observable hamiltonian.ObservableKind
	Field      field.Field
	Initial    *quantum.State
	Duration   float64
	SampleRate int

	// NoiseStd > 0 adds Gaussian noise to the field, one sample per grid point.
	NoiseStd    float64
	NoiseSource rand.Source

	// DecayRate > 0 makes the system open with a single collective lowering operator.
	DecayRate float64
}

// Trajectory is the expectation value of the chosen observable on the output grid.
type Trajectory struct {
	Times      []float64
	Values     []float64
	SampleRate int
	Steps      int
	Open       bool
}

// Driver turns a Spec into a Trajectory.
type Driver struct {
	solver *Solver
	log    zerolog.Logger
}

// NewDriver creates a driver on top of solver.
func NewDriver(solver *Solver, log zerolog.Logger) *Driver {
	return &Driver{
		solver: solver,
		log:    log.With().Str("component", "evolution_driver").Logger(),
	}
}

// Run assembles the Hamiltonian, builds the field and collapse operators and solves.
func (d *Driver) Run(ctx context.Context, spec Spec) (*Trajectory, error) {
	if spec.Initial == nil {
		return nil, fmt.Errorf("%w: initial state missing", ErrDimensionMismatch)
	}
	if spec.Topology != nil && spec.Initial.Qubits != spec.Topology.Sites() {
		return nil, fmt.Errorf("%w: %d-qubit state for %d-site %s",
			ErrDimensionMismatch, spec.Initial.Qubits, spec.Topology.Sites(), spec.Topology.Name())
	}
	if err := spec.Field.Validate(); err != nil {
		return nil, err
	}
	if spec.DecayRate < 0 || math.IsNaN(spec.DecayRate) {
		return nil, fmt.Errorf("%w: negative decay rate %g", ErrUnsupportedOperator, spec.DecayRate)
	}

	assembly, err := hamiltonian.Assemble(spec.Topology, spec.Couplings, spec.Gradient, spec.DriveMode)
	if err != nil {
		return nil, err
	}
	observable, err := assembly.Observable(spec.Observable)
	if err != nil {
		return nil, err
	}

	times, err := TimeGrid(spec.Duration, spec.SampleRate)
	if err != nil {
		return nil, err
	}

	fld := spec.Field
	if spec.NoiseStd > 0 {
		src := spec.NoiseSource
		if src == nil {
			src = rand.NewPCG(rand.Uint64(), rand.Uint64())
		}
		noise, err := field.NewNoise(times, spec.NoiseStd, src)
		if err != nil {
			return nil, err
		}
		fld.Noise = noise
	}

	collapse := CollapseOperators(assembly.Sites, spec.DecayRate)

	d.log.Debug().
		Str("topology", spec.Topology.Name()).
		Int("qubits", assembly.Sites).
		Float64("duration", spec.Duration).
		Int("samples", len(times)).
		Bool("open", len(collapse) > 0).
		Msg("Starting evolution")

	start := time.Now()
	res, err := d.solver.Solve(ctx, Problem{
		Psi0:        spec.Initial,
		Static:      assembly.Static,
		Drive:       assembly.Drive,
		Coefficient: fld.Func(),
		Times:       times,
		Collapse:    collapse,
		Observables: []*quantum.Operator{observable},
	})
	if err != nil {
		return nil, fmt.Errorf("evolution failed: %w", err)
	}

	d.log.Info().
		Int("samples", len(times)).
		Int("steps", res.Steps).
		Dur("elapsed", time.Since(start)).
		Msg("Trajectory computed")

	return &Trajectory{
		Times:      res.Times,
		Values:     res.Expect[0],
		SampleRate: spec.SampleRate,
		Steps:      res.Steps,
		Open:       len(collapse) > 0,
	}, nil
}

// CollapseOperators returns sqrt(rate) * σ₋^{⊗n}, or nothing for a closed system.
func CollapseOperators(n int, rate float64) []*quantum.Operator {
	if rate <= 0 {
		return nil
	}
	return []*quantum.Operator{
		quantum.Repeat(quantum.Lowering(), n).Scale(complex(math.Sqrt(rate), 0)),
	}
}
