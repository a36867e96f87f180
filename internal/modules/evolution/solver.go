// Package evolution integrates the Schrödinger and Lindblad master equations for a
// Hamiltonian H(t) = H_s + f(t) D with a diagonal drive D, and records expectation
// values of observables on a time grid.
package evolution

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"github.com/aristath/qmusic/internal/modules/quantum"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

const (
	hermitianTol = 1e-9
	cancelCheck  = 4096
)

// Problem describes a single evolution.
type Problem struct {
	Psi0        *quantum.State
	Static      *quantum.Operator
	Drive       *quantum.Operator // nil for a time-independent Hamiltonian
	Coefficient func(t float64) float64
	Times       []float64
	Collapse    []*quantum.Operator // empty for a closed system
	Observables []*quantum.Operator
}

// Result holds one expectation trajectory per observable, aligned with Times.
type Result struct {
	Times  []float64
	Expect [][]float64
	Steps  int

	// Psi is the final ket of a closed evolution, Rho the final density matrix of an open one.
	Psi []complex128
	Rho *quantum.Operator
}

// Options tunes the integrator.
type Options struct {
	// Substeps splits every grid interval into this many integration steps.
	Substeps int
}

// Solver integrates Problems.
type Solver struct {
	opts Options
	log  zerolog.Logger
}

// NewSolver creates a solver. Substeps below 1 are treated as 1.
func NewSolver(opts Options, log zerolog.Logger) *Solver {
	if opts.Substeps < 1 {
		opts.Substeps = 1
	}
	return &Solver{
		opts: opts,
		log:  log.With().Str("component", "solver").Logger(),
	}
}

// Solve evolves p.Psi0 over p.Times and returns the observable trajectories.
//
// Each step of length h is the symmetric splitting
//
//	exp(-i H_s h/2) exp(-i D ∫f) exp(-i H_s h/2)
//
// where the static factors are exact and the drive integral uses Simpson's rule. Open
// systems evolve ρ and insert an RK4 step of the Lindblad dissipator between the two
// unitary halves.
func (s *Solver) Solve(ctx context.Context, p Problem) (*Result, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	start := time.Now()
	spec, err := decompose(p.Static)
	if err != nil {
		return nil, err
	}

	var drive []float64
	if p.Drive != nil {
		drive = make([]float64, p.Drive.Dim())
		for k, v := range p.Drive.Diagonal() {
			drive[k] = real(v)
		}
	}

	res := &Result{
		Times:  append([]float64(nil), p.Times...),
		Expect: make([][]float64, len(p.Observables)),
	}
	for i := range res.Expect {
		res.Expect[i] = make([]float64, len(p.Times))
	}

	ev := &stepper{
		d:        p.Static.Dim(),
		spec:     spec,
		drive:    drive,
		coeff:    p.Coefficient,
		substeps: s.opts.Substeps,
	}

	open := len(p.Collapse) > 0
	if open {
		err = ev.runDensity(ctx, p, res)
	} else {
		err = ev.runKet(ctx, p, res)
	}
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("dim", ev.d).
		Int("steps", res.Steps).
		Bool("open", open).
		Dur("elapsed", time.Since(start)).
		Msg("Evolution complete")
	return res, nil
}

func validate(p Problem) error {
	if p.Static == nil {
		return fmt.Errorf("%w: static Hamiltonian missing", ErrDimensionMismatch)
	}
	d := p.Static.Dim()
	if p.Psi0 == nil || p.Psi0.Dim() != d {
		return fmt.Errorf("%w: initial state does not match %d-dimensional Hamiltonian", ErrDimensionMismatch, d)
	}
	if !p.Static.IsHermitian(hermitianTol) {
		return fmt.Errorf("%w: static Hamiltonian is not Hermitian", ErrUnsupportedOperator)
	}
	if p.Drive != nil {
		if p.Drive.Dim() != d {
			return fmt.Errorf("%w: drive is %d-dimensional, Hamiltonian %d", ErrDimensionMismatch, p.Drive.Dim(), d)
		}
		if !p.Drive.IsDiagonal(hermitianTol) {
			return fmt.Errorf("%w: drive operator must be diagonal", ErrUnsupportedOperator)
		}
		for _, v := range p.Drive.Diagonal() {
			if math.Abs(imag(v)) > hermitianTol {
				return fmt.Errorf("%w: drive operator must be real", ErrUnsupportedOperator)
			}
		}
		if p.Coefficient == nil {
			return fmt.Errorf("%w: drive operator without coefficient function", ErrUnsupportedOperator)
		}
	}
	for i, c := range p.Collapse {
		if c == nil || c.Dim() != d {
			return fmt.Errorf("%w: collapse operator %d", ErrDimensionMismatch, i)
		}
	}
	for i, o := range p.Observables {
		if o == nil || o.Dim() != d {
			return fmt.Errorf("%w: observable %d", ErrDimensionMismatch, i)
		}
	}
	return validateGrid(p.Times)
}

// stepper carries the propagator cache shared by the ket and density loops.
type stepper struct {
	d        int
	spec     *spectrum
	drive    []float64
	coeff    func(float64) float64
	substeps int

	tau  float64
	half []complex128
}

// staticHalf returns exp(-i H_s tau), recomputing it only when tau changes.
func (e *stepper) staticHalf(tau float64) []complex128 {
	if e.half == nil || math.Abs(tau-e.tau) > 1e-9*math.Abs(e.tau) {
		e.tau = tau
		e.half = e.spec.propagator(tau)
	}
	return e.half
}

func (e *stepper) driveIntegral(a, b float64) float64 {
	if e.drive == nil {
		return 0
	}
	return simpson(e.coeff, a, b)
}

func (e *stepper) runKet(ctx context.Context, p Problem, res *Result) error {
	d := e.d
	psi := append([]complex128(nil), p.Psi0.Amplitudes...)
	tmp := make([]complex128, d)
	phase := make([]complex128, d)

	record := func(k int) error {
		for o, op := range p.Observables {
			v := expectKet(op, psi, tmp)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite expectation at t=%g", ErrNonConvergence, p.Times[k])
			}
			res.Expect[o][k] = v
		}
		return nil
	}
	if err := record(0); err != nil {
		return err
	}

	x := cblas128.Vector{N: d, Inc: 1, Data: psi}
	y := cblas128.Vector{N: d, Inc: 1, Data: tmp}
	for k := 1; k < len(p.Times); k++ {
		h := (p.Times[k] - p.Times[k-1]) / float64(e.substeps)
		for sub := 0; sub < e.substeps; sub++ {
			if res.Steps%cancelCheck == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			a := p.Times[k-1] + float64(sub)*h
			b := a + h
			if sub == e.substeps-1 {
				b = p.Times[k]
			}

			if !e.spec.zero {
				u := general(d, e.staticHalf((b-a)/2))
				cblas128.Gemv(blas.NoTrans, 1, u, x, 0, y)
				copy(psi, tmp)
			}
			if e.drive != nil {
				phases(phase, e.drive, e.driveIntegral(a, b))
				for i := range psi {
					psi[i] *= phase[i]
				}
			}
			if !e.spec.zero {
				u := general(d, e.staticHalf((b-a)/2))
				cblas128.Gemv(blas.NoTrans, 1, u, x, 0, y)
				copy(psi, tmp)
			}
			res.Steps++
		}
		if err := record(k); err != nil {
			return err
		}
	}
	res.Psi = psi
	return nil
}

func (e *stepper) runDensity(ctx context.Context, p Problem, res *Result) error {
	d := e.d
	rho := make([]complex128, d*d)
	for i, ai := range p.Psi0.Amplitudes {
		for j, aj := range p.Psi0.Amplitudes {
			rho[i*d+j] = ai * cmplx.Conj(aj)
		}
	}

	diss := newDissipator(d, p.Collapse)
	tmp := make([]complex128, d*d)
	v := make([]complex128, d*d)
	phase := make([]complex128, d)

	record := func(k int) error {
		for o, op := range p.Observables {
			val := expectDensity(op, rho)
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return fmt.Errorf("%w: non-finite expectation at t=%g", ErrNonConvergence, p.Times[k])
			}
			res.Expect[o][k] = val
		}
		return nil
	}
	if err := record(0); err != nil {
		return err
	}

	// unitary applies ρ -> V ρ V† for the exact propagator over [a, b].
	unitary := func(a, b float64) {
		var integral float64
		if e.drive != nil {
			integral = e.driveIntegral(a, b)
			phases(phase, e.drive, integral)
		}
		if e.spec.zero {
			if e.drive == nil {
				return
			}
			for i := 0; i < d; i++ {
				for j := 0; j < d; j++ {
					rho[i*d+j] *= phase[i] * cmplx.Conj(phase[j])
				}
			}
			return
		}

		u := e.staticHalf((b - a) / 2)
		if e.drive == nil {
			cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, general(d, u), general(d, u), 0, general(d, v))
		} else {
			// V = U P U with P diagonal: scale the columns of U, then multiply.
			for r := 0; r < d; r++ {
				for c := 0; c < d; c++ {
					tmp[r*d+c] = u[r*d+c] * phase[c]
				}
			}
			cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, general(d, tmp), general(d, u), 0, general(d, v))
		}
		cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, general(d, v), general(d, rho), 0, general(d, tmp))
		cblas128.Gemm(blas.NoTrans, blas.ConjTrans, 1, general(d, tmp), general(d, v), 0, general(d, rho))
	}

	for k := 1; k < len(p.Times); k++ {
		h := (p.Times[k] - p.Times[k-1]) / float64(e.substeps)
		for sub := 0; sub < e.substeps; sub++ {
			if res.Steps%cancelCheck == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			a := p.Times[k-1] + float64(sub)*h
			b := a + h
			if sub == e.substeps-1 {
				b = p.Times[k]
			}
			mid := (a + b) / 2

			unitary(a, mid)
			diss.step(rho, b-a)
			unitary(mid, b)
			res.Steps++
		}
		if err := record(k); err != nil {
			return err
		}
	}
	res.Rho = quantum.NewOperator(d, rho)
	return nil
}

// expectKet returns Re <psi|O|psi>.
func expectKet(op *quantum.Operator, psi, tmp []complex128) float64 {
	d := len(psi)
	x := cblas128.Vector{N: d, Inc: 1, Data: psi}
	y := cblas128.Vector{N: d, Inc: 1, Data: tmp}
	cblas128.Gemv(blas.NoTrans, 1, op.Raw(), x, 0, y)
	return real(cblas128.Dotc(x, y))
}

// expectDensity returns Re Tr(O ρ).
func expectDensity(op *quantum.Operator, rho []complex128) float64 {
	d := op.Dim()
	raw := op.Raw()
	var sum complex128
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			sum += raw.Data[i*raw.Stride+j] * rho[j*d+i]
		}
	}
	return real(sum)
}
