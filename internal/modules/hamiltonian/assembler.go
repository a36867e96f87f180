// Package hamiltonian assembles spin Hamiltonians as sums of tensor products of
// single-site Pauli operators for chain and lattice topologies.
package hamiltonian

import (
	"errors"
	"fmt"

	"github.com/aristath/qmusic/internal/modules/quantum"
)

var (
	// ErrInvalidTopology is returned for topologies without sites or with bonds outside the register.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrUnknownDriveMode is returned for drive modes other than collective or tensor.
	ErrUnknownDriveMode = errors.New("unknown drive mode")
	// ErrUnknownObservable is returned for observables other than tensor_y or sum_y.
	ErrUnknownObservable = errors.New("unknown observable")
)

// DriveMode selects the operator multiplied by the time-dependent field.
type DriveMode string

const (
	// DriveCollective couples the field to every site: B(t) * sum_i Z_i.
	DriveCollective DriveMode = "collective"
	// DriveTensor couples the field to Z ⊗ Z ⊗ ... ⊗ Z.
	DriveTensor DriveMode = "tensor"
)

// ObservableKind selects the measured operator.
type ObservableKind string

const (
	ObservableTensorY ObservableKind = "tensor_y"
	ObservableSumY    ObservableKind = "sum_y"
)

// Couplings holds the nearest-neighbour interaction strengths.
// Each bond contributes Exchange*(XX + YY) + J*ZZ.
type Couplings struct {
	J        float64 `json:"j"`
	Exchange float64 `json:"exchange"`
}

// DefaultCouplings returns the isotropic exchange with the ZZ term switched off.
func DefaultCouplings() Couplings {
	return Couplings{J: 0, Exchange: 1}
}

// Gradient is the spatial slope of the static Z field.
type Gradient struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Assembly is the assembled Hamiltonian split into its static part and the operator driven by
// the time-dependent field, together with the two observables the collector offers.
type Assembly struct {
	Sites   int
	Static  *quantum.Operator
	Drive   *quantum.Operator
	TensorY *quantum.Operator
	SumY    *quantum.Operator
}

// Observable returns the requested measurement operator.
func (a *Assembly) Observable(kind ObservableKind) (*quantum.Operator, error) {
	switch kind {
	case ObservableTensorY, "":
		return a.TensorY, nil
	case ObservableSumY:
		return a.SumY, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownObservable, kind)
	}
}

// Assemble builds the full set of operators for the given topology.
func Assemble(topo Topology, couplings Couplings, gradient Gradient, mode DriveMode) (*Assembly, error) {
	if err := validateTopology(topo); err != nil {
		return nil, err
	}
	n := topo.Sites()
	if _, err := quantum.Dimension(n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopology, err)
	}

	coupling, err := AssembleBonds(n, topo.Bonds(), couplings)
	if err != nil {
		return nil, err
	}

	drive, err := DriveOperator(n, mode)
	if err != nil {
		return nil, err
	}

	return &Assembly{
		Sites:   n,
		Static:  coupling.Add(FieldTerm(topo, gradient)),
		Drive:   drive,
		TensorY: quantum.Repeat(quantum.PauliY(), n),
		SumY:    SumOverSites(quantum.PauliY(), n),
	}, nil
}

// AssembleBonds sums the exchange term over bonds. The result does not depend on bond order
// or on the orientation of each bond.
func AssembleBonds(n int, bonds []Bond, couplings Couplings) (*quantum.Operator, error) {
	dim := 1 << n
	total := quantum.Zero(dim)
	for _, b := range bonds {
		if b.I == b.J || b.I < 0 || b.J < 0 || b.I >= n || b.J >= n {
			return nil, fmt.Errorf("%w: bond {%d, %d} in %d-site register", ErrInvalidTopology, b.I, b.J, n)
		}
		total = total.Add(BondTerm(b, n, couplings))
	}
	return total, nil
}

// BondTerm returns Exchange*(X_i X_j + Y_i Y_j) + J*Z_i Z_j for a single bond.
func BondTerm(b Bond, n int, couplings Couplings) *quantum.Operator {
	pair := func(op *quantum.Operator) *quantum.Operator {
		return quantum.SiteOperator(op, b.I, n).Mul(quantum.SiteOperator(op, b.J, n))
	}
	xx := pair(quantum.PauliX())
	yy := pair(quantum.PauliY())
	zz := pair(quantum.PauliZ())

	return xx.Add(yy).Scale(complex(couplings.Exchange, 0)).Add(zz.Scale(complex(couplings.J, 0)))
}

// FieldTerm returns sum_i (Gradient.X*x_i + Gradient.Y*y_i) * Z_i.
func FieldTerm(topo Topology, gradient Gradient) *quantum.Operator {
	n := topo.Sites()
	total := quantum.Zero(1 << n)
	for i := 0; i < n; i++ {
		p := topo.Position(i)
		w := gradient.X*float64(p.X) + gradient.Y*float64(p.Y)
		if w == 0 {
			continue
		}
		total = total.Add(quantum.SiteOperator(quantum.PauliZ(), i, n).Scale(complex(w, 0)))
	}
	return total
}

// DriveOperator returns the operator multiplied by the field coefficient B(t).
func DriveOperator(n int, mode DriveMode) (*quantum.Operator, error) {
	switch mode {
	case DriveCollective, "":
		return SumOverSites(quantum.PauliZ(), n), nil
	case DriveTensor:
		return quantum.Repeat(quantum.PauliZ(), n), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriveMode, mode)
	}
}

// SumOverSites returns sum_i op_i over all n sites.
func SumOverSites(op *quantum.Operator, n int) *quantum.Operator {
	total := quantum.Zero(1 << n)
	for i := 0; i < n; i++ {
		total = total.Add(quantum.SiteOperator(op, i, n))
	}
	return total
}
