// Package quantum provides the dense operator and state-vector primitives used to build
// spin Hamiltonians: Pauli matrices, tensor products and normalised amplitude vectors.
package quantum

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// Operator is a square complex matrix acting on a 2^N dimensional state space.
type Operator struct {
	m *mat.CDense
}

// NewOperator creates a dim x dim operator from row-major data.
// A nil data slice yields the zero operator.
func NewOperator(dim int, data []complex128) *Operator {
	if data != nil && len(data) != dim*dim {
		panic(fmt.Sprintf("quantum: operator data length %d does not match dimension %d", len(data), dim))
	}
	return &Operator{m: mat.NewCDense(dim, dim, data)}
}

// Zero returns the dim x dim zero operator.
func Zero(dim int) *Operator {
	return NewOperator(dim, nil)
}

// Identity returns the dim x dim identity.
func Identity(dim int) *Operator {
	op := Zero(dim)
	for i := 0; i < dim; i++ {
		op.m.Set(i, i, 1)
	}
	return op
}

// PauliX returns sigma_x.
func PauliX() *Operator {
	return NewOperator(2, []complex128{0, 1, 1, 0})
}

// PauliY returns sigma_y.
func PauliY() *Operator {
	return NewOperator(2, []complex128{0, -1i, 1i, 0})
}

// PauliZ returns sigma_z.
func PauliZ() *Operator {
	return NewOperator(2, []complex128{1, 0, 0, -1})
}

// Lowering returns the two-level annihilation operator |0><1|.
func Lowering() *Operator {
	return NewOperator(2, []complex128{0, 1, 0, 0})
}

// Dim returns the dimension of the space the operator acts on.
func (o *Operator) Dim() int {
	r, _ := o.m.Dims()
	return r
}

// At returns the (i, j) matrix element.
func (o *Operator) At(i, j int) complex128 {
	return o.m.At(i, j)
}

// Raw exposes the backing row-major storage for BLAS routines.
func (o *Operator) Raw() cblas128.General {
	return o.m.RawCMatrix()
}

// Data returns a row-major copy of the matrix elements.
func (o *Operator) Data() []complex128 {
	dim := o.Dim()
	out := make([]complex128, 0, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			out = append(out, o.m.At(i, j))
		}
	}
	return out
}

// Clone returns a deep copy.
func (o *Operator) Clone() *Operator {
	return NewOperator(o.Dim(), o.Data())
}

// Add returns o + other.
func (o *Operator) Add(other *Operator) *Operator {
	mustMatch(o, other)
	dim := o.Dim()
	out := Zero(dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			out.m.Set(i, j, o.m.At(i, j)+other.m.At(i, j))
		}
	}
	return out
}

// Scale returns c * o.
func (o *Operator) Scale(c complex128) *Operator {
	dim := o.Dim()
	out := Zero(dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			out.m.Set(i, j, c*o.m.At(i, j))
		}
	}
	return out
}

// Mul returns the matrix product o * other.
func (o *Operator) Mul(other *Operator) *Operator {
	mustMatch(o, other)
	out := Zero(o.Dim())
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, o.Raw(), other.Raw(), 0, out.Raw())
	return out
}

// Adjoint returns the conjugate transpose.
func (o *Operator) Adjoint() *Operator {
	dim := o.Dim()
	out := Zero(dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			out.m.Set(j, i, cmplx.Conj(o.m.At(i, j)))
		}
	}
	return out
}

// Diagonal returns the diagonal elements.
func (o *Operator) Diagonal() []complex128 {
	dim := o.Dim()
	out := make([]complex128, dim)
	for i := range out {
		out[i] = o.m.At(i, i)
	}
	return out
}

// IsHermitian reports whether o equals its adjoint within tol.
func (o *Operator) IsHermitian(tol float64) bool {
	dim := o.Dim()
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			if cmplx.Abs(o.m.At(i, j)-cmplx.Conj(o.m.At(j, i))) > tol {
				return false
			}
		}
	}
	return true
}

// IsDiagonal reports whether every off-diagonal element is within tol of zero.
func (o *Operator) IsDiagonal(tol float64) bool {
	dim := o.Dim()
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			if i != j && cmplx.Abs(o.m.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

// ApproxEqual reports whether both operators have the same dimension and
// agree element-wise within tol.
func (o *Operator) ApproxEqual(other *Operator, tol float64) bool {
	if o.Dim() != other.Dim() {
		return false
	}
	dim := o.Dim()
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			if cmplx.Abs(o.m.At(i, j)-other.m.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

// Kron returns the tensor (Kronecker) product a ⊗ b. The first factor indexes the
// most significant part of the composite basis.
func Kron(a, b *Operator) *Operator {
	da, db := a.Dim(), b.Dim()
	out := Zero(da * db)
	for i1 := 0; i1 < da; i1++ {
		for j1 := 0; j1 < da; j1++ {
			av := a.m.At(i1, j1)
			if av == 0 {
				continue
			}
			for i2 := 0; i2 < db; i2++ {
				for j2 := 0; j2 < db; j2++ {
					out.m.Set(i1*db+i2, j1*db+j2, av*b.m.At(i2, j2))
				}
			}
		}
	}
	return out
}

// Tensor folds Kron over ops from left to right.
func Tensor(ops ...*Operator) *Operator {
	if len(ops) == 0 {
		return Identity(1)
	}
	out := ops[0]
	for _, op := range ops[1:] {
		out = Kron(out, op)
	}
	return out
}

// SiteOperator embeds a single-qubit operator at site in an n-qubit register.
func SiteOperator(op *Operator, site, n int) *Operator {
	if site < 0 || site >= n {
		panic(fmt.Sprintf("quantum: site %d out of range for %d qubits", site, n))
	}
	factors := make([]*Operator, n)
	for k := range factors {
		if k == site {
			factors[k] = op
		} else {
			factors[k] = Identity(2)
		}
	}
	return Tensor(factors...)
}

// Repeat returns op ⊗ op ⊗ ... with n factors.
func Repeat(op *Operator, n int) *Operator {
	factors := make([]*Operator, n)
	for k := range factors {
		factors[k] = op
	}
	return Tensor(factors...)
}

func mustMatch(a, b *Operator) {
	if a.Dim() != b.Dim() {
		panic(fmt.Sprintf("quantum: dimension mismatch %d vs %d", a.Dim(), b.Dim()))
	}
}
