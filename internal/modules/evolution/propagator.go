package evolution

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/aristath/qmusic/internal/modules/quantum"
	"gonum.org/v1/gonum/mat"
)

// spectrum is the eigendecomposition of a Hermitian operator H = A + iB through its
// real symmetric embedding M = [[A, -B], [B, A]]. Every eigenvalue of H appears twice in M.
type spectrum struct {
	dim     int
	values  []float64
	vectors *mat.Dense
	zero    bool
}

func decompose(h *quantum.Operator) (*spectrum, error) {
	d := h.Dim()
	s := &spectrum{dim: d, zero: true}
	for i := 0; i < d && s.zero; i++ {
		for j := 0; j < d; j++ {
			if h.At(i, j) != 0 {
				s.zero = false
				break
			}
		}
	}
	if s.zero {
		return s, nil
	}

	m := mat.NewSymDense(2*d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			a, b := real(h.At(i, j)), imag(h.At(i, j))
			m.SetSym(i, j, a)
			m.SetSym(d+i, d+j, a)
			m.SetSym(i, d+j, -b)
			if j != i {
				// B is antisymmetric: (j, d+i) = -B[j][i] = B[i][j]
				m.SetSym(j, d+i, b)
			}
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return nil, fmt.Errorf("%w: eigendecomposition of static Hamiltonian failed", ErrNonConvergence)
	}
	s.values = eig.Values(nil)
	s.vectors = new(mat.Dense)
	eig.VectorsTo(s.vectors)
	for _, v := range s.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite eigenvalue", ErrNonConvergence)
		}
	}
	return s, nil
}

// propagator returns exp(-i H tau) as a row-major d x d slice.
//
// With M = V Λ Vᵀ the embedding of exp(-iHτ) is cos(Mτ) - J sin(Mτ), J = [[0, -I], [I, 0]],
// whose upper-left block is the real part and lower-left block the imaginary part.
func (s *spectrum) propagator(tau float64) []complex128 {
	d := s.dim
	out := make([]complex128, d*d)
	if s.zero {
		for i := 0; i < d; i++ {
			out[i*d+i] = 1
		}
		return out
	}

	n := 2 * d
	cosScaled := mat.NewDense(n, n, nil)
	sinScaled := mat.NewDense(n, n, nil)
	for c := 0; c < n; c++ {
		cv, sv := math.Cos(s.values[c]*tau), math.Sin(s.values[c]*tau)
		for r := 0; r < n; r++ {
			v := s.vectors.At(r, c)
			cosScaled.Set(r, c, v*cv)
			sinScaled.Set(r, c, v*sv)
		}
	}
	var cm, sm mat.Dense
	cm.Mul(cosScaled, s.vectors.T())
	sm.Mul(sinScaled, s.vectors.T())

	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			out[r*d+c] = complex(cm.At(r, c)+sm.At(d+r, c), cm.At(d+r, c)-sm.At(r, c))
		}
	}
	return out
}

// phases fills dst with exp(-i diag_k * integral) for a real diagonal drive.
func phases(dst []complex128, diag []float64, integral float64) {
	for k, v := range diag {
		dst[k] = cmplx.Exp(complex(0, -v*integral))
	}
}

// simpson integrates f over [a, b] with a single Simpson panel.
func simpson(f func(float64) float64, a, b float64) float64 {
	return (b - a) / 6 * (f(a) + 4*f((a+b)/2) + f(b))
}
