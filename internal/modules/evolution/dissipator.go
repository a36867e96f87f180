package evolution

import (
	"math/cmplx"

	"github.com/aristath/qmusic/internal/modules/quantum"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

type entry struct {
	r, c int
	v    complex128
}

// term is a d x d operator held densely and, when it has at most d non-zero
// elements, also as a list of entries so products with ρ cost O(nnz²) instead of O(d³).
type term struct {
	d       int
	dense   []complex128
	entries []entry
	sparse  bool
}

func newTerm(d int, data []complex128) term {
	t := term{d: d, dense: data}
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			if v := data[r*d+c]; v != 0 {
				t.entries = append(t.entries, entry{r: r, c: c, v: v})
			}
		}
	}
	t.sparse = len(t.entries) <= d
	return t
}

// sandwich accumulates T ρ T† into out. tmp is scratch space of size d*d.
func (t term) sandwich(out, rho, tmp []complex128) {
	d := t.d
	if t.sparse {
		for _, a := range t.entries {
			for _, b := range t.entries {
				out[a.r*d+b.r] += a.v * rho[a.c*d+b.c] * cmplx.Conj(b.v)
			}
		}
		return
	}
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, general(d, t.dense), general(d, rho), 0, general(d, tmp))
	cblas128.Gemm(blas.NoTrans, blas.ConjTrans, 1, general(d, tmp), general(d, t.dense), 1, general(d, out))
}

// anticommute accumulates alpha (T ρ + ρ T) into out.
func (t term) anticommute(out, rho []complex128, alpha complex128) {
	d := t.d
	if t.sparse {
		for _, e := range t.entries {
			av := alpha * e.v
			for j := 0; j < d; j++ {
				out[e.r*d+j] += av * rho[e.c*d+j]
			}
			for i := 0; i < d; i++ {
				out[i*d+e.c] += av * rho[i*d+e.r]
			}
		}
		return
	}
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, alpha, general(d, t.dense), general(d, rho), 1, general(d, out))
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, alpha, general(d, rho), general(d, t.dense), 1, general(d, out))
}

// dissipator is the Lindblad superoperator
//
//	D(ρ) = Σ_c C ρ C† - ½ {K, ρ},  K = Σ_c C†C
//
// integrated with classical RK4.
type dissipator struct {
	d        int
	collapse []term
	k        term

	tmp, stage     []complex128
	k1, k2, k3, k4 []complex128
}

func newDissipator(d int, ops []*quantum.Operator) *dissipator {
	kSum := quantum.Zero(d)
	collapse := make([]term, len(ops))
	for i, op := range ops {
		collapse[i] = newTerm(d, op.Data())
		kSum = kSum.Add(op.Adjoint().Mul(op))
	}

	buf := func() []complex128 { return make([]complex128, d*d) }
	return &dissipator{
		d:        d,
		collapse: collapse,
		k:        newTerm(d, kSum.Data()),
		tmp:      buf(),
		stage:    buf(),
		k1:       buf(),
		k2:       buf(),
		k3:       buf(),
		k4:       buf(),
	}
}

func (l *dissipator) apply(out, rho []complex128) {
	clear(out)
	for _, c := range l.collapse {
		c.sandwich(out, rho, l.tmp)
	}
	l.k.anticommute(out, rho, -0.5)
}

// step advances rho in place by h under the dissipator alone.
func (l *dissipator) step(rho []complex128, h float64) {
	ch := complex(h, 0)

	l.apply(l.k1, rho)
	axpy(l.stage, rho, l.k1, ch/2)
	l.apply(l.k2, l.stage)
	axpy(l.stage, rho, l.k2, ch/2)
	l.apply(l.k3, l.stage)
	axpy(l.stage, rho, l.k3, ch)
	l.apply(l.k4, l.stage)

	w := ch / 6
	for i := range rho {
		rho[i] += w * (l.k1[i] + 2*l.k2[i] + 2*l.k3[i] + l.k4[i])
	}
}

// axpy sets dst = x + a*y.
func axpy(dst, x, y []complex128, a complex128) {
	for i := range dst {
		dst[i] = x[i] + a*y[i]
	}
}

func general(d int, data []complex128) cblas128.General {
	return cblas128.General{Rows: d, Cols: d, Stride: d, Data: data}
}
