package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxQubits bounds the register size the package will allocate for.
const MaxQubits = 10

// State is a normalised pure state of a qubit register in the computational basis.
type State struct {
	Qubits     int          `json:"qubits"`
	Amplitudes []complex128 `json:"-"`
}

// Dim returns 2^Qubits.
func (s *State) Dim() int {
	return len(s.Amplitudes)
}

// Norm returns the Euclidean norm of the amplitude vector.
func (s *State) Norm() float64 {
	return norm(s.Amplitudes)
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &State{Qubits: s.Qubits, Amplitudes: amps}
}

// Dimension returns 2^n after validating the qubit count.
func Dimension(n int) (int, error) {
	if n < 1 || n > MaxQubits {
		return 0, fmt.Errorf("%w: %d", ErrQubitCount, n)
	}
	return 1 << n, nil
}

// BasisLabel returns the n-bit binary label of basis index i, site 0 first.
func BasisLabel(i, n int) string {
	return fmt.Sprintf("%0*b", n, i)
}

// BasisLabels returns the labels of every basis state of an n-qubit register in index order.
func BasisLabels(n int) []string {
	labels := make([]string, 1<<n)
	for i := range labels {
		labels[i] = BasisLabel(i, n)
	}
	return labels
}

// DefaultState returns the equal superposition with every amplitude 1/sqrt(2^n).
func DefaultState(n int) (*State, error) {
	dim, err := Dimension(n)
	if err != nil {
		return nil, err
	}
	a := complex(1/math.Sqrt(float64(dim)), 0)
	amps := make([]complex128, dim)
	for i := range amps {
		amps[i] = a
	}
	return &State{Qubits: n, Amplitudes: amps}, nil
}

// NewState normalises the given amplitudes into a state. len(amps) must be 2^n.
func NewState(n int, amps []complex128) (*State, error) {
	dim, err := Dimension(n)
	if err != nil {
		return nil, err
	}
	if len(amps) != dim {
		return nil, fmt.Errorf("expected %d amplitudes for %d qubits, got %d", dim, n, len(amps))
	}
	out, err := Normalize(amps)
	if err != nil {
		return nil, err
	}
	return &State{Qubits: n, Amplitudes: out}, nil
}

// Normalize returns amps divided by their Euclidean norm.
func Normalize(amps []complex128) ([]complex128, error) {
	nrm := norm(amps)
	if nrm == 0 || math.IsNaN(nrm) {
		return nil, ErrZeroState
	}
	out := make([]complex128, len(amps))
	inv := complex(1/nrm, 0)
	for i, a := range amps {
		out[i] = a * inv
	}
	return out, nil
}

// MaxSeed bounds generated seeds so they survive a round trip through a JavaScript number.
const MaxSeed = 1 << 53

// NewSeed returns a random seed below MaxSeed.
func NewSeed() uint64 {
	return rand.Uint64N(MaxSeed)
}

// SeededSource returns the random source used for seeded states and noise.
func SeededSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed)
}

// RandomState draws real and imaginary parts uniformly from [-1, 1) and normalises.
func RandomState(n int, src rand.Source) (*State, error) {
	dim, err := Dimension(n)
	if err != nil {
		return nil, err
	}
	dist := distuv.Uniform{Min: -1, Max: 1, Src: src}
	re := make([]float64, dim)
	im := make([]float64, dim)
	for i := range re {
		re[i] = dist.Rand()
	}
	for i := range im {
		im[i] = dist.Rand()
	}
	amps := make([]complex128, dim)
	for i := range amps {
		amps[i] = complex(re[i], im[i])
	}
	return NewState(n, amps)
}

// ParseAmplitudes parses one amplitude string per basis state and normalises the result.
// Empty entries are reported together as a MissingAmplitudesError.
func ParseAmplitudes(n int, entries []string) (*State, error) {
	dim, err := Dimension(n)
	if err != nil {
		return nil, err
	}
	if len(entries) > dim {
		return nil, fmt.Errorf("expected %d amplitudes for %d qubits, got %d", dim, n, len(entries))
	}

	var missing []string
	amps := make([]complex128, dim)
	for i := 0; i < dim; i++ {
		if i >= len(entries) || strings.TrimSpace(entries[i]) == "" {
			missing = append(missing, BasisLabel(i, n))
			continue
		}
		a, err := ParseAmplitude(entries[i])
		if err != nil {
			return nil, &AmplitudeError{Index: i, Label: BasisLabel(i, n), Text: entries[i]}
		}
		amps[i] = a
	}
	if len(missing) > 0 {
		return nil, &MissingAmplitudesError{Labels: missing}
	}
	return NewState(n, amps)
}

// ParseAmplitude parses a complex literal such as "1", "-0.5j", "2+3j", "1-1i" or "j".
// Both j and i are accepted as the imaginary unit.
func ParseAmplitude(text string) (complex128, error) {
	s := strings.TrimSpace(text)
	// One matched pair of outer parentheses is allowed, as in "(1-2j)"
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" || strings.ContainsAny(s, "() \t\r\n") {
		return 0, ErrInvalidAmplitude
	}
	if strings.Contains(strings.ToLower(s), "0x") {
		return 0, ErrInvalidAmplitude
	}
	s = strings.NewReplacer("j", "i", "J", "i", "I", "i").Replace(s)

	// A bare unit ("i", "+i", "2-i") has no coefficient for ParseComplex.
	if strings.HasSuffix(s, "i") {
		head := s[:len(s)-1]
		if head == "" || strings.HasSuffix(head, "+") || strings.HasSuffix(head, "-") {
			s = head + "1i"
		}
	}

	c, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return 0, ErrInvalidAmplitude
	}
	if cmplx.IsNaN(c) || cmplx.IsInf(c) {
		return 0, ErrInvalidAmplitude
	}
	return c, nil
}

// FormatAmplitude renders a complex amplitude using j as the imaginary unit.
func FormatAmplitude(a complex128) string {
	s := strconv.FormatComplex(a, 'g', 6, 128)
	return s[:len(s)-2] + "j)"
}

// Render writes the state as a sum of amplitude-weighted kets, e.g.
// "(0.707107+0j)|0⟩ + (0.707107+0j)|1⟩".
func (s *State) Render() string {
	terms := make([]string, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		terms[i] = FormatAmplitude(a) + "|" + BasisLabel(i, s.Qubits) + "⟩"
	}
	return strings.Join(terms, " + ")
}

func norm(amps []complex128) float64 {
	if len(amps) == 0 {
		return 0
	}
	return cblas128.Nrm2(cblas128.Vector{N: len(amps), Inc: 1, Data: amps})
}
