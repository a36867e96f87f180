package hamiltonian

import "fmt"

// Bond couples two distinct sites. Bonds are unordered: {I, J} and {J, I} are the same bond.
type Bond struct {
	I int `json:"i"`
	J int `json:"j"`
}

// normalized orders the endpoints so that I < J.
func (b Bond) normalized() Bond {
	if b.I > b.J {
		return Bond{I: b.J, J: b.I}
	}
	return b
}

// Position is the integer coordinate of a site, used by the field gradient.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Topology describes how qubits are laid out and which pairs interact.
type Topology interface {
	Sites() int
	Bonds() []Bond
	Position(site int) Position
	Name() string
}

// Chain is a ring of N qubits where every site couples to its successor modulo N.
type Chain struct {
	N int
}

// Sites returns the number of qubits in the ring.
func (c Chain) Sites() int { return c.N }

// Name returns "chain".
func (c Chain) Name() string { return "chain" }

// Position places site i at x = i on a line.
func (c Chain) Position(site int) Position {
	return Position{X: site}
}

// Bonds returns the unique bonds {i, (i+1) mod N}. A single site has none and two sites share one.
func (c Chain) Bonds() []Bond {
	seen := make(map[Bond]bool, c.N)
	bonds := make([]Bond, 0, c.N)
	for i := 0; i < c.N; i++ {
		j := (i + 1) % c.N
		if i == j {
			continue
		}
		b := Bond{I: i, J: j}.normalized()
		if seen[b] {
			continue
		}
		seen[b] = true
		bonds = append(bonds, b)
	}
	return bonds
}

// Lattice is an open Rows x Cols grid. Site i sits at x = i mod Cols, y = i div Cols.
type Lattice struct {
	Rows int
	Cols int
}

// SquareLattice returns the fixed 2x2 lattice offered by the collector.
func SquareLattice() Lattice {
	return Lattice{Rows: 2, Cols: 2}
}

// Sites returns Rows*Cols.
func (l Lattice) Sites() int { return l.Rows * l.Cols }

// Name returns "lattice".
func (l Lattice) Name() string { return "lattice" }

// Position returns the grid coordinate of site.
func (l Lattice) Position(site int) Position {
	return Position{X: site % l.Cols, Y: site / l.Cols}
}

// Bonds couples each site to its right and lower neighbour when present.
func (l Lattice) Bonds() []Bond {
	var bonds []Bond
	for i := 0; i < l.Sites(); i++ {
		p := l.Position(i)
		if p.X+1 < l.Cols {
			bonds = append(bonds, Bond{I: i, J: i + 1})
		}
		if p.Y+1 < l.Rows {
			bonds = append(bonds, Bond{I: i, J: i + l.Cols})
		}
	}
	return bonds
}

func validateTopology(t Topology) error {
	if t == nil {
		return fmt.Errorf("%w: nil topology", ErrInvalidTopology)
	}
	if t.Sites() < 1 {
		return fmt.Errorf("%w: %s with %d sites", ErrInvalidTopology, t.Name(), t.Sites())
	}
	return nil
}
