// Package molecule defines the molecule model used by the perturbation
// tooling: atoms with Cartesian coordinates, an explicit bond list, and the
// trivalent-center discovery that drives improper scans.
package molecule

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Atom is a single atom. Element is a normalized symbol ("N", "Cl").
type Atom struct {
	Element string
	Pos     r3.Vec
}

// Bond connects two atoms by 0-based index. A < B always holds after
// AddBond.
type Bond struct {
	A, B int
}

// Molecule is a named set of atoms and bonds. Atom indices are 0-based
// throughout the API; file formats that count from 1 convert at the IO
// boundary.
type Molecule struct {
	Name  string
	Atoms []Atom
	Bonds []Bond
}

// Improper identifies one improper center: a central atom and its three
// bonded outer atoms.
type Improper struct {
	Center int
	Outer  [3]int
}

// NormalizeElement canonicalizes an element symbol: "CL" -> "Cl", "n" -> "N".
func NormalizeElement(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if len(s) == 1 {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// AddBond records a bond between atoms a and b, ignoring duplicates and
// self-bonds.
func (m *Molecule) AddBond(a, b int) {
	if a == b {
		return
	}
	if a > b {
		a, b = b, a
	}
	for _, bd := range m.Bonds {
		if bd.A == a && bd.B == b {
			return
		}
	}
	m.Bonds = append(m.Bonds, Bond{A: a, B: b})
}

// Neighbors returns the indices of all atoms bonded to i, in bond order.
func (m *Molecule) Neighbors(i int) []int {
	var out []int
	for _, b := range m.Bonds {
		switch i {
		case b.A:
			out = append(out, b.B)
		case b.B:
			out = append(out, b.A)
		}
	}
	return out
}

// Degree returns the number of bonds at atom i.
func (m *Molecule) Degree(i int) int {
	return len(m.Neighbors(i))
}

// Bonded reports whether atoms a and b share a bond.
func (m *Molecule) Bonded(a, b int) bool {
	for _, n := range m.Neighbors(a) {
		if n == b {
			return true
		}
	}
	return false
}

// Substituents returns the atoms reachable from root without crossing
// exclude, not including root itself. Used to drag everything attached to a
// moved atom through the same rotation.
func (m *Molecule) Substituents(root, exclude int) []int {
	seen := map[int]bool{root: true, exclude: true}
	stack := m.Neighbors(root)
	var out []int
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
		stack = append(stack, m.Neighbors(i)...)
	}
	return out
}

// Clone returns a deep copy.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{
		Name:  m.Name,
		Atoms: make([]Atom, len(m.Atoms)),
		Bonds: make([]Bond, len(m.Bonds)),
	}
	copy(c.Atoms, m.Atoms)
	copy(c.Bonds, m.Bonds)
	return c
}

// CheckIndex validates a 0-based atom index.
func (m *Molecule) CheckIndex(i int) error {
	if i < 0 || i >= len(m.Atoms) {
		return fmt.Errorf("atom index %d out of range (molecule has %d atoms)", i, len(m.Atoms))
	}
	return nil
}

// FindImpropers returns one Improper for every trivalently-bonded nitrogen.
// The outer atoms are listed in bond order.
func FindImpropers(m *Molecule) []Improper {
	return findImpropers(m, true)
}

// FindImpropersAll is FindImpropers without the nitrogen filter: any atom
// with exactly three neighbors qualifies.
func FindImpropersAll(m *Molecule) []Improper {
	return findImpropers(m, false)
}

func findImpropers(m *Molecule, nitrogenOnly bool) []Improper {
	var out []Improper
	for i, a := range m.Atoms {
		if nitrogenOnly && a.Element != "N" {
			continue
		}
		nbrs := m.Neighbors(i)
		if len(nbrs) != 3 {
			continue
		}
		out = append(out, Improper{Center: i, Outer: [3]int{nbrs[0], nbrs[1], nbrs[2]}})
	}
	return out
}
