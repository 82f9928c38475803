// Package perturb moves one outer atom of an improper center, either within
// the plane of the three outer atoms (valence perturbation) or out of it
// (improper perturbation). Substituents bonded to the moved atom ride along
// through the same rotation, so perturbing a methyl nitrogen keeps the
// methyl group intact.
package perturb

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"offnitro/internal/geom"
	"offnitro/internal/molecule"
)

// Kind selects which angle a perturbation changes.
type Kind string

const (
	// KindValence rotates the mover within the outer-atom plane, changing
	// the valence angles at the center while holding the improper.
	KindValence Kind = "valence"
	// KindImproper rotates the mover about the axis through the other two
	// outer atoms, changing the improper angle.
	KindImproper Kind = "improper"
)

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindValence:
		return KindValence, nil
	case KindImproper:
		return KindImproper, nil
	}
	return "", fmt.Errorf("unknown perturbation kind %q (want %q or %q)", s, KindValence, KindImproper)
}

// Report captures the angles around an improper center before and after a
// perturbation. Valence angles are ordered center-outer pairs: (a1,a2),
// (a1,mover), (a2,mover), matching the order the original tooling printed.
type Report struct {
	ImproperBefore float64
	ImproperAfter  float64
	ValenceBefore  [3]float64
	ValenceAfter   [3]float64
}

// Apply perturbs m in place by theta degrees around the improper center.
// mover must be one of the improper's outer atoms; the remaining two outer
// atoms define the rotation axis. The returned report carries the improper
// and valence angles before and after the move.
func Apply(m *molecule.Molecule, kind Kind, imp molecule.Improper, mover int, thetaDeg float64) (*Report, error) {
	if err := m.CheckIndex(imp.Center); err != nil {
		return nil, err
	}
	if err := m.CheckIndex(mover); err != nil {
		return nil, err
	}
	if !m.Bonded(imp.Center, mover) {
		return nil, fmt.Errorf("atom %d is not bonded to center %d", mover, imp.Center)
	}

	// The two outer atoms that stay put.
	var fixed []int
	for _, o := range imp.Outer {
		if o != mover {
			fixed = append(fixed, o)
		}
	}
	if len(fixed) != 2 {
		return nil, fmt.Errorf("atom %d is not an outer atom of the improper at center %d", mover, imp.Center)
	}

	center := m.Atoms[imp.Center].Pos
	a1 := m.Atoms[fixed[0]].Pos
	a2 := m.Atoms[fixed[1]].Pos
	mv := m.Atoms[mover].Pos

	var axis r3.Vec
	switch kind {
	case KindValence:
		// Normal of the outer-atom plane: (a2-a1) x (a2-mover).
		axis = r3.Cross(r3.Sub(a2, a1), r3.Sub(a2, mv))
	case KindImproper:
		// The axis through the two fixed outer atoms.
		axis = r3.Sub(a2, a1)
	default:
		return nil, fmt.Errorf("unknown perturbation kind %q", kind)
	}

	rot, err := geom.RotationMatrix(axis, thetaDeg)
	if err != nil {
		return nil, fmt.Errorf("improper at center %d is degenerate (collinear outer atoms): %w", imp.Center, err)
	}

	rep := &Report{
		ImproperBefore: geom.ImproperAngle(center, a1, a2, mv),
		ValenceBefore: [3]float64{
			geom.ValenceAngle(center, a1, a2),
			geom.ValenceAngle(center, a1, mv),
			geom.ValenceAngle(center, a2, mv),
		},
	}

	// Rotate the mover and everything hanging off it about an axis through
	// the central atom, so bond lengths to the center are preserved.
	m.Atoms[mover].Pos = rot.RotateAbout(mv, center)
	for _, i := range m.Substituents(mover, imp.Center) {
		m.Atoms[i].Pos = rot.RotateAbout(m.Atoms[i].Pos, center)
	}

	moved := m.Atoms[mover].Pos
	rep.ImproperAfter = geom.ImproperAngle(center, a1, a2, moved)
	rep.ValenceAfter = [3]float64{
		geom.ValenceAngle(center, a1, a2),
		geom.ValenceAngle(center, a1, moved),
		geom.ValenceAngle(center, a2, moved),
	}
	return rep, nil
}

// Valence is Apply with KindValence.
func Valence(m *molecule.Molecule, imp molecule.Improper, mover int, thetaDeg float64) (*Report, error) {
	return Apply(m, KindValence, imp, mover, thetaDeg)
}

// Improper is Apply with KindImproper.
func Improper(m *molecule.Molecule, imp molecule.Improper, mover int, thetaDeg float64) (*Report, error) {
	return Apply(m, KindImproper, imp, mover, thetaDeg)
}

// Measure returns the current angles around an improper center without
// moving anything. Before and after fields are identical.
func Measure(m *molecule.Molecule, imp molecule.Improper, mover int) (*Report, error) {
	c := m.Clone()
	return Apply(c, KindImproper, imp, mover, 0)
}
