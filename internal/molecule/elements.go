package molecule

import "gonum.org/v1/gonum/spatial/r3"

// covalentRadius holds single-bond covalent radii in angstroms for the
// elements that show up in the nitrogen series (Cordero 2008 values,
// rounded). Unknown elements fall back to a generic 0.75.
var covalentRadius = map[string]float64{
	"H":  0.31,
	"B":  0.84,
	"C":  0.76,
	"N":  0.71,
	"O":  0.66,
	"F":  0.57,
	"Si": 1.11,
	"P":  1.07,
	"S":  1.05,
	"Cl": 1.02,
	"Br": 1.20,
	"I":  1.39,
}

const defaultRadius = 0.75

// bondTolerance is the slack added on top of the summed covalent radii when
// deciding whether two atoms are bonded.
const bondTolerance = 0.45

// InferBonds fills in the bond list from interatomic distances: two atoms are
// bonded when their separation is below the sum of their covalent radii plus
// a tolerance. Existing bonds are kept. XYZ files carry no connectivity, so
// this runs after reading them.
func (m *Molecule) InferBonds() {
	for i := 0; i < len(m.Atoms); i++ {
		ri, ok := covalentRadius[m.Atoms[i].Element]
		if !ok {
			ri = defaultRadius
		}
		for j := i + 1; j < len(m.Atoms); j++ {
			rj, ok := covalentRadius[m.Atoms[j].Element]
			if !ok {
				rj = defaultRadius
			}
			cutoff := ri + rj + bondTolerance
			if r3.Norm(r3.Sub(m.Atoms[i].Pos, m.Atoms[j].Pos)) <= cutoff {
				m.AddBond(i, j)
			}
		}
	}
}
