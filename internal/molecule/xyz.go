package molecule

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ReadXYZ parses the standard XYZ format: an atom count line, a comment
// line, then one "Element x y z" line per atom. The comment line becomes the
// molecule name when non-empty. XYZ carries no connectivity; bonds are
// inferred from distances.
func ReadXYZ(r io.Reader) (*Molecule, error) {
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		return nil, fmt.Errorf("xyz: empty input")
	}
	n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || n < 1 {
		return nil, fmt.Errorf("xyz line 1: bad atom count %q", strings.TrimSpace(sc.Text()))
	}

	m := &Molecule{}
	if sc.Scan() {
		m.Name = strings.TrimSpace(sc.Text())
	}

	line := 2
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 4 {
			return nil, fmt.Errorf("xyz line %d: want \"element x y z\", got %q", line, text)
		}
		var pos r3.Vec
		coords := [3]*float64{&pos.X, &pos.Y, &pos.Z}
		for i, f := range fields[1:4] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("xyz line %d: bad coordinate %q: %w", line, f, err)
			}
			*coords[i] = v
		}
		m.Atoms = append(m.Atoms, Atom{Element: NormalizeElement(fields[0]), Pos: pos})
		if len(m.Atoms) == n {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("xyz: %w", err)
	}
	if len(m.Atoms) != n {
		return nil, fmt.Errorf("xyz: header promised %d atoms, found %d", n, len(m.Atoms))
	}

	m.InferBonds()
	return m, nil
}

// WriteXYZ writes m in XYZ format. Bonds are not representable and are
// dropped.
func WriteXYZ(w io.Writer, m *Molecule) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%s\n", len(m.Atoms), m.Name)
	for _, a := range m.Atoms {
		fmt.Fprintf(bw, "%-2s %14.8f %14.8f %14.8f\n", a.Element, a.Pos.X, a.Pos.Y, a.Pos.Z)
	}
	return bw.Flush()
}
