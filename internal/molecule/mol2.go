package molecule

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ReadMOL2 parses a Tripos mol2 file. Only the MOLECULE, ATOM, and BOND
// records are consumed; everything else is skipped. Atom indices in the
// BOND record are 1-based in the file and converted to 0-based here.
func ReadMOL2(r io.Reader) (*Molecule, error) {
	sc := bufio.NewScanner(r)
	m := &Molecule{}

	section := ""
	line := 0
	molLine := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if strings.HasPrefix(text, "@<TRIPOS>") {
			section = strings.TrimPrefix(text, "@<TRIPOS>")
			molLine = 0
			continue
		}

		switch section {
		case "MOLECULE":
			molLine++
			if molLine == 1 {
				m.Name = text
			}
		case "ATOM":
			fields := strings.Fields(text)
			if len(fields) < 6 {
				return nil, fmt.Errorf("mol2 line %d: short ATOM record %q", line, text)
			}
			var pos r3.Vec
			coords := [3]*float64{&pos.X, &pos.Y, &pos.Z}
			for i, f := range fields[2:5] {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, fmt.Errorf("mol2 line %d: bad coordinate %q: %w", line, f, err)
				}
				*coords[i] = v
			}
			m.Atoms = append(m.Atoms, Atom{Element: elementFromMOL2(fields[5], fields[1]), Pos: pos})
		case "BOND":
			fields := strings.Fields(text)
			if len(fields) < 3 {
				return nil, fmt.Errorf("mol2 line %d: short BOND record %q", line, text)
			}
			a, err1 := strconv.Atoi(fields[1])
			b, err2 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("mol2 line %d: bad bond indices %q", line, text)
			}
			if a < 1 || b < 1 || a > len(m.Atoms) || b > len(m.Atoms) {
				return nil, fmt.Errorf("mol2 line %d: bond indices %d-%d out of range", line, a, b)
			}
			m.AddBond(a-1, b-1)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mol2: %w", err)
	}
	if len(m.Atoms) == 0 {
		return nil, fmt.Errorf("mol2: no ATOM records found")
	}
	return m, nil
}

// elementFromMOL2 derives the element symbol from a SYBYL atom type
// ("N.pl3" -> "N") with the atom name as fallback.
func elementFromMOL2(atomType, name string) string {
	if i := strings.IndexByte(atomType, '.'); i > 0 {
		atomType = atomType[:i]
	}
	if atomType != "" && atomType != "Du" && atomType != "Any" {
		return NormalizeElement(atomType)
	}
	// Fall back to the leading letters of the atom name ("N1" -> "N").
	name = strings.TrimRightFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
	return NormalizeElement(name)
}

// WriteMOL2 writes m as a Tripos mol2 file. Atom types are plain element
// symbols and bonds are written as single bonds, which is enough for the
// visualization the scans are written out for.
func WriteMOL2(w io.Writer, m *Molecule) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "@<TRIPOS>MOLECULE\n%s\n", m.Name)
	fmt.Fprintf(bw, "%5d %5d     1     0     0\n", len(m.Atoms), len(m.Bonds))
	fmt.Fprintf(bw, "SMALL\nNO_CHARGES\n\n")

	fmt.Fprintf(bw, "@<TRIPOS>ATOM\n")
	for i, a := range m.Atoms {
		fmt.Fprintf(bw, "%7d %-4s %12.6f %12.6f %12.6f %-5s 1 MOL 0.0000\n",
			i+1, fmt.Sprintf("%s%d", a.Element, i+1), a.Pos.X, a.Pos.Y, a.Pos.Z, a.Element)
	}

	fmt.Fprintf(bw, "@<TRIPOS>BOND\n")
	for i, b := range m.Bonds {
		fmt.Fprintf(bw, "%6d %5d %5d 1\n", i+1, b.A+1, b.B+1)
	}
	return bw.Flush()
}

// ReadFile reads a molecule from path, dispatching on the file extension
// (.xyz or .mol2). The file's base name is used when the format carries no
// molecule name.
func ReadFile(path string) (*Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m *Molecule
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xyz":
		m, err = ReadXYZ(f)
	case ".mol2":
		m, err = ReadMOL2(f)
	default:
		return nil, fmt.Errorf("unsupported molecule format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

// WriteFile writes a molecule to path, dispatching on the file extension.
func WriteFile(path string, m *Molecule) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xyz":
		err = WriteXYZ(f, m)
	case ".mol2":
		err = WriteMOL2(f, m)
	default:
		err = fmt.Errorf("unsupported molecule format %q", ext)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
