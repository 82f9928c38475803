package scan

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
	"gonum.org/v1/gonum/spatial/r3"

	"offnitro/internal/molecule"
	"offnitro/internal/perturb"
	"offnitro/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// chloramine builds a planar F-N(-H)-Cl test molecule, the same system the
// original scans were exercised on.
func chloramine() *molecule.Molecule {
	m := &molecule.Molecule{
		Name: "chloramine",
		Atoms: []molecule.Atom{
			{Element: "N", Pos: r3.Vec{}},
			{Element: "F", Pos: r3.Vec{X: 1.4}},
			{Element: "Cl", Pos: r3.Vec{X: -0.85, Y: 1.47}},
			{Element: "H", Pos: r3.Vec{X: -0.5, Y: -0.87}},
		},
	}
	m.AddBond(0, 1)
	m.AddBond(0, 2)
	m.AddBond(0, 3)
	return m
}

func TestSelectAuto(t *testing.T) {
	m := chloramine()
	imp, mover, err := Select(m, -1, -1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if imp.Center != 0 {
		t.Errorf("center = %d, want 0", imp.Center)
	}
	if mover != 3 {
		t.Errorf("mover = %d, want last outer atom 3", mover)
	}
}

func TestSelectExplicit(t *testing.T) {
	m := chloramine()
	imp, mover, err := Select(m, 0, 2)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if imp.Center != 0 || mover != 2 {
		t.Errorf("got center=%d mover=%d", imp.Center, mover)
	}
}

func TestSelectErrors(t *testing.T) {
	m := chloramine()

	if _, _, err := Select(m, 1, 0); err == nil {
		t.Error("non-trivalent center: want error")
	}
	if _, _, err := Select(m, 0, 1000); err == nil {
		t.Error("mover out of range: want error")
	}
	if _, _, err := Select(m, 99, 0); err == nil {
		t.Error("center out of range: want error")
	}

	noN := &molecule.Molecule{Name: "methane", Atoms: []molecule.Atom{{Element: "C"}}}
	if _, _, err := Select(noN, -1, -1); err == nil {
		t.Error("no nitrogen: want error")
	}
}

func TestRunWritesGeometriesAndCatalog(t *testing.T) {
	catalog, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer catalog.Close()

	m := chloramine()
	imp, mover, err := Select(m, -1, -1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	outDir := t.TempDir()
	angles := []float64{0, 20, 40, 60}
	run, geoms, err := NewRunner(catalog).Run(context.Background(), Request{
		Molecule:   m,
		SourcePath: "test/chloramine.xyz",
		Improper:   imp,
		Mover:      mover,
		Kind:       perturb.KindImproper,
		Angles:     angles,
	}, Options{OutDir: outDir, Format: "xyz", Workers: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.ID == "" {
		t.Error("run has no ID")
	}
	if len(geoms) != len(angles) {
		t.Fatalf("got %d geometries, want %d", len(geoms), len(angles))
	}

	// Results come back ordered by angle, and each frame is an absolute
	// perturbation of the input.
	for i, g := range geoms {
		if g.Theta != angles[i] {
			t.Errorf("geometry %d theta = %v, want %v", i, g.Theta, angles[i])
		}
		if _, err := os.Stat(g.OutputPath); err != nil {
			t.Errorf("geometry file missing: %v", err)
		}
		frame, err := molecule.ReadFile(g.OutputPath)
		if err != nil {
			t.Errorf("unreadable geometry %s: %v", g.OutputPath, err)
			continue
		}
		if len(frame.Atoms) != 4 {
			t.Errorf("geometry %d has %d atoms", i, len(frame.Atoms))
		}
	}

	// Larger angles move farther out of plane.
	if math.Abs(geoms[0].ImproperAfter) > 1e-6 {
		t.Errorf("theta=0 frame has improper %v", geoms[0].ImproperAfter)
	}
	if math.Abs(geoms[3].ImproperAfter) <= math.Abs(geoms[1].ImproperAfter) {
		t.Errorf("improper did not grow with theta: %v vs %v",
			geoms[3].ImproperAfter, geoms[1].ImproperAfter)
	}

	// The input molecule itself is untouched.
	if m.Atoms[3].Pos.Z != 0 {
		t.Error("scan mutated the input molecule")
	}

	// And everything landed in the catalog.
	got, stored, err := catalog.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Molecule != "chloramine" || got.Kind != "improper" {
		t.Errorf("catalog run = %+v", got)
	}
	if len(stored) != len(angles) {
		t.Errorf("catalog has %d geometries, want %d", len(stored), len(angles))
	}
}

func TestRunWithoutCatalog(t *testing.T) {
	m := chloramine()
	imp, mover, _ := Select(m, -1, -1)

	_, geoms, err := NewRunner(nil).Run(context.Background(), Request{
		Molecule: m,
		Improper: imp,
		Mover:    mover,
		Kind:     perturb.KindValence,
		Angles:   []float64{-10, 10},
	}, Options{OutDir: t.TempDir(), Format: "mol2", Workers: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(geoms) != 2 {
		t.Fatalf("got %d geometries", len(geoms))
	}
	// A valence perturbation leaves the improper where it was.
	for _, g := range geoms {
		if math.Abs(g.ImproperAfter-g.ImproperBefore) > 1e-6 {
			t.Errorf("theta=%v: improper moved %v -> %v", g.Theta, g.ImproperBefore, g.ImproperAfter)
		}
	}
}

func TestRunNoAngles(t *testing.T) {
	m := chloramine()
	imp, mover, _ := Select(m, -1, -1)
	_, _, err := NewRunner(nil).Run(context.Background(), Request{
		Molecule: m, Improper: imp, Mover: mover, Kind: perturb.KindImproper,
	}, Options{OutDir: t.TempDir(), Format: "xyz"})
	if err == nil {
		t.Error("want error for empty angle list")
	}
}

func TestRunCanceledContext(t *testing.T) {
	m := chloramine()
	imp, mover, _ := Select(m, -1, -1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewRunner(nil).Run(ctx, Request{
		Molecule: m, Improper: imp, Mover: mover, Kind: perturb.KindImproper,
		Angles: []float64{0, 20, 40},
	}, Options{OutDir: t.TempDir(), Format: "xyz", Workers: 1})
	if err == nil {
		t.Error("want error from canceled context")
	}
}

func TestWatcherHandlesNewMolecules(t *testing.T) {
	dir := t.TempDir()
	seen := make(chan string, 4)

	w, err := NewWatcher(dir, func(path string) { seen <- path })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// A molecule file triggers the handler; an unrelated file does not.
	xyz := filepath.Join(dir, "new.xyz")
	if err := os.WriteFile(xyz, []byte("1\nm\nN 0 0 0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-seen:
		if got != xyz {
			t.Errorf("handler got %q, want %q", got, xyz)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for watch event")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}

	select {
	case extra := <-seen:
		if filepath.Ext(extra) == ".txt" {
			t.Errorf("handler fired for non-molecule file %q", extra)
		}
	default:
	}
}

func TestIsMoleculeFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.xyz", true},
		{"b.MOL2", true},
		{"c.pdb", false},
		{"d", false},
	}
	for _, tt := range tests {
		if got := isMoleculeFile(tt.path); got != tt.want {
			t.Errorf("isMoleculeFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
