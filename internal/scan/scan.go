// Package scan generates perturbed-geometry series. One scan takes a
// molecule, an improper center, a perturbation kind, and a list of angles,
// and produces one geometry file per angle plus catalog rows recording the
// measured improper and valence angles of each frame.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"offnitro/internal/logging"
	"offnitro/internal/molecule"
	"offnitro/internal/perturb"
	"offnitro/internal/store"
)

// Request describes one scan.
type Request struct {
	Molecule   *molecule.Molecule
	SourcePath string
	Improper   molecule.Improper
	Mover      int
	Kind       perturb.Kind
	Angles     []float64
}

// Options controls scan execution.
type Options struct {
	OutDir  string
	Format  string // "xyz" or "mol2"
	Workers int
}

// Runner executes scans. The catalog may be nil, in which case results are
// returned but not persisted.
type Runner struct {
	catalog *store.Catalog
}

// NewRunner returns a Runner recording into catalog (nil to skip recording).
func NewRunner(catalog *store.Catalog) *Runner {
	return &Runner{catalog: catalog}
}

// Select resolves the improper center and mover for a molecule. Negative
// center or mover means automatic selection: the first trivalent nitrogen,
// moving its last-listed outer atom, as the original scan driver did. An
// explicit center must be trivalent and the mover must be one of its
// neighbors.
func Select(m *molecule.Molecule, center, mover int) (molecule.Improper, int, error) {
	if center < 0 || mover < 0 {
		imps := molecule.FindImpropers(m)
		if len(imps) == 0 {
			return molecule.Improper{}, 0, fmt.Errorf("%s: no trivalent nitrogen found", m.Name)
		}
		imp := imps[0]
		return imp, imp.Outer[2], nil
	}

	if err := m.CheckIndex(center); err != nil {
		return molecule.Improper{}, 0, err
	}
	nbrs := m.Neighbors(center)
	if len(nbrs) != 3 {
		return molecule.Improper{}, 0, fmt.Errorf("atom %d has %d bonds, improper centers need exactly 3", center, len(nbrs))
	}
	imp := molecule.Improper{Center: center, Outer: [3]int{nbrs[0], nbrs[1], nbrs[2]}}
	if !m.Bonded(center, mover) {
		return molecule.Improper{}, 0, fmt.Errorf("mover %d is not bonded to center %d", mover, center)
	}
	return imp, mover, nil
}

// Run executes the scan and returns the recorded run plus one geometry per
// angle, ordered by angle. Each frame perturbs a fresh copy of the input
// molecule, so angles are absolute rather than cumulative.
func (r *Runner) Run(ctx context.Context, req Request, opts Options) (store.Run, []store.Geometry, error) {
	if len(req.Angles) == 0 {
		return store.Run{}, nil, fmt.Errorf("scan has no angles")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return store.Run{}, nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	run := store.Run{
		ID:         uuid.NewString(),
		Molecule:   req.Molecule.Name,
		SourcePath: req.SourcePath,
		Kind:       string(req.Kind),
		CenterAtom: req.Improper.Center,
		MoverAtom:  req.Mover,
	}

	timer := logging.StartTimer(logging.CategoryScan, "scan "+run.ID)
	defer timer.Stop()
	logging.Scan("run %s: %s %s scan, %d angles, center=%d mover=%d",
		run.ID, run.Molecule, run.Kind, len(req.Angles), run.CenterAtom, run.MoverAtom)

	var (
		mu    sync.Mutex
		geoms []store.Geometry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, theta := range req.Angles {
		theta := theta
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			frame := req.Molecule.Clone()
			rep, err := perturb.Apply(frame, req.Kind, req.Improper, req.Mover, theta)
			if err != nil {
				return fmt.Errorf("theta=%v: %w", theta, err)
			}

			name := fmt.Sprintf("%s_%s_%05.1f.%s", frame.Name, req.Kind, theta, opts.Format)
			path := filepath.Join(opts.OutDir, name)
			frame.Name = fmt.Sprintf("%s %s %.1f", req.Molecule.Name, req.Kind, theta)
			if err := molecule.WriteFile(path, frame); err != nil {
				return fmt.Errorf("theta=%v: %w", theta, err)
			}
			logging.ScanDebug("run %s: theta=%.1f improper %.3f -> %.3f (%s)",
				run.ID, theta, rep.ImproperBefore, rep.ImproperAfter, path)

			mu.Lock()
			geoms = append(geoms, store.Geometry{
				RunID:          run.ID,
				Theta:          theta,
				ImproperBefore: rep.ImproperBefore,
				ImproperAfter:  rep.ImproperAfter,
				ValenceBefore:  rep.ValenceBefore,
				ValenceAfter:   rep.ValenceAfter,
				OutputPath:     path,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return store.Run{}, nil, err
	}

	sort.Slice(geoms, func(i, j int) bool { return geoms[i].Theta < geoms[j].Theta })

	if r.catalog != nil {
		if err := r.catalog.SaveRun(ctx, run); err != nil {
			return store.Run{}, nil, err
		}
		for _, geom := range geoms {
			if err := r.catalog.AddGeometry(ctx, geom); err != nil {
				return store.Run{}, nil, err
			}
		}
	}
	logging.Scan("run %s: wrote %d geometries to %s", run.ID, len(geoms), opts.OutDir)
	return run, geoms, nil
}
