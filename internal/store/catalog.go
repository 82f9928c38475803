// Package store persists the catalog of perturbation scans: one row per run
// plus one row per generated geometry, in a SQLite database. The catalog is
// what lets a parameterization campaign answer "which geometries were
// generated for this molecule, at which angles, and where are the files".
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run describes one scan invocation.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Molecule   string
	SourcePath string
	Kind       string
	CenterAtom int
	MoverAtom  int
}

// Geometry is one perturbed geometry produced by a run.
type Geometry struct {
	RunID          string
	Theta          float64
	ImproperBefore float64
	ImproperAfter  float64
	ValenceBefore  [3]float64
	ValenceAfter   [3]float64
	OutputPath     string
}

// valenceRecord is the JSON layout of the valence_json column.
type valenceRecord struct {
	Before [3]float64 `json:"before"`
	After  [3]float64 `json:"after"`
}

// Catalog is a SQLite-backed scan catalog. Safe for concurrent use.
type Catalog struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open initializes the catalog database at path, creating the file and any
// missing schema. ":memory:" gives an ephemeral catalog for tests.
func Open(path string) (*Catalog, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	c := &Catalog{db: db, path: path}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// initialize creates the required tables.
func (c *Catalog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		molecule TEXT NOT NULL,
		source_path TEXT DEFAULT '',
		kind TEXT NOT NULL,
		center_atom INTEGER NOT NULL,
		mover_atom INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_molecule ON runs(molecule);

	CREATE TABLE IF NOT EXISTS geometries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		theta REAL NOT NULL,
		improper_before REAL NOT NULL,
		improper_after REAL NOT NULL,
		valence_json TEXT DEFAULT '',
		output_path TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_geometries_run ON geometries(run_id);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the database location the catalog was opened with.
func (c *Catalog) Path() string {
	return c.path
}

// SaveRun inserts a run row. CreatedAt defaults to now when zero.
func (c *Catalog) SaveRun(ctx context.Context, r Run) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, molecule, source_path, kind, center_atom, mover_atom)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, created, r.Molecule, r.SourcePath, r.Kind, r.CenterAtom, r.MoverAtom)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

// AddGeometry appends one geometry row to a run.
func (c *Catalog) AddGeometry(ctx context.Context, g Geometry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valence, err := json.Marshal(valenceRecord{Before: g.ValenceBefore, After: g.ValenceAfter})
	if err != nil {
		return fmt.Errorf("failed to encode valence angles: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO geometries (run_id, theta, improper_before, improper_after, valence_json, output_path)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.RunID, g.Theta, g.ImproperBefore, g.ImproperAfter, string(valence), g.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to save geometry for run %s: %w", g.RunID, err)
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (c *Catalog) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, created_at, molecule, source_path, kind, center_atom, mover_atom
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Molecule, &r.SourcePath, &r.Kind, &r.CenterAtom, &r.MoverAtom); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one run and its geometries ordered by theta.
func (c *Catalog) GetRun(ctx context.Context, id string) (Run, []Geometry, error) {
	var r Run
	err := c.db.QueryRowContext(ctx, `
		SELECT id, created_at, molecule, source_path, kind, center_atom, mover_atom
		FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.CreatedAt, &r.Molecule, &r.SourcePath, &r.Kind, &r.CenterAtom, &r.MoverAtom)
	if err == sql.ErrNoRows {
		return Run{}, nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, theta, improper_before, improper_after, valence_json, output_path
		FROM geometries WHERE run_id = ? ORDER BY theta`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("failed to load geometries for run %s: %w", id, err)
	}
	defer rows.Close()

	var geoms []Geometry
	for rows.Next() {
		var g Geometry
		var valence string
		if err := rows.Scan(&g.RunID, &g.Theta, &g.ImproperBefore, &g.ImproperAfter, &valence, &g.OutputPath); err != nil {
			return Run{}, nil, fmt.Errorf("failed to scan geometry row: %w", err)
		}
		if valence != "" {
			var vr valenceRecord
			if err := json.Unmarshal([]byte(valence), &vr); err != nil {
				return Run{}, nil, fmt.Errorf("corrupt valence record for run %s: %w", id, err)
			}
			g.ValenceBefore = vr.Before
			g.ValenceAfter = vr.After
		}
		geoms = append(geoms, g)
	}
	return r, geoms, rows.Err()
}

// Counts returns the number of runs and geometries in the catalog.
func (c *Catalog) Counts(ctx context.Context) (runs, geometries int, err error) {
	if err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&runs); err != nil {
		return 0, 0, err
	}
	if err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geometries`).Scan(&geometries); err != nil {
		return 0, 0, err
	}
	return runs, geometries, nil
}
