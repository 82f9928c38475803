package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultMatchesOriginalDriver(t *testing.T) {
	cfg := Default()
	want := []float64{0, 20, 40, 60, 80, 100, 120, 140, 160}
	if diff := cmp.Diff(want, cfg.Angles.Angles()); diff != "" {
		t.Errorf("default series mismatch (-want +got):\n%s", diff)
	}
	if cfg.Kind != "improper" {
		t.Errorf("default kind = %q, want improper", cfg.Kind)
	}
	if !cfg.Improper.Auto() {
		t.Error("default improper selection should be automatic")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
molecule: in/fncl.xyz
kind: valence
improper:
  center: 1
  mover: 3
angles:
  list: [0, 5, 10]
output:
  format: xyz
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kind != "valence" {
		t.Errorf("kind = %q", cfg.Kind)
	}
	if cfg.Improper.Auto() {
		t.Error("explicit improper selection reported as auto")
	}
	if diff := cmp.Diff([]float64{0, 5, 10}, cfg.Angles.Angles()); diff != "" {
		t.Errorf("angle list mismatch (-want +got):\n%s", diff)
	}
	// Untouched settings keep their defaults.
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want default 4", cfg.Workers)
	}
	if cfg.Output.Dir != "geometries" {
		t.Errorf("output dir = %q, want default", cfg.Output.Dir)
	}
}

func TestSeriesListWinsOverRange(t *testing.T) {
	s := SeriesConfig{Start: 0, Stop: 100, Step: 10, List: []float64{7}}
	if diff := cmp.Diff([]float64{7}, s.Angles()); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestSeriesRangeInclusive(t *testing.T) {
	s := SeriesConfig{Start: 10, Stop: 30, Step: 10}
	if diff := cmp.Diff([]float64{10, 20, 30}, s.Angles()); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OFFNITRO_DATABASE", "/srv/catalog.db")
	t.Setenv("OFFNITRO_WORKERS", "9")

	path := writeConfig(t, "molecule: a.xyz\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "/srv/catalog.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if cfg.Workers != 9 {
		t.Errorf("workers = %d", cfg.Workers)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad kind", func(c *Config) { c.Kind = "torsion" }},
		{"bad format", func(c *Config) { c.Output.Format = "pdb" }},
		{"zero step", func(c *Config) { c.Angles.Step = 0 }},
		{"reversed range", func(c *Config) { c.Angles.Stop = -10 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"no database", func(c *Config) { c.Database = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Molecule = "m.xyz"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("want validation error, got nil")
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "kind: torsion\nmolecule: a.xyz\n")
	if _, err := Load(path); err == nil {
		t.Error("want error for bad kind")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("want error for missing file")
	}

	bad := writeConfig(t, "molecule: [unclosed\n")
	if _, err := Load(bad); err == nil {
		t.Error("want error for bad yaml")
	}
}
