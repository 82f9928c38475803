// Package config loads the yaml scan definitions that drive offnitro.
// A scan definition names the input molecule, which improper center to
// perturb, the angle series, and where the generated geometries and the
// catalog database go.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds one scan definition plus tool-wide settings.
type Config struct {
	// Molecule is the path to the input geometry (.xyz or .mol2).
	Molecule string `yaml:"molecule"`

	// Improper selects which center to perturb.
	Improper ImproperConfig `yaml:"improper"`

	// Kind is "valence" or "improper".
	Kind string `yaml:"kind"`

	// Angles defines the perturbation series in degrees.
	Angles SeriesConfig `yaml:"angles"`

	// Output controls where geometries are written.
	Output OutputConfig `yaml:"output"`

	// Database is the catalog path.
	Database string `yaml:"database"`

	// Workers bounds scan parallelism.
	Workers int `yaml:"workers"`

	// Logging configures the debug file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// ImproperConfig selects the improper center and the atom to move, 0-based.
// Negative values mean "use the first trivalent nitrogen found and move its
// last-listed outer atom", which matches how the original scans were run.
type ImproperConfig struct {
	Center int `yaml:"center"`
	Mover  int `yaml:"mover"`
}

// Auto reports whether the improper should be discovered automatically.
func (c ImproperConfig) Auto() bool {
	return c.Center < 0 || c.Mover < 0
}

// SeriesConfig is either an explicit angle list or an inclusive start/stop
// range with a step. List wins when both are present.
type SeriesConfig struct {
	Start float64   `yaml:"start"`
	Stop  float64   `yaml:"stop"`
	Step  float64   `yaml:"step"`
	List  []float64 `yaml:"list"`
}

// Angles expands the series into the concrete angle values.
func (s SeriesConfig) Angles() []float64 {
	if len(s.List) > 0 {
		out := make([]float64, len(s.List))
		copy(out, s.List)
		return out
	}
	var out []float64
	for theta := s.Start; theta <= s.Stop+1e-9; theta += s.Step {
		out = append(out, theta)
	}
	return out
}

// OutputConfig controls geometry output.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // xyz or mol2
}

// LoggingConfig mirrors logging.Options.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the configuration the original scan driver used: an
// improper scan from 0 to 160 degrees in 20 degree steps, mol2 output.
func Default() *Config {
	return &Config{
		Improper: ImproperConfig{Center: -1, Mover: -1},
		Kind:     "improper",
		Angles:   SeriesConfig{Start: 0, Stop: 160, Step: 20},
		Output:   OutputConfig{Dir: "geometries", Format: "mol2"},
		Database: ".offnitro/catalog.db",
		Workers:  4,
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads a yaml scan definition, layered over the defaults, then applies
// environment overrides and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file for settings
// that vary per machine rather than per scan.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OFFNITRO_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("OFFNITRO_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
}

// Validate checks the configuration. The molecule path is not checked here:
// the watch command supplies molecules from its inbox, so only the scan
// command requires one up front.
func (c *Config) Validate() error {
	switch c.Kind {
	case "valence", "improper":
	default:
		return fmt.Errorf("kind must be \"valence\" or \"improper\", got %q", c.Kind)
	}
	switch c.Output.Format {
	case "xyz", "mol2":
	default:
		return fmt.Errorf("output format must be \"xyz\" or \"mol2\", got %q", c.Output.Format)
	}
	if len(c.Angles.List) == 0 {
		if c.Angles.Step <= 0 {
			return fmt.Errorf("angle step must be positive, got %v", c.Angles.Step)
		}
		if c.Angles.Stop < c.Angles.Start {
			return fmt.Errorf("angle stop %v is before start %v", c.Angles.Stop, c.Angles.Start)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}
