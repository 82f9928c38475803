// Package main implements the offnitro CLI: tooling for generating
// perturbed molecular geometries around trivalent nitrogen centers and
// reporting the improper and valence angles of each geometry, for use in
// force-field parameterization against quantum-mechanical energies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"offnitro/internal/logging"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "offnitro",
	Short: "Perturb geometries around trivalent nitrogen improper centers",
	Long: `offnitro generates series of perturbed molecular geometries around
trivalently-bonded nitrogen centers and computes the improper and valence
angles of each frame.

Two perturbation modes are available:
  valence  - rotate one outer atom within the plane of the three outer
             atoms, changing valence angles while holding the improper
  improper - rotate one outer atom about the axis through the other two,
             moving it out of plane while holding the fixed bonds

The generated geometries feed quantum-mechanical potential-energy scans
used to fit force-field improper and valence-angle parameters.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory for logs and the default catalog")

	rootCmd.AddCommand(improperCmd)
	rootCmd.AddCommand(anglesCmd)
	rootCmd.AddCommand(perturbCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(watchCmd)
}

// signalContext returns a context canceled on SIGINT/SIGTERM, so long
// scans and the watcher shut down cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
