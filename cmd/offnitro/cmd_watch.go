// Package main: inbox watcher command.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"offnitro/internal/config"
	"offnitro/internal/logging"
	"offnitro/internal/molecule"
	"offnitro/internal/perturb"
	"offnitro/internal/scan"
	"offnitro/internal/store"
)

var watchConfigPath string

// watchCmd scans every molecule file dropped into a directory.
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and scan every new molecule file",
	Long: `Watch an inbox directory. Every .xyz or .mol2 file created in it is
scanned with the settings from --config (or the defaults), and the results
are recorded in the catalog. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchConfigPath, "config", "", "scan definition applied to each new molecule")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if watchConfigPath != "" {
		loaded, err := config.Load(watchConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if err := logging.Initialize(workspace, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return err
	}

	kind, err := perturb.ParseKind(cfg.Kind)
	if err != nil {
		return err
	}
	catalog, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer catalog.Close()

	ctx, stop := signalContext()
	defer stop()

	runner := scan.NewRunner(catalog)
	handle := func(path string) {
		m, err := molecule.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable molecule", zap.String("path", path), zap.Error(err))
			return
		}
		imp, mover, err := scan.Select(m, cfg.Improper.Center, cfg.Improper.Mover)
		if err != nil {
			logger.Warn("skipping molecule without a usable improper center",
				zap.String("path", path), zap.Error(err))
			return
		}
		run, geoms, err := runner.Run(ctx, scan.Request{
			Molecule:   m,
			SourcePath: path,
			Improper:   imp,
			Mover:      mover,
			Kind:       kind,
			Angles:     cfg.Angles.Angles(),
		}, scan.Options{
			OutDir:  cfg.Output.Dir,
			Format:  cfg.Output.Format,
			Workers: cfg.Workers,
		})
		if err != nil {
			logger.Error("scan failed", zap.String("path", path), zap.Error(err))
			return
		}
		fmt.Printf("run %s: %s -> %d geometries\n", run.ID, path, len(geoms))
	}

	w, err := scan.NewWatcher(args[0], handle)
	if err != nil {
		return err
	}

	fmt.Printf("watching %s (ctrl-c to stop)\n", args[0])
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
