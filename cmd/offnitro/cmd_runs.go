// Package main: catalog query commands.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"offnitro/internal/config"
	"offnitro/internal/store"
)

var runsDatabase string

// runsCmd queries the scan catalog.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query recorded scan runs",
	RunE:  runRunsList,
}

// runsListCmd lists all recorded runs.
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded runs",
	RunE:  runRunsList,
}

// runsShowCmd shows the geometries of one run.
var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the geometries of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsDatabase, "database", "", "catalog database path")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

// openCatalog resolves the catalog path (flag, then OFFNITRO_DATABASE, then
// the default) and opens it.
func openCatalog() (*store.Catalog, error) {
	path := runsDatabase
	if path == "" {
		path = os.Getenv("OFFNITRO_DATABASE")
	}
	if path == "" {
		path = config.Default().Database
	}
	return store.Open(path)
}

var tableHeaderStyle = lipgloss.NewStyle().Bold(true)

func runRunsList(cmd *cobra.Command, args []string) error {
	catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()

	runs, err := catalog.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("RUN", "CREATED", "MOLECULE", "KIND", "CENTER", "MOVER")
	for _, r := range runs {
		t.Row(r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Molecule, r.Kind,
			fmt.Sprint(r.CenterAtom), fmt.Sprint(r.MoverAtom))
	}
	fmt.Println(t)
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	catalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer catalog.Close()

	run, geoms, err := catalog.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %s %s scan (center %d, mover %d, source %s)\n",
		run.ID, run.Molecule, run.Kind, run.CenterAtom, run.MoverAtom, run.SourcePath)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("THETA", "IMPROPER BEFORE", "IMPROPER AFTER", "OUTPUT")
	for _, g := range geoms {
		t.Row(
			fmt.Sprintf("%.1f", g.Theta),
			fmt.Sprintf("%.3f", g.ImproperBefore),
			fmt.Sprintf("%.3f", g.ImproperAfter),
			g.OutputPath)
	}
	fmt.Println(t)
	return nil
}
