// Package main: single-geometry perturbation command.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"offnitro/internal/molecule"
	"offnitro/internal/perturb"
	"offnitro/internal/scan"
)

var (
	perturbCenter int
	perturbMover  int
	perturbKind   string
	perturbTheta  float64
	perturbOut    string
)

// perturbCmd applies one perturbation and writes the result.
var perturbCmd = &cobra.Command{
	Use:   "perturb <molecule>",
	Short: "Apply a single valence or improper perturbation",
	Long: `Perturb one outer atom of an improper center by a fixed angle and
write the resulting geometry. With no --center/--mover the first trivalent
nitrogen is used, moving its last-listed outer atom.`,
	Args: cobra.ExactArgs(1),
	RunE: runPerturb,
}

func init() {
	perturbCmd.Flags().IntVar(&perturbCenter, "center", -1, "0-based index of the central atom")
	perturbCmd.Flags().IntVar(&perturbMover, "mover", -1, "0-based index of the outer atom to move")
	perturbCmd.Flags().StringVar(&perturbKind, "kind", "improper", "perturbation kind: valence or improper")
	perturbCmd.Flags().Float64Var(&perturbTheta, "theta", 20, "rotation in degrees")
	perturbCmd.Flags().StringVar(&perturbOut, "out", "", "output path (default <name>_<kind>_<theta>.mol2)")
}

func runPerturb(cmd *cobra.Command, args []string) error {
	kind, err := perturb.ParseKind(perturbKind)
	if err != nil {
		return err
	}

	m, err := molecule.ReadFile(args[0])
	if err != nil {
		return err
	}
	imp, mover, err := scan.Select(m, perturbCenter, perturbMover)
	if err != nil {
		return err
	}

	rep, err := perturb.Apply(m, kind, imp, mover, perturbTheta)
	if err != nil {
		return err
	}

	out := perturbOut
	if out == "" {
		out = fmt.Sprintf("%s_%s_%05.1f.mol2", m.Name, kind, perturbTheta)
	}
	if err := molecule.WriteFile(out, m); err != nil {
		return err
	}

	logger.Debug("perturbation applied",
		zap.String("molecule", m.Name),
		zap.String("kind", string(kind)),
		zap.Float64("theta", perturbTheta),
		zap.Int("center", imp.Center),
		zap.Int("mover", mover))

	fmt.Printf("wrote %s\n", out)
	fmt.Printf("improper: %8.3f -> %8.3f deg\n", rep.ImproperBefore, rep.ImproperAfter)
	for i := 0; i < 3; i++ {
		fmt.Printf("valence %d: %8.3f -> %8.3f deg\n", i+1, rep.ValenceBefore[i], rep.ValenceAfter[i])
	}
	return nil
}
