// Package main: improper discovery and angle reporting commands.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"offnitro/internal/geom"
	"offnitro/internal/molecule"
)

var improperAllElements bool

// improperCmd lists the improper centers of a molecule.
var improperCmd = &cobra.Command{
	Use:   "impropers <molecule>",
	Short: "List improper centers (trivalent nitrogens) in a molecule",
	Args:  cobra.ExactArgs(1),
	RunE:  runImpropers,
}

// anglesCmd reports the current improper and valence angles of a molecule.
var anglesCmd = &cobra.Command{
	Use:   "angles <molecule>",
	Short: "Report improper and valence angles for each improper center",
	Args:  cobra.ExactArgs(1),
	RunE:  runAngles,
}

func init() {
	improperCmd.Flags().BoolVar(&improperAllElements, "all", false, "include trivalent centers of any element, not just nitrogen")
	anglesCmd.Flags().BoolVar(&improperAllElements, "all", false, "include trivalent centers of any element, not just nitrogen")
}

func findCenters(m *molecule.Molecule) []molecule.Improper {
	if improperAllElements {
		return molecule.FindImpropersAll(m)
	}
	return molecule.FindImpropers(m)
}

func runImpropers(cmd *cobra.Command, args []string) error {
	m, err := molecule.ReadFile(args[0])
	if err != nil {
		return err
	}

	imps := findCenters(m)
	if len(imps) == 0 {
		fmt.Printf("%s: no improper centers found\n", m.Name)
		return nil
	}

	fmt.Printf("%s: %d improper center(s)\n", m.Name, len(imps))
	for _, imp := range imps {
		c := m.Atoms[imp.Center]
		fmt.Printf("  center %d (%s) outer:", imp.Center, c.Element)
		for _, o := range imp.Outer {
			fmt.Printf(" %d (%s)", o, m.Atoms[o].Element)
		}
		fmt.Println()
	}
	return nil
}

func runAngles(cmd *cobra.Command, args []string) error {
	m, err := molecule.ReadFile(args[0])
	if err != nil {
		return err
	}

	imps := findCenters(m)
	if len(imps) == 0 {
		fmt.Printf("%s: no improper centers found\n", m.Name)
		return nil
	}

	for _, imp := range imps {
		center := m.Atoms[imp.Center].Pos
		fmt.Printf("center %d (%s):\n", imp.Center, m.Atoms[imp.Center].Element)

		// One improper per outer atom, each treating that atom as the mover.
		for i, o := range imp.Outer {
			a := imp.Outer[(i+1)%3]
			b := imp.Outer[(i+2)%3]
			angle := geom.ImproperAngle(center, m.Atoms[a].Pos, m.Atoms[b].Pos, m.Atoms[o].Pos)
			fmt.Printf("  improper (%d-%d-%d-%d): %8.3f deg\n", imp.Center, a, b, o, angle)
		}
		for i := 0; i < 3; i++ {
			a := imp.Outer[i]
			b := imp.Outer[(i+1)%3]
			angle := geom.ValenceAngle(center, m.Atoms[a].Pos, m.Atoms[b].Pos)
			fmt.Printf("  valence  (%d-%d-%d): %10.3f deg\n", a, imp.Center, b, angle)
		}
	}
	return nil
}
