package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/beltline/internal/layout"
)

var validateCmd = &cobra.Command{
	Use:   "validate <layout>...",
	Short: "Check layout files",
	Long: `Check layout files against the layout schema and for overlapping
cells, unknown item definitions, duplicate item IDs and out of bounds
cells.

Examples:
  beltline validate layouts/teleport.yaml
  beltline validate layouts/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	Run:  runValidate,
}

func runValidate(_ *cobra.Command, args []string) {
	failed := 0
	for _, path := range args {
		l, err := layout.Load(path)
		if err != nil {
			failed++
			var verr *layout.ValidationError
			if errors.As(err, &verr) {
				fmt.Printf("FAIL  %s\n", path)
				for _, p := range verr.Problems {
					fmt.Printf("      - %s\n", p)
				}
				continue
			}
			fmt.Printf("FAIL  %s: %v\n", path, err)
			continue
		}
		fmt.Printf("ok    %s (%s, %d segments, %d feeders)\n", path, l.ID, len(l.Placements()), len(l.Feeders))
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "Error: %d of %d layouts invalid\n", failed, len(args))
		os.Exit(1)
	}
}
