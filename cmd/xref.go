package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/ui"
)

var xrefCmd = &cobra.Command{
	Use:   "xref <scripture>",
	Short: "Find cross references for a scripture",
	Long: `Find passages related to a scripture and how they connect.

Example:
  scholar xref Alma 32:21`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		studio, err := a.requireStudio()
		if err != nil {
			return err
		}

		sp := ui.NewSpinner("Searching the scriptures...")
		sp.Start()
		xr, err := studio.CrossReferences(cmd.Context(), strings.Join(args, " "))
		sp.Stop()
		if err != nil {
			return fmt.Errorf("cross reference lookup failed: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		dim := color.New(color.FgHiBlack)

		cyan.Printf("\n  %s\n\n", xr.MainScripture)
		if len(xr.References) == 0 {
			dim.Println("  No cross references found.")
		}
		for _, r := range xr.References {
			green.Printf("  %s\n", r.Scripture)
			dim.Printf("    %s\n\n", r.Explanation)
		}
		return nil
	},
}
