package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/ui"
)

var modelsFreeOnly bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the active provider offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		sp := ui.NewSpinner(fmt.Sprintf("Fetching models from %s...", cfg.Provider))
		sp.Start()
		models, err := ai.ListModels(cmd.Context(), cfg)
		sp.Stop()
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  %s models\n\n", cfg.Provider)
		shown := 0
		for _, m := range models {
			if modelsFreeOnly && !m.IsFree {
				continue
			}
			shown++
			marker := "  "
			if m.ID == cfg.Model {
				marker = "→ "
			}
			green.Printf("  %s%s", marker, m.ID)
			if m.Name != "" && m.Name != m.ID {
				dim.Printf("  %s", m.Name)
			}
			if m.IsFree {
				dim.Print("  (free)")
			}
			fmt.Println()
		}
		if shown == 0 {
			dim.Println("  No models found.")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsFreeOnly, "free", false, "Only show free models")
}
