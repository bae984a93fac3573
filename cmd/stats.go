package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and performance metrics",
	Long: `Display a dashboard of your scholar usage: turns answered, success rate,
response times, modes, providers and most-used models.

Data is collected automatically and stored locally in ~/.scholar/stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 scholar stats\n\n")

		if summary.TotalTurns == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Ask a few questions and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		green.Fprintf(os.Stderr, "  Turns:     ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalTurns)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week, %d retries)\n", summary.TodayCount, summary.ThisWeekCount, summary.Retries)

		green.Fprintf(os.Stderr, "  Success:   ")
		if summary.SuccessRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		}

		green.Fprintf(os.Stderr, "  Reply:     ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgLatencyMs)

		printBreakdown := func(title string, counts map[string]int) {
			if len(counts) == 0 {
				return
			}
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  "+title)
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
			for _, k := range keys {
				pct := float64(counts[k]) / float64(summary.TotalTurns) * 100
				bar := strings.Repeat("█", int(pct/5))
				dim.Fprintf(os.Stderr, "  %-12s ", k)
				fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)\n", bar, counts[k], pct)
			}
		}
		printBreakdown("Modes", summary.ModeBreakdown)
		printBreakdown("Providers", summary.ProviderBreakdown)

		if len(summary.TopModels) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Top Models")
			for i, m := range summary.TopModels {
				dim.Fprintf(os.Stderr, "  %d. ", i+1)
				fmt.Fprintf(os.Stderr, "%s ", m.Model)
				dim.Fprintf(os.Stderr, "(%dx)\n", m.Count)
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}
