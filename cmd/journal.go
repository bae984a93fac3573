package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/ui"
)

var journalNoInsights bool

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Write journal entries and get reflections on them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listJournal()
	},
}

var journalAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add an entry; a summary, principles and a scripture are generated when a Google key is set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		entry := history.JournalEntry{OriginalText: strings.Join(args, " ")}
		if !journalNoInsights && a.studio != nil {
			sp := ui.NewSpinner("Reflecting...")
			sp.Start()
			insight, err := a.studio.JournalInsights(cmd.Context(), entry.OriginalText)
			if err != nil {
				sp.Fail("Could not generate insights")
				a.logger.Debug("journal insights failed", "error", err)
			} else {
				sp.Stop()
				entry.Summary = insight.Summary
				entry.Principles = insight.Principles
				entry.SuggestedScripture = insight.SuggestedScripture
			}
		}

		saved, _ := a.store.AddJournal(entry)
		if err := a.store.SaveErr(); err != nil {
			return fmt.Errorf("failed to save journal entry: %w", err)
		}
		printJournalEntry(saved)
		return nil
	},
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listJournal()
	},
}

func listJournal() error {
	store, err := history.Open()
	if err != nil {
		return err
	}
	entries := store.Journal()
	if len(entries) == 0 {
		fmt.Println("Your journal is empty. Start with: scholar journal add <text>")
		return nil
	}
	for _, e := range entries {
		printJournalEntry(e)
	}
	return nil
}

func printJournalEntry(e history.JournalEntry) {
	dim := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	dim.Fprintf(os.Stdout, "\n  [%s]\n", e.Timestamp.Format("Mon Jan 2 2006 15:04"))
	fmt.Printf("  %s\n", e.OriginalText)
	if e.Summary != "" {
		cyan.Printf("\n  Summary: ")
		fmt.Println(e.Summary)
	}
	for _, p := range e.Principles {
		green.Printf("  • %s\n", p)
	}
	if e.SuggestedScripture != "" {
		cyan.Printf("  Read: ")
		fmt.Println(e.SuggestedScripture)
	}
	fmt.Println()
}

func init() {
	journalAddCmd.Flags().BoolVar(&journalNoInsights, "no-insights", false, "Save without generating insights")
	journalCmd.AddCommand(journalAddCmd)
	journalCmd.AddCommand(journalListCmd)
}
