package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/history"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Keep study notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listNotes()
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open()
		if err != nil {
			return err
		}
		n, _ := store.AddNote(strings.Join(args, " "))
		if err := store.SaveErr(); err != nil {
			return fmt.Errorf("failed to save note: %w", err)
		}
		fmt.Printf("Note %s saved.\n", n.ID[:8])
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listNotes()
	},
}

var notesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note (an id prefix of at least 6 characters is enough)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open()
		if err != nil {
			return err
		}
		if err := store.DeleteNote(args[0]); err != nil {
			return err
		}
		if err := store.SaveErr(); err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		fmt.Println("Note deleted.")
		return nil
	},
}

func listNotes() error {
	store, err := history.Open()
	if err != nil {
		return err
	}
	notes := store.Notes()
	if len(notes) == 0 {
		fmt.Println("No notes yet. Add one with: scholar notes add <text>")
		return nil
	}
	dim := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan)
	for _, n := range notes {
		cyan.Printf("%s ", n.ID[:8])
		dim.Printf("[%s] ", n.Timestamp.Format("2006-01-02 15:04"))
		fmt.Println(n.Content)
	}
	return nil
}

func init() {
	notesCmd.AddCommand(notesAddCmd)
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesRmCmd)
}
