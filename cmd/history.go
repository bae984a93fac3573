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

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open()
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		list := store.List()
		if len(list) == 0 {
			fmt.Println("No conversations yet.")
			return nil
		}

		cyan := color.New(color.FgCyan)
		dim := color.New(color.FgHiBlack)
		yellow := color.New(color.FgYellow)

		for i, c := range list {
			if i >= historyLimit {
				dim.Printf("... %d more\n", len(list)-historyLimit)
				break
			}
			marker := " "
			if c.Active {
				marker = "*"
			}
			dim.Printf("%s [%s] ", marker, c.UpdatedAt.Format("2006-01-02 15:04"))
			cyan.Printf("%s ", shortID(c.ID))
			fmt.Printf("%s ", c.Title)
			dim.Printf("(%d)", c.MessageCount)
			if c.Pinned {
				yellow.Print(" 📌")
			}
			fmt.Println()
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a conversation (the active one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open()
		if err != nil {
			return err
		}
		var conv history.Conversation
		if len(args) == 0 {
			conv, err = store.Active()
		} else {
			var id string
			if id, err = resolveConversation(store, args[0]); err == nil {
				conv, err = store.Conversation(id)
			}
		}
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen)
		cyan := color.New(color.FgCyan)
		for _, m := range conv.Messages {
			if m.Sender == history.SenderUser {
				green.Print("  you → ")
				fmt.Println(m.Text)
				fmt.Println()
				continue
			}
			cyan.Print("  scholar → ")
			r := ui.NewRenderer(os.Stdout, "", false)
			r.Finish(m)
		}
		return nil
	},
}

func conversationAction(use, short string, fn func(store *history.Store, id string) error, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open()
			if err != nil {
				return err
			}
			id, err := resolveConversation(store, args[0])
			if err != nil {
				return err
			}
			if err := fn(store, id); err != nil {
				return err
			}
			if err := store.SaveErr(); err != nil {
				return fmt.Errorf("failed to save history: %w", err)
			}
			fmt.Printf(done+"\n", shortID(id))
			return nil
		},
	}
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every conversation (notes and journal are kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open()
		if err != nil {
			return err
		}
		_ = store.Clear()
		if err := store.SaveErr(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of conversations to show")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(conversationAction("use", "Make a conversation the active one", (*history.Store).SetActive, "Now continuing %s."))
	historyCmd.AddCommand(conversationAction("pin", "Pin a conversation to the top", (*history.Store).Pin, "Pinned %s."))
	historyCmd.AddCommand(conversationAction("unpin", "Unpin a conversation", (*history.Store).Unpin, "Unpinned %s."))
	historyCmd.AddCommand(conversationAction("rm", "Delete a conversation", (*history.Store).Delete, "Deleted %s."))
	historyCmd.AddCommand(historyClearCmd)
}

// shortID drops the "chat-" prefix and keeps the first eight characters.
func shortID(id string) string {
	id = strings.TrimPrefix(id, "chat-")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveConversation accepts a full id or a unique short prefix.
func resolveConversation(store *history.Store, ref string) (string, error) {
	var match string
	for _, c := range store.List() {
		if c.ID == ref {
			return c.ID, nil
		}
		if strings.HasPrefix(strings.TrimPrefix(c.ID, "chat-"), ref) {
			if match != "" {
				return "", fmt.Errorf("%q matches more than one conversation", ref)
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", history.ErrConversationNotFound, ref)
	}
	return match, nil
}
