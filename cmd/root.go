package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/turn"
)

var (
	verbose     bool
	plain       bool
	askMode     string
	askContext  string
	askNewChat  bool
)

var rootCmd = &cobra.Command{
	Use:   "scholar [question]",
	Short: "A scripture study assistant",
	Long: `scholar answers questions about the Book of Mormon and The Church of Jesus Christ
of Latter-day Saints, streaming replies from Gemini or any OpenAI-compatible server.

Examples:
  scholar what does Alma 32 teach about faith
  scholar --mode thinking why did Nephi build a ship
  scholar --mode study-plan a 7 day plan on the Atonement
  scholar --mode multi-quiz 1 Nephi 1-5
  scholar chat

Modes: chat, thinking, study-plan, multi-quiz, lesson-prep, fhe-planner.
Use quotes for questions with shell characters: scholar "who was Moroni?"`,
	Args:                       cobra.ArbitraryArgs,
	RunE:                       ask,
	SilenceUsage:               true,
	SilenceErrors:              true,
	TraverseChildren:           true,
	SuggestionsMinimumDistance: 1,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Print replies without markdown rendering")
	rootCmd.Flags().StringVarP(&askMode, "mode", "m", "chat", "Conversation mode")
	rootCmd.Flags().StringVarP(&askContext, "context", "c", "", "Passage you are reading, sent along with the question")
	rootCmd.Flags().BoolVarP(&askNewChat, "new", "n", false, "Start a new conversation")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(xrefCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(voiceCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(statsCmd)
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}

func ask(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("please ask a question\n\nUsage: scholar <question>\nExample: scholar what is the iron rod")
	}
	mode, err := ai.ParseMode(askMode)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	conv, err := a.conversation(askNewChat)
	if err != nil {
		return err
	}
	runner := a.runner("cli")
	req := turn.Request{Text: strings.Join(args, " "), Mode: mode, ReadingContext: askContext}
	_, err = streamReply(mode, func(onUpdate func(history.Message)) (history.Message, error) {
		return runner.Send(cmd.Context(), conv.ID, req, onUpdate)
	})
	return err
}
