package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/turn"
	"github.com/arin/scholar/internal/ui"
)

var (
	chatNew       bool
	chatNoSuggest bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive study session",
	Long: `Start a conversational session with scholar. The conversation is saved and
continues where you left off next time.

Commands:
  /mode <mode>          switch mode (chat, thinking, study-plan, multi-quiz, lesson-prep, fhe-planner)
  /context <passage>    set the passage you are reading ("/context" alone clears it)
  /retry                regenerate the last reply
  /answer <n> <letter>  answer question n of the last quiz
  /suggest              ask for a follow-up question
  /verse                a scripture for today
  /explain <reference>  explain a scripture in depth
  /new                  start a new conversation
  /exit                 leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		conv, err := a.conversation(chatNew)
		if err != nil {
			return err
		}
		s := &chatSession{app: a, runner: a.runner("cli"), convID: conv.ID, mode: ai.ModeChat}

		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)
		fmt.Fprintln(os.Stderr)
		cyan.Fprintln(os.Stderr, "  scholar chat")
		if len(conv.Messages) <= 1 {
			dim.Fprintf(os.Stderr, "  %s\n", history.WelcomeMessage().Text)
		} else {
			dim.Fprintf(os.Stderr, "  Continuing %q (%d messages).\n", conv.Title(), len(conv.Messages))
		}
		dim.Fprintf(os.Stderr, "  Type /exit to quit, /mode to switch modes.\n\n")

		return s.loop(cmd)
	},
}

func init() {
	chatCmd.Flags().BoolVarP(&chatNew, "new", "n", false, "Start a new conversation")
	chatCmd.Flags().BoolVar(&chatNoSuggest, "no-suggest", false, "Do not offer a follow-up question after chat replies")
}

type chatSession struct {
	app     *app
	runner  *turn.Runner
	convID  string
	mode    ai.Mode
	reading string
}

func (s *chatSession) loop(cmd *cobra.Command) error {
	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		green.Fprintf(os.Stderr, "  you (%s) → ", s.mode)
		if !scanner.Scan() {
			return nil
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "exit", "quit", "bye":
			input = "/exit"
		}

		if strings.HasPrefix(input, "/") {
			done, err := s.command(cmd, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  Error: %v\n\n", err)
			}
			if done {
				dim.Fprintf(os.Stderr, "\n  Go in peace.\n\n")
				return nil
			}
			continue
		}
		s.send(cmd, input)
	}
}

func (s *chatSession) send(cmd *cobra.Command, text string) {
	req := turn.Request{Text: text, Mode: s.mode, ReadingContext: s.reading}
	_, err := streamReply(s.mode, func(onUpdate func(history.Message)) (history.Message, error) {
		return s.runner.Send(cmd.Context(), s.convID, req, onUpdate)
	})
	if err != nil {
		s.app.logger.Debug("turn failed", "error", err)
	}
	if !chatNoSuggest {
		s.followUp(cmd, err)
	}
}

func (s *chatSession) followUp(cmd *cobra.Command, sendErr error) {
	msg, ok, err := s.runner.FollowUp(cmd.Context(), s.convID, s.mode, sendErr)
	if err != nil {
		s.app.logger.Debug("follow-up failed", "error", err)
		return
	}
	if ok {
		color.New(color.FgYellow).Fprintf(os.Stderr, "  💡 %s\n\n", msg.Text)
	}
}

// command runs a slash command and reports whether the session should end.
func (s *chatSession) command(cmd *cobra.Command, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	dim := color.New(color.FgHiBlack)

	switch name {
	case "/exit", "/quit":
		return true, nil

	case "/mode":
		if arg == "" {
			dim.Fprintf(os.Stderr, "  Current mode: %s\n\n", s.mode)
			return false, nil
		}
		m, err := ai.ParseMode(arg)
		if err != nil {
			return false, err
		}
		s.mode = m
		dim.Fprintf(os.Stderr, "  Mode set to %s.\n\n", m)

	case "/context":
		s.reading = arg
		if arg == "" {
			dim.Fprintln(os.Stderr, "  Reading context cleared.")
		} else {
			dim.Fprintf(os.Stderr, "  Questions will include the context of %s.\n\n", arg)
		}

	case "/new":
		conv, err := s.app.store.NewConversation()
		if err != nil {
			return false, err
		}
		s.convID = conv.ID
		dim.Fprintln(os.Stderr, "  Started a new conversation.")
		fmt.Fprintln(os.Stderr)

	case "/retry":
		last, ok := s.lastBot(func(m history.Message) bool { return !m.IsSuggestion })
		if !ok {
			return false, fmt.Errorf("nothing to retry yet")
		}
		_, err := streamReply(s.mode, func(onUpdate func(history.Message)) (history.Message, error) {
			return s.runner.Retry(cmd.Context(), s.convID, last.ID, s.mode, onUpdate)
		})
		return false, err

	case "/answer":
		return false, s.answer(arg)

	case "/suggest":
		msg, ok, err := s.runner.Suggest(cmd.Context(), s.convID, s.mode)
		if err != nil {
			return false, err
		}
		if !ok {
			dim.Fprintln(os.Stderr, "  No suggestion right now.")
			fmt.Fprintln(os.Stderr)
			return false, nil
		}
		color.New(color.FgYellow).Fprintf(os.Stderr, "  💡 %s\n\n", msg.Text)

	case "/verse":
		s.send(cmd, turn.VerseOfTheDay())

	case "/explain":
		if arg == "" {
			return false, fmt.Errorf("usage: /explain <reference>")
		}
		s.send(cmd, turn.ExplainVerse(arg))

	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

func (s *chatSession) lastBot(match func(history.Message) bool) (history.Message, bool) {
	conv, err := s.app.store.Conversation(s.convID)
	if err != nil {
		return history.Message{}, false
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := conv.Messages[i]
		if m.Sender == history.SenderBot && m.ID != history.WelcomeMessageID && match(m) {
			return m, true
		}
	}
	return history.Message{}, false
}

func (s *chatSession) answer(arg string) error {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return fmt.Errorf("usage: /answer <question number> <letter>")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("invalid question number %q", fields[0])
	}
	letter := strings.ToUpper(fields[1])
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return fmt.Errorf("invalid option %q", fields[1])
	}

	quizMsg, ok := s.lastBot(func(m history.Message) bool { return m.Quiz != nil })
	if !ok {
		return fmt.Errorf("no quiz in this conversation — try /mode multi-quiz")
	}
	choice := int(letter[0] - 'A')
	if n >= 1 && n <= len(quizMsg.Quiz.Questions) && choice >= len(quizMsg.Quiz.Questions[n-1].Options) {
		return fmt.Errorf("question %d has no option %s", n, letter)
	}
	if err := s.app.store.AnswerQuiz(s.convID, quizMsg.ID, n-1, choice); err != nil {
		return err
	}
	conv, err := s.app.store.Conversation(s.convID)
	if err != nil {
		return err
	}
	for _, m := range conv.Messages {
		if m.ID == quizMsg.ID {
			ui.RenderQuiz(os.Stdout, m.Quiz, false)
			fmt.Println()
		}
	}
	return nil
}
