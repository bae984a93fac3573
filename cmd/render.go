package cmd

import (
	"os"
	"strings"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/reply"
	"github.com/arin/scholar/internal/ui"
)

// streamReply shows a spinner until the reply has something to show, then
// renders it as it streams. run is a turn.Runner Send or Retry call. Raw
// JSON of structured modes is not shown; Finish prints the parsed result.
func streamReply(mode ai.Mode, run func(onUpdate func(history.Message)) (history.Message, error)) (history.Message, error) {
	markdown := !plain && ui.IsTerminal(os.Stdout)
	sp := ui.NewSpinner("Thinking...")
	sp.Start()
	spinning := true
	stop := func() {
		if spinning {
			sp.Stop()
			spinning = false
		}
	}

	r := ui.NewRenderer(os.Stdout, "  ", markdown)
	msg, err := run(func(m history.Message) {
		if strings.Contains(m.Text, reply.SearchingText) {
			sp.Message("Searching for an image...")
			return
		}
		if mode.Structured() {
			m.Text = ""
		}
		if m.Thinking != "" || (!markdown && m.Text != "") {
			stop()
		}
		r.Update(m)
	})
	stop()
	if msg.ID == "" {
		return msg, err
	}
	r.Finish(msg)
	return msg, err
}
