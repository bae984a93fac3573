// Package ui — stream.go renders a reply while it streams: reasoning text in
// dim gray as it grows, then the visible answer, then the finished message.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/arin/scholar/internal/history"
)

// Renderer writes successive snapshots of one bot message to w, printing only
// what is new. With markdown set, the visible answer is held back and rendered
// once through glamour by Finish.
type Renderer struct {
	w        io.Writer
	prefix   string
	markdown bool

	thinking string
	text     string
	started  bool
	diverged bool
}

// NewRenderer creates a Renderer. prefix is written before the first output (e.g. "  ").
func NewRenderer(w io.Writer, prefix string, markdown bool) *Renderer {
	return &Renderer{w: w, prefix: prefix, markdown: markdown}
}

func (r *Renderer) begin() {
	if !r.started {
		fmt.Fprint(r.w, r.prefix)
		r.started = true
	}
}

// Update prints the growth of m since the last call.
func (r *Renderer) Update(m history.Message) {
	if strings.HasPrefix(m.Thinking, r.thinking) && len(m.Thinking) > len(r.thinking) {
		r.begin()
		color.New(color.FgHiBlack).Fprint(r.w, m.Thinking[len(r.thinking):])
		r.thinking = m.Thinking
	}
	if r.markdown || r.diverged || m.Text == "" {
		return
	}
	if !strings.HasPrefix(m.Text, r.text) {
		// Rewritten (image lookup, structured payload); Finish prints the result.
		r.diverged = true
		return
	}
	if len(m.Text) == len(r.text) {
		return
	}
	r.begin()
	if r.text == "" && r.thinking != "" {
		fmt.Fprint(r.w, "\n\n")
	}
	fmt.Fprint(r.w, m.Text[len(r.text):])
	r.text = m.Text
}

// Finish prints whatever the final message adds: the rest of the text (or
// all of it, rendered, when it was rewritten or held back), a study plan or
// quiz, and citations.
func (r *Renderer) Finish(m history.Message) {
	switch {
	case m.StudyPlan != nil:
		r.separate()
		RenderStudyPlan(r.w, m.StudyPlan)
	case m.Quiz != nil:
		r.separate()
		RenderQuiz(r.w, m.Quiz, false)
	case r.markdown && m.Text != "":
		r.separate()
		fmt.Fprint(r.w, RenderMarkdown(m.Text))
	case !r.diverged && strings.HasPrefix(m.Text, r.text):
		r.begin()
		fmt.Fprint(r.w, m.Text[len(r.text):])
		if m.Text != "" && !strings.HasSuffix(m.Text, "\n") {
			fmt.Fprintln(r.w)
		}
	default:
		r.separate()
		fmt.Fprintln(r.w, m.Text)
	}
	if len(m.Citations) > 0 {
		RenderCitations(r.w, m.Citations)
	}
	fmt.Fprintln(r.w)
}

// separate ends any partial output so a block starts on a fresh line.
func (r *Renderer) separate() {
	if r.thinking != "" || r.text != "" {
		fmt.Fprint(r.w, "\n\n")
	}
}

// RenderCitations lists grounding sources.
func RenderCitations(w io.Writer, citations []history.Citation) {
	dim := color.New(color.FgHiBlack)
	dim.Fprintln(w, "\n  Sources:")
	for i, c := range citations {
		title := c.Title
		if title == "" {
			title = c.URI
		}
		dim.Fprintf(w, "  [%d] %s", i+1, title)
		if c.URI != "" && c.URI != title {
			dim.Fprintf(w, " (%s)", c.URI)
		}
		fmt.Fprintln(w)
	}
}
