package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/arin/scholar/internal/history"
)

func init() {
	color.NoColor = true
}

func bot(text, thinking string) history.Message {
	return history.Message{Sender: history.SenderBot, Text: text, Thinking: thinking}
}

func TestRenderer_StreamsIncrementally(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, "  ", false)

	r.Update(bot("Faith", ""))
	r.Update(bot("Faith is", ""))
	r.Update(bot("Faith is", ""))
	r.Finish(bot("Faith is hope.", ""))

	if got := buf.String(); got != "  Faith is hope.\n\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestRenderer_ThinkingBeforeText(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, "", false)

	r.Update(bot("", "Consider"))
	r.Update(bot("", "Consider Alma 32."))
	r.Update(bot("Faith grows.", "Consider Alma 32."))
	r.Finish(bot("Faith grows.", "Consider Alma 32."))

	out := buf.String()
	if !strings.HasPrefix(out, "Consider Alma 32.\n\nFaith grows.") {
		t.Errorf("expected thinking then text, got %q", out)
	}
	if strings.Count(out, "Faith grows.") != 1 {
		t.Errorf("text should be printed once, got %q", out)
	}
}

func TestRenderer_RewrittenTextPrintedOnFinish(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, "", false)

	r.Update(bot("Here is a picture: WIKIMEDIA_SEARCH[Salt Lake Temple]", ""))
	r.Update(bot("Searching for an image...", ""))
	r.Finish(bot("![Salt Lake Temple](https://upload.example/temple.jpg)", ""))

	out := buf.String()
	if !strings.HasSuffix(out, "![Salt Lake Temple](https://upload.example/temple.jpg)\n\n") {
		t.Errorf("expected final text on its own line, got %q", out)
	}
	if strings.Contains(out, "Searching") {
		t.Errorf("rewritten snapshots should not be printed, got %q", out)
	}
}

func TestRenderer_MarkdownHoldsBackText(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, "", true)

	r.Update(bot("partial", ""))
	if buf.Len() != 0 {
		t.Fatalf("markdown mode should not stream text, got %q", buf.String())
	}
	r.Finish(bot("**Nephi** built a ship.", ""))
	if !strings.Contains(buf.String(), "Nephi") {
		t.Errorf("expected rendered text, got %q", buf.String())
	}
}

func TestRenderer_StudyPlanAndCitations(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, "", false)

	m := bot("", "")
	m.StudyPlan = &history.StudyPlan{Title: "Faith in Christ", Days: []history.StudyDay{
		{Day: 1, Topic: "What is faith?", Scriptures: []string{"Alma 32:21"}, ReflectionQuestion: "How do I act in faith?"},
	}}
	m.Citations = []history.Citation{{Kind: "web", URI: "https://example.org/faith", Title: "Faith"}}
	r.Finish(m)

	out := buf.String()
	for _, want := range []string{"Faith in Christ", "Day 1: What is faith?", "• Alma 32:21", "? How do I act in faith?", "[1] Faith (https://example.org/faith)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderQuiz_MarksAnswers(t *testing.T) {
	right, wrong := 1, 0
	quiz := &history.Quiz{Title: "Nephi", Questions: []history.QuizQuestion{
		{Question: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 1, UserAnswerIndex: &right},
		{Question: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 2, UserAnswerIndex: &wrong},
		{Question: "Q3", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 3},
	}}

	var buf bytes.Buffer
	RenderQuiz(&buf, quiz, false)
	out := buf.String()

	if !strings.Contains(out, "B) b  ✓") {
		t.Errorf("expected correct answer mark, got:\n%s", out)
	}
	if !strings.Contains(out, "A) a  ✗") {
		t.Errorf("expected wrong answer mark, got:\n%s", out)
	}
	if !strings.Contains(out, "Score: 1/3 (2 of 3 answered)") {
		t.Errorf("expected score line, got:\n%s", out)
	}
}

func TestOptionLetter(t *testing.T) {
	if OptionLetter(0) != "A" || OptionLetter(3) != "D" {
		t.Errorf("unexpected letters %s %s", OptionLetter(0), OptionLetter(3))
	}
}
