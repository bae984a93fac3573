package reply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/history"
)

// SearchingText replaces the image tag while the lookup is in flight.
const SearchingText = "Searching for the image..."

// ErrStructuredParse is reported when a structured reply is not a valid payload.
var ErrStructuredParse = errors.New("structured reply could not be parsed")

var (
	imageTag  = regexp.MustCompile(`WIKIMEDIA_SEARCH\[(.*?)\]`)
	extension = regexp.MustCompile(`\.[^/.]+$`)
)

// Resolver looks up the URL of an image file.
type Resolver interface {
	Resolve(ctx context.Context, filename string) (string, error)
}

// Result is the authoritative final state of a reply.
type Result struct {
	Text      string
	Thinking  string
	Citations []history.Citation
	StudyPlan *history.StudyPlan
	Quiz      *history.Quiz
}

// Apply copies the result into a bot message.
func (r Result) Apply(m *history.Message) {
	m.Text = r.Text
	m.Thinking = r.Thinking
	m.Citations = r.Citations
	m.StudyPlan = r.StudyPlan
	m.Quiz = r.Quiz
}

// Finalize computes the final reply once the stream has ended. If the visible
// text holds an image tag, update is called with the searching placeholder
// before the lookup; the resolved text is in the returned Result. Only the first
// tag is resolved.
func (a *Accumulator) Finalize(ctx context.Context, mode ai.Mode, resolver Resolver, update func(Snapshot)) Result {
	snap := a.Snapshot()
	res := Result{Text: snap.Visible, Thinking: snap.Thinking, Citations: snap.Citations}

	if m := imageTag.FindStringSubmatchIndex(res.Text); m != nil {
		tag := res.Text[m[0]:m[1]]
		filename := res.Text[m[2]:m[3]]
		if update != nil {
			loading := snap
			loading.Visible = strings.Replace(res.Text, tag, SearchingText, 1)
			update(loading)
		}
		res.Text = strings.Replace(res.Text, tag, resolveImage(ctx, resolver, filename), 1)
	}

	if mode.Structured() {
		plan, quiz, err := parseStructured(mode, res.Text)
		if err != nil {
			res.Text = fmt.Sprintf("Sorry, I couldn't create a %s. Please try again.", mode)
			return res
		}
		res.Text = ""
		res.StudyPlan, res.Quiz = plan, quiz
	}
	return res
}

func resolveImage(ctx context.Context, resolver Resolver, filename string) string {
	caption := Caption(filename)
	if resolver == nil {
		return unableText(caption)
	}
	url, err := resolver.Resolve(ctx, filename)
	if err != nil || url == "" {
		return unableText(caption)
	}
	return fmt.Sprintf("![%s](%s)", caption, url)
}

func unableText(caption string) string {
	return fmt.Sprintf("I was unable to find an image for \"%s\".", caption)
}

// Caption derives a readable caption from a Commons file name:
// "File:Salt_Lake_Temple.jpg" becomes "Salt Lake Temple".
func Caption(filename string) string {
	s := strings.Replace(filename, "File:", "", 1)
	s = strings.ReplaceAll(s, "_", " ")
	return extension.ReplaceAllString(s, "")
}

// stripFence removes a markdown code fence the model may wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// quizOptions is the number of choices every quiz question carries.
const quizOptions = 4

func parseStructured(mode ai.Mode, text string) (*history.StudyPlan, *history.Quiz, error) {
	data := []byte(stripFence(text))
	switch mode {
	case ai.ModeStudyPlan:
		var plan history.StudyPlan
		if err := json.Unmarshal(data, &plan); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrStructuredParse, err)
		}
		if plan.Title == "" || len(plan.Days) == 0 {
			return nil, nil, fmt.Errorf("%w: study plan needs a title and at least one day", ErrStructuredParse)
		}
		return &plan, nil, nil
	case ai.ModeMultiQuiz:
		var quiz history.Quiz
		if err := json.Unmarshal(data, &quiz); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrStructuredParse, err)
		}
		if quiz.Title == "" || len(quiz.Questions) == 0 {
			return nil, nil, fmt.Errorf("%w: quiz needs a title and at least one question", ErrStructuredParse)
		}
		for i, q := range quiz.Questions {
			if len(q.Options) != quizOptions {
				return nil, nil, fmt.Errorf("%w: question %d has %d options, want %d", ErrStructuredParse, i+1, len(q.Options), quizOptions)
			}
			if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
				return nil, nil, fmt.Errorf("%w: question %d has no valid answer", ErrStructuredParse, i+1)
			}
			quiz.Questions[i].UserAnswerIndex = nil
		}
		return nil, &quiz, nil
	}
	return nil, nil, fmt.Errorf("%w: mode %s is not structured", ErrStructuredParse, mode)
}

// ErrorText is the message shown in place of a reply that failed mid-stream.
func ErrorText(err error) string {
	return fmt.Sprintf("Sorry, I encountered an error. (%v)", err)
}
