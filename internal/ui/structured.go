package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/arin/scholar/internal/history"
)

// RenderStudyPlan prints a study plan as a numbered list of days.
func RenderStudyPlan(w io.Writer, plan *history.StudyPlan) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "  %s\n\n", plan.Title)
	for _, d := range plan.Days {
		green.Fprintf(w, "  Day %d: ", d.Day)
		fmt.Fprintln(w, d.Topic)
		for _, s := range d.Scriptures {
			fmt.Fprintf(w, "    • %s\n", s)
		}
		if d.ReflectionQuestion != "" {
			dim.Fprintf(w, "    ? %s\n", d.ReflectionQuestion)
		}
		fmt.Fprintln(w)
	}
}

// OptionLetter returns the label of option i ("A", "B", ...).
func OptionLetter(i int) string {
	return string(rune('A' + i))
}

// RenderQuiz prints a quiz. Answered questions are marked right or wrong; with
// reveal set, the correct option is highlighted for every question.
func RenderQuiz(w io.Writer, quiz *history.Quiz, reveal bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "  %s\n\n", quiz.Title)
	for qi, q := range quiz.Questions {
		fmt.Fprintf(w, "  %d. %s\n", qi+1, q.Question)
		for oi, opt := range q.Options {
			line := fmt.Sprintf("     %s) %s", OptionLetter(oi), opt)
			answered := q.UserAnswerIndex != nil && *q.UserAnswerIndex == oi
			switch {
			case oi == q.CorrectAnswerIndex && (reveal || q.UserAnswerIndex != nil):
				green.Fprint(w, line)
				if answered {
					green.Fprint(w, "  ✓")
				}
			case answered:
				red.Fprint(w, line+"  ✗")
			default:
				fmt.Fprint(w, line)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}
	if correct, answered := quiz.Score(); answered > 0 {
		dim.Fprintf(w, "  Score: %d/%d (%d of %d answered)\n", correct, len(quiz.Questions), answered, len(quiz.Questions))
	}
}
