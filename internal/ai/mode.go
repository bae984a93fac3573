package ai

import (
	"fmt"
	"strings"
)

// Mode selects how a conversation turn is answered.
type Mode string

const (
	ModeChat       Mode = "chat"
	ModeThinking   Mode = "thinking"
	ModeStudyPlan  Mode = "study-plan"
	ModeMultiQuiz  Mode = "multi-quiz"
	ModeLessonPrep Mode = "lesson-prep"
	ModeFHEPlanner Mode = "fhe-planner"
)

// ProModel is forced for every native mode except plain chat.
const ProModel = "gemini-2.5-pro"

const (
	thinkingBudget  = 32768
	chatTemperature = 0.5
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeChat, ModeThinking, ModeStudyPlan, ModeMultiQuiz, ModeLessonPrep, ModeFHEPlanner}

// ParseMode accepts a mode name. An empty string selects chat.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeChat, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (choose one of: %s)", s, modeNames())
}

func modeNames() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// Structured reports whether answers in this mode are a JSON payload.
func (m Mode) Structured() bool {
	return m == ModeStudyPlan || m == ModeMultiQuiz
}

// Templated reports whether the mode produces a fixed-section markdown document.
func (m Mode) Templated() bool {
	return m == ModeLessonPrep || m == ModeFHEPlanner
}

// ResolveModel returns the model id a native session uses for mode.
// Only plain chat honors the configured model; every other mode runs on ProModel.
func ResolveModel(mode Mode, configured string) string {
	if mode == ModeChat || mode == "" {
		return configured
	}
	return ProModel
}

// SystemInstruction returns the system prompt for mode.
func SystemInstruction(mode Mode) string {
	switch mode {
	case ModeStudyPlan:
		return studyPlanInstruction
	case ModeMultiQuiz:
		return multiQuizInstruction
	case ModeLessonPrep:
		return lessonPrepInstruction
	case ModeFHEPlanner:
		return fhePlannerInstruction
	case ModeThinking:
		return scholarInstruction + "\n\n" + thinkingAddendum
	}
	return scholarInstruction
}
