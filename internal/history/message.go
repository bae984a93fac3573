package history

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// WelcomeMessageID is the id of the greeting seeded into every new conversation.
const WelcomeMessageID = "initial-message"

const welcomeText = "Hello! I am Scripture Scholar. How can I help you learn about the Book of Mormon " +
	"or The Church of Jesus Christ of Latter-day Saints today? You can type, use the microphone to talk, " +
	"or even ask me to find a picture for you."

// Citation is a grounding source attached to a generated answer.
type Citation struct {
	Kind  string `json:"kind"` // "web" or "maps"
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// StudyDay is one day of a study plan.
type StudyDay struct {
	Day                int      `json:"day"`
	Topic              string   `json:"topic"`
	Scriptures         []string `json:"scriptures"`
	ReflectionQuestion string   `json:"reflection_question"`
}

// StudyPlan is the structured payload of the study-plan mode.
type StudyPlan struct {
	Title string     `json:"title"`
	Days  []StudyDay `json:"days"`
}

// QuizQuestion is a single multiple-choice question. UserAnswerIndex is set once answered.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	UserAnswerIndex    *int     `json:"userAnswerIndex,omitempty"`
}

// Quiz is the structured payload of the multi-quiz mode.
type Quiz struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// Score returns the number of correctly answered questions and how many were answered.
func (q *Quiz) Score() (correct, answered int) {
	for _, question := range q.Questions {
		if question.UserAnswerIndex == nil {
			continue
		}
		answered++
		if *question.UserAnswerIndex == question.CorrectAnswerIndex {
			correct++
		}
	}
	return correct, answered
}

// Message is one entry of a conversation.
type Message struct {
	ID           string     `json:"id"`
	Sender       Sender     `json:"sender"`
	Text         string     `json:"text"`
	Thinking     string     `json:"thinking,omitempty"`
	StudyPlan    *StudyPlan `json:"studyPlan,omitempty"`
	Quiz         *Quiz      `json:"multiQuiz,omitempty"`
	Citations    []Citation `json:"groundingChunks,omitempty"`
	IsSuggestion bool       `json:"isSuggestion,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Clone returns a copy of m that shares no mutable state with it.
func (m Message) Clone() Message {
	if m.StudyPlan != nil {
		plan := *m.StudyPlan
		plan.Days = make([]StudyDay, len(m.StudyPlan.Days))
		for i, d := range m.StudyPlan.Days {
			d.Scriptures = append([]string(nil), d.Scriptures...)
			plan.Days[i] = d
		}
		m.StudyPlan = &plan
	}
	if m.Quiz != nil {
		quiz := *m.Quiz
		quiz.Questions = make([]QuizQuestion, len(m.Quiz.Questions))
		for i, q := range m.Quiz.Questions {
			q.Options = append([]string(nil), q.Options...)
			if q.UserAnswerIndex != nil {
				answer := *q.UserAnswerIndex
				q.UserAnswerIndex = &answer
			}
			quiz.Questions[i] = q
		}
		m.Quiz = &quiz
	}
	if m.Citations != nil {
		m.Citations = append([]Citation(nil), m.Citations...)
	}
	return m
}

// NewMessage creates a message with a fresh id.
func NewMessage(sender Sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// WelcomeMessage returns the greeting that starts every conversation.
func WelcomeMessage() Message {
	return Message{
		ID:        WelcomeMessageID,
		Sender:    SenderBot,
		Text:      welcomeText,
		CreatedAt: time.Now(),
	}
}

// Note is a free-form study note.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// JournalEntry is a journal entry with optional generated insights.
type JournalEntry struct {
	ID                 string    `json:"id"`
	OriginalText       string    `json:"originalText"`
	Summary            string    `json:"summary,omitempty"`
	Principles         []string  `json:"principles,omitempty"`
	SuggestedScripture string    `json:"suggestedScripture,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}
