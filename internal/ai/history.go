package ai

import (
	"google.golang.org/genai"

	"github.com/arin/scholar/internal/history"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SanitizeHistory drops messages that must never reach a provider: proactive
// suggestions, the welcome greeting and messages without text. Order is kept.
func SanitizeHistory(msgs []history.Message) []history.Message {
	out := make([]history.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsSuggestion || m.ID == history.WelcomeMessageID || m.Text == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func toMessages(msgs []history.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range SanitizeHistory(msgs) {
		role := RoleAssistant
		if m.Sender == history.SenderUser {
			role = RoleUser
		}
		out = append(out, Message{Role: role, Content: m.Text})
	}
	return out
}

// toNativeHistory maps history to genai contents. Gemini rejects a history that
// opens with a model turn, so leading bot messages are skipped.
func toNativeHistory(msgs []history.Message) []*genai.Content {
	var out []*genai.Content
	for _, m := range SanitizeHistory(msgs) {
		role := "model"
		if m.Sender == history.SenderUser {
			role = "user"
		}
		if len(out) == 0 && role != "user" {
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Text}}})
	}
	return out
}
