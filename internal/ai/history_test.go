package ai

import (
	"testing"

	"github.com/arin/scholar/internal/history"
)

func sampleHistory() []history.Message {
	suggestion := history.NewMessage(history.SenderBot, "Want to compare with Ether 12?")
	suggestion.IsSuggestion = true
	return []history.Message{
		history.WelcomeMessage(),
		history.NewMessage(history.SenderUser, "What is faith?"),
		history.NewMessage(history.SenderBot, "Faith is a hope in things not seen."),
		suggestion,
		history.NewMessage(history.SenderUser, ""),
		history.NewMessage(history.SenderUser, "Tell me more"),
	}
}

func TestSanitizeHistory(t *testing.T) {
	got := SanitizeHistory(sampleHistory())
	want := []string{"What is faith?", "Faith is a hope in things not seen.", "Tell me more"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d: %+v", len(want), len(got), got)
	}
	for i, m := range got {
		if m.Text != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], m.Text)
		}
		if m.IsSuggestion || m.ID == history.WelcomeMessageID {
			t.Errorf("message %d should have been dropped", i)
		}
	}
}

func TestToMessages_Roles(t *testing.T) {
	got := toMessages(sampleHistory())
	roles := []string{RoleUser, RoleAssistant, RoleUser}
	for i, m := range got {
		if m.Role != roles[i] {
			t.Errorf("message %d: expected role %s, got %s", i, roles[i], m.Role)
		}
	}
}

func TestToNativeHistory_StartsWithUser(t *testing.T) {
	msgs := []history.Message{
		history.NewMessage(history.SenderBot, "orphan answer"),
		history.NewMessage(history.SenderUser, "Who was Alma?"),
		history.NewMessage(history.SenderBot, "A prophet."),
	}
	got := toNativeHistory(msgs)
	if len(got) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(got))
	}
	if got[0].Role != "user" || got[1].Role != "model" {
		t.Errorf("unexpected roles %s, %s", got[0].Role, got[1].Role)
	}
}
