package stats

import (
	"testing"
	"time"
)

func setupTestDir(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestSaveAndLoadAll(t *testing.T) {
	setupTestDir(t)

	err := Save(Record{
		Provider: "google",
		Model:    "gemini-flash-lite-latest",
		Mode:     "chat",
		Latency:  500 * time.Millisecond,
		Chars:    120,
		Success:  true,
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Latency != 500 {
		t.Errorf("expected latency stored in ms, got %d", records[0].Latency)
	}
	if records[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestSave_Cap(t *testing.T) {
	setupTestDir(t)

	for i := 0; i < maxRecords+5; i++ {
		if err := Save(Record{Mode: "chat", Success: true}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	records, _ := LoadAll()
	if len(records) != maxRecords {
		t.Fatalf("expected %d records, got %d", maxRecords, len(records))
	}
}

func TestSummarize_Empty(t *testing.T) {
	setupTestDir(t)

	s, err := Summarize()
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.TotalTurns != 0 || s.ModeBreakdown == nil {
		t.Errorf("unexpected empty summary %+v", s)
	}
}

func TestSummarize_WithData(t *testing.T) {
	setupTestDir(t)

	Save(Record{Provider: "google", Model: "gemini-2.5-pro", Mode: "study-plan", Latency: 200 * time.Millisecond, Success: true})
	Save(Record{Provider: "google", Model: "gemini-2.5-pro", Mode: "multi-quiz", Latency: 400 * time.Millisecond, Success: true, Retry: true})
	Save(Record{Provider: "lmstudio", Model: "local", Mode: "chat", Latency: 300 * time.Millisecond, Success: false})

	s, err := Summarize()
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.TotalTurns != 3 {
		t.Errorf("expected 3 turns, got %d", s.TotalTurns)
	}
	if s.AvgLatencyMs != 300 {
		t.Errorf("expected avg latency 300, got %d", s.AvgLatencyMs)
	}
	if s.SuccessRate < 66 || s.SuccessRate > 67 {
		t.Errorf("expected ~66.7%% success, got %.1f", s.SuccessRate)
	}
	if s.ProviderBreakdown["google"] != 2 || s.Retries != 1 {
		t.Errorf("unexpected breakdown %+v", s)
	}
	if len(s.TopModels) == 0 || s.TopModels[0].Model != "gemini-2.5-pro" {
		t.Errorf("unexpected top models %+v", s.TopModels)
	}
	if s.TodayCount != 3 && s.ThisWeekCount != 3 {
		t.Errorf("expected recent records to be counted")
	}
}
