package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/history"
)

const (
	suggestionModel = "gemini-2.5-flash"
	speechModel     = "gemini-2.5-flash-preview-tts"
	speechVoice     = "Kore"
	suggestionTurns = 4
)

// ErrNoAudio is returned when a speech response carries no audio data.
var ErrNoAudio = errors.New("no audio data received from API")

// CrossReference is a scripture with related passages.
type CrossReference struct {
	MainScripture string      `json:"mainScripture"`
	References    []Reference `json:"references"`
}

// Reference is one related scripture and how it relates.
type Reference struct {
	Scripture   string `json:"scripture"`
	Explanation string `json:"explanation"`
}

// JournalInsight is the generated reflection on a journal entry.
type JournalInsight struct {
	Summary            string   `json:"summary"`
	Principles         []string `json:"principles"`
	SuggestedScripture string   `json:"suggestedScripture"`
}

// generator is the part of *genai.Models the helpers need.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Studio runs one-shot requests against the native provider. It is available
// whenever a Google API key is configured, regardless of the chat provider.
type Studio struct {
	models generator
	logger *slog.Logger
}

// NewStudio creates a Studio from the configured Google API key.
func NewStudio(ctx context.Context, cfg *config.Config, opts ...Option) (*Studio, error) {
	if cfg.GoogleAPIKey == "" {
		return nil, &config.MisconfiguredError{Provider: config.ProviderGoogle, Field: "Google API key"}
	}
	o := buildOptions(opts)
	client, err := newNativeClient(ctx, cfg.GoogleAPIKey, o.requestClient())
	if err != nil {
		return nil, err
	}
	return &Studio{models: client.Models, logger: o.logger}, nil
}

func instruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

func userText(text string) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: text}}}}
}

func (s *Studio) generateJSON(ctx context.Context, prompt, system string, schema *genai.Schema, out any) error {
	resp, err := s.models.GenerateContent(ctx, ProModel, userText(prompt), &genai.GenerateContentConfig{
		SystemInstruction: instruction(system),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	})
	if err != nil {
		return nativeError(err)
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Text())), out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// CrossReferences finds scriptures related to the given reference.
func (s *Studio) CrossReferences(ctx context.Context, scripture string) (*CrossReference, error) {
	var ref CrossReference
	if err := s.generateJSON(ctx, "Find cross-references for "+scripture, crossReferenceInstruction, crossReferenceSchema, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// JournalInsights summarizes a journal entry and suggests a scripture.
func (s *Studio) JournalInsights(ctx context.Context, text string) (*JournalInsight, error) {
	var insight JournalInsight
	if err := s.generateJSON(ctx, text, journalInstruction, journalSchema, &insight); err != nil {
		return nil, err
	}
	return &insight, nil
}

// suggestionWindow returns the last few non-suggestion turns, dropping a trailing
// bot turn. ok is false when the window does not end on a user turn.
func suggestionWindow(msgs []history.Message) ([]*genai.Content, bool) {
	var relevant []history.Message
	for _, m := range msgs {
		if !m.IsSuggestion {
			relevant = append(relevant, m)
		}
	}
	if len(relevant) > suggestionTurns {
		relevant = relevant[len(relevant)-suggestionTurns:]
	}
	if n := len(relevant); n > 0 && relevant[n-1].Sender != history.SenderUser {
		relevant = relevant[:n-1]
	}
	if len(relevant) == 0 || relevant[len(relevant)-1].Sender != history.SenderUser {
		return nil, false
	}
	contents := make([]*genai.Content, len(relevant))
	for i, m := range relevant {
		role := "model"
		if m.Sender == history.SenderUser {
			role = "user"
		}
		contents[i] = &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Text}}}
	}
	return contents, true
}

// ProactiveSuggestion proposes a follow-up question for the conversation.
// Failures are logged and reported as no suggestion.
func (s *Studio) ProactiveSuggestion(ctx context.Context, msgs []history.Message) (string, bool) {
	contents, ok := suggestionWindow(msgs)
	if !ok {
		return "", false
	}
	resp, err := s.models.GenerateContent(ctx, suggestionModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: instruction(suggestionInstruction),
		Temperature:       genai.Ptr[float32](0.7),
	})
	if err != nil {
		s.logger.Warn("proactive suggestion failed", "error", err)
		return "", false
	}
	suggestion := strings.TrimSpace(resp.Text())
	if suggestion == "" || strings.Contains(suggestion, NoSuggestion) {
		return "", false
	}
	return suggestion, true
}

// Speech synthesizes text as raw 24 kHz 16-bit mono PCM.
func (s *Studio) Speech(ctx context.Context, text string) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: speechVoice},
			},
		},
	}
	cfg.ResponseModalities = append(cfg.ResponseModalities, "AUDIO")

	resp, err := s.models.GenerateContent(ctx, speechModel, userText(text), cfg)
	if err != nil {
		return nil, nativeError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoAudio
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData.Data, nil
		}
	}
	return nil, ErrNoAudio
}
