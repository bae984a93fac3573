package ai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/history"
)

// nativeChat is the part of *genai.Chat a session needs.
type nativeChat interface {
	SendMessageStream(ctx context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error]
}

// geminiSession wraps one genai chat configured for a single mode.
type geminiSession struct {
	chat   nativeChat
	model  string
	mode   Mode
	logger *slog.Logger
}

func newNativeClient(ctx context.Context, apiKey string, httpClient *http.Client) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func newGeminiSession(ctx context.Context, cfg *config.Config, mode Mode, hist []history.Message, o *options) (*geminiSession, error) {
	client, err := newNativeClient(ctx, cfg.GoogleAPIKey, o.streamClient())
	if err != nil {
		return nil, err
	}
	model := ResolveModel(mode, cfg.Model)
	chat, err := client.Chats.Create(ctx, model, chatConfig(mode), toNativeHistory(hist))
	if err != nil {
		return nil, fmt.Errorf("failed to start chat: %w", err)
	}
	return &geminiSession{chat: chat, model: model, mode: mode, logger: o.logger}, nil
}

// chatConfig builds the generation settings for mode: JSON schema output for
// structured modes, search and maps grounding otherwise.
func chatConfig(mode Mode) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemInstruction(mode)}}},
		Temperature:       genai.Ptr[float32](chatTemperature),
	}
	if mode.Structured() {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = responseSchema(mode)
	} else {
		cfg.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
			{GoogleMaps: &genai.GoogleMaps{}},
		}
	}
	if mode == ModeThinking {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](thinkingBudget)}
	}
	return cfg
}

func (s *geminiSession) SendMessageStream(ctx context.Context, text string) <-chan StreamDelta {
	e := newEmitter(ctx)
	go func() {
		defer close(e.ch)
		start := time.Now()
		s.logger.Debug("chat request", "provider", config.ProviderGoogle, "model", s.model, "mode", s.mode)

		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
			if err != nil {
				if ctx.Err() == nil {
					e.fail(nativeError(err))
				}
				return
			}
			delta, ok := normalizeNative(resp)
			if !ok {
				continue
			}
			if !e.send(delta) {
				return
			}
		}
		s.logger.Debug("chat response", "provider", config.ProviderGoogle, "elapsed", time.Since(start))
		e.send(StreamDelta{Done: true})
	}()
	return e.ch
}

// normalizeNative maps one provider chunk to a delta. Chunks with neither text
// nor grounding are dropped.
func normalizeNative(resp *genai.GenerateContentResponse) (StreamDelta, bool) {
	if resp == nil {
		return StreamDelta{}, false
	}
	var delta StreamDelta
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		delta.Text = resp.Text()
	}
	delta.Citations = groundingCitations(resp)
	return delta, delta.Text != "" || delta.Citations != nil
}

func groundingCitations(resp *genai.GenerateContentResponse) []history.Citation {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	chunks := resp.Candidates[0].GroundingMetadata.GroundingChunks
	if len(chunks) == 0 {
		return nil
	}
	out := make([]history.Citation, 0, len(chunks))
	for _, c := range chunks {
		switch {
		case c == nil:
		case c.Web != nil:
			out = append(out, history.Citation{Kind: "web", URI: c.Web.URI, Title: c.Web.Title})
		case c.Maps != nil:
			out = append(out, history.Citation{Kind: "maps", URI: c.Maps.URI, Title: c.Maps.Title})
		}
	}
	return out
}

// nativeError turns SDK errors into the package's error taxonomy.
func nativeError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &RequestError{Provider: config.ProviderGoogle, Status: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &RequestError{Provider: config.ProviderGoogle, Status: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return &TransportError{Provider: config.ProviderGoogle, Err: err}
}
