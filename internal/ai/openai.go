package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/history"
)

// openAISession talks to any OpenAI-compatible /chat/completions endpoint
// (LM Studio, OpenRouter, a gateway). It keeps the running message list so one
// session can carry a multi-turn conversation.
type openAISession struct {
	provider   config.Provider
	baseURL    string
	apiKey     string
	model      string
	mode       Mode
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	messages []Message
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

func newOpenAISession(cfg *config.Config, mode Mode, hist []history.Message, o *options) *openAISession {
	msgs := []Message{{Role: RoleSystem, Content: SystemInstruction(mode)}}
	msgs = append(msgs, toMessages(hist)...)
	return &openAISession{
		provider:   cfg.Provider,
		baseURL:    cfg.BaseURL(),
		apiKey:     cfg.APIKey(),
		model:      cfg.Model,
		mode:       mode,
		httpClient: o.streamClient(),
		logger:     o.logger,
		messages:   msgs,
	}
}

// SendMessageStream posts the conversation plus text and streams the reply.
// The user turn and the assembled reply are recorded only after a clean end.
func (s *openAISession) SendMessageStream(ctx context.Context, text string) <-chan StreamDelta {
	e := newEmitter(ctx)
	go func() {
		defer close(e.ch)
		s.mu.Lock()
		defer s.mu.Unlock()

		msgs := append(append([]Message(nil), s.messages...), Message{Role: RoleUser, Content: text})
		start := time.Now()
		s.logger.Debug("chat request", "provider", s.provider, "model", s.model, "mode", s.mode, "messages", len(msgs))

		resp, err := s.post(ctx, msgs)
		if err != nil {
			e.fail(err)
			return
		}
		defer resp.Body.Close()

		var reply strings.Builder
		err = readEvents(resp.Body, func(data string) error {
			if msg := gjson.Get(data, "error.message"); msg.Exists() {
				return &RequestError{Provider: s.provider, Status: int(gjson.Get(data, "error.code").Int()), Body: msg.String()}
			}
			content := gjson.Get(data, "choices.0.delta.content").String()
			if content == "" {
				return nil
			}
			reply.WriteString(content)
			if !e.send(StreamDelta{Text: content}) {
				return ctx.Err()
			}
			return nil
		})
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return
		case IsRequestError(err):
			e.fail(err)
			return
		default:
			e.fail(&TransportError{Provider: s.provider, BaseURL: s.baseURL, Err: err})
			return
		}

		s.messages = append(msgs, Message{Role: RoleAssistant, Content: reply.String()})
		s.logger.Debug("chat response", "provider", s.provider, "chars", reply.Len(), "elapsed", time.Since(start))
		e.send(StreamDelta{Done: true})
	}()
	return e.ch
}

func (s *openAISession) post(ctx context.Context, msgs []Message) (*http.Response, error) {
	reqBody := chatCompletionRequest{
		Model:    s.model,
		Messages: msgs,
		Stream:   true,
	}
	if s.mode.Structured() {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if s.provider == config.ProviderOpenRouter {
		req.Header.Set("X-Title", "Scripture Scholar")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: s.provider, BaseURL: s.baseURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &RequestError{Provider: s.provider, Status: resp.StatusCode, Body: string(errBody)}
	}
	return resp, nil
}

// readEvents calls fn with the payload of every SSE "data:" line until [DONE] or EOF.
// Comment lines and payloads that are not valid JSON are skipped.
func readEvents(r io.Reader, fn func(data string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		data, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}
		if !gjson.Valid(data) {
			continue
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return sc.Err()
}
