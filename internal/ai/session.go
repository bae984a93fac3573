package ai

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/history"
)

const defaultTimeout = 60 * time.Second

// Option customizes sessions and helpers.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient replaces the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// streamClient has no overall timeout; streamed replies are bounded by the caller's context.
func (o *options) streamClient() *http.Client {
	if o.httpClient != nil {
		return o.httpClient
	}
	return &http.Client{}
}

func (o *options) requestClient() *http.Client {
	if o.httpClient != nil {
		return o.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

// NewChatSession opens a chat session for the active provider, configured for
// mode and seeded with the prior conversation. Settings are validated before any
// network call.
func NewChatSession(ctx context.Context, cfg *config.Config, mode Mode, hist []history.Message, opts ...Option) (ChatSession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeChat
	}
	o := buildOptions(opts)
	if cfg.Provider.Native() {
		return newGeminiSession(ctx, cfg, mode, hist, o)
	}
	return newOpenAISession(cfg, mode, hist, o), nil
}

// SessionFactory creates chat sessions. NewChatSession satisfies it.
type SessionFactory func(ctx context.Context, cfg *config.Config, mode Mode, hist []history.Message) (ChatSession, error)

// Factory binds options to NewChatSession.
func Factory(opts ...Option) SessionFactory {
	return func(ctx context.Context, cfg *config.Config, mode Mode, hist []history.Message) (ChatSession, error) {
		return NewChatSession(ctx, cfg, mode, hist, opts...)
	}
}
