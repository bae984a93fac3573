// Package turn runs conversation turns: it stores the user message, streams a
// reply from the active provider into a bot placeholder, finalizes it and
// records the outcome.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/reply"
	"github.com/arin/scholar/internal/stats"
)

var (
	// ErrBusy is returned when a turn is started while another is still streaming.
	ErrBusy = errors.New("a reply is already in progress")
	// ErrNoPrompt is returned by Retry when no user message precedes the reply.
	ErrNoPrompt = errors.New("could not find the original prompt to retry")
)

// Request is one user turn.
type Request struct {
	Text           string
	Mode           ai.Mode
	ReadingContext string // passage the user is reading, if any
}

// Suggester proposes follow-up questions.
type Suggester interface {
	ProactiveSuggestion(ctx context.Context, msgs []history.Message) (string, bool)
}

// Runner executes turns against a history store. Only one turn runs at a time.
type Runner struct {
	store     *history.Store
	cfg       *config.Config
	sessions  ai.SessionFactory
	resolver  reply.Resolver
	suggester Suggester
	record    func(stats.Record) error
	source    string
	logger    *slog.Logger

	busy atomic.Bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSessions replaces the chat session factory.
func WithSessions(f ai.SessionFactory) Option { return func(r *Runner) { r.sessions = f } }

// WithResolver sets the image resolver used for image tags.
func WithResolver(res reply.Resolver) Option { return func(r *Runner) { r.resolver = res } }

// WithSuggester enables proactive suggestions.
func WithSuggester(s Suggester) Option { return func(r *Runner) { r.suggester = s } }

// WithRecorder receives a usage record after every turn.
func WithRecorder(fn func(stats.Record) error, source string) Option {
	return func(r *Runner) {
		r.record = fn
		r.source = source
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner for the given settings.
func NewRunner(store *history.Store, cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{store: store, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.sessions == nil {
		r.sessions = ai.Factory(ai.WithLogger(r.logger))
	}
	return r
}

// Busy reports whether a turn is in flight.
func (r *Runner) Busy() bool { return r.busy.Load() }

func (r *Runner) acquire() error {
	if !r.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (r *Runner) release() { r.busy.Store(false) }

// Prompt returns the text actually sent for a request.
func (req Request) Prompt() string {
	if req.ReadingContext == "" {
		return req.Text
	}
	return fmt.Sprintf("With the context of %s, please answer the following: %s", req.ReadingContext, req.Text)
}

// Send stores the user message, streams the reply and returns the final bot
// message. onUpdate, if set, receives the bot message each time it changes.
// A failed stream is still stored, with the error text as the reply.
func (r *Runner) Send(ctx context.Context, convID string, req Request, onUpdate func(history.Message)) (history.Message, error) {
	if err := r.acquire(); err != nil {
		return history.Message{}, err
	}
	defer r.release()

	conv, err := r.store.Conversation(convID)
	if err != nil {
		return history.Message{}, err
	}
	mode := modeOrChat(req.Mode)
	session, err := r.sessions(ctx, r.cfg, mode, conv.Messages)
	if err != nil {
		return history.Message{}, err
	}

	user := history.NewMessage(history.SenderUser, req.Text)
	bot := history.NewMessage(history.SenderBot, "")
	if err := r.store.Append(convID, user, bot); err != nil {
		return history.Message{}, err
	}
	return r.stream(ctx, convID, session, mode, req.Prompt(), bot, false, onUpdate)
}

// Retry regenerates the reply botMsgID: the conversation is cut back to the
// nearest preceding user message, whose exact text is sent again.
func (r *Runner) Retry(ctx context.Context, convID, botMsgID string, mode ai.Mode, onUpdate func(history.Message)) (history.Message, error) {
	if err := r.acquire(); err != nil {
		return history.Message{}, err
	}
	defer r.release()

	conv, err := r.store.Conversation(convID)
	if err != nil {
		return history.Message{}, err
	}
	userIdx, err := precedingUser(conv.Messages, botMsgID)
	if err != nil {
		return history.Message{}, err
	}
	mode = modeOrChat(mode)
	session, err := r.sessions(ctx, r.cfg, mode, conv.Messages[:userIdx])
	if err != nil {
		return history.Message{}, err
	}

	if err := r.store.Truncate(convID, userIdx+1); err != nil {
		return history.Message{}, err
	}
	bot := history.NewMessage(history.SenderBot, "")
	if err := r.store.Append(convID, bot); err != nil {
		return history.Message{}, err
	}
	return r.stream(ctx, convID, session, mode, conv.Messages[userIdx].Text, bot, true, onUpdate)
}

func precedingUser(msgs []history.Message, botMsgID string) (int, error) {
	botIdx := -1
	for i, m := range msgs {
		if m.ID == botMsgID {
			botIdx = i
			break
		}
	}
	if botIdx < 0 {
		return 0, fmt.Errorf("%w: %s", history.ErrMessageNotFound, botMsgID)
	}
	for i := botIdx - 1; i >= 0; i-- {
		if msgs[i].Sender == history.SenderUser {
			return i, nil
		}
	}
	return 0, ErrNoPrompt
}

func (r *Runner) stream(ctx context.Context, convID string, session ai.ChatSession, mode ai.Mode, prompt string,
	bot history.Message, retry bool, onUpdate func(history.Message)) (history.Message, error) {
	start := time.Now()
	publish := func(s reply.Snapshot) {
		bot.Text, bot.Thinking, bot.Citations = s.Visible, s.Thinking, s.Citations
		if onUpdate != nil {
			onUpdate(bot)
		}
	}

	var acc reply.Accumulator
	var streamErr error
	for d := range session.SendMessageStream(ctx, prompt) {
		if d.Err != nil {
			streamErr = d.Err
			continue
		}
		if d.Done {
			continue
		}
		publish(acc.Add(d))
	}
	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}

	if streamErr != nil {
		r.logger.Warn("reply failed", "conversation", convID, "mode", mode, "error", streamErr)
		bot.Text, bot.Thinking, bot.Citations = reply.ErrorText(streamErr), "", nil
		if err := r.store.Update(convID, bot.ID, func(m *history.Message) {
			m.Text, m.Thinking, m.Citations = bot.Text, "", nil
		}); err != nil {
			r.logger.Warn("failed to save reply", "error", err)
		}
		if onUpdate != nil {
			onUpdate(bot)
		}
		r.recordTurn(mode, start, bot, retry, false)
		return bot, streamErr
	}

	res := acc.Finalize(ctx, mode, r.resolver, publish)
	res.Apply(&bot)
	if err := r.store.Update(convID, bot.ID, res.Apply); err != nil {
		return bot, fmt.Errorf("failed to save reply: %w", err)
	}
	if onUpdate != nil {
		onUpdate(bot)
	}
	r.logger.Debug("reply complete", "conversation", convID, "mode", mode, "elapsed", time.Since(start))
	r.recordTurn(mode, start, bot, retry, true)
	return bot, nil
}

func (r *Runner) recordTurn(mode ai.Mode, start time.Time, bot history.Message, retry, ok bool) {
	if r.record == nil {
		return
	}
	model := r.cfg.Model
	if r.cfg.Provider.Native() {
		model = ai.ResolveModel(mode, r.cfg.Model)
	}
	rec := stats.Record{
		Provider:  string(r.cfg.Provider),
		Model:     model,
		Mode:      string(mode),
		Latency:   time.Since(start),
		Chars:     len(bot.Text),
		Citations: len(bot.Citations),
		Retry:     retry,
		Success:   ok,
		Source:    r.source,
	}
	if err := r.record(rec); err != nil {
		r.logger.Debug("failed to record stats", "error", err)
	}
}

// Suggest asks for a proactive follow-up question and appends it as a
// suggestion message. It only runs in chat mode with a suggester configured.
func (r *Runner) Suggest(ctx context.Context, convID string, mode ai.Mode) (history.Message, bool, error) {
	if r.suggester == nil || modeOrChat(mode) != ai.ModeChat {
		return history.Message{}, false, nil
	}
	if err := r.acquire(); err != nil {
		return history.Message{}, false, err
	}
	defer r.release()

	conv, err := r.store.Conversation(convID)
	if err != nil {
		return history.Message{}, false, err
	}
	text, ok := r.suggester.ProactiveSuggestion(ctx, conv.Messages)
	if !ok {
		return history.Message{}, false, nil
	}
	msg := history.NewMessage(history.SenderBot, text)
	msg.IsSuggestion = true
	if err := r.store.Append(convID, msg); err != nil {
		return history.Message{}, false, err
	}
	return msg, true, nil
}

// FollowUp runs Suggest after a turn that ended with sendErr. Only a
// successful chat-mode turn gets a follow-up.
func (r *Runner) FollowUp(ctx context.Context, convID string, mode ai.Mode, sendErr error) (history.Message, bool, error) {
	if sendErr != nil {
		return history.Message{}, false, nil
	}
	return r.Suggest(ctx, convID, mode)
}

func modeOrChat(m ai.Mode) ai.Mode {
	if m == "" {
		return ai.ModeChat
	}
	return m
}
