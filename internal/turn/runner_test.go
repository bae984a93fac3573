package turn

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/stats"
)

// fakeSession replays canned deltas. If gate is set, it waits for it to close
// before emitting anything.
type fakeSession struct {
	deltas []ai.StreamDelta
	gate   chan struct{}
	prompt string
}

func (f *fakeSession) SendMessageStream(ctx context.Context, text string) <-chan ai.StreamDelta {
	f.prompt = text
	ch := make(chan ai.StreamDelta)
	go func() {
		defer close(ch)
		if f.gate != nil {
			<-f.gate
		}
		for _, d := range f.deltas {
			select {
			case ch <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

type factory struct {
	mu       sync.Mutex
	session  *fakeSession
	err      error
	calls    int
	lastMode ai.Mode
	lastHist []history.Message
	started  chan struct{}
}

func (f *factory) create(_ context.Context, _ *config.Config, mode ai.Mode, hist []history.Message) (ai.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMode, f.lastHist = mode, hist
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeResolver struct{ url string }

func (f fakeResolver) Resolve(context.Context, string) (string, error) { return f.url, nil }

func text(s string) ai.StreamDelta { return ai.StreamDelta{Text: s} }

func setup(t *testing.T, f *factory, opts ...Option) (*Runner, *history.Store, string) {
	t.Helper()
	store, err := history.OpenAt(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	conv, err := store.NewConversation()
	require.NoError(t, err)

	cfg := &config.Config{Provider: config.ProviderGoogle, GoogleAPIKey: "k", Model: config.DefaultGoogleModel}
	opts = append([]Option{WithSessions(f.create)}, opts...)
	return NewRunner(store, cfg, opts...), store, conv.ID
}

func TestSend_StreamsAndStores(t *testing.T) {
	f := &factory{session: &fakeSession{deltas: []ai.StreamDelta{
		text("<thinking>recall Alma</thinking>"),
		{Text: "Faith is ", Citations: []history.Citation{{Kind: "web", URI: "https://a.example"}}},
		text("like a seed."),
		{Done: true},
	}}}
	r, store, convID := setup(t, f)

	var updates []history.Message
	bot, err := r.Send(context.Background(), convID, Request{Text: "What is faith?"}, func(m history.Message) {
		updates = append(updates, m)
	})
	require.NoError(t, err)

	assert.Equal(t, "Faith is like a seed.", bot.Text)
	assert.Equal(t, "recall Alma", bot.Thinking)
	assert.Len(t, bot.Citations, 1)
	assert.Equal(t, ai.ModeChat, f.lastMode)
	assert.GreaterOrEqual(t, len(updates), 3)
	assert.False(t, r.Busy())

	conv, err := store.Conversation(convID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "What is faith?", conv.Messages[1].Text)
	assert.Equal(t, bot.ID, conv.Messages[2].ID)
	assert.Equal(t, "Faith is like a seed.", conv.Messages[2].Text)
}

func TestSend_ReadingContext(t *testing.T) {
	session := &fakeSession{deltas: []ai.StreamDelta{text("ok")}}
	r, store, convID := setup(t, &factory{session: session})

	_, err := r.Send(context.Background(), convID, Request{Text: "Who is speaking?", ReadingContext: "Alma 32"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "With the context of Alma 32, please answer the following: Who is speaking?", session.prompt)
	conv, _ := store.Conversation(convID)
	assert.Equal(t, "Who is speaking?", conv.Messages[1].Text, "stored message keeps the raw text")
}

func TestSend_StreamErrorReplacesText(t *testing.T) {
	f := &factory{session: &fakeSession{deltas: []ai.StreamDelta{
		text("partial answer"),
		{Err: errors.New("status 500")},
	}}}
	var recorded []stats.Record
	r, store, convID := setup(t, f, WithRecorder(func(rec stats.Record) error {
		recorded = append(recorded, rec)
		return nil
	}, "test"))

	bot, err := r.Send(context.Background(), convID, Request{Text: "hi"}, nil)
	require.Error(t, err)
	assert.Equal(t, "Sorry, I encountered an error. (status 500)", bot.Text)

	conv, _ := store.Conversation(convID)
	assert.Equal(t, bot.Text, conv.Messages[2].Text)
	require.Len(t, recorded, 1)
	assert.False(t, recorded[0].Success)
	assert.Equal(t, "test", recorded[0].Source)
}

func TestSend_MisconfiguredAppendsNothing(t *testing.T) {
	f := &factory{err: &config.MisconfiguredError{Provider: config.ProviderGoogle, Field: "Google API key"}}
	r, store, convID := setup(t, f)

	_, err := r.Send(context.Background(), convID, Request{Text: "hi"}, nil)
	require.ErrorIs(t, err, ai.ErrProviderMisconfigured)

	conv, _ := store.Conversation(convID)
	assert.Len(t, conv.Messages, 1)
}

func TestSend_UnwritableStateStillAnswers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := history.OpenAt(path)
	require.NoError(t, err)
	conv, err := store.NewConversation()
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o700))

	f := &factory{session: &fakeSession{deltas: []ai.StreamDelta{text("Alma taught faith."), {Done: true}}}}
	cfg := &config.Config{Provider: config.ProviderGoogle, GoogleAPIKey: "k", Model: config.DefaultGoogleModel}
	r := NewRunner(store, cfg, WithSessions(f.create))

	bot, err := r.Send(context.Background(), conv.ID, Request{Text: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Alma taught faith.", bot.Text)
	assert.Equal(t, 1, f.calls)
	assert.Error(t, store.SaveErr())

	got, err := store.Conversation(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "hi", got.Messages[1].Text)
	assert.Equal(t, "Alma taught faith.", got.Messages[2].Text)
}

func TestSend_UnknownConversation(t *testing.T) {
	r, _, _ := setup(t, &factory{session: &fakeSession{}})
	_, err := r.Send(context.Background(), "nope", Request{Text: "hi"}, nil)
	assert.ErrorIs(t, err, history.ErrConversationNotFound)
}

func TestSend_StructuredWithImageAndRecord(t *testing.T) {
	f := &factory{session: &fakeSession{deltas: []ai.StreamDelta{
		text(`{"title":"Faith","days":[{"day":1,"topic":"Seeds","scriptures":["Alma 32:21"],"reflection_question":"?"}]}`),
	}}}
	var recorded []stats.Record
	r, _, convID := setup(t, f, WithResolver(fakeResolver{}), WithRecorder(func(rec stats.Record) error {
		recorded = append(recorded, rec)
		return nil
	}, "cli"))

	bot, err := r.Send(context.Background(), convID, Request{Text: "faith", Mode: ai.ModeStudyPlan}, nil)
	require.NoError(t, err)
	require.NotNil(t, bot.StudyPlan)
	assert.Empty(t, bot.Text)
	require.Len(t, recorded, 1)
	assert.Equal(t, ai.ProModel, recorded[0].Model)
	assert.True(t, recorded[0].Success)
}

func TestSend_ImageTag(t *testing.T) {
	f := &factory{session: &fakeSession{deltas: []ai.StreamDelta{text("WIKIMEDIA_SEARCH[File:Nauvoo_Temple.jpg]")}}}
	r, _, convID := setup(t, f, WithResolver(fakeResolver{url: "https://img.example/nauvoo.jpg"}))

	var texts []string
	bot, err := r.Send(context.Background(), convID, Request{Text: "show me Nauvoo"}, func(m history.Message) {
		texts = append(texts, m.Text)
	})
	require.NoError(t, err)
	assert.Equal(t, "![Nauvoo Temple](https://img.example/nauvoo.jpg)", bot.Text)
	assert.Contains(t, texts, "Searching for the image...")
}

func TestSend_Busy(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	f := &factory{session: &fakeSession{deltas: []ai.StreamDelta{text("ok")}, gate: gate}, started: started}
	r, _, convID := setup(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := r.Send(context.Background(), convID, Request{Text: "first"}, nil)
		done <- err
	}()
	<-started

	_, err := r.Send(context.Background(), convID, Request{Text: "second"}, nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(gate)
	require.NoError(t, <-done)
	assert.False(t, r.Busy())
}

func TestRetry_TruncatesAndResends(t *testing.T) {
	session := &fakeSession{deltas: []ai.StreamDelta{text("first answer")}}
	f := &factory{session: session}
	r, store, convID := setup(t, f)

	_, err := r.Send(context.Background(), convID, Request{Text: "Q1"}, nil)
	require.NoError(t, err)
	bot2, err := r.Send(context.Background(), convID, Request{Text: "Q2"}, nil)
	require.NoError(t, err)

	// Retrying the second reply: history is cut to end with "Q2" and the same text is resent.
	session.deltas = []ai.StreamDelta{text("second try")}
	retried, err := r.Retry(context.Background(), convID, bot2.ID, ai.ModeChat, nil)
	require.NoError(t, err)

	assert.Equal(t, "Q2", session.prompt)
	assert.Equal(t, "second try", retried.Text)
	assert.NotEqual(t, bot2.ID, retried.ID)

	conv, _ := store.Conversation(convID)
	require.Len(t, conv.Messages, 5)
	assert.Equal(t, "Q2", conv.Messages[3].Text)
	assert.Equal(t, retried.ID, conv.Messages[4].ID)

	// The session saw only what came before the retried prompt.
	require.Len(t, f.lastHist, 3)
	assert.Equal(t, "first answer", f.lastHist[2].Text)
}

func TestRetry_NoPrompt(t *testing.T) {
	r, store, convID := setup(t, &factory{session: &fakeSession{}})
	conv, _ := store.Conversation(convID)

	_, err := r.Retry(context.Background(), convID, conv.Messages[0].ID, ai.ModeChat, nil)
	assert.ErrorIs(t, err, ErrNoPrompt)

	_, err = r.Retry(context.Background(), convID, "missing", ai.ModeChat, nil)
	assert.ErrorIs(t, err, history.ErrMessageNotFound)
}

type fakeSuggester struct {
	text string
	ok   bool
}

func (f fakeSuggester) ProactiveSuggestion(context.Context, []history.Message) (string, bool) {
	return f.text, f.ok
}

func TestSuggest(t *testing.T) {
	r, store, convID := setup(t, &factory{}, WithSuggester(fakeSuggester{text: "Compare with Ether 12?", ok: true}))

	msg, ok, err := r.Suggest(context.Background(), convID, ai.ModeChat)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, msg.IsSuggestion)

	conv, _ := store.Conversation(convID)
	assert.True(t, conv.Messages[len(conv.Messages)-1].IsSuggestion)

	_, ok, _ = r.Suggest(context.Background(), convID, ai.ModeStudyPlan)
	assert.False(t, ok, "suggestions only run in chat mode")
}

func TestFollowUp_OnlyAfterSuccessfulChat(t *testing.T) {
	session := &fakeSession{deltas: []ai.StreamDelta{text("Faith precedes the miracle.")}}
	r, store, convID := setup(t, &factory{session: session}, WithSuggester(fakeSuggester{text: "Read Ether 12?", ok: true}))

	_, err := r.Send(context.Background(), convID, Request{Text: "What is faith?"}, nil)
	require.NoError(t, err)
	msg, ok, err := r.FollowUp(context.Background(), convID, ai.ModeChat, err)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Read Ether 12?", msg.Text)

	conv, _ := store.Conversation(convID)
	require.Len(t, conv.Messages, 4)
	assert.True(t, conv.Messages[3].IsSuggestion)

	_, ok, _ = r.FollowUp(context.Background(), convID, ai.ModeChat, errors.New("stream failed"))
	assert.False(t, ok, "a failed turn gets no follow-up")
	_, ok, _ = r.FollowUp(context.Background(), convID, ai.ModeThinking, nil)
	assert.False(t, ok, "only chat mode gets a follow-up")

	conv, _ = store.Conversation(convID)
	assert.Len(t, conv.Messages, 4)
}

func TestPrompts(t *testing.T) {
	assert.Equal(t, "Please explain Alma 32:21 in more detail, including its context and key principles.", ExplainVerse("Alma 32:21"))
	assert.Equal(t, `Tell me more about this verse: "And now as I said" (Alma 32:21)`, AskAboutVerse("Alma", 32, 21, "And now as I said"))
	assert.NotEmpty(t, VerseOfTheDay())
}
