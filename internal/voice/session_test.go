package voice

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arin/scholar/internal/history"
)

// fakeConn delivers events pushed by the test and records sent audio.
type fakeConn struct {
	events chan Event
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	sent [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan Event, 16), closed: make(chan struct{})}
}

func (c *fakeConn) SendAudio(_ context.Context, pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, pcm)
	return nil
}

func (c *fakeConn) Receive(ctx context.Context) (Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.closed:
		return Event{}, io.ErrClosedPipe
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sentFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type recorder struct {
	mu          sync.Mutex
	states      []State
	transcripts []Transcript
	errs        []error
	turns       int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnState: func(s State) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.mu.Unlock()
		},
		OnTranscript: func(t Transcript) {
			r.mu.Lock()
			r.transcripts = append(r.transcripts, t)
			r.mu.Unlock()
		},
		OnTurnComplete: func() {
			r.mu.Lock()
			r.turns++
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() ([]State, []Transcript, []error, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...), append([]Transcript(nil), r.transcripts...), append([]error(nil), r.errs...), r.turns
}

func newTestSession(t *testing.T, conn *fakeConn, dialErr error) (*Session, *StreamCapture, *fakeOutput, *recorder) {
	t.Helper()
	mic := NewStreamCapture()
	out := &fakeOutput{}
	rec := &recorder{}
	dial := func(context.Context) (LiveConn, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return conn, nil
	}
	capture := func(context.Context) (Capture, error) { return mic, nil }
	s := NewSession(dial, capture, NewPlayer(out), rec.callbacks(), nil)
	t.Cleanup(s.Stop)
	return s, mic, out, rec
}

func TestSession_Lifecycle(t *testing.T) {
	conn := newFakeConn()
	s, mic, _, rec := newTestSession(t, conn, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateActive, s.State())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSessionActive)

	require.NoError(t, mic.Write(context.Background(), make([]byte, FrameSamples*2)))
	assert.Eventually(t, func() bool { return conn.sentFrames() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, conn.isClosed())

	states, _, errs, _ := rec.snapshot()
	assert.Equal(t, []State{StateConnecting, StateActive, StateIdle}, states)
	assert.Empty(t, errs)
}

func TestSession_DialFailureReturnsToIdle(t *testing.T) {
	s, mic, _, rec := newTestSession(t, nil, errors.New("handshake refused"))

	err := s.Start(context.Background())
	var se *SessionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "connect", se.Stage)
	assert.Equal(t, StateIdle, s.State())

	_, readErr := mic.Read(context.Background())
	assert.ErrorIs(t, readErr, io.EOF, "capture must be released")

	states, _, errs, _ := rec.snapshot()
	assert.Equal(t, []State{StateConnecting, StateIdle}, states)
	assert.Len(t, errs, 1)
}

func TestSession_StreamErrorTearsDown(t *testing.T) {
	conn := newFakeConn()
	s, _, _, rec := newTestSession(t, conn, nil)
	require.NoError(t, s.Start(context.Background()))

	conn.Close()

	assert.Eventually(t, func() bool { return s.State() == StateIdle }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, _, errs, _ := rec.snapshot()
		return len(errs) == 1
	}, time.Second, 5*time.Millisecond)

	// A new session may start once idle.
	conn2 := newFakeConn()
	s.dial = func(context.Context) (LiveConn, error) { return conn2, nil }
	s.capture = func(context.Context) (Capture, error) { return NewStreamCapture(), nil }
	require.NoError(t, s.Start(context.Background()))
}

func TestSession_TranscriptsAndTurns(t *testing.T) {
	conn := newFakeConn()
	s, _, _, rec := newTestSession(t, conn, nil)
	require.NoError(t, s.Start(context.Background()))

	conn.events <- Event{Kind: EventInputTranscript, Text: "What is "}
	conn.events <- Event{Kind: EventInputTranscript, Text: "faith?"}
	conn.events <- Event{Kind: EventOutputTranscript, Text: "Faith is "}
	conn.events <- Event{Kind: EventOutputTranscript, Text: "hope."}
	conn.events <- Event{Kind: EventTurnComplete}
	conn.events <- Event{Kind: EventInputTranscript, Text: "Thanks"}

	assert.Eventually(t, func() bool {
		_, ts, _, _ := rec.snapshot()
		return len(ts) == 5
	}, time.Second, 5*time.Millisecond)

	_, ts, _, turns := rec.snapshot()
	assert.Equal(t, 1, turns)
	assert.Equal(t, ts[0].ID, ts[1].ID)
	assert.Equal(t, "What is faith?", ts[1].Text)
	assert.Equal(t, history.SenderBot, ts[2].Sender)
	assert.Equal(t, ts[2].ID, ts[3].ID)
	assert.Equal(t, "Faith is hope.", ts[3].Text)
	assert.NotEqual(t, ts[0].ID, ts[4].ID, "turn complete starts a new user message")
	assert.Equal(t, "Thanks", ts[4].Text)
}

func TestSession_UserSpeechAfterBotStartsNewMessage(t *testing.T) {
	conn := newFakeConn()
	s, _, _, rec := newTestSession(t, conn, nil)
	require.NoError(t, s.Start(context.Background()))

	conn.events <- Event{Kind: EventInputTranscript, Text: "Hi"}
	conn.events <- Event{Kind: EventOutputTranscript, Text: "Hello"}
	conn.events <- Event{Kind: EventInputTranscript, Text: "Again"}

	assert.Eventually(t, func() bool {
		_, ts, _, _ := rec.snapshot()
		return len(ts) == 3
	}, time.Second, 5*time.Millisecond)
	_, ts, _, _ := rec.snapshot()
	assert.NotEqual(t, ts[0].ID, ts[2].ID)
}

func TestSession_InterruptClearsPlayback(t *testing.T) {
	conn := newFakeConn()
	s, _, out, _ := newTestSession(t, conn, nil)
	require.NoError(t, s.Start(context.Background()))

	conn.events <- Event{Kind: EventAudio, Audio: pcm(300 * time.Millisecond)}
	conn.events <- Event{Kind: EventAudio, Audio: pcm(300 * time.Millisecond)}
	assert.Eventually(t, func() bool { return s.player.Pending() == 2 }, time.Second, 5*time.Millisecond)

	conn.events <- Event{Kind: EventInterrupted}
	assert.Eventually(t, func() bool { return s.player.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, time.Duration(0), s.player.Cursor())

	out.mu.Lock()
	defer out.mu.Unlock()
	for _, src := range out.sources {
		assert.True(t, src.stopped)
	}
}
