package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arin/scholar/internal/history"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	}
	return "idle"
}

// Transcript is the accumulated text of one spoken message.
type Transcript struct {
	ID     string
	Sender history.Sender
	Text   string
}

// Callbacks observe a session. They are called without internal locks held and
// may be invoked from the session's goroutines.
type Callbacks struct {
	OnState        func(State)
	OnTranscript   func(Transcript)
	OnTurnComplete func()
	OnInterrupted  func()
	OnInputEnd     func()
	OnError        func(error)
}

// Session manages one live voice conversation at a time:
// idle -> connecting -> active -> idle. Any failure returns it to idle with
// capture, connection and playback torn down.
type Session struct {
	dial    Dialer
	capture func(ctx context.Context) (Capture, error)
	player  *Player
	cb      Callbacks
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	conn    LiveConn
	mic     Capture
	cancel  context.CancelFunc
	userID  string
	botID   string
	userBuf strings.Builder
	botBuf  strings.Builder
}

// NewSession creates an idle session. capture opens the microphone (or any
// other 16 kHz source) each time the session starts.
func NewSession(dial Dialer, capture func(ctx context.Context) (Capture, error), player *Player, cb Callbacks, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{dial: dial, capture: capture, player: player, cb: cb, logger: logger}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.logger.Debug("voice state", "state", st)
	if s.cb.OnState != nil {
		s.cb.OnState(st)
	}
}

// Start opens the capture and the live connection, then streams until Stop or
// an error. It returns once the session is active.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.state = StateConnecting
	s.gen++
	gen := s.gen
	s.mu.Unlock()
	s.setState(StateConnecting)

	mic, err := s.capture(ctx)
	if err != nil {
		err = &SessionError{Stage: "capture", Err: err}
		s.teardown(gen, err)
		return err
	}
	conn, err := s.dial(ctx)
	if err != nil {
		mic.Close()
		err = &SessionError{Stage: "connect", Err: err}
		s.teardown(gen, err)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.gen != gen || s.state != StateConnecting {
		s.mu.Unlock()
		cancel()
		mic.Close()
		conn.Close()
		return ErrSessionStopped
	}
	s.state = StateActive
	s.conn, s.mic, s.cancel = conn, mic, cancel
	s.mu.Unlock()
	s.setState(StateActive)

	go s.run(runCtx, gen, conn, mic)
	return nil
}

func (s *Session) run(ctx context.Context, gen uint64, conn LiveConn, mic Capture) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			frame, err := mic.Read(gctx)
			if errors.Is(err, io.EOF) {
				if s.cb.OnInputEnd != nil {
					s.cb.OnInputEnd()
				}
				return nil
			}
			if err != nil {
				return err
			}
			if err := conn.SendAudio(gctx, frame); err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		for {
			ev, err := conn.Receive(gctx)
			if err != nil {
				return err
			}
			s.handle(ev)
		}
	})

	err := g.Wait()
	if ctx.Err() != nil {
		// Stopped by the caller.
		return
	}
	s.teardown(gen, &SessionError{Stage: "stream", Err: err})
}

func (s *Session) handle(ev Event) {
	switch ev.Kind {
	case EventAudio:
		if err := s.player.Schedule(ev.Audio); err != nil {
			s.logger.Warn("failed to schedule audio", "error", err)
		}
	case EventInterrupted:
		s.player.Interrupt()
		if s.cb.OnInterrupted != nil {
			s.cb.OnInterrupted()
		}
	case EventTurnComplete:
		s.mu.Lock()
		s.resetTranscripts()
		s.mu.Unlock()
		if s.cb.OnTurnComplete != nil {
			s.cb.OnTurnComplete()
		}
	case EventInputTranscript, EventOutputTranscript:
		t := s.accumulate(ev)
		if s.cb.OnTranscript != nil {
			s.cb.OnTranscript(t)
		}
	}
}

// accumulate extends the open user or bot transcript. Bot speech closes the
// user transcript, so the next user words start a new message.
func (s *Session) accumulate(ev Event) Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Kind == EventInputTranscript {
		if s.userID == "" {
			s.userID = uuid.NewString()
			s.userBuf.Reset()
		}
		s.userBuf.WriteString(ev.Text)
		return Transcript{ID: s.userID, Sender: history.SenderUser, Text: s.userBuf.String()}
	}

	s.userID = ""
	s.userBuf.Reset()
	if s.botID == "" {
		s.botID = uuid.NewString()
		s.botBuf.Reset()
	}
	s.botBuf.WriteString(ev.Text)
	return Transcript{ID: s.botID, Sender: history.SenderBot, Text: s.botBuf.String()}
}

// resetTranscripts must be called with s.mu held.
func (s *Session) resetTranscripts() {
	s.userID, s.botID = "", ""
	s.userBuf.Reset()
	s.botBuf.Reset()
}

// Stop tears the session down. It is safe to call at any time, any number of times.
func (s *Session) Stop() {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.teardown(gen, nil)
}

// teardown returns generation gen to idle. Later generations are left alone.
func (s *Session) teardown(gen uint64, cause error) {
	s.mu.Lock()
	if s.gen != gen || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	conn, mic, cancel := s.conn, s.mic, s.cancel
	s.conn, s.mic, s.cancel = nil, nil, nil
	s.state = StateIdle
	s.resetTranscripts()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if mic != nil {
		mic.Close()
	}
	if conn != nil {
		conn.Close()
	}
	s.player.Interrupt()

	if cause != nil {
		s.logger.Warn("voice session ended", "error", cause)
		if s.cb.OnError != nil {
			s.cb.OnError(cause)
		}
	}
	s.setState(StateIdle)
}
