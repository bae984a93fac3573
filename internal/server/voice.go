package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/arin/scholar/internal/voice"
)

// voiceFrame is a server-to-client message on the voice socket. Audio is
// 24 kHz PCM16 (base64 in JSON); At is its playback offset in milliseconds.
type voiceFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text,omitempty"`
	State  string `json:"state,omitempty"`
	Audio  []byte `json:"audio,omitempty"`
	At     int64  `json:"at,omitempty"`
}

// relay serializes writes to one client socket.
type relay struct {
	ctx  context.Context
	conn *websocket.Conn
	mu   sync.Mutex
}

func (r *relay) send(f voiceFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.conn.Write(r.ctx, websocket.MessageText, data)
}

// relayOutput forwards scheduled audio to the client, which owns the speaker.
// Playback end is tracked on the server clock so interruptions can clear the
// pending set.
type relayOutput struct {
	relay *relay
	start time.Time
}

type relaySource struct{ timer *time.Timer }

func (s relaySource) Stop() { s.timer.Stop() }

func (o *relayOutput) Now() time.Duration { return time.Since(o.start) }

func (o *relayOutput) Play(pcm []byte, at time.Duration, onEnded func()) (voice.Source, error) {
	o.relay.send(voiceFrame{Type: "audio", Audio: pcm, At: at.Milliseconds()})
	wait := at + voice.FrameDuration(len(pcm), voice.OutputSampleRate) - o.Now()
	return relaySource{timer: time.AfterFunc(max(wait, 0), onEnded)}, nil
}

// voiceRelay bridges a browser socket to a live voice session. Binary frames
// from the client are 16 kHz PCM16 microphone audio; a text frame
// {"type":"stop"} ends the session. With ?conversation=<id> transcripts are
// kept in that conversation.
func (s *Server) voiceRelay(w http.ResponseWriter, r *http.Request) {
	if s.dial == nil {
		writeError(w, http.StatusServiceUnavailable, "voice is not configured")
		return
	}
	convID := r.URL.Query().Get("conversation")
	if convID != "" {
		if _, err := s.store.Conversation(convID); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	rl := &relay{ctx: ctx, conn: conn}
	var mirror func(voice.Transcript)
	if convID != "" {
		mirror = voice.MirrorTo(s.store, convID, func(err error) {
			s.logger.Warn("failed to store transcript", "conversation", convID, "error", err)
		})
	}

	mic := voice.NewStreamCapture()
	cb := voice.Callbacks{
		OnState: func(st voice.State) { rl.send(voiceFrame{Type: "state", State: st.String()}) },
		OnTranscript: func(t voice.Transcript) {
			if mirror != nil {
				mirror(t)
			}
			rl.send(voiceFrame{Type: "transcript", ID: t.ID, Sender: string(t.Sender), Text: t.Text})
		},
		OnTurnComplete: func() { rl.send(voiceFrame{Type: "turnComplete"}) },
		OnInterrupted:  func() { rl.send(voiceFrame{Type: "interrupted"}) },
		OnError: func(err error) {
			rl.send(voiceFrame{Type: "error", Text: err.Error()})
			cancel()
		},
	}
	capture := func(context.Context) (voice.Capture, error) { return mic, nil }
	session := voice.NewSession(s.dial, capture, voice.NewPlayer(&relayOutput{relay: rl, start: time.Now()}), cb, s.logger)

	if err := session.Start(ctx); err != nil {
		conn.Close(websocket.StatusInternalError, "voice session failed")
		return
	}
	defer session.Stop()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		if typ == websocket.MessageBinary {
			if err := mic.Write(ctx, data); err != nil {
				break
			}
			continue
		}
		var ctl struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &ctl) == nil && ctl.Type == "stop" {
			break
		}
	}
	session.Stop()
	conn.Close(websocket.StatusNormalClosure, "")
}
