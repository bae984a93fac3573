// Package voice runs a bidirectional live voice session: microphone frames go
// out as they are captured, transcripts and audio come back, and audio is
// scheduled for gapless playback.
package voice

import (
	"errors"
	"fmt"
	"time"
)

// Audio contract of a live session.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
	FrameSamples     = 4096
	bytesPerSample   = 2
)

// ErrSessionActive is returned by Start when a session is already running.
var ErrSessionActive = errors.New("a voice session is already active; stop it first")

// ErrSessionStopped is returned by Start when Stop was called while connecting.
var ErrSessionStopped = errors.New("voice session stopped while connecting")

// SessionError reports which stage of a voice session failed.
type SessionError struct {
	Stage string // "capture", "connect" or "stream"
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("voice session %s failed: %v", e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// EventKind classifies inbound live events.
type EventKind int

const (
	EventInputTranscript EventKind = iota
	EventOutputTranscript
	EventAudio
	EventTurnComplete
	EventInterrupted
)

func (k EventKind) String() string {
	switch k {
	case EventInputTranscript:
		return "inputTranscript"
	case EventOutputTranscript:
		return "outputTranscript"
	case EventAudio:
		return "audio"
	case EventTurnComplete:
		return "turnComplete"
	case EventInterrupted:
		return "interrupted"
	}
	return "unknown"
}

// Event is one inbound live event. Audio holds decoded 24 kHz PCM16.
type Event struct {
	Kind  EventKind
	Text  string
	Audio []byte
}

// FrameDuration is the playback length of a PCM16 mono buffer.
func FrameDuration(pcmBytes, sampleRate int) time.Duration {
	samples := pcmBytes / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
