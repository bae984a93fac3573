package voice

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"
)

// Live session parameters.
const (
	LiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	LiveVoice = "Zephyr"
)

// LiveConn is an open live connection.
type LiveConn interface {
	SendAudio(ctx context.Context, pcm []byte) error
	Receive(ctx context.Context) (Event, error)
	Close() error
}

// Dialer opens a live connection.
type Dialer func(ctx context.Context) (LiveConn, error)

// GeminiDialer connects to the Gemini Live API with audio responses, input and
// output transcription and the given system instruction.
func GeminiDialer(apiKey, systemInstruction string, httpClient *http.Client) Dialer {
	return func(ctx context.Context) (LiveConn, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		cfg := &genai.LiveConnectConfig{
			SystemInstruction:        &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
			InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
			OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: LiveVoice},
				},
			},
		}
		cfg.ResponseModalities = append(cfg.ResponseModalities, "AUDIO")

		session, err := client.Live.Connect(ctx, LiveModel, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect live session: %w", err)
		}
		return &geminiConn{session: session}, nil
	}
}

type geminiConn struct {
	session *genai.Session

	mu     sync.Mutex
	queued []Event
}

func (c *geminiConn) SendAudio(_ context.Context, pcm []byte) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: "audio/pcm;rate=16000", Data: pcm},
	})
}

// Receive returns the next event. One server message can carry several events;
// they are queued and handed out in order.
func (c *geminiConn) Receive(ctx context.Context) (Event, error) {
	for {
		c.mu.Lock()
		if len(c.queued) > 0 {
			ev := c.queued[0]
			c.queued = c.queued[1:]
			c.mu.Unlock()
			return ev, nil
		}
		c.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		msg, err := c.session.Receive()
		if err != nil {
			return Event{}, err
		}
		events := serverEvents(msg)
		c.mu.Lock()
		c.queued = append(c.queued, events...)
		c.mu.Unlock()
	}
}

func (c *geminiConn) Close() error {
	return c.session.Close()
}

// serverEvents flattens one server message. Transcripts come first, then audio,
// then control signals.
func serverEvents(msg *genai.LiveServerMessage) []Event {
	if msg == nil || msg.ServerContent == nil {
		return nil
	}
	sc := msg.ServerContent
	var out []Event
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		out = append(out, Event{Kind: EventInputTranscript, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		out = append(out, Event{Kind: EventOutputTranscript, Text: sc.OutputTranscription.Text})
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				out = append(out, Event{Kind: EventAudio, Audio: p.InlineData.Data})
			}
		}
	}
	if sc.Interrupted {
		out = append(out, Event{Kind: EventInterrupted})
	}
	if sc.TurnComplete {
		out = append(out, Event{Kind: EventTurnComplete})
	}
	return out
}
