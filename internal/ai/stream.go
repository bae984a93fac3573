// Package ai — stream.go provides the normalized streaming shape every provider maps into.
package ai

import (
	"context"

	"github.com/arin/scholar/internal/history"
)

// StreamDelta represents a single chunk from a streaming AI response.
type StreamDelta struct {
	// Text is the incremental text fragment. Empty string is valid (citation-only chunk).
	Text string
	// Citations, when non-nil, replaces every citation seen earlier in the stream.
	Citations []history.Citation
	// Done is true when the stream is complete.
	Done bool
	// Err is non-nil if the stream encountered an error. It is always the last delta.
	Err error
}

// ChatSession is one conversation-mode configuration bound to a provider.
// Each SendMessageStream call issues exactly one request; the returned channel is
// closed after a Done or Err delta and cannot be replayed. Callers must read the
// channel to the end or cancel ctx; otherwise the producing goroutine stays blocked.
type ChatSession interface {
	SendMessageStream(ctx context.Context, text string) <-chan StreamDelta
}

// emitter sends deltas until the consumer's context is cancelled. The one-slot
// buffer lets the closing Done or Err delta land after the consumer stopped reading.
type emitter struct {
	ctx context.Context
	ch  chan StreamDelta
}

func newEmitter(ctx context.Context) *emitter {
	return &emitter{ctx: ctx, ch: make(chan StreamDelta, 1)}
}

func (e *emitter) send(d StreamDelta) bool {
	select {
	case e.ch <- d:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *emitter) fail(err error) {
	e.send(StreamDelta{Err: err})
}

// Collect reads a stream to the end and returns the concatenated text and the
// final citation set.
func Collect(ch <-chan StreamDelta) (string, []history.Citation, error) {
	var text string
	var citations []history.Citation
	for delta := range ch {
		if delta.Err != nil {
			return text, citations, delta.Err
		}
		text += delta.Text
		if delta.Citations != nil {
			citations = delta.Citations
		}
	}
	return text, citations, nil
}
