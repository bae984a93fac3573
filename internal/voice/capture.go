package voice

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// Capture yields 16 kHz PCM16 frames of FrameSamples samples (the last frame
// may be shorter). Read returns io.EOF when the input ends.
type Capture interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// ReaderCapture frames raw PCM from a reader, such as a recorded file or stdin.
type ReaderCapture struct {
	r        io.Reader
	closer   io.Closer
	realtime bool
	next     time.Time
}

// NewReaderCapture frames PCM from r. With realtime set, frames are released
// no faster than they would be captured from a microphone.
func NewReaderCapture(r io.Reader, realtime bool) *ReaderCapture {
	c := &ReaderCapture{r: r, realtime: realtime}
	if closer, ok := r.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

func (c *ReaderCapture) Read(ctx context.Context) ([]byte, error) {
	buf := make([]byte, FrameSamples*bytesPerSample)
	n, err := io.ReadFull(c.r, buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return nil, err
	}
	// An odd trailing byte is not a sample.
	n -= n % bytesPerSample
	if c.realtime {
		if err := c.pace(ctx, n); err != nil {
			return nil, err
		}
	}
	return buf[:n], nil
}

func (c *ReaderCapture) pace(ctx context.Context, n int) error {
	now := time.Now()
	if c.next.IsZero() {
		c.next = now
	}
	wait := c.next.Sub(now)
	c.next = c.next.Add(FrameDuration(n, InputSampleRate))
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ReaderCapture) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// StreamCapture is fed frames by a producer, such as a WebSocket reader.
type StreamCapture struct {
	frames chan []byte
	once   sync.Once
	done   chan struct{}
}

// NewStreamCapture creates an empty StreamCapture.
func NewStreamCapture() *StreamCapture {
	return &StreamCapture{frames: make(chan []byte, 16), done: make(chan struct{})}
}

// Write queues a frame. It returns io.ErrClosedPipe after Close.
func (c *StreamCapture) Write(ctx context.Context, pcm []byte) error {
	select {
	case <-c.done:
		return io.ErrClosedPipe
	default:
	}
	select {
	case c.frames <- pcm:
		return nil
	case <-c.done:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *StreamCapture) Read(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close ends the stream; pending frames are dropped.
func (c *StreamCapture) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
