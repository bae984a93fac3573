package voice

import (
	"sync"
	"time"
)

// Output plays PCM on some audio clock.
// Play must not call onEnded synchronously.
type Output interface {
	Now() time.Duration
	Play(pcm []byte, at time.Duration, onEnded func()) (Source, error)
}

// Source is one scheduled buffer.
type Source interface {
	Stop()
}

// Player schedules inbound audio back to back. Frames start at the later of
// the running cursor and the output clock, so playback is gapless in arrival
// order. The pending set and cursor are guarded by mu; events and playback
// end callbacks arrive on different goroutines.
type Player struct {
	out Output

	mu        sync.Mutex
	pending   map[uint64]Source
	seq       uint64
	nextStart time.Duration
}

// NewPlayer creates a Player on out.
func NewPlayer(out Output) *Player {
	return &Player{out: out, pending: map[uint64]Source{}}
}

// Schedule queues a 24 kHz PCM16 frame after everything already scheduled.
func (p *Player) Schedule(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	start := max(p.nextStart, p.out.Now())
	p.seq++
	id := p.seq
	src, err := p.out.Play(pcm, start, func() { p.ended(id) })
	if err != nil {
		return err
	}
	p.pending[id] = src
	p.nextStart = start + FrameDuration(len(pcm), OutputSampleRate)
	return nil
}

func (p *Player) ended(id uint64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

// Interrupt stops every scheduled buffer, clears the queue and resets the cursor.
func (p *Player) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, src := range p.pending {
		src.Stop()
		delete(p.pending, id)
	}
	p.nextStart = 0
}

// Pending returns the number of buffers not yet finished.
func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Cursor returns the start time of the next scheduled frame.
func (p *Player) Cursor() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextStart
}
