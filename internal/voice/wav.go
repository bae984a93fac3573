package voice

import (
	"encoding/binary"
	"io"
	"os"
	"sync"
	"time"
)

// WAVOutput plays into an in-memory PCM track on a wall clock. Audio that is
// stopped before its time is cut from the track, so an interruption drops the
// unplayed tail just as a speaker would.
type WAVOutput struct {
	sampleRate int
	now        func() time.Duration

	mu  sync.Mutex
	pcm []byte
}

// NewWAVOutput creates an output at the live output rate, clocked from now.
func NewWAVOutput() *WAVOutput {
	start := time.Now()
	return newWAVOutput(OutputSampleRate, func() time.Duration { return time.Since(start) })
}

func newWAVOutput(rate int, now func() time.Duration) *WAVOutput {
	return &WAVOutput{sampleRate: rate, now: now}
}

func (o *WAVOutput) Now() time.Duration { return o.now() }

func (o *WAVOutput) offset(at time.Duration) int {
	samples := int(at * time.Duration(o.sampleRate) / time.Second)
	return samples * bytesPerSample
}

// Play writes pcm at position at, padding silence if needed.
func (o *WAVOutput) Play(pcm []byte, at time.Duration, onEnded func()) (Source, error) {
	o.mu.Lock()
	off := o.offset(at)
	if off > len(o.pcm) {
		o.pcm = append(o.pcm, make([]byte, off-len(o.pcm))...)
	}
	o.pcm = append(o.pcm[:off], pcm...)
	o.mu.Unlock()

	end := at + FrameDuration(len(pcm), o.sampleRate)
	wait := end - o.now()
	if wait < 0 {
		wait = 0
	}
	return &wavSource{out: o, start: at, end: end, timer: time.AfterFunc(wait, onEnded)}, nil
}

func (o *WAVOutput) cut(from time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if off := o.offset(from); off < len(o.pcm) {
		o.pcm = o.pcm[:off]
	}
}

// Bytes returns a copy of the PCM track.
func (o *WAVOutput) Bytes() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]byte(nil), o.pcm...)
}

// Save writes the track to path as a WAV file.
func (o *WAVOutput) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, o.Bytes(), o.sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type wavSource struct {
	out        *WAVOutput
	start, end time.Duration
	timer      *time.Timer
}

func (s *wavSource) Stop() {
	s.timer.Stop()
	now := s.out.Now()
	if now >= s.end {
		return
	}
	s.out.cut(max(s.start, now))
}

// WriteWAV writes mono PCM16 samples with a canonical 44-byte RIFF header.
func WriteWAV(w io.Writer, pcm []byte, sampleRate int) error {
	const channels, bits = 1, 16
	byteRate := sampleRate * channels * bits / 8
	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + len(pcm)),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(1), // PCM
		uint16(channels),
		uint32(sampleRate),
		uint32(byteRate),
		uint16(channels * bits / 8),
		uint16(bits),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(len(pcm)),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	_, err := w.Write(pcm)
	return err
}
