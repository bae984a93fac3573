package reply

import (
	"strings"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/history"
)

// Snapshot is the display state after some number of deltas.
type Snapshot struct {
	Visible     string
	Thinking    string
	HasThinking bool
	Citations   []history.Citation
	Raw         string
}

// Accumulator collects deltas for one reply. The split is re-evaluated on the
// whole accumulated text after every delta, since tags may span chunks.
// It is not safe for concurrent use.
type Accumulator struct {
	raw       strings.Builder
	citations []history.Citation
}

// Add appends a delta and returns the updated snapshot.
func (a *Accumulator) Add(d ai.StreamDelta) Snapshot {
	a.raw.WriteString(d.Text)
	if d.Citations != nil {
		a.citations = d.Citations
	}
	return a.Snapshot()
}

// Snapshot returns the current display state.
func (a *Accumulator) Snapshot() Snapshot {
	raw := a.raw.String()
	visible, thinking, has := Split(raw)
	return Snapshot{
		Visible:     visible,
		Thinking:    thinking,
		HasThinking: has,
		Citations:   a.citations,
		Raw:         raw,
	}
}
