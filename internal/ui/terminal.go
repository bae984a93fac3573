package ui

import (
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var (
	mdOnce     sync.Once
	mdRenderer *glamour.TermRenderer
)

// RenderMarkdown renders markdown for terminal display. The input is returned
// unchanged if the renderer is unavailable or fails.
func RenderMarkdown(content string) string {
	mdOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			mdRenderer = r
		}
	})
	if mdRenderer == nil {
		return content
	}
	out, err := mdRenderer.Render(content)
	if err != nil {
		return content
	}
	return out
}
