// Package reply turns a stream of deltas into display-ready message state:
// the hidden reasoning split, image tag resolution and structured payloads.
package reply

import "strings"

// Reasoning delimiters wrapped around hidden model thinking.
const (
	OpenTag  = "<thinking>"
	CloseTag = "</thinking>"
)

// Split partitions accumulated text into visible text and hidden reasoning.
// Without an opening tag everything is visible. With an opening tag but no
// closing tag yet, everything after the opening tag is reasoning that is still
// growing. Both parts are trimmed.
func Split(text string) (visible, thinking string, hasThinking bool) {
	before, rest, found := strings.Cut(text, OpenTag)
	if !found {
		return strings.TrimSpace(text), "", false
	}
	thinking, after, closed := strings.Cut(rest, CloseTag)
	if !closed {
		return strings.TrimSpace(before), strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(before + after), strings.TrimSpace(thinking), true
}
