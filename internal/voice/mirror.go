package voice

import (
	"errors"
	"time"

	"github.com/arin/scholar/internal/history"
)

// MirrorTo returns a transcript callback that keeps spoken messages in a
// conversation: a new transcript id appends a message, later text updates it.
func MirrorTo(store *history.Store, convID string, onErr func(error)) func(Transcript) {
	return func(t Transcript) {
		err := store.Update(convID, t.ID, func(m *history.Message) { m.Text = t.Text })
		if errors.Is(err, history.ErrMessageNotFound) {
			err = store.Append(convID, history.Message{
				ID:        t.ID,
				Sender:    t.Sender,
				Text:      t.Text,
				CreatedAt: time.Now(),
			})
		}
		if err != nil && onErr != nil {
			onErr(err)
		}
	}
}
