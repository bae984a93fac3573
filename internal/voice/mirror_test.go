package voice

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/arin/scholar/internal/history"
)

func TestMirrorTo_AppendsThenUpdates(t *testing.T) {
	store, err := history.OpenAt(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	conv, err := store.NewConversation()
	require.NoError(t, err)

	var errs []error
	mirror := MirrorTo(store, conv.ID, func(err error) { errs = append(errs, err) })
	mirror(Transcript{ID: "u1", Sender: history.SenderUser, Text: "What is"})
	mirror(Transcript{ID: "u1", Sender: history.SenderUser, Text: "What is grace?"})
	mirror(Transcript{ID: "b1", Sender: history.SenderBot, Text: "Grace is"})

	got, err := store.Conversation(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "What is grace?", got.Messages[1].Text)
	assert.Equal(t, history.SenderBot, got.Messages[2].Sender)
	assert.Empty(t, errs)

	MirrorTo(store, "missing", func(err error) { errs = append(errs, err) })(Transcript{ID: "x"})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], history.ErrConversationNotFound)
}

func TestServerEvents_Order(t *testing.T) {
	msg := &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
		InputTranscription:  &genai.Transcription{Text: "hi"},
		OutputTranscription: &genai.Transcription{Text: "hello"},
		ModelTurn: &genai.Content{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{1, 2}}},
		}},
		Interrupted:  true,
		TurnComplete: true,
	}}

	var kinds []EventKind
	for _, ev := range serverEvents(msg) {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{
		EventInputTranscript, EventOutputTranscript, EventAudio, EventInterrupted, EventTurnComplete,
	}, kinds)
	assert.Empty(t, serverEvents(&genai.LiveServerMessage{}))
}
