package ai

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"testing"

	"google.golang.org/genai"
)

// fakeChat yields canned chunks, then an optional error.
type fakeChat struct {
	chunks   []*genai.GenerateContentResponse
	err      error
	lastText string
}

func (f *fakeChat) SendMessageStream(_ context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error] {
	if len(parts) > 0 {
		f.lastText = parts[0].Text
	}
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func chunk(text string, web ...string) *genai.GenerateContentResponse {
	cand := &genai.Candidate{}
	if text != "" {
		cand.Content = &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}
	}
	if len(web) > 0 {
		meta := &genai.GroundingMetadata{}
		for _, uri := range web {
			meta.GroundingChunks = append(meta.GroundingChunks, &genai.GroundingChunk{
				Web: &genai.GroundingChunkWeb{URI: uri, Title: "title " + uri},
			})
		}
		cand.GroundingMetadata = meta
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{cand}}
}

func newFakeSession(chat *fakeChat) *geminiSession {
	return &geminiSession{chat: chat, model: "gemini-flash-lite-latest", mode: ModeChat, logger: slog.Default()}
}

func TestGeminiSession_CitationsLatestWins(t *testing.T) {
	chat := &fakeChat{chunks: []*genai.GenerateContentResponse{
		chunk("The Salt Lake ", "https://a.example"),
		chunk("Temple was "),
		chunk("", "https://b.example", "https://c.example"),
		chunk("dedicated in 1893."),
	}}
	s := newFakeSession(chat)

	text, citations, err := Collect(s.SendMessageStream(context.Background(), "When was it dedicated?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chat.lastText != "When was it dedicated?" {
		t.Errorf("unexpected prompt %q", chat.lastText)
	}
	if text != "The Salt Lake Temple was dedicated in 1893." {
		t.Errorf("unexpected text %q", text)
	}
	if len(citations) != 2 || citations[0].URI != "https://b.example" || citations[0].Kind != "web" {
		t.Errorf("expected the last citation set, got %+v", citations)
	}
}

func TestGeminiSession_EndsWithDone(t *testing.T) {
	s := newFakeSession(&fakeChat{chunks: []*genai.GenerateContentResponse{chunk("hi")}})

	var last StreamDelta
	for d := range s.SendMessageStream(context.Background(), "x") {
		last = d
	}
	if !last.Done {
		t.Errorf("expected a final Done delta, got %+v", last)
	}
}

func TestGeminiSession_ErrorMapping(t *testing.T) {
	s := newFakeSession(&fakeChat{
		chunks: []*genai.GenerateContentResponse{chunk("partial")},
		err:    genai.APIError{Code: 429, Message: "quota exceeded"},
	})
	text, _, err := Collect(s.SendMessageStream(context.Background(), "x"))
	if text != "partial" {
		t.Errorf("expected partial text, got %q", text)
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Status != 429 {
		t.Fatalf("expected RequestError 429, got %v", err)
	}

	s = newFakeSession(&fakeChat{err: errors.New("connection reset")})
	_, _, err = Collect(s.SendMessageStream(context.Background(), "x"))
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestNormalizeNative_DropsEmpty(t *testing.T) {
	if _, ok := normalizeNative(&genai.GenerateContentResponse{}); ok {
		t.Error("empty chunk should be dropped")
	}
	d, ok := normalizeNative(chunk("", "https://a.example"))
	if !ok || d.Text != "" || len(d.Citations) != 1 {
		t.Errorf("citation-only chunk should be kept, got %+v", d)
	}
}

func TestGroundingCitations_Maps(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		GroundingMetadata: &genai.GroundingMetadata{GroundingChunks: []*genai.GroundingChunk{
			{Maps: &genai.GroundingChunkMaps{URI: "https://maps.example/temple", Title: "Temple Square"}},
		}},
	}}}
	got := groundingCitations(resp)
	if len(got) != 1 || got[0].Kind != "maps" || got[0].Title != "Temple Square" {
		t.Errorf("unexpected citations %+v", got)
	}
}
