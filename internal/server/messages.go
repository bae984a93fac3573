package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/turn"
)

type sendRequest struct {
	Text           string `json:"text"`
	Mode           string `json:"mode"`
	ReadingContext string `json:"readingContext"`
}

type retryRequest struct {
	Mode string `json:"mode"`
}

// eventStream writes server-sent events. Headers are sent with the first
// event, so errors raised before any output can still use a plain status.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newEventStream(w http.ResponseWriter) *eventStream {
	f, _ := w.(http.Flusher)
	return &eventStream{w: w, flusher: f}
}

func (e *eventStream) send(event string, data any) {
	if !e.started {
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload)
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[sendRequest](w, r)
	if !ok {
		return
	}
	if body.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	mode, err := ai.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := turn.Request{Text: body.Text, Mode: mode, ReadingContext: body.ReadingContext}
	s.streamTurn(w, func(onUpdate func(history.Message)) (history.Message, error) {
		return s.runner.Send(r.Context(), chi.URLParam(r, "id"), req, onUpdate)
	})
}

func (s *Server) retryMessage(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[retryRequest](w, r)
	if !ok {
		return
	}
	mode, err := ai.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	convID, msgID := chi.URLParam(r, "id"), chi.URLParam(r, "msgID")
	s.streamTurn(w, func(onUpdate func(history.Message)) (history.Message, error) {
		return s.runner.Retry(r.Context(), convID, msgID, mode, onUpdate)
	})
}

// streamTurn relays a turn as "snapshot" events followed by one "final"
// event. A failed reply ends with an "error" event after the final message.
func (s *Server) streamTurn(w http.ResponseWriter, run func(onUpdate func(history.Message)) (history.Message, error)) {
	es := newEventStream(w)
	msg, err := run(func(m history.Message) { es.send("snapshot", m) })
	if err != nil && !es.started {
		s.writeDomainError(w, err)
		return
	}
	es.send("final", msg)
	if err != nil {
		es.send("error", errorResponse{Error: err.Error()})
	}
}

func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[retryRequest](w, r)
	if !ok {
		return
	}
	mode, err := ai.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, found, err := s.runner.Suggest(r.Context(), chi.URLParam(r, "id"), mode)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
