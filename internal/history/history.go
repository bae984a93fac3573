// Package history manages conversations, notes and journal entries for scholar.
// State is stored as a single JSON file in the user's config directory and is
// saved after every mutation on a best-effort basis: a failed write is logged
// and the in-memory state stays authoritative.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arin/scholar/internal/config"
	"github.com/google/uuid"
)

const fileName = "state.json"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// Conversation is an ordered list of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Title is the first user message, shortened, or a placeholder for empty conversations.
func (c Conversation) Title() string {
	for _, m := range c.Messages {
		if m.Sender == SenderUser && m.Text != "" {
			return truncate(m.Text, 48)
		}
	}
	return "New conversation"
}

func (c Conversation) clone() Conversation {
	msgs := make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = m.Clone()
	}
	c.Messages = msgs
	return c
}

// Summary describes a conversation for listings.
type Summary struct {
	ID           string
	Title        string
	MessageCount int
	UpdatedAt    time.Time
	Pinned       bool
	Active       bool
}

type state struct {
	Conversations map[string]*Conversation `json:"conversations"`
	ActiveID      string                   `json:"activeChatId,omitempty"`
	Pinned        []string                 `json:"pinnedChatIds,omitempty"`
	Notes         []Note                   `json:"notes,omitempty"`
	Journal       []JournalEntry           `json:"journalEntries,omitempty"`
}

// Store is the persisted client state. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	st      state
	saveErr error
}

// Open loads the store from ~/.scholar/state.json.
func Open() (*Store, error) {
	return OpenAt(filepath.Join(config.Dir(), fileName))
}

// OpenAt loads the store from path. A missing file yields an empty store; a corrupt
// file is ignored and the store starts fresh.
func OpenAt(path string) (*Store, error) {
	s := &Store{path: path}
	s.st.Conversations = map[string]*Conversation{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err == nil {
		if st.Conversations == nil {
			st.Conversations = map[string]*Conversation{}
		}
		s.st = st
	}
	return s, nil
}

// persist writes the state and remembers the outcome. Must be called with s.mu held.
func (s *Store) persist() {
	s.saveErr = s.save()
	if s.saveErr != nil {
		slog.Warn("failed to save state", "path", s.path, "error", s.saveErr)
	}
}

// SaveErr returns the error of the most recent write, or nil if it succeeded.
func (s *Store) SaveErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) conversation(id string) (*Conversation, error) {
	c, ok := s.st.Conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return c, nil
}

// NewConversation creates a conversation seeded with the welcome message and makes it active.
func (s *Store) NewConversation() (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c := &Conversation{
		ID:        "chat-" + uuid.NewString(),
		Messages:  []Message{WelcomeMessage()},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.st.Conversations[c.ID] = c
	s.st.ActiveID = c.ID
	s.persist()
	return c.clone(), nil
}

// Conversation returns a copy of the conversation with the given id.
func (s *Store) Conversation(id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.conversation(id)
	if err != nil {
		return Conversation{}, err
	}
	return c.clone(), nil
}

// Active returns the active conversation, creating one if none exists.
func (s *Store) Active() (Conversation, error) {
	s.mu.Lock()
	if c, ok := s.st.Conversations[s.st.ActiveID]; ok {
		defer s.mu.Unlock()
		return c.clone(), nil
	}
	s.mu.Unlock()
	return s.NewConversation()
}

// SetActive marks a conversation as the active one.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conversation(id); err != nil {
		return err
	}
	s.st.ActiveID = id
	s.persist()
	return nil
}

// Append adds messages to the end of a conversation.
func (s *Store) Append(convID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.conversation(convID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		c.Messages = append(c.Messages, m.Clone())
	}
	c.UpdatedAt = time.Now()
	s.persist()
	return nil
}

// Update applies fn to a single message in place.
func (s *Store) Update(convID, msgID string, fn func(m *Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.conversation(convID)
	if err != nil {
		return err
	}
	for i := range c.Messages {
		if c.Messages[i].ID == msgID {
			fn(&c.Messages[i])
			c.Messages[i] = c.Messages[i].Clone()
			c.UpdatedAt = time.Now()
			s.persist()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrMessageNotFound, msgID)
}

// Truncate keeps only the first n messages of a conversation.
func (s *Store) Truncate(convID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.conversation(convID)
	if err != nil {
		return err
	}
	if n < 0 {
		n = 0
	}
	if n < len(c.Messages) {
		c.Messages = c.Messages[:n]
		c.UpdatedAt = time.Now()
	}
	s.persist()
	return nil
}

// AnswerQuiz records the user's answer to one question of a quiz message.
func (s *Store) AnswerQuiz(convID, msgID string, question, answer int) error {
	var outOfRange bool
	err := s.Update(convID, msgID, func(m *Message) {
		if m.Quiz == nil || question < 0 || question >= len(m.Quiz.Questions) {
			outOfRange = true
			return
		}
		m.Quiz.Questions[question].UserAnswerIndex = &answer
	})
	if err != nil {
		return err
	}
	if outOfRange {
		return fmt.Errorf("message %s has no quiz question %d", msgID, question)
	}
	return nil
}

// Pin keeps a conversation at the top of listings.
func (s *Store) Pin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conversation(id); err != nil {
		return err
	}
	for _, p := range s.st.Pinned {
		if p == id {
			return nil
		}
	}
	s.st.Pinned = append(s.st.Pinned, id)
	s.persist()
	return nil
}

// Unpin removes a conversation from the pinned list.
func (s *Store) Unpin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.Pinned = remove(s.st.Pinned, id)
	s.persist()
	return nil
}

// List returns conversation summaries: pinned first, then most recently updated.
func (s *Store) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	pinned := map[string]bool{}
	for _, id := range s.st.Pinned {
		pinned[id] = true
	}
	out := make([]Summary, 0, len(s.st.Conversations))
	for _, c := range s.st.Conversations {
		out = append(out, Summary{
			ID:           c.ID,
			Title:        c.Title(),
			MessageCount: len(c.Messages),
			UpdatedAt:    c.UpdatedAt,
			Pinned:       pinned[c.ID],
			Active:       c.ID == s.st.ActiveID,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Delete removes a conversation.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conversation(id); err != nil {
		return err
	}
	delete(s.st.Conversations, id)
	s.st.Pinned = remove(s.st.Pinned, id)
	if s.st.ActiveID == id {
		s.st.ActiveID = ""
	}
	s.persist()
	return nil
}

// Clear deletes every conversation. Notes and journal entries are kept.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.Conversations = map[string]*Conversation{}
	s.st.ActiveID = ""
	s.st.Pinned = nil
	s.persist()
	return nil
}

// AddNote stores a new note.
func (s *Store) AddNote(content string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := Note{ID: uuid.NewString(), Content: content, Timestamp: time.Now()}
	s.st.Notes = append(s.st.Notes, n)
	s.persist()
	return n, nil
}

// Notes returns all notes, newest first.
func (s *Store) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]Note(nil), s.st.Notes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// DeleteNote removes a note by id or id prefix.
func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.st.Notes {
		if n.ID == id || (len(id) >= 6 && strings.HasPrefix(n.ID, id)) {
			s.st.Notes = append(s.st.Notes[:i], s.st.Notes[i+1:]...)
			s.persist()
			return nil
		}
	}
	return fmt.Errorf("note %s not found", id)
}

// AddJournal stores a journal entry, assigning id and timestamp.
func (s *Store) AddJournal(e JournalEntry) (JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.NewString()
	e.Timestamp = time.Now()
	s.st.Journal = append(s.st.Journal, e)
	s.persist()
	return e, nil
}

// Journal returns all journal entries, newest first.
func (s *Store) Journal() []JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]JournalEntry(nil), s.st.Journal...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, p := range ids {
		if p != id {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "…"
}
