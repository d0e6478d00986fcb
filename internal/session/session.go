package session

import (
	"sync"
	"time"

	"pdfchat/internal/models"
)

// Session is the per-user conversation state: an append-only transcript and
// at most one active document index handle. A session starts Empty (no index)
// and moves to Indexed on the first successful ingest; it never moves back.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	messages []models.Message
	index    *models.IndexHandle
}

func newSession(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now().UTC()}
}

func (s *Session) AppendMessage(role models.Role, content string) models.Message {
	msg := models.Message{Role: role, Content: content, CreatedAt: time.Now().UTC()}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// Messages returns a copy of the transcript in chronological order.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Index returns the active handle, if any.
func (s *Session) Index() (models.IndexHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return models.IndexHandle{}, false
	}
	return *s.index, true
}

func (s *Session) IndexActive() bool {
	_, ok := s.Index()
	return ok
}

// SetIndex installs a new handle, replacing any previous one. The previous
// handle is returned so the caller can reclaim its rows.
func (s *Session) SetIndex(h models.IndexHandle) (prev models.IndexHandle, replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		prev = *s.index
		replaced = true
	}
	s.index = &h
	return prev, replaced
}
