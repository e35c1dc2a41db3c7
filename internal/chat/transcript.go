package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message content is empty")
)

// TranscriptStore holds the sessions of a single user. Append is the only
// mutation primitive; messages are never edited or removed.
type TranscriptStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // newest session first
}

func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{sessions: make(map[string]*Session)}
}

// NewSession creates a session seeded with a single assistant greeting and
// prepends it to the display order.
func (t *TranscriptStore) NewSession(greeting string) (Session, error) {
	sid, err := NewSessionID()
	if err != nil {
		return Session{}, err
	}

	now := time.Now().UTC()
	s := &Session{
		SessionID: sid,
		Title:     TitleSentinel,
		CreatedAt: now,
		Messages: []Message{{
			ID:      uuid.NewString(),
			Content: greeting,
			Sender:  SenderAssistant,
			SentAt:  now,
		}},
	}

	t.mu.Lock()
	t.sessions[sid] = s
	t.order = append([]string{sid}, t.order...)
	t.mu.Unlock()

	return snapshot(s), nil
}

// Append adds a message to the session. Appending the first user message to a
// session still carrying the sentinel title derives the title in the same
// operation; no later message changes it.
func (t *TranscriptStore) Append(sessionID string, m Message) (Session, error) {
	if m.Sender == SenderUser && strings.TrimSpace(m.Content) == "" {
		return Session{}, ErrEmptyMessage
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	s.Messages = append(s.Messages, m)

	if m.Sender == SenderUser && s.Title == TitleSentinel {
		s.Title = deriveTitle(m.Content)
	}

	return snapshot(s), nil
}

// Get returns a copy of the session.
func (t *TranscriptStore) Get(sessionID string) (Session, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return snapshot(s), nil
}

// List returns all sessions, most recently created first.
func (t *TranscriptStore) List() []Session {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Session, 0, len(t.order))
	for _, sid := range t.order {
		out = append(out, snapshot(t.sessions[sid]))
	}
	return out
}

func deriveTitle(content string) string {
	r := []rune(content)
	if len(r) > titleMaxLen {
		r = r[:titleMaxLen]
	}
	return string(r) + "..."
}

func snapshot(s *Session) Session {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	return out
}
