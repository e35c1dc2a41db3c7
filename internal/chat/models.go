package chat

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one turn of a conversation. Messages are immutable once
// appended to a session.
type Message struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Sender  Sender    `json:"sender"`
	SentAt  time.Time `json:"sent_at"`
}

// Session is an append-only transcript. Title starts as the sentinel and is
// derived once from the first user message.
type Session struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	// TitleSentinel is the title of a session before any user message.
	TitleSentinel = "New Chat"

	// titleMaxLen is how much of the first user message becomes the title.
	titleMaxLen = 30
)

// NewSessionID returns a ULID string (sortable, 26 chars).
func NewSessionID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
