package chat

import (
	"strings"
	"testing"
)

const testGreeting = "Hello! How are you feeling today?"

func TestNewSession_SeededWithGreeting(t *testing.T) {
	store := NewTranscriptStore()

	s, err := store.NewSession(testGreeting)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	if s.Title != TitleSentinel {
		t.Fatalf("expected sentinel title, got %q", s.Title)
	}
	if len(s.Messages) != 1 {
		t.Fatalf("expected 1 seed message, got %d", len(s.Messages))
	}
	if s.Messages[0].Sender != SenderAssistant || s.Messages[0].Content != testGreeting {
		t.Fatalf("unexpected seed message: %+v", s.Messages[0])
	}
	if s.SessionID == "" || s.CreatedAt.IsZero() {
		t.Fatalf("session missing id or timestamp: %+v", s)
	}
}

func TestAppend_TitleDerivedOnceFromFirstUserMessage(t *testing.T) {
	store := NewTranscriptStore()
	s, _ := store.NewSession(testGreeting)

	got, err := store.Append(s.SessionID, Message{Content: "I feel anxious", Sender: SenderUser})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if got.Title != "I feel anxious..." {
		t.Fatalf("unexpected title: %q", got.Title)
	}

	got, err = store.Append(s.SessionID, Message{Content: "something completely different", Sender: SenderUser})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if got.Title != "I feel anxious..." {
		t.Fatalf("title changed by second user message: %q", got.Title)
	}
}

func TestAppend_TitleTruncatedToThirtyRunes(t *testing.T) {
	store := NewTranscriptStore()
	s, _ := store.NewSession(testGreeting)

	long := strings.Repeat("a", 45)
	got, err := store.Append(s.SessionID, Message{Content: long, Sender: SenderUser})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	want := strings.Repeat("a", 30) + "..."
	if got.Title != want {
		t.Fatalf("title = %q, want %q", got.Title, want)
	}
}

func TestAppend_AssistantMessageDoesNotSetTitle(t *testing.T) {
	store := NewTranscriptStore()
	s, _ := store.NewSession(testGreeting)

	got, err := store.Append(s.SessionID, Message{Content: "a reply", Sender: SenderAssistant})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if got.Title != TitleSentinel {
		t.Fatalf("assistant message derived a title: %q", got.Title)
	}
}

func TestAppend_RejectsBlankUserMessage(t *testing.T) {
	store := NewTranscriptStore()
	s, _ := store.NewSession(testGreeting)

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := store.Append(s.SessionID, Message{Content: content, Sender: SenderUser}); err != ErrEmptyMessage {
			t.Fatalf("content %q: expected ErrEmptyMessage, got %v", content, err)
		}
	}

	got, _ := store.Get(s.SessionID)
	if len(got.Messages) != 1 {
		t.Fatalf("blank input reached the store: %d messages", len(got.Messages))
	}
}

func TestAppend_UnknownSession(t *testing.T) {
	store := NewTranscriptStore()
	if _, err := store.Append("nope", Message{Content: "hi", Sender: SenderUser}); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.Get("nope"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	store := NewTranscriptStore()
	first, _ := store.NewSession(testGreeting)
	second, _ := store.NewSession(testGreeting)
	third, _ := store.NewSession(testGreeting)

	got := store.List()
	if len(got) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(got))
	}
	wantOrder := []string{third.SessionID, second.SessionID, first.SessionID}
	for i, want := range wantOrder {
		if got[i].SessionID != want {
			t.Fatalf("position %d: got %s, want %s", i, got[i].SessionID, want)
		}
	}
}

func TestAppend_OnlyGrows(t *testing.T) {
	store := NewTranscriptStore()
	s, _ := store.NewSession(testGreeting)

	prev := 1
	contents := []string{"one", "two", "three", "four"}
	for i, content := range contents {
		sender := SenderUser
		if i%2 == 1 {
			sender = SenderAssistant
		}
		got, err := store.Append(s.SessionID, Message{Content: content, Sender: sender})
		if err != nil {
			t.Fatalf("append %q: %v", content, err)
		}
		if len(got.Messages) != prev+1 {
			t.Fatalf("expected %d messages, got %d", prev+1, len(got.Messages))
		}
		prev = len(got.Messages)
	}
}

func TestGet_ReturnsSnapshot(t *testing.T) {
	store := NewTranscriptStore()
	s, _ := store.NewSession(testGreeting)

	snap, _ := store.Get(s.SessionID)
	snap.Messages[0].Content = "mutated"

	fresh, _ := store.Get(s.SessionID)
	if fresh.Messages[0].Content != testGreeting {
		t.Fatalf("caller mutation leaked into the store")
	}
}
