package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hanzhang719/mindline/internal/ai"
	"github.com/hanzhang719/mindline/internal/prompt"
)

var (
	ErrSendInFlight  = errors.New("a message is already being sent for this session")
	ErrNoCurrentChat = errors.New("no current session")
)

// DefaultGreeting seeds every new session.
const DefaultGreeting = "Hello! I'm BAYMAX, your personal healthcare companion. How are you feeling today?"

// Controller owns the per-user conversation state: transcripts, the current
// session pointer and the one-in-flight-per-session rule. Transcripts live in
// memory only; they last as long as the process, never the database.
type Controller struct {
	registry     *ai.Registry
	providerName string
	model        string
	greeting     string
	callTimeout  time.Duration

	mu         sync.Mutex
	workspaces map[uint64]*workspace
}

type workspace struct {
	store *TranscriptStore

	mu        sync.Mutex
	currentID string
	inflight  map[string]bool
	alerted   map[string]bool
}

func NewController(registry *ai.Registry, providerName, model, greeting string, callTimeout time.Duration) *Controller {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &Controller{
		registry:     registry,
		providerName: providerName,
		model:        model,
		greeting:     greeting,
		callTimeout:  callTimeout,
		workspaces:   make(map[uint64]*workspace),
	}
}

// workspace returns the user's conversation state, seeding a first session on
// first touch so a fresh login always has a chat to land in.
func (c *Controller) workspace(userID uint64) (*workspace, error) {
	c.mu.Lock()
	ws, ok := c.workspaces[userID]
	if !ok {
		ws = &workspace{
			store:    NewTranscriptStore(),
			inflight: make(map[string]bool),
			alerted:  make(map[string]bool),
		}
		c.workspaces[userID] = ws
	}
	c.mu.Unlock()

	if !ok {
		s, err := ws.store.NewSession(c.greeting)
		if err != nil {
			return nil, err
		}
		ws.mu.Lock()
		ws.currentID = s.SessionID
		ws.mu.Unlock()
	}
	return ws, nil
}

// NewSession creates a fresh session and makes it current.
func (c *Controller) NewSession(userID uint64) (Session, error) {
	ws, err := c.workspace(userID)
	if err != nil {
		return Session{}, err
	}
	s, err := ws.store.NewSession(c.greeting)
	if err != nil {
		return Session{}, err
	}
	ws.mu.Lock()
	ws.currentID = s.SessionID
	ws.mu.Unlock()
	return s, nil
}

// SwitchSession points the user at an existing session.
func (c *Controller) SwitchSession(userID uint64, sessionID string) (Session, error) {
	ws, err := c.workspace(userID)
	if err != nil {
		return Session{}, err
	}
	s, err := ws.store.Get(sessionID)
	if err != nil {
		return Session{}, err
	}
	ws.mu.Lock()
	ws.currentID = s.SessionID
	ws.mu.Unlock()
	return s, nil
}

// CurrentSession returns the session the user is looking at.
func (c *Controller) CurrentSession(userID uint64) (Session, error) {
	ws, err := c.workspace(userID)
	if err != nil {
		return Session{}, err
	}
	ws.mu.Lock()
	id := ws.currentID
	ws.mu.Unlock()
	if id == "" {
		return Session{}, ErrNoCurrentChat
	}
	return ws.store.Get(id)
}

// GetSession returns a session without changing the current pointer.
func (c *Controller) GetSession(userID uint64, sessionID string) (Session, error) {
	ws, err := c.workspace(userID)
	if err != nil {
		return Session{}, err
	}
	return ws.store.Get(sessionID)
}

// ListSessions returns the user's sessions, newest first.
func (c *Controller) ListSessions(userID uint64) ([]Session, error) {
	ws, err := c.workspace(userID)
	if err != nil {
		return nil, err
	}
	return ws.store.List(), nil
}

// Send appends the user message, calls the generation provider and appends
// the reply. Provider failures do not propagate: they become a visible
// assistant-authored error bubble, and the session returns to idle either
// way. An empty sessionID targets the current session.
func (c *Controller) Send(ctx context.Context, userID uint64, profile prompt.Profile, sessionID, text string) (Session, error) {
	if strings.TrimSpace(text) == "" {
		return Session{}, ErrEmptyMessage
	}

	ws, err := c.workspace(userID)
	if err != nil {
		return Session{}, err
	}

	ws.mu.Lock()
	if sessionID == "" {
		sessionID = ws.currentID
	}
	if sessionID == "" {
		ws.mu.Unlock()
		return Session{}, ErrNoCurrentChat
	}
	if ws.inflight[sessionID] {
		ws.mu.Unlock()
		return Session{}, ErrSendInFlight
	}
	ws.inflight[sessionID] = true
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.inflight, sessionID)
		ws.mu.Unlock()
	}()

	// Optimistic append: the user's message lands before the provider call.
	if _, err := ws.store.Append(sessionID, Message{Content: text, Sender: SenderUser}); err != nil {
		return Session{}, err
	}

	reply := c.generate(ctx, profile, text)
	return ws.store.Append(sessionID, Message{Content: reply, Sender: SenderAssistant})
}

func (c *Controller) generate(ctx context.Context, profile prompt.Profile, question string) string {
	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	provider, err := c.registry.Get(cctx, c.providerName, c.model)
	if err != nil {
		return errorBubble(err)
	}

	reply, err := provider.Chat(cctx, []ai.Message{{
		Role:    "user",
		Content: prompt.Compose(profile, question),
	}})
	if err != nil {
		return errorBubble(err)
	}
	return reply
}

func errorBubble(err error) string {
	return "Sorry, something went wrong: " + err.Error()
}

// MarkAlerted records that an escalation alert went out for the session and
// reports whether this call was the first. Used to alert at most once per
// session.
func (c *Controller) MarkAlerted(userID uint64, sessionID string) (bool, error) {
	ws, err := c.workspace(userID)
	if err != nil {
		return false, err
	}
	if _, err := ws.store.Get(sessionID); err != nil {
		return false, err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.alerted[sessionID] {
		return false, nil
	}
	ws.alerted[sessionID] = true
	return true, nil
}
