package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hanzhang719/mindline/internal/ai"
	"github.com/hanzhang719/mindline/internal/prompt"
)

type fakeProvider struct {
	reply string
	err   error
	last  []ai.Message

	started chan struct{} // closed-per-call signal, optional
	release chan struct{} // blocks Chat until closed, optional
}

func (p *fakeProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	p.last = append([]ai.Message(nil), messages...)
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.reply, p.err
}

func newTestController(p ai.Provider) *Controller {
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		_ = model
		return p, nil
	})
	return NewController(reg, "fake", "default", "", 5*time.Second)
}

var testProfile = prompt.Profile{
	Name:           "Ada",
	Age:            34,
	BloodGroup:     "O+",
	MedicalInfo:    "peanut allergy",
	MedicalHistory: "None",
}

func TestSend_AppendsUserAndAssistant(t *testing.T) {
	prov := &fakeProvider{reply: "take a deep breath"}
	ctrl := newTestController(prov)

	sess, err := ctrl.Send(context.Background(), 1, testProfile, "", "I feel anxious")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// greeting + user + assistant
	if len(sess.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(sess.Messages))
	}
	if sess.Messages[1].Sender != SenderUser || sess.Messages[1].Content != "I feel anxious" {
		t.Fatalf("unexpected user message: %+v", sess.Messages[1])
	}
	if sess.Messages[2].Sender != SenderAssistant || sess.Messages[2].Content != "take a deep breath" {
		t.Fatalf("unexpected assistant message: %+v", sess.Messages[2])
	}
	if sess.Title != "I feel anxious..." {
		t.Fatalf("unexpected title: %q", sess.Title)
	}
}

func TestSend_ComposesPersonalizedPrompt(t *testing.T) {
	prov := &fakeProvider{reply: "ok"}
	ctrl := newTestController(prov)

	if _, err := ctrl.Send(context.Background(), 1, testProfile, "", "What should I do for a burn?"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(prov.last) != 1 || prov.last[0].Role != "user" {
		t.Fatalf("expected a single user prompt, got %+v", prov.last)
	}
	sent := prov.last[0].Content
	for _, want := range []string{"Ada", "peanut allergy", prompt.Disclaimer, "\"What should I do for a burn?\""} {
		if !strings.Contains(sent, want) {
			t.Fatalf("prompt missing %q:\n%s", want, sent)
		}
	}
}

func TestSend_RejectsBlankInput(t *testing.T) {
	ctrl := newTestController(&fakeProvider{reply: "ok"})

	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := ctrl.Send(context.Background(), 1, testProfile, "", text); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("text %q: expected ErrEmptyMessage, got %v", text, err)
		}
	}

	sess, err := ctrl.CurrentSession(1)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if len(sess.Messages) != 1 {
		t.Fatalf("blank input mutated the transcript: %d messages", len(sess.Messages))
	}
}

func TestSend_ProviderFailureBecomesErrorBubble(t *testing.T) {
	prov := &fakeProvider{err: errors.New("connection refused")}
	ctrl := newTestController(prov)

	sess, err := ctrl.Send(context.Background(), 7, testProfile, "", "hello")
	if err != nil {
		t.Fatalf("provider failure must not propagate, got %v", err)
	}

	last := sess.Messages[len(sess.Messages)-1]
	if last.Sender != SenderAssistant {
		t.Fatalf("error bubble must be assistant-authored: %+v", last)
	}
	if !strings.HasPrefix(last.Content, "Sorry, something went wrong: ") {
		t.Fatalf("unexpected error bubble: %q", last.Content)
	}
	if !strings.Contains(last.Content, "connection refused") {
		t.Fatalf("error bubble must carry the reason: %q", last.Content)
	}

	// Session is idle again: the next send goes through.
	if _, err := ctrl.Send(context.Background(), 7, testProfile, "", "hello again"); err != nil {
		t.Fatalf("send after failure: %v", err)
	}
}

func TestSend_RejectsConcurrentSendOnSameSession(t *testing.T) {
	prov := &fakeProvider{
		reply:   "done",
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	ctrl := newTestController(prov)

	sess, err := ctrl.NewSession(3)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := ctrl.Send(context.Background(), 3, testProfile, sess.SessionID, "first")
		errc <- err
	}()

	<-prov.started // first send is now inside the provider call

	if _, err := ctrl.Send(context.Background(), 3, testProfile, sess.SessionID, "second"); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("expected ErrSendInFlight, got %v", err)
	}

	close(prov.release)
	if err := <-errc; err != nil {
		t.Fatalf("first send: %v", err)
	}

	// In-flight flag cleared once the send finished.
	if _, err := ctrl.Send(context.Background(), 3, testProfile, sess.SessionID, "third"); err != nil {
		t.Fatalf("send after completion: %v", err)
	}
}

func TestSend_UnknownSession(t *testing.T) {
	ctrl := newTestController(&fakeProvider{reply: "ok"})
	if _, err := ctrl.Send(context.Background(), 1, testProfile, "missing", "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestWorkspace_SeedsInitialSession(t *testing.T) {
	ctrl := newTestController(&fakeProvider{reply: "ok"})

	sess, err := ctrl.CurrentSession(42)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if sess.Title != TitleSentinel {
		t.Fatalf("expected sentinel title, got %q", sess.Title)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Sender != SenderAssistant {
		t.Fatalf("expected single seeded greeting, got %+v", sess.Messages)
	}
}

func TestNewSessionAndSwitch(t *testing.T) {
	ctrl := newTestController(&fakeProvider{reply: "ok"})

	initial, err := ctrl.CurrentSession(5)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}

	second, err := ctrl.NewSession(5)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	cur, _ := ctrl.CurrentSession(5)
	if cur.SessionID != second.SessionID {
		t.Fatalf("new session did not become current")
	}

	if _, err := ctrl.SwitchSession(5, initial.SessionID); err != nil {
		t.Fatalf("switch: %v", err)
	}
	cur, _ = ctrl.CurrentSession(5)
	if cur.SessionID != initial.SessionID {
		t.Fatalf("switch did not change the current session")
	}

	if _, err := ctrl.SwitchSession(5, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	list, err := ctrl.ListSessions(5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].SessionID != second.SessionID {
		t.Fatalf("expected newest-first listing, got %+v", list)
	}
}

func TestWorkspacesAreIsolatedPerUser(t *testing.T) {
	ctrl := newTestController(&fakeProvider{reply: "ok"})

	if _, err := ctrl.Send(context.Background(), 1, testProfile, "", "user one talking"); err != nil {
		t.Fatalf("send: %v", err)
	}

	other, err := ctrl.CurrentSession(2)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if len(other.Messages) != 1 {
		t.Fatalf("user 2 sees user 1's messages: %+v", other.Messages)
	}
}

func TestMarkAlerted_OncePerSession(t *testing.T) {
	ctrl := newTestController(&fakeProvider{reply: "ok"})

	sess, err := ctrl.CurrentSession(9)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}

	first, err := ctrl.MarkAlerted(9, sess.SessionID)
	if err != nil || !first {
		t.Fatalf("expected first=true, got first=%v err=%v", first, err)
	}
	second, err := ctrl.MarkAlerted(9, sess.SessionID)
	if err != nil || second {
		t.Fatalf("expected first=false on repeat, got first=%v err=%v", second, err)
	}

	if _, err := ctrl.MarkAlerted(9, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
