package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"supportbot/internal/faq"
	"supportbot/internal/session"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type sentMsg struct {
	UserID   int64
	Text     string
	Markdown bool
	ToAdmin  bool
}

// fakeTransport records sends and can fail selectively.
type fakeTransport struct {
	mu        sync.Mutex
	sent      []sentMsg
	failUser  map[int64]error
	failAdmin error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failUser: make(map[int64]error)}
}

func (f *fakeTransport) SendToUser(_ context.Context, userID int64, text string, markdown bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUser[userID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMsg{UserID: userID, Text: text, Markdown: markdown})
	return nil
}

func (f *fakeTransport) SendToAdmin(_ context.Context, text string, markdown bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdmin != nil {
		return f.failAdmin
	}
	f.sent = append(f.sent, sentMsg{Text: text, Markdown: markdown, ToAdmin: true})
	return nil
}

func (f *fakeTransport) messages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMsg, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) adminMessages() []string {
	var out []string
	for _, m := range f.messages() {
		if m.ToAdmin {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeTransport) userMessages(userID int64) []string {
	var out []string
	for _, m := range f.messages() {
		if !m.ToAdmin && m.UserID == userID {
			out = append(out, m.Text)
		}
	}
	return out
}

func newTestService(tr Transport) *Service {
	st := session.NewStore()
	m := faq.NewMatcher(faq.Defaults(), 0.5)
	return NewService(st, m, tr, Texts{
		Welcome:  "welcome!",
		Fallback: "I'm not sure how to answer that. Let me connect you with a support agent.",
	})
}

func TestFirstMessageSendsWelcome(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)

	act, err := svc.HandleUserMessage(context.Background(), 7, "alice", "how to reset password", t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !act.Welcomed {
		t.Fatal("first message should trigger welcome")
	}
	msgs := tr.userMessages(7)
	if len(msgs) != 2 || msgs[0] != "welcome!" {
		t.Fatalf("expected welcome then answer, got %v", msgs)
	}

	act, _ = svc.HandleUserMessage(context.Background(), 7, "alice", "how to reset password", t0.Add(time.Minute))
	if act.Welcomed {
		t.Fatal("welcome must only be sent once")
	}
}

func TestFAQHitAutoReplies(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)

	act, err := svc.HandleUserMessage(context.Background(), 7, "alice", "where is my order", t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if act.Kind != ActionAutoReply {
		t.Fatalf("expected auto reply, got %s", act.Kind)
	}
	if act.FAQQuestion != "where is my order" {
		t.Fatalf("matched wrong entry: %q", act.FAQQuestion)
	}
	if len(tr.adminMessages()) != 0 {
		t.Fatal("FAQ hit must not touch the admin channel")
	}

	s, _ := svc.Store().Get(7)
	if s.LiveActive || s.PendingActive() {
		t.Fatalf("FAQ hit must not escalate: %+v", s)
	}
}

func TestFAQAnswerUsesMarkdown(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)

	_, _ = svc.HandleUserMessage(context.Background(), 7, "alice", "how to fund", t0)

	var answer sentMsg
	var found bool
	for _, m := range tr.messages() {
		if !m.ToAdmin && m.Text != "welcome!" {
			answer, found = m, true
		}
	}
	if !found {
		t.Fatal("no answer sent")
	}
	if !answer.Markdown {
		t.Fatal("knowledge-base answers should use Markdown")
	}
}

func TestNoMatchEscalates(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)

	act, err := svc.HandleUserMessage(context.Background(), 7, "alice", "my payment vanished into thin air", t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if act.Kind != ActionEscalated {
		t.Fatalf("expected escalation, got %s", act.Kind)
	}

	s, _ := svc.Store().Get(7)
	if !s.LiveActive || !s.LiveSince.Equal(t0) {
		t.Fatalf("escalation should start live mode at message time: %+v", s)
	}
	if !s.PendingSince.Equal(t0) {
		t.Fatalf("escalation should mark pending at message time: %+v", s)
	}

	admin := tr.adminMessages()
	if len(admin) != 1 {
		t.Fatalf("expected 1 admin alert, got %d", len(admin))
	}
	if !strings.Contains(admin[0], "needs help") || !strings.Contains(admin[0], "/chat 7") {
		t.Fatalf("alert missing escalation hint: %q", admin[0])
	}
}

func TestLiveMessagesForwardToAdmin(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)
	svc.StartChat(7, t0)
	svc.Store().MarkSeen(7, t0)

	act, err := svc.HandleUserMessage(context.Background(), 7, "alice", "how to reset password", t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if act.Kind != ActionForwarded {
		t.Fatalf("live messages must forward verbatim, got %s", act.Kind)
	}

	admin := tr.adminMessages()
	if len(admin) != 1 || !strings.Contains(admin[0], "Message from @alice") {
		t.Fatalf("unexpected admin forward: %v", admin)
	}
	if len(tr.userMessages(7)) != 0 {
		t.Fatal("forwarded messages must not auto-answer the user")
	}

	s, _ := svc.Store().Get(7)
	if !s.PendingSince.Equal(t0.Add(time.Minute)) {
		t.Fatalf("forward should stamp pending: %+v", s)
	}
}

func TestPendingKeepsFirstUnansweredTime(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)
	svc.StartChat(7, t0)
	svc.Store().MarkSeen(7, t0)

	_, _ = svc.HandleUserMessage(context.Background(), 7, "alice", "first", t0)
	_, _ = svc.HandleUserMessage(context.Background(), 7, "alice", "second", t0.Add(time.Minute))

	s, _ := svc.Store().Get(7)
	if !s.PendingSince.Equal(t0) {
		t.Fatalf("pending should keep the oldest unanswered time, got %v", s.PendingSince)
	}
}

func TestAdminBroadcastReachesLiveUsersAndClearsPending(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)
	svc.StartChat(1, t0)
	svc.StartChat(2, t0)
	svc.Store().RecordPending(1, t0)
	svc.Store().RecordPending(2, t0)

	delivered, err := svc.HandleAdminMessage(context.Background(), "we are on it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %v", delivered)
	}
	for _, id := range []int64{1, 2} {
		msgs := tr.userMessages(id)
		if len(msgs) != 1 || msgs[0] != "Support: we are on it" {
			t.Fatalf("user %d got %v", id, msgs)
		}
		s, _ := svc.Store().Get(id)
		if s.PendingActive() {
			t.Fatalf("pending should be cleared for user %d", id)
		}
		if !s.LiveActive {
			t.Fatalf("broadcast must not end live mode for user %d", id)
		}
	}
}

func TestAdminBroadcastKeepsPendingOnFailedDelivery(t *testing.T) {
	tr := newFakeTransport()
	tr.failUser[2] = errors.New("blocked by user")
	svc := newTestService(tr)
	svc.StartChat(1, t0)
	svc.StartChat(2, t0)
	svc.Store().RecordPending(1, t0)
	svc.Store().RecordPending(2, t0)

	delivered, err := svc.HandleAdminMessage(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected delivery error")
	}
	var de *DeliveryError
	if !errors.As(err, &de) || de.UserID != 2 {
		t.Fatalf("expected DeliveryError for user 2, got %v", err)
	}
	if len(delivered) != 1 || delivered[0] != 1 {
		t.Fatalf("expected only user 1 delivered, got %v", delivered)
	}

	s, _ := svc.Store().Get(2)
	if !s.PendingActive() {
		t.Fatal("failed delivery must keep the pending marker")
	}
}

func TestReplyToClearsPending(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)
	svc.StartChat(7, t0)
	svc.Store().RecordPending(7, t0)

	if err := svc.ReplyTo(context.Background(), 7, "done"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs := tr.userMessages(7)
	if len(msgs) != 1 || msgs[0] != "Support: done" {
		t.Fatalf("unexpected reply: %v", msgs)
	}
	s, _ := svc.Store().Get(7)
	if s.PendingActive() {
		t.Fatal("reply should clear pending")
	}
}

func TestStopChatEndsLive(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(tr)
	svc.StartChat(7, t0)
	svc.Store().RecordPending(7, t0)

	if !svc.StopChat(7) {
		t.Fatal("StopChat should report the chat was live")
	}
	s, _ := svc.Store().Get(7)
	if s.LiveActive || s.PendingActive() {
		t.Fatalf("state not cleared: %+v", s)
	}
	if svc.StopChat(7) {
		t.Fatal("StopChat on inactive chat should report false")
	}
}

func TestEscalationStateSurvivesDeliveryFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.failAdmin = fmt.Errorf("admin channel down")
	svc := newTestService(tr)
	svc.Store().MarkSeen(7, t0)

	act, err := svc.HandleUserMessage(context.Background(), 7, "alice", "completely unmatchable gibberish xyzzy", t0)
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if act.Kind != ActionEscalated {
		t.Fatalf("expected escalation, got %s", act.Kind)
	}

	s, _ := svc.Store().Get(7)
	if !s.LiveActive || !s.PendingActive() {
		t.Fatalf("state transition must not depend on delivery: %+v", s)
	}
}
