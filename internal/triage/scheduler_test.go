package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"supportbot/internal/session"
)

func newTestScheduler(tr Transport, st *session.Store) *Scheduler {
	return NewScheduler(st, tr, SchedulerOptions{
		Interval:    time.Minute,
		RemindAfter: 2 * time.Minute,
		CloseAfter:  10 * time.Minute,
	})
}

func TestSweepRemindsAfterThreshold(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	st.RecordPending(7, t0)
	sc := newTestScheduler(tr, st)

	stats, err := sc.Sweep(context.Background(), t0.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Reminders != 1 {
		t.Fatalf("expected 1 reminder, got %d", stats.Reminders)
	}
	admin := tr.adminMessages()
	if len(admin) != 1 || !strings.Contains(admin[0], "unread message from user 7") {
		t.Fatalf("unexpected reminder: %v", admin)
	}
}

func TestSweepSkipsFreshPending(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	st.RecordPending(7, t0)
	sc := newTestScheduler(tr, st)

	stats, _ := sc.Sweep(context.Background(), t0.Add(time.Minute))
	if stats.Reminders != 0 {
		t.Fatalf("fresh pending must not remind, got %d", stats.Reminders)
	}
	if len(tr.adminMessages()) != 0 {
		t.Fatal("no reminder expected")
	}
}

func TestReminderFiresOnce(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	st.RecordPending(7, t0)
	sc := newTestScheduler(tr, st)

	for i := 0; i < 3; i++ {
		if _, err := sc.Sweep(context.Background(), t0.Add(time.Duration(3+i)*time.Minute)); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}
	if got := len(tr.adminMessages()); got != 1 {
		t.Fatalf("reminder must fire once per marker, got %d", got)
	}

	s, _ := st.Get(7)
	if s.PendingActive() {
		t.Fatal("reminder should consume the pending marker")
	}
}

func TestReminderConsumedEvenWhenSendFails(t *testing.T) {
	tr := newFakeTransport()
	tr.failAdmin = errors.New("admin channel down")
	st := session.NewStore()
	st.RecordPending(7, t0)
	sc := newTestScheduler(tr, st)

	stats, err := sc.Sweep(context.Background(), t0.Add(3*time.Minute))
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if stats.Reminders != 1 {
		t.Fatalf("marker should still be claimed, got %d", stats.Reminders)
	}
	s, _ := st.Get(7)
	if s.PendingActive() {
		t.Fatal("marker must not be retried after a failed reminder")
	}
}

func TestNewPendingAfterReminderRemindsAgain(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	st.RecordPending(7, t0)
	sc := newTestScheduler(tr, st)

	_, _ = sc.Sweep(context.Background(), t0.Add(3*time.Minute))

	// A new unanswered message starts a new marker with its own clock.
	st.RecordPending(7, t0.Add(5*time.Minute))
	stats, _ := sc.Sweep(context.Background(), t0.Add(8*time.Minute))
	if stats.Reminders != 1 {
		t.Fatalf("new marker should remind again, got %d", stats.Reminders)
	}
	if got := len(tr.adminMessages()); got != 2 {
		t.Fatalf("expected 2 reminders total, got %d", got)
	}
}

func TestSweepAutoClosesStaleLiveSessions(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	st.StartLive(7, t0)
	sc := newTestScheduler(tr, st)

	stats, err := sc.Sweep(context.Background(), t0.Add(11*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Closed != 1 {
		t.Fatalf("expected 1 closed, got %d", stats.Closed)
	}
	s, _ := st.Get(7)
	if s.LiveActive {
		t.Fatal("stale live session should be closed")
	}
	if len(tr.userMessages(7)) != 1 {
		t.Fatal("user should be told the chat was closed")
	}
	admin := tr.adminMessages()
	if len(admin) != 1 || !strings.Contains(admin[0], "closed automatically") {
		t.Fatalf("admin should be told about the auto-close: %v", admin)
	}
}

func TestSweepKeepsYoungLiveSessions(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	st.StartLive(7, t0)
	sc := newTestScheduler(tr, st)

	stats, _ := sc.Sweep(context.Background(), t0.Add(9*time.Minute))
	if stats.Closed != 0 {
		t.Fatalf("session younger than the limit must not close, got %d", stats.Closed)
	}
	s, _ := st.Get(7)
	if !s.LiveActive {
		t.Fatal("session should still be live")
	}
	if len(tr.messages()) != 0 {
		t.Fatal("no notifications expected")
	}
}

func TestSweepSkipsSessionsMutatedSinceSnapshot(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	// The marker present at snapshot time was already replaced, as if an
	// admin reply and a new user message raced the sweep.
	st.RecordPending(7, t0)
	st.ClearPending(7)
	st.RecordPending(7, t0.Add(90*time.Second))
	sc := newTestScheduler(tr, st)

	stats, _ := sc.Sweep(context.Background(), t0.Add(3*time.Minute))
	if stats.Reminders != 0 {
		t.Fatalf("replaced marker is too fresh to remind, got %d", stats.Reminders)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	st.MarkSeen(1, t0)
	st.StartLive(2, t0)
	sc := NewScheduler(st, tr, SchedulerOptions{
		Interval:       time.Minute,
		RemindAfter:    2 * time.Minute,
		CloseAfter:     0,
		IdleEvictAfter: time.Hour,
	})

	stats, _ := sc.Sweep(context.Background(), t0.Add(2*time.Hour))
	if stats.Evicted != 1 {
		t.Fatalf("expected 1 evicted, got %d", stats.Evicted)
	}
	if _, ok := st.Get(2); !ok {
		t.Fatal("live session must never be evicted")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	tr := newFakeTransport()
	st := session.NewStore()
	sc := NewScheduler(st, tr, SchedulerOptions{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sc.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
