package session

import (
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMarkSeenOnlyOnce(t *testing.T) {
	st := NewStore()

	if !st.MarkSeen(1, t0) {
		t.Fatal("first MarkSeen should report new user")
	}
	if st.MarkSeen(1, t0.Add(time.Minute)) {
		t.Fatal("second MarkSeen should not report new user")
	}
}

func TestStartLiveKeepsOriginalSince(t *testing.T) {
	st := NewStore()

	st.StartLive(1, t0)
	st.StartLive(1, t0.Add(5*time.Minute))

	s, ok := st.Get(1)
	if !ok || !s.LiveActive {
		t.Fatal("session should be live")
	}
	if !s.LiveSince.Equal(t0) {
		t.Fatalf("LiveSince moved: %v", s.LiveSince)
	}
}

func TestEndLiveClearsPending(t *testing.T) {
	st := NewStore()

	st.StartLive(1, t0)
	st.RecordPending(1, t0)

	if !st.EndLive(1) {
		t.Fatal("EndLive should report the session was live")
	}
	s, _ := st.Get(1)
	if s.LiveActive || !s.LiveSince.IsZero() || s.PendingActive() {
		t.Fatalf("state not fully cleared: %+v", s)
	}
	if st.EndLive(1) {
		t.Fatal("EndLive on inactive session should report false")
	}
}

func TestRecordPendingKeepsFirstTimestamp(t *testing.T) {
	st := NewStore()

	st.RecordPending(1, t0)
	st.RecordPending(1, t0.Add(time.Minute))

	s, _ := st.Get(1)
	if !s.PendingSince.Equal(t0) {
		t.Fatalf("PendingSince should stay at first message time, got %v", s.PendingSince)
	}
}

func TestClearPendingIf(t *testing.T) {
	st := NewStore()
	st.RecordPending(1, t0)

	if st.ClearPendingIf(1, t0.Add(time.Second)) {
		t.Fatal("mismatched timestamp should not clear")
	}
	if !st.ClearPendingIf(1, t0) {
		t.Fatal("matching timestamp should clear")
	}
	if st.ClearPendingIf(1, t0) {
		t.Fatal("already cleared marker should not clear again")
	}
}

func TestEndLiveIf(t *testing.T) {
	st := NewStore()
	st.StartLive(1, t0)

	if st.EndLiveIf(1, t0.Add(time.Second)) {
		t.Fatal("mismatched LiveSince should not end the session")
	}
	if !st.EndLiveIf(1, t0) {
		t.Fatal("matching LiveSince should end the session")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	st := NewStore()
	st.StartLive(1, t0)
	st.RecordPending(1, t0)
	st.RecordPending(2, t0)

	pending := st.PendingSnapshot()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	pending[0].PendingSince = time.Time{}

	live := st.LiveSnapshot()
	if len(live) != 1 || live[0].UserID != 1 {
		t.Fatalf("unexpected live snapshot: %+v", live)
	}

	s, _ := st.Get(1)
	if !s.PendingActive() {
		t.Fatal("mutating a snapshot must not touch the store")
	}
}

func TestEvictIdleSkipsLiveAndPending(t *testing.T) {
	st := NewStore()
	st.Touch(1, t0)
	st.StartLive(2, t0)
	st.RecordPending(3, t0)
	st.Touch(4, t0.Add(time.Hour))

	n := st.EvictIdle(t0.Add(30 * time.Minute))
	if n != 1 {
		t.Fatalf("expected 1 evicted, got %d", n)
	}
	if _, ok := st.Get(1); ok {
		t.Fatal("idle session should be gone")
	}
	if _, ok := st.Get(2); !ok {
		t.Fatal("live session must survive eviction")
	}
	if _, ok := st.Get(3); !ok {
		t.Fatal("pending session must survive eviction")
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				st.MarkSeen(n, t0)
				st.StartLive(n, t0)
				st.RecordPending(n, t0)
				st.PendingSnapshot()
				st.LiveUserIDs()
				st.ClearPending(n)
				st.EndLive(n)
			}
		}(int64(i))
	}
	wg.Wait()
}
