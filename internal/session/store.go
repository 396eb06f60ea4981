// Package session keeps per-user support state in memory. State is
// volatile: a restart returns every user to the automated flow.
package session

import (
	"sync"
	"time"
)

// UserSession is the triage state for a single Telegram user.
type UserSession struct {
	UserID int64

	// Seen is set after the first inbound message so the welcome text
	// is sent exactly once per process lifetime.
	Seen bool

	// LiveActive marks the user as routed to a human agent. LiveSince
	// is valid only while LiveActive is true.
	LiveActive bool
	LiveSince  time.Time

	// PendingSince is the receive time of the first user message the
	// admin has not answered yet. Zero when nothing is pending.
	PendingSince time.Time

	LastActivity time.Time
}

// PendingActive reports whether the user has an unanswered message.
func (s UserSession) PendingActive() bool {
	return !s.PendingSince.IsZero()
}

// Store is a concurrency-safe map of user sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*UserSession
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*UserSession)}
}

func (st *Store) getOrCreateLocked(userID int64) *UserSession {
	s, ok := st.sessions[userID]
	if !ok {
		s = &UserSession{UserID: userID}
		st.sessions[userID] = s
	}
	return s
}

// GetOrCreate returns a copy of the user's session, creating a default
// one when the user is unknown.
func (st *Store) GetOrCreate(userID int64) UserSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	return *st.getOrCreateLocked(userID)
}

// Get returns a copy of the user's session.
func (st *Store) Get(userID int64) (UserSession, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[userID]
	if !ok {
		return UserSession{}, false
	}
	return *s, true
}

// MarkSeen records the first contact. It returns true when the user had
// not been seen before, i.e. the caller should send the welcome text.
func (st *Store) MarkSeen(userID int64, now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getOrCreateLocked(userID)
	s.LastActivity = now
	if s.Seen {
		return false
	}
	s.Seen = true
	return true
}

// StartLive routes the user to a human agent. Starting an already live
// session keeps the original LiveSince.
func (st *Store) StartLive(userID int64, now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getOrCreateLocked(userID)
	if !s.LiveActive {
		s.LiveActive = true
		s.LiveSince = now
	}
	s.LastActivity = now
}

// EndLive returns the user to the automated flow and drops any pending
// marker. It reports whether the session was live.
func (st *Store) EndLive(userID int64) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	if !ok || !s.LiveActive {
		return false
	}
	s.LiveActive = false
	s.LiveSince = time.Time{}
	s.PendingSince = time.Time{}
	return true
}

// EndLiveIf ends the live session only when LiveSince still equals
// since. Sweeps use it so a session restarted between snapshot and
// action is left alone.
func (st *Store) EndLiveIf(userID int64, since time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	if !ok || !s.LiveActive || !s.LiveSince.Equal(since) {
		return false
	}
	s.LiveActive = false
	s.LiveSince = time.Time{}
	s.PendingSince = time.Time{}
	return true
}

// RecordPending stamps the first unanswered message. Later messages
// before an admin reply keep the original timestamp, so reminder age is
// measured from the oldest unanswered message.
func (st *Store) RecordPending(userID int64, now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getOrCreateLocked(userID)
	if s.PendingSince.IsZero() {
		s.PendingSince = now
	}
	s.LastActivity = now
}

// ClearPending removes the unanswered marker, typically after an admin
// reply reached the user.
func (st *Store) ClearPending(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[userID]; ok {
		s.PendingSince = time.Time{}
	}
}

// ClearPendingIf clears the marker only when PendingSince still equals
// since. It reports whether the clear happened.
func (st *Store) ClearPendingIf(userID int64, since time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	if !ok || s.PendingSince.IsZero() || !s.PendingSince.Equal(since) {
		return false
	}
	s.PendingSince = time.Time{}
	return true
}

// Touch refreshes the activity timestamp without other changes.
func (st *Store) Touch(userID int64, now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getOrCreateLocked(userID)
	s.LastActivity = now
}

// LiveUserIDs returns a snapshot of users currently in live mode.
func (st *Store) LiveUserIDs() []int64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]int64, 0, len(st.sessions))
	for id, s := range st.sessions {
		if s.LiveActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// PendingSnapshot returns copies of all sessions with an unanswered
// marker. Callers act on the snapshot and use the *If operations to
// tolerate concurrent mutation.
func (st *Store) PendingSnapshot() []UserSession {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]UserSession, 0, len(st.sessions))
	for _, s := range st.sessions {
		if !s.PendingSince.IsZero() {
			out = append(out, *s)
		}
	}
	return out
}

// LiveSnapshot returns copies of all live sessions.
func (st *Store) LiveSnapshot() []UserSession {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]UserSession, 0, len(st.sessions))
	for _, s := range st.sessions {
		if s.LiveActive {
			out = append(out, *s)
		}
	}
	return out
}

// EvictIdle deletes sessions with no activity since cutoff that are not
// live and have nothing pending. It returns the number evicted.
func (st *Store) EvictIdle(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if s.LiveActive || !s.PendingSince.IsZero() {
			continue
		}
		if s.LastActivity.Before(cutoff) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
