package quizmaker

import (
	"sync"
	"time"
)

type pooledSession struct {
	mu       sync.Mutex
	session  *Session
	lastUsed time.Time
}

// SessionPool keeps live quiz sessions in memory and lets only one action
// run against a session at a time
type SessionPool struct {
	mu       sync.Mutex
	sessions map[string]*pooledSession
	ttl      time.Duration
}

// NewSessionPool creates a pool that forgets sessions idle for longer than ttl.
// A ttl of zero keeps sessions forever.
func NewSessionPool(ttl time.Duration) *SessionPool {
	return &SessionPool{
		sessions: make(map[string]*pooledSession),
		ttl:      ttl,
	}
}

// Acquire returns the session stored under id, creating a fresh one when the
// id is unknown, and holds its lock until release is called. The returned
// session's ID may differ from id; callers store it back in the cookie.
func (sp *SessionPool) Acquire(id string, now time.Time) (session *Session, release func()) {
	sp.mu.Lock()
	sp.pruneLocked(now)
	entry, ok := sp.sessions[id]
	if !ok {
		s := NewSession()
		entry = &pooledSession{session: s}
		sp.sessions[s.ID()] = entry
	}
	entry.lastUsed = now
	sp.mu.Unlock()

	entry.mu.Lock()
	oldID := entry.session.ID()
	return entry.session, func() {
		// Reset assigns a new ID; keep the map keyed by the current one.
		if newID := entry.session.ID(); newID != oldID {
			sp.mu.Lock()
			delete(sp.sessions, oldID)
			sp.sessions[newID] = entry
			sp.mu.Unlock()
		}
		entry.mu.Unlock()
	}
}

// Size returns the number of live sessions
func (sp *SessionPool) Size() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return len(sp.sessions)
}

func (sp *SessionPool) pruneLocked(now time.Time) {
	if sp.ttl <= 0 {
		return
	}
	for id, entry := range sp.sessions {
		if now.Sub(entry.lastUsed) <= sp.ttl {
			continue
		}
		// Sessions busy with an action are never evicted.
		if !entry.mu.TryLock() {
			continue
		}
		delete(sp.sessions, id)
		entry.mu.Unlock()
		VerboseLog("Evicted idle session %s", id)
	}
}
