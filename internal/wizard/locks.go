package wizard

import "sync"

// sessionLocks enforces the one-operation-in-flight rule per session.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{held: make(map[string]struct{})}
}

// acquire marks the session busy. Returns false if it already is.
func (l *sessionLocks) acquire(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[sessionID]; ok {
		return false
	}
	l.held[sessionID] = struct{}{}
	return true
}

func (l *sessionLocks) release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, sessionID)
}
