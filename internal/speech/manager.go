package speech

import (
	"errors"
	"sync"

	"resume-wizard/internal/shared/telemetry"
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Manager tracks at most one active recorder per session.
type Manager struct {
	mu        sync.Mutex
	recorders map[string]*Recorder
}

// NewManager constructs a Manager.
func NewManager() *Manager {
	return &Manager{recorders: make(map[string]*Recorder)}
}

// Start begins a recording for the session.
func (m *Manager) Start(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recorders[sessionID]; ok {
		return ErrAlreadyRecording
	}
	m.recorders[sessionID] = NewRecorder()
	return nil
}

// Push delivers a segment to the session's recorder.
func (m *Manager) Push(sessionID string, seg Segment) error {
	m.mu.Lock()
	rec, ok := m.recorders[sessionID]
	m.mu.Unlock()
	if !ok {
		return ErrNotRecording
	}
	return rec.Push(seg)
}

// Partial returns the session's current uncommitted hypothesis.
func (m *Manager) Partial(sessionID string) (string, error) {
	m.mu.Lock()
	rec, ok := m.recorders[sessionID]
	m.mu.Unlock()
	if !ok {
		return "", ErrNotRecording
	}
	return rec.Partial(), nil
}

// Stop ends the session's recording and returns the committed transcript.
func (m *Manager) Stop(sessionID string) (string, error) {
	m.mu.Lock()
	rec, ok := m.recorders[sessionID]
	if ok {
		delete(m.recorders, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return "", ErrNotRecording
	}
	return rec.Stop(), nil
}

// Fail ends the session's recording after a recognition error. The error is
// logged but not surfaced to the user; the committed transcript is kept.
func (m *Manager) Fail(sessionID, reason string) (string, error) {
	transcript, err := m.Stop(sessionID)
	if err != nil {
		return "", err
	}
	telemetry.Warn("speech.recognition_failed", map[string]any{
		"session_id": sessionID,
		"reason":     reason,
	})
	return transcript, nil
}
