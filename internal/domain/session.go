package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the top-level view state of the application.
type Phase string

const (
	PhaseSetup  Phase = "setup"
	PhaseActive Phase = "active"
)

// DefaultDurationSeconds is the focus duration used until the user picks one.
const DefaultDurationSeconds = 25 * 60

// Session is one focus-reading cycle. Document is non-nil iff Phase is
// PhaseActive; Pending holds the selection made during setup.
type Session struct {
	ID              string
	Phase           Phase
	Pending         *Document
	Document        *Document
	DurationSeconds int
	StartedAt       time.Time
}

// NewSession returns a session in setup with no document.
func NewSession(durationSeconds int) *Session {
	if durationSeconds <= 0 {
		durationSeconds = DefaultDurationSeconds
	}
	return &Session{
		Phase:           PhaseSetup,
		DurationSeconds: durationSeconds,
	}
}

// Duration returns the configured focus duration.
func (s *Session) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// IsActive returns true while a focus session is in progress.
func (s *Session) IsActive() bool {
	return s.Phase == PhaseActive
}

// CanStart returns true if a session can be started right now.
func (s *Session) CanStart() bool {
	return s.Phase == PhaseSetup && s.Pending != nil && s.DurationSeconds > 0
}

// Begin moves the pending document into the active slot.
func (s *Session) Begin(now time.Time) {
	s.ID = generateID()
	s.Phase = PhaseActive
	s.Document = s.Pending
	s.Pending = nil
	s.StartedAt = now
}

// End returns to setup and releases the active document.
// The released document is returned so callers can report on it.
func (s *Session) End() *Document {
	doc := s.Document
	if doc != nil {
		doc.Release()
	}
	s.Document = nil
	s.Phase = PhaseSetup
	return doc
}

// SessionResult summarises a finished session.
type SessionResult struct {
	SessionID string
	Document  string
	Duration  time.Duration
	EndedAt   time.Time
	Fault     error
}

// generateID creates a new unique identifier.
func generateID() string {
	return uuid.New().String()
}
