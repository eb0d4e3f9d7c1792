package domain

// Snapshot is a consistent view of every piece of state the UI renders.
type Snapshot struct {
	Session    Session
	Countdown  CountdownState
	Fullscreen bool
	Viewer     ViewerSnapshot
	LastResult *SessionResult
}

// Progress returns the elapsed fraction of the active session (0.0 to 1.0).
func (s Snapshot) Progress() float64 {
	total := s.Session.DurationSeconds
	if total <= 0 {
		return 0
	}
	elapsed := total - s.Countdown.Remaining
	if elapsed < 0 {
		return 0
	}
	p := float64(elapsed) / float64(total)
	if p > 1 {
		return 1
	}
	return p
}

// GetPhaseLabel returns a human-readable label for the phase.
func GetPhaseLabel(p Phase) string {
	switch p {
	case PhaseSetup:
		return "Setup"
	case PhaseActive:
		return "Focus Mode Active"
	default:
		return "Unknown"
	}
}

// GetLoadStatusLabel returns a human-readable label for the load status.
func GetLoadStatusLabel(s LoadStatus) string {
	switch s {
	case LoadStatusIdle:
		return "No document"
	case LoadStatusLoading:
		return "Loading"
	case LoadStatusReady:
		return "Ready"
	case LoadStatusFailed:
		return "Failed to load"
	default:
		return "Unknown"
	}
}
