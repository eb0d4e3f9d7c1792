package domain

import (
	"testing"
)

func TestSnapshot_Progress(t *testing.T) {
	tests := []struct {
		name      string
		duration  int
		remaining int
		want      float64
	}{
		{"not started", 60, 60, 0},
		{"half way", 60, 30, 0.5},
		{"finished", 60, 0, 1},
		{"no duration", 0, 0, 0},
		{"remaining above duration", 60, 90, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				Session:   Session{DurationSeconds: tt.duration},
				Countdown: CountdownState{Remaining: tt.remaining},
			}
			if got := snap.Progress(); got != tt.want {
				t.Errorf("Progress() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetPhaseLabel(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseSetup, "Setup"},
		{PhaseActive, "Focus Mode Active"},
		{Phase("bogus"), "Unknown"},
	}

	for _, tt := range tests {
		if got := GetPhaseLabel(tt.phase); got != tt.want {
			t.Errorf("GetPhaseLabel(%q) = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestGetLoadStatusLabel(t *testing.T) {
	tests := []struct {
		status LoadStatus
		want   string
	}{
		{LoadStatusIdle, "No document"},
		{LoadStatusLoading, "Loading"},
		{LoadStatusReady, "Ready"},
		{LoadStatusFailed, "Failed to load"},
		{LoadStatus("x"), "Unknown"},
	}

	for _, tt := range tests {
		if got := GetLoadStatusLabel(tt.status); got != tt.want {
			t.Errorf("GetLoadStatusLabel(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
