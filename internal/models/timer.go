// internal/models/timer.go
package models

import (
	"time"
)

// Pomodoro phases.
const (
	PhaseWork      = "work"
	PhaseBreak     = "break"
	PhaseLongBreak = "long_break"
)

// TimerSettings configures the Pomodoro cycle. Durations are minutes.
type TimerSettings struct {
	WorkDuration           int  `json:"work_duration"`
	BreakDuration          int  `json:"break_duration"`
	LongBreakDuration      int  `json:"long_break_duration"`
	SessionsUntilLongBreak int  `json:"sessions_until_long_break"`
	AutoStartNext          bool `json:"auto_start_next"`
}

// DefaultTimerSettings matches the classic 25/5/15 cycle.
func DefaultTimerSettings() TimerSettings {
	return TimerSettings{
		WorkDuration:           25,
		BreakDuration:          5,
		LongBreakDuration:      15,
		SessionsUntilLongBreak: 4,
		AutoStartNext:          true,
	}
}

// TimerState is the observable state of one user's Pomodoro timer.
type TimerState struct {
	Phase             string        `json:"phase"`
	Running           bool          `json:"running"`
	CompletedSessions int           `json:"completed_sessions"`
	PhaseDuration     time.Duration `json:"phase_duration"`
	Settings          TimerSettings `json:"settings"`
}

// StudySessionLog records one completed work phase.
type StudySessionLog struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Duration     int       `json:"duration"` // minutes
	SessionType  string    `json:"session_type"`
	FocusQuality int       `json:"focus_quality"` // 1-10 self reported
	Subject      string    `json:"subject,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}
