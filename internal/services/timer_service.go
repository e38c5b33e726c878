// internal/services/timer_service.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/models"
	"github.com/claritutor/claritutor/internal/store"
	"github.com/claritutor/claritutor/internal/utils"
)

// TimerService owns Pomodoro phase state per user. The countdown itself runs
// client-side; this service is the authority on phase transitions, settings
// and session logging.
type TimerService struct {
	mu     sync.Mutex
	timers map[string]*models.TimerState
	repo   store.Repository
}

// NewTimerService wires the timer state holder.
func NewTimerService(repo store.Repository) *TimerService {
	return &TimerService{
		timers: make(map[string]*models.TimerState),
		repo:   repo,
	}
}

// GetState returns the user's timer, creating a default one on first access.
func (s *TimerService) GetState(userID string) models.TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.timerLocked(userID)
}

// Start sets the timer running in its current phase.
func (s *TimerService) Start(userID string) models.TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.timerLocked(userID)
	t.Running = true
	return *t
}

// Pause stops the countdown without losing the phase.
func (s *TimerService) Pause(userID string) models.TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.timerLocked(userID)
	t.Running = false
	return *t
}

// Reset stops the timer and returns to the work phase. The completed-session
// counter survives a reset.
func (s *TimerService) Reset(userID string) models.TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.timerLocked(userID)
	t.Running = false
	t.Phase = models.PhaseWork
	t.PhaseDuration = phaseDuration(t.Phase, t.Settings)
	return *t
}

// SwitchPhase jumps to an explicit phase, stopped.
func (s *TimerService) SwitchPhase(userID, phase string) (models.TimerState, error) {
	switch phase {
	case models.PhaseWork, models.PhaseBreak, models.PhaseLongBreak:
	default:
		return models.TimerState{}, apperrors.NewValidationError("unknown timer phase: "+phase, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.timerLocked(userID)
	t.Phase = phase
	t.Running = false
	t.PhaseDuration = phaseDuration(phase, t.Settings)
	return *t, nil
}

// Complete advances the cycle when a phase finishes. Finishing work bumps the
// counter and picks break or long break; every Nth work phase earns the long
// break. Finishing any break returns to work. The next phase starts running
// only when auto-start is on.
func (s *TimerService) Complete(userID string) models.TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.timerLocked(userID)

	if t.Phase == models.PhaseWork {
		t.CompletedSessions++
		if t.Settings.SessionsUntilLongBreak > 0 && t.CompletedSessions%t.Settings.SessionsUntilLongBreak == 0 {
			t.Phase = models.PhaseLongBreak
		} else {
			t.Phase = models.PhaseBreak
		}
	} else {
		t.Phase = models.PhaseWork
	}

	t.Running = t.Settings.AutoStartNext
	t.PhaseDuration = phaseDuration(t.Phase, t.Settings)
	return *t
}

// UpdateSettings replaces the cycle settings. Non-positive values fall back
// to the defaults for that field.
func (s *TimerService) UpdateSettings(userID string, settings models.TimerSettings) models.TimerState {
	defaults := models.DefaultTimerSettings()
	if settings.WorkDuration <= 0 {
		settings.WorkDuration = defaults.WorkDuration
	}
	if settings.BreakDuration <= 0 {
		settings.BreakDuration = defaults.BreakDuration
	}
	if settings.LongBreakDuration <= 0 {
		settings.LongBreakDuration = defaults.LongBreakDuration
	}
	if settings.SessionsUntilLongBreak <= 0 {
		settings.SessionsUntilLongBreak = defaults.SessionsUntilLongBreak
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.timerLocked(userID)
	t.Settings = settings
	t.PhaseDuration = phaseDuration(t.Phase, settings)
	return *t
}

// LogSession records a completed work phase for a signed-in user. A store
// failure is logged and swallowed: the timer keeps cycling regardless.
func (s *TimerService) LogSession(ctx context.Context, userID string, durationMinutes, focusQuality int, subject, notes string) error {
	if userID == "" {
		return apperrors.NewUnauthenticatedError("sign in to log study sessions")
	}
	if durationMinutes <= 0 {
		return apperrors.NewValidationError("session duration must be positive", nil)
	}
	if focusQuality < 1 || focusQuality > 10 {
		return apperrors.NewValidationError("focus quality must be between 1 and 10", nil)
	}

	entry := &models.StudySessionLog{
		ID:           uuid.NewString(),
		UserID:       userID,
		Duration:     durationMinutes,
		SessionType:  models.PhaseWork,
		FocusQuality: focusQuality,
		Subject:      subject,
		Notes:        notes,
		CompletedAt:  time.Now(),
	}

	if err := s.repo.LogStudySession(ctx, entry); err != nil {
		utils.GetLogger().Warn("study session log failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	return nil
}

func (s *TimerService) timerLocked(userID string) *models.TimerState {
	t, ok := s.timers[userID]
	if !ok {
		settings := models.DefaultTimerSettings()
		t = &models.TimerState{
			Phase:         models.PhaseWork,
			Settings:      settings,
			PhaseDuration: phaseDuration(models.PhaseWork, settings),
		}
		s.timers[userID] = t
	}
	return t
}

func phaseDuration(phase string, settings models.TimerSettings) time.Duration {
	switch phase {
	case models.PhaseBreak:
		return time.Duration(settings.BreakDuration) * time.Minute
	case models.PhaseLongBreak:
		return time.Duration(settings.LongBreakDuration) * time.Minute
	default:
		return time.Duration(settings.WorkDuration) * time.Minute
	}
}
