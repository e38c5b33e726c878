// internal/models/user.go
package models

import (
	"time"
)

// UserProfile is the locally persisted profile/preferences row, distinct from
// the read-only StudentProfile content object.
type UserProfile struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	EducationLevel     string    `json:"education_level,omitempty"`
	PrimarySubjects    []string  `json:"primary_subjects,omitempty"`
	LearningStyle      string    `json:"learning_style,omitempty"`
	StudyGoals         string    `json:"study_goals,omitempty"`
	TotalStudyHours    float64   `json:"total_study_hours"`
	NotesCreated       int       `json:"notes_created"`
	LearningStreakDays int       `json:"learning_streak_days"`
	AccountType        string    `json:"account_type"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Achievement badge tiers.
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// Achievement is an earned badge.
type Achievement struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BadgeType string    `json:"badge_type"`
	BadgeTier string    `json:"badge_tier"`
	EarnedAt  time.Time `json:"earned_at"`
}

// SubjectScore pairs a subject with a recent performance score, used when
// asking the generator for study recommendations.
type SubjectScore struct {
	Subject string  `json:"subject"`
	Score   float64 `json:"score"`
}

// ProgressReport aggregates persisted study activity for the dashboard.
type ProgressReport struct {
	TotalStudyMinutes int            `json:"total_study_minutes"`
	SessionsLogged    int            `json:"sessions_logged"`
	AverageFocus      float64        `json:"average_focus"`
	SubjectMinutes    map[string]int `json:"subject_minutes"`
	Achievements      []Achievement  `json:"achievements"`
	Recommendations   []string       `json:"recommendations"`
}
