// Package store provides persistence for user profiles, saved conversations,
// study-session logs and achievements.
package store

import (
	"context"

	"github.com/claritutor/claritutor/internal/models"
)

// Repository is the persistence interface. All read methods return
// (nil, nil) when the row does not exist; callers decide whether absence is
// a not-found page state or an error.
type Repository interface {
	// GetProfile retrieves a user profile by user ID.
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)

	// UpsertProfile creates or updates a user profile.
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error

	// SaveConversation persists a conversation and its messages.
	// Last-write-wins: a conversation saved twice keeps the newest copy.
	SaveConversation(ctx context.Context, conv *models.Conversation) error

	// GetConversation retrieves a saved conversation with its messages.
	GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error)

	// ListConversations lists a user's saved conversations, newest first,
	// without message bodies.
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)

	// DeleteConversation removes a saved conversation and its messages.
	DeleteConversation(ctx context.Context, userID, conversationID string) error

	// LogStudySession records one completed timer work phase.
	LogStudySession(ctx context.Context, log *models.StudySessionLog) error

	// ListStudySessions lists a user's logged sessions, newest first.
	ListStudySessions(ctx context.Context, userID string, limit int) ([]models.StudySessionLog, error)

	// GrantAchievement records an earned badge.
	GrantAchievement(ctx context.Context, a *models.Achievement) error

	// ListAchievements lists a user's earned badges.
	ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
