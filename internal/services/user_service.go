// internal/services/user_service.go
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/models"
	"github.com/claritutor/claritutor/internal/store"
)

// UserService manages locally persisted profiles and preferences.
type UserService struct {
	repo store.Repository
}

// NewUserService wires the profile manager.
func NewUserService(repo store.Repository) *UserService {
	return &UserService{repo: repo}
}

// GetProfile fetches a user's profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required", nil)
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load profile", err)
	}
	if profile == nil {
		return nil, apperrors.NewNotFoundError("profile not found for user: "+userID, nil)
	}
	return profile, nil
}

// SaveProfile creates or updates a profile.
func (s *UserService) SaveProfile(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	if profile == nil || strings.TrimSpace(profile.UserID) == "" {
		return nil, apperrors.NewValidationError("user id is required", nil)
	}
	if strings.TrimSpace(profile.FullName) == "" {
		return nil, apperrors.NewValidationError("full name is required", nil)
	}

	now := time.Now()
	existing, err := s.repo.GetProfile(ctx, profile.UserID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load profile", err)
	}

	if existing == nil {
		profile.ID = uuid.NewString()
		profile.CreatedAt = now
		if profile.AccountType == "" {
			profile.AccountType = "free"
		}
	} else {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		if profile.AccountType == "" {
			profile.AccountType = existing.AccountType
		}
	}
	profile.UpdatedAt = now

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, apperrors.NewPersistenceError("failed to save profile", err)
	}
	return profile, nil
}

// UpdatePreferences updates only the learning-preference fields, leaving the
// rest of the profile untouched.
func (s *UserService) UpdatePreferences(ctx context.Context, userID, learningStyle, studyGoals string, primarySubjects []string) (*models.UserProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if learningStyle != "" {
		profile.LearningStyle = learningStyle
	}
	if studyGoals != "" {
		profile.StudyGoals = studyGoals
	}
	if len(primarySubjects) > 0 {
		profile.PrimarySubjects = primarySubjects
	}
	profile.UpdatedAt = time.Now()

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, apperrors.NewPersistenceError("failed to save preferences", err)
	}
	return profile, nil
}
