// internal/services/stats_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/models"
)

func TestGetProgressReportRequiresSignIn(t *testing.T) {
	svc := NewStatsService(newMemRepo(), newTestLLMService(&fakeProvider{reply: "x"}))

	_, err := svc.GetProgressReport(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticatedError(err))
}

func TestGetProgressReportEmptyHistory(t *testing.T) {
	svc := NewStatsService(newMemRepo(), newTestLLMService(&fakeProvider{reply: "Keep a steady routine"}))

	report, err := svc.GetProgressReport(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalStudyMinutes)
	assert.Equal(t, 0, report.SessionsLogged)
	assert.Equal(t, 0.0, report.AverageFocus)
	assert.Empty(t, report.SubjectMinutes)
	assert.NotEmpty(t, report.Recommendations)
}

func TestGetProgressReportAggregates(t *testing.T) {
	repo := newMemRepo()
	timers := NewTimerService(repo)
	ctx := context.Background()

	require.NoError(t, timers.LogSession(ctx, "u1", 25, 8, "Math", ""))
	require.NoError(t, timers.LogSession(ctx, "u1", 50, 6, "Math", ""))
	require.NoError(t, timers.LogSession(ctx, "u1", 30, 10, "Biology", ""))
	require.NoError(t, timers.LogSession(ctx, "other", 90, 3, "History", ""))

	repo.achievements = append(repo.achievements, models.Achievement{
		ID:        "a1",
		UserID:    "u1",
		BadgeType: "study_streak",
		BadgeTier: models.TierBronze,
		EarnedAt:  time.Now(),
	})

	svc := NewStatsService(repo, newTestLLMService(&fakeProvider{reply: "Review algebra daily"}))

	report, err := svc.GetProgressReport(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 105, report.TotalStudyMinutes)
	assert.Equal(t, 3, report.SessionsLogged)
	assert.InDelta(t, 8.0, report.AverageFocus, 0.001)
	assert.Equal(t, map[string]int{"Math": 75, "Biology": 30}, report.SubjectMinutes)
	require.Len(t, report.Achievements, 1)
	assert.Equal(t, "study_streak", report.Achievements[0].BadgeType)
	assert.NotEmpty(t, report.Recommendations)
}

func TestGetProgressReportRecommendationsFallBack(t *testing.T) {
	repo := newMemRepo()
	require.NoError(t, NewTimerService(repo).LogSession(context.Background(), "u1", 25, 5, "Math", ""))

	svc := NewStatsService(repo, newTestLLMService(&fakeProvider{err: assert.AnError}))

	report, err := svc.GetProgressReport(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Review fundamental concepts in weak areas",
		"Practice with progressively harder examples",
		"Create summary notes for quick revision",
	}, report.Recommendations)
}

func TestSubjectScores(t *testing.T) {
	scores := subjectScores([]models.StudySessionLog{
		{Subject: "Math", FocusQuality: 6},
		{Subject: "Math", FocusQuality: 8},
		{Subject: "", FocusQuality: 10},
	})

	require.Len(t, scores, 1)
	assert.Equal(t, "Math", scores[0].Subject)
	assert.InDelta(t, 70.0, scores[0].Score, 0.001)
}
