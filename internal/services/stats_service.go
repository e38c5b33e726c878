// internal/services/stats_service.go
package services

import (
	"context"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/models"
	"github.com/claritutor/claritutor/internal/store"
)

// progressHistoryLimit caps how many logged sessions feed the dashboard
// aggregation.
const progressHistoryLimit = 500

// StatsService aggregates persisted study activity into the progress
// dashboard report.
type StatsService struct {
	repo store.Repository
	llm  *LLMService
}

// NewStatsService wires the aggregator.
func NewStatsService(repo store.Repository, llmService *LLMService) *StatsService {
	return &StatsService{repo: repo, llm: llmService}
}

// GetProgressReport aggregates logged sessions and achievements, then asks
// the generator for study recommendations. Recommendation generation is
// fallback-safe and never fails the report.
func (s *StatsService) GetProgressReport(ctx context.Context, userID string) (*models.ProgressReport, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthenticatedError("sign in to view study progress")
	}

	sessions, err := s.repo.ListStudySessions(ctx, userID, progressHistoryLimit)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load study sessions", err)
	}

	achievements, err := s.repo.ListAchievements(ctx, userID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load achievements", err)
	}

	report := &models.ProgressReport{
		SessionsLogged: len(sessions),
		SubjectMinutes: make(map[string]int),
		Achievements:   achievements,
	}

	var focusSum int
	for _, sess := range sessions {
		report.TotalStudyMinutes += sess.Duration
		focusSum += sess.FocusQuality
		if sess.Subject != "" {
			report.SubjectMinutes[sess.Subject] += sess.Duration
		}
	}
	if len(sessions) > 0 {
		report.AverageFocus = float64(focusSum) / float64(len(sessions))
	}

	report.Recommendations = s.llm.GenerateStudyRecommendations(
		ctx,
		subjectList(report.SubjectMinutes),
		report.AverageFocus*10, // focus 1-10 scaled to a percentage
		subjectScores(sessions),
	)

	return report, nil
}

func subjectList(subjectMinutes map[string]int) []string {
	if len(subjectMinutes) == 0 {
		return []string{"General"}
	}
	subjects := make([]string, 0, len(subjectMinutes))
	for subject := range subjectMinutes {
		subjects = append(subjects, subject)
	}
	return subjects
}

// subjectScores averages self-reported focus per subject as a percentage.
func subjectScores(sessions []models.StudySessionLog) []models.SubjectScore {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, sess := range sessions {
		if sess.Subject == "" {
			continue
		}
		sums[sess.Subject] += sess.FocusQuality
		counts[sess.Subject]++
	}

	scores := make([]models.SubjectScore, 0, len(sums))
	for subject, sum := range sums {
		scores = append(scores, models.SubjectScore{
			Subject: subject,
			Score:   float64(sum) / float64(counts[subject]) * 10,
		})
	}
	return scores
}
