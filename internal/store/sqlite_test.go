// internal/store/sqlite_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claritutor/claritutor/internal/models"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestProfileRoundtrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	missing, err := repo.GetProfile(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := &models.UserProfile{
		UserID:          "u1",
		FullName:        "Ada Lovelace",
		Email:           "ada@example.com",
		EducationLevel:  "university",
		PrimarySubjects: []string{"Math", "CS"},
		LearningStyle:   "visual",
		StudyGoals:      "pass finals",
		TotalStudyHours: 12.5,
		AccountType:     "free",
	}
	require.NoError(t, repo.UpsertProfile(ctx, profile))

	got, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada Lovelace", got.FullName)
	assert.Equal(t, []string{"Math", "CS"}, got.PrimarySubjects)
	assert.Equal(t, 12.5, got.TotalStudyHours)
	assert.Equal(t, "free", got.AccountType)

	// Upsert replaces the row in place.
	profile.FullName = "Ada King"
	profile.PrimarySubjects = nil
	require.NoError(t, repo.UpsertProfile(ctx, profile))

	got, err = repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada King", got.FullName)
	assert.Empty(t, got.PrimarySubjects)
}

func testConversation(id, userID string, messages ...string) *models.Conversation {
	now := time.Now()
	conv := &models.Conversation{
		ID:        id,
		UserID:    userID,
		Title:     "Algebra Basics",
		Subject:   "Mathematics",
		PersonaID: "math",
		Tags:      []string{"Algebra", "Equations"},
		Summary:   "Covered linear equations.",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, content := range messages {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		conv.Messages = append(conv.Messages, models.Message{
			ID:        id + "-m" + string(rune('a'+i)),
			Role:      role,
			Content:   content,
			Timestamp: now,
		})
	}
	return conv
}

func TestConversationRoundtrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	missing, err := repo.GetConversation(ctx, "u1", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	conv := testConversation("c1", "u1", "What is x?", "x is the unknown.")
	require.NoError(t, repo.SaveConversation(ctx, conv))

	got, err := repo.GetConversation(ctx, "u1", "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Algebra Basics", got.Title)
	assert.Equal(t, []string{"Algebra", "Equations"}, got.Tags)
	assert.Equal(t, "Covered linear equations.", got.Summary)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, models.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "What is x?", got.Messages[0].Content)
	assert.Equal(t, models.RoleAssistant, got.Messages[1].Role)

	// A conversation is scoped to its owner.
	other, err := repo.GetConversation(ctx, "u2", "c1")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestSaveConversationLastWriteWins(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveConversation(ctx, testConversation("c1", "u1", "one", "two")))

	resaved := testConversation("c1", "u1", "one", "two", "three", "four")
	resaved.Title = "Updated Title"
	require.NoError(t, repo.SaveConversation(ctx, resaved))

	got, err := repo.GetConversation(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", got.Title)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "three", got.Messages[2].Content)
}

func TestListConversations(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	first := testConversation("c1", "u1", "hello", "hi")
	first.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.SaveConversation(ctx, first))

	second := testConversation("c2", "u1", "hey", "yo")
	require.NoError(t, repo.SaveConversation(ctx, second))

	require.NoError(t, repo.SaveConversation(ctx, testConversation("c3", "someone-else", "x", "y")))

	convs, err := repo.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "c2", convs[0].ID, "newest first")
	assert.Equal(t, "c1", convs[1].ID)
	assert.Empty(t, convs[0].Messages, "listing omits message bodies")
}

func TestDeleteConversation(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveConversation(ctx, testConversation("c1", "u1", "hello", "hi")))
	require.NoError(t, repo.DeleteConversation(ctx, "u1", "c1"))

	got, err := repo.GetConversation(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStudySessionLog(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.LogStudySession(ctx, &models.StudySessionLog{
			ID:           "s" + string(rune('1'+i)),
			UserID:       "u1",
			Duration:     25,
			SessionType:  models.PhaseWork,
			FocusQuality: 7 + i,
			Subject:      "Math",
			CompletedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	logs, err := repo.ListStudySessions(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "s3", logs[0].ID, "newest first")
	assert.Equal(t, 9, logs[0].FocusQuality)
	assert.Equal(t, "Math", logs[0].Subject)

	limited, err := repo.ListStudySessions(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := repo.ListStudySessions(ctx, "stranger", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAchievements(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, repo.GrantAchievement(ctx, &models.Achievement{
		ID:        "a1",
		UserID:    "u1",
		BadgeType: "study_streak",
		BadgeTier: models.TierSilver,
		EarnedAt:  time.Now(),
	}))

	earned, err := repo.ListAchievements(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "study_streak", earned[0].BadgeType)
	assert.Equal(t, models.TierSilver, earned[0].BadgeTier)
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
