// internal/services/session_service_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/llm"
	"github.com/claritutor/claritutor/internal/models"
)

// gatedProvider blocks every completion until release is closed, so tests
// can interleave session operations with an in-flight generation. started is
// buffered: the derivation calls on a first message signal it too.
type gatedProvider struct {
	started chan struct{}
	release chan struct{}
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (p *gatedProvider) Initialize(config map[string]string) error { return nil }
func (p *gatedProvider) GetName() string                           { return "fake" }
func (p *gatedProvider) GetSupportedModels() []string              { return []string{"fake-model"} }

func (p *gatedProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.started <- struct{}{}
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &llm.CompletionResponse{Text: "late reply", ModelName: req.Model, ProviderName: "fake"}, nil
}

func (p *gatedProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	ch := make(chan llm.StreamResponse)
	go func() {
		defer close(ch)
		p.started <- struct{}{}
		select {
		case <-p.release:
		case <-ctx.Done():
			return
		}
		ch <- llm.StreamResponse{Text: "late reply", Done: true, FinishReason: "stop"}
	}()
	return ch, nil
}

// memRepo is an in-memory store.Repository for tests.
type memRepo struct {
	mu            sync.Mutex
	profiles      map[string]models.UserProfile
	conversations map[string]models.Conversation // keyed userID+"/"+convID
	sessions      []models.StudySessionLog
	achievements  []models.Achievement

	failSaves bool
	failLogs  bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		profiles:      make(map[string]models.UserProfile),
		conversations: make(map[string]models.Conversation),
	}
}

func (r *memRepo) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := p
	return &copied, nil
}

func (r *memRepo) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = *profile
	return nil
}

func (r *memRepo) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaves {
		return errors.New("disk full")
	}
	copied := *conv
	copied.Messages = append([]models.Message(nil), conv.Messages...)
	r.conversations[conv.UserID+"/"+conv.ID] = copied
	return nil
}

func (r *memRepo) GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[userID+"/"+conversationID]
	if !ok {
		return nil, nil
	}
	copied := conv
	copied.Messages = append([]models.Message(nil), conv.Messages...)
	return &copied, nil
}

func (r *memRepo) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Conversation
	for _, conv := range r.conversations {
		if conv.UserID == userID {
			summary := conv
			summary.Messages = nil
			out = append(out, summary)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conversations, userID+"/"+conversationID)
	return nil
}

func (r *memRepo) LogStudySession(ctx context.Context, log *models.StudySessionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLogs {
		return errors.New("disk full")
	}
	r.sessions = append(r.sessions, *log)
	return nil
}

func (r *memRepo) ListStudySessions(ctx context.Context, userID string, limit int) ([]models.StudySessionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.StudySessionLog
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) GrantAchievement(ctx context.Context, a *models.Achievement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.achievements = append(r.achievements, *a)
	return nil
}

func (r *memRepo) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Achievement
	for _, a := range r.achievements {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) Ping(ctx context.Context) error { return nil }
func (r *memRepo) Close() error                   { return nil }

func (r *memRepo) loggedSessions() []models.StudySessionLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StudySessionLog(nil), r.sessions...)
}

func newTestSessionService(p *fakeProvider, repo *memRepo) *SessionService {
	return NewSessionService(newTestLLMService(p), NewPersonaService(), repo)
}

func TestCreateSession(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "hi"}, newMemRepo())

	snap, err := svc.CreateSession("math")
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "math", snap.Persona.ID)
	assert.Equal(t, "New Conversation", snap.Conversation.Title)
	assert.Empty(t, snap.Conversation.Messages)
}

func TestCreateSessionUnknownPersona(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{}, newMemRepo())

	_, err := svc.CreateSession("alchemy")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestSubmitProducesAssistantTurn(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "4"}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	snap, err := svc.Submit(context.Background(), created.ID, "What is 2+2?")
	require.NoError(t, err)

	assert.Equal(t, StateSettled, snap.State)
	require.Len(t, snap.Conversation.Messages, 2)
	assert.Equal(t, models.RoleUser, snap.Conversation.Messages[0].Role)
	assert.Equal(t, "What is 2+2?", snap.Conversation.Messages[0].Content)
	assert.Equal(t, models.RoleAssistant, snap.Conversation.Messages[1].Role)
	assert.Equal(t, "4", snap.Conversation.Messages[1].Content)
	assert.False(t, snap.Confused)
}

func TestSubmitDetectsConfusion(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "Sure, here it is."}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), created.ID, "What is a derivative?")
	require.NoError(t, err)

	snap, err := svc.Submit(context.Background(), created.ID, "I'm confused, can you explain again please?")
	require.NoError(t, err)
	assert.True(t, snap.Confused)

	actions, err := svc.QuickActions(created.ID)
	require.NoError(t, err)
	assert.True(t, actions.Suggested)
	require.Len(t, actions.Actions, 4)
	assert.Equal(t, "Explain differently", actions.Actions[0].Label)
	assert.Equal(t, "Can you explain that in a different way?", actions.Actions[0].Text)
}

func TestSubmitEmptyText(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "x"}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), created.ID, "   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestSubmitUnknownSession(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "x"}, newMemRepo())

	_, err := svc.Submit(context.Background(), "missing", "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestSubmitGenerationFailureKeepsUserTurn(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{err: errors.New("provider down")}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), created.ID, "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsGenerationError(err))

	snap, err := svc.GetSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, snap.State)
	require.Len(t, snap.Conversation.Messages, 1)
	assert.Equal(t, models.RoleUser, snap.Conversation.Messages[0].Role)
}

func TestSubmitStreamCollectsDeltas(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{chunks: []string{"The answer ", "is ", "4."}}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	var deltas []string
	snap, err := svc.SubmitStream(context.Background(), created.ID, "What is 2+2?", func(delta string) {
		deltas = append(deltas, delta)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"The answer ", "is ", "4."}, deltas)
	assert.Equal(t, StateSettled, snap.State)
	require.Len(t, snap.Conversation.Messages, 2)
	assert.Equal(t, "The answer is 4.", snap.Conversation.Messages[1].Content)
}

func TestReset(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "4"}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), created.ID, "What is 2+2?")
	require.NoError(t, err)

	snap, err := svc.Reset(created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Conversation.Messages)
	assert.Equal(t, "New Conversation", snap.Conversation.Title)
	assert.False(t, snap.Confused)
	assert.NotEqual(t, created.Conversation.ID, snap.Conversation.ID)
	assert.Equal(t, "math", snap.Persona.ID)
}

func TestSaveRequiresSignIn(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "4"}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), created.ID, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticatedError(err))
}

func TestSaveEmptyConversation(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "4"}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), created.ID, "user-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	repo := newMemRepo()
	svc := newTestSessionService(&fakeProvider{reply: "A summary of sorts"}, repo)

	created, err := svc.CreateSession("science")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), created.ID, "Explain osmosis")
	require.NoError(t, err)

	saved, err := svc.Save(context.Background(), created.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", saved.UserID)
	assert.NotEmpty(t, saved.Summary)
	require.Len(t, saved.Messages, 2)

	// Load into a second session.
	other, err := svc.CreateSession("math")
	require.NoError(t, err)

	snap, err := svc.Load(context.Background(), other.ID, "user-1", saved.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, saved.ID, snap.Conversation.ID)
	assert.Equal(t, "science", snap.Persona.ID)
	require.Len(t, snap.Conversation.Messages, 2)
}

func TestSaveStoreFailure(t *testing.T) {
	repo := newMemRepo()
	repo.failSaves = true
	svc := newTestSessionService(&fakeProvider{reply: "4"}, repo)

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), created.ID, "hello")
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), created.ID, "user-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistenceError(err))
}

func TestLoadMissingConversation(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "4"}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Load(context.Background(), created.ID, "user-1", "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestListAndDeleteSaved(t *testing.T) {
	repo := newMemRepo()
	svc := newTestSessionService(&fakeProvider{reply: "4"}, repo)

	_, err := svc.ListSaved(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticatedError(err))

	created, err := svc.CreateSession("math")
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), created.ID, "hello")
	require.NoError(t, err)
	saved, err := svc.Save(context.Background(), created.ID, "user-1")
	require.NoError(t, err)

	convs, err := svc.ListSaved(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, saved.ID, convs[0].ID)

	require.NoError(t, svc.DeleteSaved(context.Background(), "user-1", saved.ID))
	convs, err = svc.ListSaved(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestCloseSession(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "4"}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	svc.CloseSession(created.ID)

	_, err = svc.GetSession(created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestResetDuringGenerationDiscardsLateReply(t *testing.T) {
	provider := newGatedProvider()
	svc := NewSessionService(newTestLLMService(provider), NewPersonaService(), newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), created.ID, "What is 2+2?")
		errCh <- err
	}()

	<-provider.started

	_, err = svc.Reset(created.ID)
	require.NoError(t, err)
	close(provider.release)

	submitErr := <-errCh
	require.Error(t, submitErr)
	assert.True(t, apperrors.IsConflictError(submitErr))

	// The reply generated for the pre-reset turn must not reach the
	// fresh conversation.
	snap, err := svc.GetSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Conversation.Messages)
}

func TestCancelMidStreamDiscardsPartialReply(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{chunks: []string{"The answer ", "is ", "4."}}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	var once sync.Once
	snap, err := svc.SubmitStream(context.Background(), created.ID, "What is 2+2?", func(delta string) {
		once.Do(func() {
			require.NoError(t, svc.Cancel(created.ID))
		})
	})
	require.NoError(t, err)

	// The turn settles with the user message kept and the partial
	// assistant text dropped.
	assert.Equal(t, StateSettled, snap.State)
	require.Len(t, snap.Conversation.Messages, 1)
	assert.Equal(t, models.RoleUser, snap.Conversation.Messages[0].Role)
}

func TestCancelIgnoredOutsideStreaming(t *testing.T) {
	provider := newGatedProvider()
	svc := NewSessionService(newTestLLMService(provider), NewPersonaService(), newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	// Idle session: nothing to cancel.
	require.NoError(t, svc.Cancel(created.ID))

	snapCh := make(chan *SessionSnapshot, 1)
	errCh := make(chan error, 1)
	go func() {
		snap, err := svc.Submit(context.Background(), created.ID, "What is 2+2?")
		snapCh <- snap
		errCh <- err
	}()

	<-provider.started
	require.NoError(t, svc.Cancel(created.ID))
	close(provider.release)

	require.NoError(t, <-errCh)
	snap := <-snapCh
	require.Len(t, snap.Conversation.Messages, 2)
	assert.Equal(t, "late reply", snap.Conversation.Messages[1].Content)
}

func TestCancelUnknownSession(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "4"}, newMemRepo())

	err := svc.Cancel("missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestFirstMessageDerivesTitleAndTags(t *testing.T) {
	svc := newTestSessionService(&fakeProvider{reply: "Algebra Help"}, newMemRepo())

	created, err := svc.CreateSession("math")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), created.ID, "Help me with algebra")
	require.NoError(t, err)

	// Title/tags derivation runs in the background.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := svc.GetSession(created.ID)
		require.NoError(t, err)
		if snap.Conversation.Title != "New Conversation" {
			assert.Equal(t, "Algebra Help", snap.Conversation.Title)
			assert.NotEmpty(t, snap.Conversation.Tags)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("first-message analysis never applied")
}
