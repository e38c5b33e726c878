// internal/services/llm_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/llm"
	"github.com/claritutor/claritutor/internal/models"
)

// fakeProvider is a scripted in-memory provider for tests.
type fakeProvider struct {
	reply  string
	err    error
	chunks []string
	calls  int32

	mu       sync.Mutex
	gotModel string
}

func (p *fakeProvider) lastModel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gotModel
}

func (p *fakeProvider) Initialize(config map[string]string) error { return nil }
func (p *fakeProvider) GetName() string                           { return "fake" }
func (p *fakeProvider) GetSupportedModels() []string              { return []string{"fake-model"} }

func (p *fakeProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.gotModel = req.Model
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.reply, ModelName: req.Model, ProviderName: "fake"}, nil
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}

	ch := make(chan llm.StreamResponse)
	go func() {
		defer close(ch)
		var full strings.Builder
		for _, chunk := range p.chunks {
			full.WriteString(chunk)
			select {
			case ch <- llm.StreamResponse{Text: chunk}:
			case <-ctx.Done():
				return
			}
		}
		ch <- llm.StreamResponse{Text: full.String(), Done: true, FinishReason: "stop"}
	}()
	return ch, nil
}

func newTestLLMService(p llm.Provider) *LLMService {
	s := createBaseLLMService()
	s.provider = p
	s.providerName = "fake"
	s.isReady = true
	s.readyState = "Ready"
	return s
}

func mathPersona(t *testing.T) *models.TutorPersona {
	t.Helper()
	persona, ok := NewPersonaService().FindPersona("math")
	require.True(t, ok)
	return persona
}

func TestGenerateTutorResponse(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{reply: "4"})

	reply, err := svc.GenerateTutorResponse(context.Background(), mathPersona(t), []models.Message{
		{Role: models.RoleUser, Content: "What is 2+2?"},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "4", reply)
}

func TestGenerateTutorResponseEmptyReplyIsFailure(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{reply: "   "})

	_, err := svc.GenerateTutorResponse(context.Background(), mathPersona(t), []models.Message{
		{Role: models.RoleUser, Content: "hello"},
	}, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsGenerationError(err))
}

func TestGenerateTutorResponseWithoutProvider(t *testing.T) {
	svc := createBaseLLMService()

	_, err := svc.GenerateTutorResponse(context.Background(), mathPersona(t), []models.Message{
		{Role: models.RoleUser, Content: "hello"},
	}, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsGenerationError(err))
}

func TestBuildTutorSystemPrompt(t *testing.T) {
	persona := mathPersona(t)

	prompt := buildTutorSystemPrompt(persona, &models.ConversationContext{
		StudentLevel:        models.LevelBeginner,
		LearningPreferences: []string{"visual", "examples"},
	})

	assert.Contains(t, prompt, persona.SystemPrompt)
	assert.Contains(t, prompt, "Teaching Style: "+persona.TeachingStyle)
	assert.Contains(t, prompt, "Specialization: "+persona.Specialization)
	assert.Contains(t, prompt, "Student Level: beginner")
	assert.Contains(t, prompt, "Learning Preferences: visual, examples")
	assert.Contains(t, prompt, "Guidelines:")
	assert.Contains(t, prompt, "Offer practice problems when appropriate")
}

func TestBuildTutorSystemPromptWithoutContext(t *testing.T) {
	prompt := buildTutorSystemPrompt(mathPersona(t), nil)

	assert.NotContains(t, prompt, "Student Level")
	assert.Contains(t, prompt, "Guidelines:")
}

func TestAuxAnalysesFallBackOnProviderFailure(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{err: errors.New("provider down")})
	ctx := context.Background()

	assert.Equal(t, "Study Session", svc.GenerateTitle(ctx, "What is photosynthesis?"))
	assert.Equal(t, []string{"General"}, svc.CategorizeContent(ctx, "What is photosynthesis?"))
	assert.Equal(t, models.LevelIntermediate, svc.AnalyzeComplexity(ctx, "What is photosynthesis?"))

	recs := svc.GenerateStudyRecommendations(ctx, []string{"Biology"}, 70, nil)
	assert.Equal(t, []string{
		"Review fundamental concepts in weak areas",
		"Practice with progressively harder examples",
		"Create summary notes for quick revision",
	}, recs)

	problems := svc.GeneratePracticeProblems(ctx, "Biology", "photosynthesis", "easy", 3)
	assert.Equal(t, []string{"Practice problem: Study photosynthesis concepts"}, problems)

	summary := svc.SummarizeConversation(ctx, []models.Message{
		{Role: models.RoleUser, Content: "hello"},
	})
	assert.Equal(t, "Study session completed", summary)
}

func TestSummarizeConversationEmptyReply(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{reply: ""})

	summary := svc.SummarizeConversation(context.Background(), []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi"},
	})
	assert.Equal(t, "Study session summary", summary)
}

func TestCategorizeContentParsesAndCapsTags(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{reply: "Mathematics, Physics , Chemistry, Biology"})

	tags := svc.CategorizeContent(context.Background(), "forces and equations")
	assert.Equal(t, []string{"Mathematics", "Physics", "Chemistry"}, tags)
}

func TestAnalyzeComplexityNormalizesReply(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{reply: " Advanced \n"})
	assert.Equal(t, models.LevelAdvanced, svc.AnalyzeComplexity(context.Background(), "tensor calculus"))

	svc = newTestLLMService(&fakeProvider{reply: "hard to say"})
	assert.Equal(t, models.LevelIntermediate, svc.AnalyzeComplexity(context.Background(), "tensor calculus"))
}

func TestAuxResultsAreCached(t *testing.T) {
	provider := &fakeProvider{reply: "Algebra Basics"}
	svc := newTestLLMService(provider)
	ctx := context.Background()

	first := svc.GenerateTitle(ctx, "help me with algebra")
	second := svc.GenerateTitle(ctx, "help me with algebra")

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls))
}

func TestAuxAnalysesUseActiveProviderModel(t *testing.T) {
	provider := &fakeProvider{reply: "Algebra Basics"}
	svc := newTestLLMService(provider)
	svc.activeDefaultModel = "fake-model"

	svc.GenerateTitle(context.Background(), "help me with algebra")
	assert.Equal(t, "fake-model", provider.lastModel())
}

func TestAuxModelPerProvider(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{reply: "x"})
	svc.activeDefaultModel = "gpt-4"

	svc.providerName = "openai"
	assert.Equal(t, openaiAuxModel, svc.auxModel())

	svc.providerName = "anthropic"
	svc.activeDefaultModel = "claude-3-haiku-20240307"
	assert.Equal(t, "claude-3-haiku-20240307", svc.auxModel())
}

func TestTruncateCapsAuxInput(t *testing.T) {
	long := strings.Repeat("a", 600)
	assert.Len(t, truncate(long, titleInputLimit), titleInputLimit)
	assert.Equal(t, "abc", truncate("abc", titleInputLimit))
}

func TestUpdateProviderUnknownName(t *testing.T) {
	svc := newTestLLMService(&fakeProvider{reply: "x"})

	err := svc.UpdateProvider("no-such-provider", map[string]string{"api_key": "k"})
	require.Error(t, err)
	assert.False(t, svc.isReady)
}
