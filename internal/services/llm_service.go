// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/claritutor/claritutor/internal/config"
	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/llm"
	"github.com/claritutor/claritutor/internal/models"
	"github.com/claritutor/claritutor/internal/utils"
)

// Input caps before text is forwarded to the auxiliary models.
const (
	titleInputLimit   = 500
	tagInputLimit     = 1000
	summaryInputLimit = 3000
)

// openaiAuxModel serves the cheap derivation calls (titles, tags,
// complexity, summaries) when OpenAI is the active provider. Other providers
// reject foreign model names, so they use their configured default instead.
const openaiAuxModel = "gpt-3.5-turbo"

// LLMService is the single gateway to the language model providers. It owns
// provider lifecycle, ready state and a short-lived cache for the auxiliary
// analyses that are deterministic for the same input.
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	cache              *llmCache
	isReady            bool
	readyState         string
	activeDefaultModel string
}

type llmCache struct {
	cache      map[string]*cacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type cacheEntry struct {
	response  string
	createdAt time.Time
}

// NewLLMService builds the service from the current configuration. A missing
// or invalid provider yields a not-ready service, never an error: the app
// still serves content and timer features without a working generator.
func NewLLMService() (*LLMService, error) {
	service := createBaseLLMService()

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service, nil
	}

	if cfg.LLMProvider == "" || (cfg.LLMConfig != nil && cfg.LLMConfig["api_key"] == "") {
		service.readyState = "API key not configured"
		return service, nil
	}

	provider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return service, nil
	}

	service.provider = provider
	service.providerName = cfg.LLMProvider
	service.activeDefaultModel = extractDefaultModel(cfg.LLMConfig)
	service.isReady = true
	service.readyState = "Ready"

	return service, nil
}

// NewEmptyLLMService creates a standby service used when no provider is
// configured at startup.
func NewEmptyLLMService() *LLMService {
	service := createBaseLLMService()
	service.providerName = "empty"
	service.readyState = "Standby mode - configure an API key in settings"
	return service
}

func createBaseLLMService() *LLMService {
	return &LLMService{
		readyState: "Uninitialized",
		cache: &llmCache{
			cache:      make(map[string]*cacheEntry),
			expiration: 30 * time.Minute,
		},
	}
}

func extractDefaultModel(cfg map[string]string) string {
	if cfg == nil {
		return ""
	}
	return cfg["default_model"]
}

// IsReady reports whether the service can serve completions.
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider != nil && s.isReady {
		return true
	}

	cfg := config.GetCurrentConfig()
	if cfg == nil || cfg.LLMProvider == "" {
		return false
	}
	if cfg.LLMConfig == nil || cfg.LLMConfig["api_key"] == "" {
		return false
	}

	return true
}

// GetReadyState returns a human-readable status description.
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return "Cannot get configuration"
	}
	if cfg.LLMProvider == "" {
		return "LLM provider not configured"
	}
	if cfg.LLMConfig == nil || cfg.LLMConfig["api_key"] == "" {
		return "API key not configured"
	}
	if s.provider != nil && s.isReady {
		return "Ready"
	}
	return "Waiting for initialization"
}

// GetProviderStatus returns readiness plus a readable description.
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM service not initialized"
	}
	if s.IsReady() {
		return true, "Ready"
	}
	return false, s.GetReadyState()
}

// GetProviderName returns the active provider name.
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider swaps the active provider at runtime and drops the cache.
func (s *LLMService) UpdateProvider(providerName string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = extractDefaultModel(providerConfig)
	s.isReady = true
	s.readyState = "Ready"

	s.cache = &llmCache{
		cache:      make(map[string]*cacheEntry),
		expiration: 30 * time.Minute,
	}

	return nil
}

func (s *LLMService) currentProvider() (llm.Provider, error) {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider == nil || !s.isReady {
		return nil, apperrors.NewGenerationError("tutor is not available: "+s.readyState, nil)
	}
	return s.provider, nil
}

func (s *LLMService) defaultModel() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.activeDefaultModel
}

// auxModel picks the model for the derivation calls: the cheap OpenAI model
// when that provider is active, otherwise the configured default.
func (s *LLMService) auxModel() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	if s.providerName == "openai" {
		return openaiAuxModel
	}
	return s.activeDefaultModel
}

// GenerateTutorResponse produces one full assistant turn for the given
// persona and history. An empty completion is treated as a failure so the
// caller can surface a retry notice instead of a blank bubble.
func (s *LLMService) GenerateTutorResponse(ctx context.Context, persona *models.TutorPersona, messages []models.Message, convCtx *models.ConversationContext) (string, error) {
	provider, err := s.currentProvider()
	if err != nil {
		return "", err
	}

	req := llm.CompletionRequest{
		Messages:     toChatMessages(messages),
		SystemPrompt: buildTutorSystemPrompt(persona, convCtx),
		Model:        s.defaultModel(),
		Temperature:  0.7,
		MaxTokens:    1500,
	}

	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return "", apperrors.NewGenerationError("failed to generate tutor response", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", apperrors.NewGenerationError("tutor returned an empty response", nil)
	}

	return resp.Text, nil
}

// StreamTutorResponse is the streaming variant of GenerateTutorResponse. The
// returned channel is closed when the stream ends; the Done entry carries the
// accumulated text.
func (s *LLMService) StreamTutorResponse(ctx context.Context, persona *models.TutorPersona, messages []models.Message, convCtx *models.ConversationContext) (<-chan llm.StreamResponse, error) {
	provider, err := s.currentProvider()
	if err != nil {
		return nil, err
	}

	req := llm.CompletionRequest{
		Messages:     toChatMessages(messages),
		SystemPrompt: buildTutorSystemPrompt(persona, convCtx),
		Model:        s.defaultModel(),
		Temperature:  0.7,
		MaxTokens:    1500,
		Stream:       true,
	}

	stream, err := provider.StreamCompletion(ctx, req)
	if err != nil {
		return nil, apperrors.NewGenerationError("failed to start tutor response stream", err)
	}
	return stream, nil
}

// buildTutorSystemPrompt assembles the persona directive: base prompt, style
// and specialization lines, optional student signals, then the fixed
// tutoring guidelines.
func buildTutorSystemPrompt(persona *models.TutorPersona, convCtx *models.ConversationContext) string {
	var b strings.Builder
	b.WriteString(persona.SystemPrompt)
	b.WriteString("\n\nTeaching Style: ")
	b.WriteString(persona.TeachingStyle)
	b.WriteString("\nSpecialization: ")
	b.WriteString(persona.Specialization)

	if convCtx != nil {
		if convCtx.StudentLevel != "" {
			b.WriteString("\n\nStudent Level: ")
			b.WriteString(convCtx.StudentLevel)
		}
		if len(convCtx.LearningPreferences) > 0 {
			b.WriteString("\nLearning Preferences: ")
			b.WriteString(strings.Join(convCtx.LearningPreferences, ", "))
		}
	}

	b.WriteString("\n\nGuidelines:\n")
	b.WriteString("1. Adjust complexity based on student responses\n")
	b.WriteString("2. Provide multiple explanation formats when concepts are difficult\n")
	b.WriteString("3. Use examples relevant to the student's level\n")
	b.WriteString("4. Encourage questions and critical thinking\n")
	b.WriteString("5. Offer practice problems when appropriate")

	return b.String()
}

func toChatMessages(messages []models.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// auxComplete runs one short derivation call and returns the trimmed text.
// Results are cached per (task, input, model) for the cache TTL.
func (s *LLMService) auxComplete(ctx context.Context, task, systemPrompt, userContent, model string, temperature float32, maxTokens int) (string, error) {
	cacheKey := s.generateCacheKey(task, systemPrompt, userContent, model)
	if cached, ok := s.cache.get(cacheKey); ok {
		return cached, nil
	}

	provider, err := s.currentProvider()
	if err != nil {
		return "", err
	}

	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Messages:     []llm.ChatMessage{{Role: models.RoleUser, Content: userContent}},
		SystemPrompt: systemPrompt,
		Model:        model,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text)
	if text != "" {
		s.cache.put(cacheKey, text)
	}
	return text, nil
}

// GenerateTitle derives a short conversation title from the opening message.
// Never fails: any error or empty result falls back to "Study Session".
func (s *LLMService) GenerateTitle(ctx context.Context, content string) string {
	text, err := s.auxComplete(ctx, "title",
		"Generate a short, descriptive title (max 50 characters) for this conversation. Return only the title, no quotes or punctuation.",
		truncate(content, titleInputLimit), s.auxModel(), 0.5, 20)
	if err != nil || text == "" {
		if err != nil {
			utils.GetLogger().Warn("title generation failed", map[string]interface{}{"error": err.Error()})
		}
		return "Study Session"
	}
	return text
}

// CategorizeContent derives up to three subject tags. Falls back to
// ["General"] on any failure.
func (s *LLMService) CategorizeContent(ctx context.Context, content string) []string {
	text, err := s.auxComplete(ctx, "tags",
		"Categorize this educational content. Return up to 3 subject tags as a comma-separated list. Use these categories: Mathematics, Science, Literature, History, Languages, Computer Science, Arts, Biology, Chemistry, Physics, Geography, Economics, Psychology, Philosophy, Business",
		truncate(content, tagInputLimit), s.auxModel(), 0.3, 30)
	if err != nil {
		utils.GetLogger().Warn("content categorization failed", map[string]interface{}{"error": err.Error()})
		return []string{"General"}
	}

	var tags []string
	for _, tag := range strings.Split(text, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return []string{"General"}
	}
	if len(tags) > 3 {
		tags = tags[:3]
	}
	return tags
}

// AnalyzeComplexity classifies content as beginner, intermediate or advanced.
// Anything unrecognized resolves to intermediate.
func (s *LLMService) AnalyzeComplexity(ctx context.Context, content string) string {
	text, err := s.auxComplete(ctx, "complexity",
		"Analyze the complexity level of this educational content. Return only one word: beginner, intermediate, or advanced.",
		truncate(content, tagInputLimit), s.auxModel(), 0.3, 10)
	if err != nil {
		utils.GetLogger().Warn("complexity analysis failed", map[string]interface{}{"error": err.Error()})
		return models.LevelIntermediate
	}

	switch strings.ToLower(strings.TrimSpace(text)) {
	case models.LevelBeginner:
		return models.LevelBeginner
	case models.LevelAdvanced:
		return models.LevelAdvanced
	case models.LevelIntermediate:
		return models.LevelIntermediate
	default:
		return models.LevelIntermediate
	}
}

// GenerateStudyRecommendations returns up to three actionable study tips.
// Falls back to a fixed set on any failure.
func (s *LLMService) GenerateStudyRecommendations(ctx context.Context, topics []string, performance float64, history []models.SubjectScore) []string {
	fallback := []string{
		"Review fundamental concepts in weak areas",
		"Practice with progressively harder examples",
		"Create summary notes for quick revision",
	}

	var historyContext string
	if len(history) > 0 {
		parts := make([]string, 0, len(history))
		for _, h := range history {
			parts = append(parts, fmt.Sprintf("%s: %.0f%%", h.Subject, h.Score))
		}
		historyContext = "\nRecent performance: " + strings.Join(parts, ", ")
	}

	text, err := s.auxComplete(ctx, "recommendations",
		"Generate 3 specific, actionable study recommendations based on topics and performance. Keep each recommendation under 100 characters. Focus on concrete actions the student can take.",
		fmt.Sprintf("Topics: %s\nPerformance: %.0f%%%s", strings.Join(topics, ", "), performance, historyContext),
		s.auxModel(), 0.6, 150)
	if err != nil {
		utils.GetLogger().Warn("recommendation generation failed", map[string]interface{}{"error": err.Error()})
		return fallback
	}

	recommendations := splitNonEmptyLines(text)
	if len(recommendations) == 0 {
		return fallback
	}
	if len(recommendations) > 3 {
		recommendations = recommendations[:3]
	}
	return recommendations
}

// GeneratePracticeProblems produces count practice problems with brief
// answers. Falls back to a single placeholder problem on failure.
func (s *LLMService) GeneratePracticeProblems(ctx context.Context, subject, topic, difficulty string, count int) []string {
	if count <= 0 {
		count = 3
	}

	text, err := s.auxComplete(ctx, "practice",
		fmt.Sprintf("Generate %d practice problems for %s on the topic of %s. Difficulty level: %s. Return each problem on a new line. Include brief answers in parentheses at the end of each problem.", count, subject, topic, difficulty),
		fmt.Sprintf("Create practice problems for %s", topic),
		s.defaultModel(), 0.8, 500)
	if err != nil {
		utils.GetLogger().Warn("practice problem generation failed", map[string]interface{}{"error": err.Error()})
		return []string{fmt.Sprintf("Practice problem: Study %s concepts", topic)}
	}

	problems := splitNonEmptyLines(text)
	if len(problems) == 0 {
		return []string{fmt.Sprintf("Practice problem: Study %s concepts", topic)}
	}
	if len(problems) > count {
		problems = problems[:count]
	}
	return problems
}

// SummarizeConversation produces a 2-3 sentence recap of a session. Returns
// "Study session completed" on failure and "Study session summary" when the
// model yields nothing.
func (s *LLMService) SummarizeConversation(ctx context.Context, messages []models.Message) string {
	var lines []string
	for _, m := range messages {
		speaker := "Tutor"
		if m.Role == models.RoleUser {
			speaker = "Student"
		}
		lines = append(lines, speaker+": "+m.Content)
	}
	conversationText := truncate(strings.Join(lines, "\n"), summaryInputLimit)

	text, err := s.auxComplete(ctx, "summary",
		"Summarize this tutoring conversation in 2-3 sentences, highlighting key topics discussed and main learning points.",
		conversationText, s.auxModel(), 0.5, 150)
	if err != nil {
		utils.GetLogger().Warn("conversation summarization failed", map[string]interface{}{"error": err.Error()})
		return "Study session completed"
	}
	if text == "" {
		return "Study session summary"
	}
	return text
}

func (s *LLMService) generateCacheKey(task, systemPrompt, userContent, model string) string {
	s.providerMutex.RLock()
	providerName := s.providerName
	s.providerMutex.RUnlock()

	hashInput := fmt.Sprintf("%s:::%s:::%s:::%s:::%s",
		task, systemPrompt, userContent, model, providerName)
	h := md5.New()
	h.Write([]byte(hashInput))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *llmCache) get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists {
		return "", false
	}
	if time.Since(entry.createdAt) > c.expiration {
		return "", false
	}
	return entry.response, true
}

func (c *llmCache) put(key, response string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &cacheEntry{
		response:  response,
		createdAt: time.Now(),
	}

	if len(c.cache) > 1000 {
		c.cleanupOldest(100)
	}
}

func (c *llmCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.createdAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	if count > len(entries) {
		count = len(entries)
	}
	for i := 0; i < count; i++ {
		delete(c.cache, entries[i].key)
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
