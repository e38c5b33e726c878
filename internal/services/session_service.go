// internal/services/session_service.go
package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/claritutor/claritutor/internal/errors"
	"github.com/claritutor/claritutor/internal/models"
	"github.com/claritutor/claritutor/internal/store"
	"github.com/claritutor/claritutor/internal/utils"
)

// Session lifecycle states.
const (
	StateIdle      = "idle"
	StateAwaiting  = "awaiting"
	StateStreaming = "streaming"
	StateSettled   = "settled"
)

const defaultConversationTitle = "New Conversation"

// firstMessageAnalysisTimeout bounds the background title/tags/complexity
// derivation fired on the opening message.
const firstMessageAnalysisTimeout = 30 * time.Second

var quickActionCatalog = []models.QuickAction{
	{Label: "Explain differently", Text: "Can you explain that in a different way?"},
	{Label: "Give examples", Text: "Can you provide some examples?"},
	{Label: "Show code", Text: "Can you show me the code for this?"},
	{Label: "Simplify", Text: "Can you simplify this explanation?"},
}

// TutorSession is the in-memory state of one open chat. All mutation happens
// under the per-session lock held by SessionService; epoch increments on
// reset/load so in-flight generation results for the old state get discarded.
type TutorSession struct {
	ID           string
	State        string
	Persona      models.TutorPersona
	Conversation models.Conversation
	Context      models.ConversationContext
	Confused     bool

	epoch     uint64
	cancelMu  sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
}

// SessionSnapshot is the read-only view handed to transport layers.
type SessionSnapshot struct {
	ID           string                     `json:"id"`
	State        string                     `json:"state"`
	Persona      models.TutorPersona        `json:"persona"`
	Conversation models.Conversation        `json:"conversation"`
	Context      models.ConversationContext `json:"context"`
	Confused     bool                       `json:"confused"`
}

// QuickActionSet pairs the fixed action catalog with the confusion flag that
// tells the UI to highlight them.
type QuickActionSet struct {
	Actions   []models.QuickAction `json:"actions"`
	Suggested bool                 `json:"suggested"`
}

// SessionService orchestrates tutor chat sessions: turn submission, streaming,
// first-message analysis, save/load against the store.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*TutorSession

	locks    *LockManager
	llm      *LLMService
	personas *PersonaService
	repo     store.Repository
}

// NewSessionService wires the orchestrator.
func NewSessionService(llmService *LLMService, personaService *PersonaService, repo store.Repository) *SessionService {
	return &SessionService{
		sessions: make(map[string]*TutorSession),
		locks:    NewLockManager(),
		llm:      llmService,
		personas: personaService,
		repo:     repo,
	}
}

// CreateSession opens a new chat bound to a persona.
func (s *SessionService) CreateSession(personaID string) (*SessionSnapshot, error) {
	persona, ok := s.personas.FindPersona(personaID)
	if !ok {
		return nil, apperrors.NewValidationError("unknown tutor persona: "+personaID, nil)
	}

	now := time.Now()
	session := &TutorSession{
		ID:      uuid.NewString(),
		State:   StateIdle,
		Persona: *persona,
		Conversation: models.Conversation{
			ID:        uuid.NewString(),
			Title:     defaultConversationTitle,
			Subject:   persona.Subject,
			PersonaID: persona.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	snap := session.snapshot()
	return &snap, nil
}

// GetSession returns the current snapshot of a session.
func (s *SessionService) GetSession(sessionID string) (*SessionSnapshot, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	snap := session.snapshot()
	return &snap, nil
}

// CloseSession drops a session from memory. Unsaved content is gone.
func (s *SessionService) CloseSession(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		session.abortInFlight()
	}
	s.locks.ReleaseSessionLock(sessionID)
}

// QuickActions returns the fixed action catalog plus the confusion flag.
func (s *SessionService) QuickActions(sessionID string) (*QuickActionSet, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	actions := make([]models.QuickAction, len(quickActionCatalog))
	copy(actions, quickActionCatalog)
	return &QuickActionSet{Actions: actions, Suggested: session.Confused}, nil
}

// Submit appends a user turn and blocks for the full assistant reply. On
// generation failure the session settles with the user turn kept and no
// assistant message; the error surfaces to the caller as a transient notice.
func (s *SessionService) Submit(ctx context.Context, sessionID, text string) (*SessionSnapshot, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	turn, err := s.beginTurn(session, text, StateAwaiting)
	if err != nil {
		return nil, err
	}

	if turn.firstMessage {
		s.deriveFirstMessageAsync(session, turn.epoch, text)
	}

	reply, genErr := s.llm.GenerateTutorResponse(turn.ctx, &turn.persona, turn.history, &turn.convCtx)

	lock := s.locks.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	wasCancelled := session.takeCancelled()
	session.clearInFlight()

	if session.epoch != turn.epoch {
		// Reset or load won the race; this result belongs to a dead turn.
		return nil, apperrors.NewConflictError("session was reset during generation", nil)
	}

	session.State = StateSettled
	if wasCancelled {
		snap := session.snapshot()
		return &snap, nil
	}
	if genErr != nil {
		return nil, genErr
	}

	session.appendAssistant(reply)
	session.Confused = DetectConfusion(session.Conversation.Messages)

	snap := session.snapshot()
	return &snap, nil
}

// SubmitStream appends a user turn and streams the assistant reply, invoking
// onDelta for every chunk. A stream that ends early keeps whatever text
// arrived; a cancelled stream keeps nothing.
func (s *SessionService) SubmitStream(ctx context.Context, sessionID, text string, onDelta func(delta string)) (*SessionSnapshot, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	turn, err := s.beginTurn(session, text, StateStreaming)
	if err != nil {
		return nil, err
	}

	if turn.firstMessage {
		s.deriveFirstMessageAsync(session, turn.epoch, text)
	}

	stream, streamErr := s.llm.StreamTutorResponse(turn.ctx, &turn.persona, turn.history, &turn.convCtx)

	var accumulated strings.Builder
	var sawDone bool
	if streamErr == nil {
		for chunk := range stream {
			if chunk.Done {
				sawDone = true
				if chunk.Text != "" {
					accumulated.Reset()
					accumulated.WriteString(chunk.Text)
				}
				continue
			}
			if chunk.Text != "" {
				accumulated.WriteString(chunk.Text)
				if onDelta != nil {
					onDelta(chunk.Text)
				}
			}
		}
	}

	lock := s.locks.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	wasCancelled := session.takeCancelled()
	session.clearInFlight()

	if session.epoch != turn.epoch {
		return nil, apperrors.NewConflictError("session was reset during generation", nil)
	}

	session.State = StateSettled
	if streamErr != nil {
		return nil, streamErr
	}
	if wasCancelled {
		snap := session.snapshot()
		return &snap, nil
	}

	text = accumulated.String()
	if text == "" && !sawDone {
		return nil, apperrors.NewGenerationError("tutor response stream ended without content", nil)
	}
	if text != "" {
		session.appendAssistant(text)
		session.Confused = DetectConfusion(session.Conversation.Messages)
	}

	snap := session.snapshot()
	return &snap, nil
}

// Cancel aborts an in-flight streaming generation; the pending turn settles
// without an assistant message. Outside the streaming state it is a no-op, so
// a cancel frame cannot abort a blocking submit or a settled session.
func (s *SessionService) Cancel(sessionID string) error {
	session, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	lock := s.locks.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if session.State != StateStreaming {
		return nil
	}
	session.markCancelled()
	return nil
}

// Reset clears the session back to a fresh conversation with the same
// persona. Any in-flight generation result is discarded via the epoch bump.
func (s *SessionService) Reset(sessionID string) (*SessionSnapshot, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session.abortInFlight()
	session.epoch++

	now := time.Now()
	session.Conversation = models.Conversation{
		ID:        uuid.NewString(),
		Title:     defaultConversationTitle,
		Subject:   session.Persona.Subject,
		PersonaID: session.Persona.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.Context = models.ConversationContext{}
	session.Confused = false
	session.State = StateIdle

	snap := session.snapshot()
	return &snap, nil
}

// Save summarizes and persists the conversation for a signed-in user.
// Last-write-wins on concurrent saves of the same conversation.
func (s *SessionService) Save(ctx context.Context, sessionID, userID string) (*models.Conversation, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthenticatedError("sign in to save conversations")
	}

	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.GetSessionLock(sessionID)
	lock.Lock()
	if len(session.Conversation.Messages) == 0 {
		lock.Unlock()
		return nil, apperrors.NewValidationError("nothing to save: the conversation is empty", nil)
	}
	messages := session.historyCopy()
	lock.Unlock()

	// Summarization is fallback-safe, so the save itself never fails on it.
	summary := s.llm.SummarizeConversation(ctx, messages)

	lock.Lock()
	defer lock.Unlock()

	session.Conversation.UserID = userID
	session.Conversation.Summary = summary
	session.Conversation.UpdatedAt = time.Now()

	conv := session.conversationCopy()
	if err := s.repo.SaveConversation(ctx, &conv); err != nil {
		return nil, apperrors.NewPersistenceError("failed to save conversation", err)
	}

	utils.GetLogger().Info("conversation saved", map[string]interface{}{
		"conversation_id": conv.ID,
		"user_id":         userID,
		"messages":        len(conv.Messages),
	})

	return &conv, nil
}

// Load replaces the session's in-memory state with a saved conversation.
func (s *SessionService) Load(ctx context.Context, sessionID, userID, conversationID string) (*SessionSnapshot, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	conv, err := s.repo.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperrors.NewNotFoundError("conversation not found", nil)
	}

	lock := s.locks.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session.abortInFlight()
	session.epoch++

	session.Conversation = *conv
	if persona, ok := s.personas.FindPersona(conv.PersonaID); ok {
		session.Persona = *persona
	} else {
		session.Persona = s.personas.DefaultPersona()
	}
	session.Context = models.ConversationContext{}
	session.Confused = DetectConfusion(conv.Messages)
	session.State = StateSettled

	snap := session.snapshot()
	return &snap, nil
}

// ListSaved lists a user's saved conversations, newest first.
func (s *SessionService) ListSaved(ctx context.Context, userID string) ([]models.Conversation, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthenticatedError("sign in to view saved conversations")
	}
	convs, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list conversations", err)
	}
	return convs, nil
}

// DeleteSaved removes a saved conversation.
func (s *SessionService) DeleteSaved(ctx context.Context, userID, conversationID string) error {
	if userID == "" {
		return apperrors.NewUnauthenticatedError("sign in to manage saved conversations")
	}
	if err := s.repo.DeleteConversation(ctx, userID, conversationID); err != nil {
		return apperrors.NewPersistenceError("failed to delete conversation", err)
	}
	return nil
}

func (s *SessionService) lookup(sessionID string) (*TutorSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("tutor session not found", nil)
	}
	return session, nil
}

// pendingTurn captures everything a generation call needs, copied under the
// session lock so the call itself runs lock-free.
type pendingTurn struct {
	ctx          context.Context
	epoch        uint64
	firstMessage bool
	persona      models.TutorPersona
	convCtx      models.ConversationContext
	history      []models.Message
}

// beginTurn validates and appends the user turn, flips the session to the
// busy state and arms the per-turn cancel context.
func (s *SessionService) beginTurn(session *TutorSession, text, busyState string) (*pendingTurn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("message text is required", nil)
	}

	lock := s.locks.GetSessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	if session.State == StateAwaiting || session.State == StateStreaming {
		return nil, apperrors.NewConflictError("a response is already being generated", nil)
	}

	firstMessage := len(session.Conversation.Messages) == 0

	session.Conversation.Messages = append(session.Conversation.Messages, models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	session.Conversation.UpdatedAt = time.Now()
	session.State = busyState

	genCtx, cancel := context.WithCancel(context.Background())
	session.armInFlight(cancel)

	return &pendingTurn{
		ctx:          genCtx,
		epoch:        session.epoch,
		firstMessage: firstMessage,
		persona:      session.Persona,
		convCtx:      session.Context,
		history:      session.historyCopy(),
	}, nil
}

// deriveFirstMessageAsync derives title, tags and complexity concurrently
// from the opening message and applies them unless the session has been
// reset or reloaded since.
func (s *SessionService) deriveFirstMessageAsync(session *TutorSession, epoch uint64, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), firstMessageAnalysisTimeout)
		defer cancel()

		var title, complexity string
		var tags []string

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			title = s.llm.GenerateTitle(gctx, text)
			return nil
		})
		g.Go(func() error {
			tags = s.llm.CategorizeContent(gctx, text)
			return nil
		})
		g.Go(func() error {
			complexity = s.llm.AnalyzeComplexity(gctx, text)
			return nil
		})
		// The derivation calls are fallback-safe and never return errors.
		_ = g.Wait()

		lock := s.locks.GetSessionLock(session.ID)
		lock.Lock()
		defer lock.Unlock()

		if session.epoch != epoch {
			return
		}

		if session.Conversation.Title == defaultConversationTitle {
			session.Conversation.Title = title
		}
		session.Conversation.Tags = tags
		session.Context.StudentLevel = complexity
	}()
}

func (ts *TutorSession) snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:           ts.ID,
		State:        ts.State,
		Persona:      ts.Persona,
		Conversation: ts.conversationCopy(),
		Context:      ts.Context,
		Confused:     ts.Confused,
	}
}

func (ts *TutorSession) conversationCopy() models.Conversation {
	conv := ts.Conversation
	conv.Messages = ts.historyCopy()
	if len(ts.Conversation.Tags) > 0 {
		conv.Tags = make([]string, len(ts.Conversation.Tags))
		copy(conv.Tags, ts.Conversation.Tags)
	}
	return conv
}

func (ts *TutorSession) historyCopy() []models.Message {
	out := make([]models.Message, len(ts.Conversation.Messages))
	copy(out, ts.Conversation.Messages)
	return out
}

func (ts *TutorSession) appendAssistant(text string) {
	ts.Conversation.Messages = append(ts.Conversation.Messages, models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   text,
		Timestamp: time.Now(),
	})
	ts.Conversation.UpdatedAt = time.Now()
}

func (ts *TutorSession) armInFlight(cancel context.CancelFunc) {
	ts.cancelMu.Lock()
	defer ts.cancelMu.Unlock()
	ts.cancel = cancel
	ts.cancelled = false
}

func (ts *TutorSession) clearInFlight() {
	ts.cancelMu.Lock()
	defer ts.cancelMu.Unlock()
	if ts.cancel != nil {
		ts.cancel()
		ts.cancel = nil
	}
}

func (ts *TutorSession) markCancelled() {
	ts.cancelMu.Lock()
	defer ts.cancelMu.Unlock()
	if ts.cancel != nil {
		ts.cancelled = true
		ts.cancel()
		ts.cancel = nil
	}
}

func (ts *TutorSession) takeCancelled() bool {
	ts.cancelMu.Lock()
	defer ts.cancelMu.Unlock()
	c := ts.cancelled
	ts.cancelled = false
	return c
}

func (ts *TutorSession) abortInFlight() {
	ts.cancelMu.Lock()
	defer ts.cancelMu.Unlock()
	if ts.cancel != nil {
		ts.cancel()
		ts.cancel = nil
	}
	ts.cancelled = false
}
