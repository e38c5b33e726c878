// internal/api/handlers.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/claritutor/claritutor/internal/auth"
	"github.com/claritutor/claritutor/internal/config"
	"github.com/claritutor/claritutor/internal/llm"
	"github.com/claritutor/claritutor/internal/models"
	"github.com/claritutor/claritutor/internal/services"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	ContentService *services.ContentService
	PersonaService *services.PersonaService
	SessionService *services.SessionService
	TimerService   *services.TimerService
	StatsService   *services.StatsService
	UserService    *services.UserService
	ExportService  *services.ExportService
	LLMService     *services.LLMService

	Response         *ResponseHelper
	WebSocketHandler *WebSocketHandler
}

// NewHandler creates the API handler.
func NewHandler(
	contentService *services.ContentService,
	personaService *services.PersonaService,
	sessionService *services.SessionService,
	timerService *services.TimerService,
	statsService *services.StatsService,
	userService *services.UserService,
	exportService *services.ExportService,
	llmService *services.LLMService,
) *Handler {
	return &Handler{
		ContentService:   contentService,
		PersonaService:   personaService,
		SessionService:   sessionService,
		TimerService:     timerService,
		StatsService:     statsService,
		UserService:      userService,
		ExportService:    exportService,
		LLMService:       llmService,
		Response:         NewResponseHelper(),
		WebSocketHandler: NewWebSocketHandler(sessionService),
	}
}

// ---------------------------------------------------------------------------
// Request payloads

type CreateSessionRequest struct {
	PersonaID string `json:"persona_id" binding:"required"`
}

type SubmitMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type LoadConversationRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

type SwitchPhaseRequest struct {
	Phase string `json:"phase" binding:"required"`
}

type LogSessionRequest struct {
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
	FocusQuality    int    `json:"focus_quality" binding:"required"`
	Subject         string `json:"subject"`
	Notes           string `json:"notes"`
}

type UpdatePreferencesRequest struct {
	LearningStyle   string   `json:"learning_style"`
	StudyGoals      string   `json:"study_goals"`
	PrimarySubjects []string `json:"primary_subjects"`
}

type UpdateLLMConfigRequest struct {
	Provider string            `json:"provider" binding:"required"`
	Config   map[string]string `json:"config" binding:"required"`
}

type IssueTokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ---------------------------------------------------------------------------
// Health

// HealthCheck reports process and generator status.
func (h *Handler) HealthCheck(c *gin.Context) {
	ready, state := h.LLMService.GetProviderStatus()
	h.Response.Success(c, gin.H{
		"status":    "ok",
		"llm_ready": ready,
		"llm_state": state,
		"time":      time.Now().Format(time.RFC3339),
	})
}

// ---------------------------------------------------------------------------
// Content

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.ContentService.ListStudents(c.Request.Context())
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, students)
}

func (h *Handler) GetStudent(c *gin.Context) {
	student, err := h.ContentService.GetStudent(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, student)
}

func (h *Handler) ListStudyMaterials(c *gin.Context) {
	materials, err := h.ContentService.ListStudyMaterials(c.Request.Context())
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, materials)
}

func (h *Handler) GetStudyMaterial(c *gin.Context) {
	material, err := h.ContentService.GetStudyMaterial(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, material)
}

func (h *Handler) ListNotes(c *gin.Context) {
	notes, err := h.ContentService.ListNotes(c.Request.Context())
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, notes)
}

func (h *Handler) GetNote(c *gin.Context) {
	note, err := h.ContentService.GetNote(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, note)
}

func (h *Handler) ListContentStudySessions(c *gin.Context) {
	sessions, err := h.ContentService.ListStudySessions(c.Request.Context())
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, sessions)
}

func (h *Handler) GetContentStudySession(c *gin.Context) {
	session, err := h.ContentService.GetStudySession(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, session)
}

func (h *Handler) ListStudyProjects(c *gin.Context) {
	projects, err := h.ContentService.ListStudyProjects(c.Request.Context())
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, projects)
}

func (h *Handler) GetStudyProject(c *gin.Context) {
	project, err := h.ContentService.GetStudyProject(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, project)
}

func (h *Handler) ListProjectsByStudent(c *gin.Context) {
	projects, err := h.ContentService.ListProjectsByStudent(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, projects)
}

// ---------------------------------------------------------------------------
// Personas

func (h *Handler) ListPersonas(c *gin.Context) {
	h.Response.Success(c, h.PersonaService.ListPersonas())
}

// ---------------------------------------------------------------------------
// Tutor sessions

func (h *Handler) CreateTutorSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "persona_id is required", err.Error())
		return
	}

	snapshot, err := h.SessionService.CreateSession(req.PersonaID)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Created(c, snapshot)
}

func (h *Handler) GetTutorSession(c *gin.Context) {
	snapshot, err := h.SessionService.GetSession(c.Param("session_id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, snapshot)
}

func (h *Handler) CloseTutorSession(c *gin.Context) {
	h.SessionService.CloseSession(c.Param("session_id"))
	h.Response.Success(c, gin.H{"closed": true})
}

func (h *Handler) SubmitTutorMessage(c *gin.Context) {
	var req SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "text is required", err.Error())
		return
	}

	snapshot, err := h.SessionService.Submit(c.Request.Context(), c.Param("session_id"), req.Text)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, snapshot)
}

func (h *Handler) CancelTutorGeneration(c *gin.Context) {
	if err := h.SessionService.Cancel(c.Param("session_id")); err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"cancelled": true})
}

func (h *Handler) ResetTutorSession(c *gin.Context) {
	snapshot, err := h.SessionService.Reset(c.Param("session_id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, snapshot)
}

func (h *Handler) SaveTutorSession(c *gin.Context) {
	conv, err := h.SessionService.Save(c.Request.Context(), c.Param("session_id"), currentUserID(c))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, conv, "conversation saved")
}

func (h *Handler) LoadTutorSession(c *gin.Context) {
	var req LoadConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "conversation_id is required", err.Error())
		return
	}

	snapshot, err := h.SessionService.Load(c.Request.Context(), c.Param("session_id"), currentUserID(c), req.ConversationID)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, snapshot)
}

func (h *Handler) GetQuickActions(c *gin.Context) {
	actions, err := h.SessionService.QuickActions(c.Param("session_id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, actions)
}

func (h *Handler) ListSavedConversations(c *gin.Context) {
	convs, err := h.SessionService.ListSaved(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, convs)
}

func (h *Handler) DeleteSavedConversation(c *gin.Context) {
	if err := h.SessionService.DeleteSaved(c.Request.Context(), currentUserID(c), c.Param("conversation_id")); err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"deleted": true})
}

func (h *Handler) ExportConversation(c *gin.Context) {
	format := c.DefaultQuery("format", "markdown")
	result, err := h.ExportService.ExportConversation(c.Request.Context(), currentUserID(c), c.Param("conversation_id"), format)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.ExportResponse(c, result)
}

// ---------------------------------------------------------------------------
// Timer

// timerKey identifies the timer owner: the signed-in user, or the client IP
// for anonymous visitors.
func (h *Handler) timerKey(c *gin.Context) string {
	if userID := currentUserID(c); userID != "" {
		return userID
	}
	return "anon:" + c.ClientIP()
}

func (h *Handler) GetTimerState(c *gin.Context) {
	h.Response.Success(c, h.TimerService.GetState(h.timerKey(c)))
}

func (h *Handler) StartTimer(c *gin.Context) {
	h.Response.Success(c, h.TimerService.Start(h.timerKey(c)))
}

func (h *Handler) PauseTimer(c *gin.Context) {
	h.Response.Success(c, h.TimerService.Pause(h.timerKey(c)))
}

func (h *Handler) ResetTimer(c *gin.Context) {
	h.Response.Success(c, h.TimerService.Reset(h.timerKey(c)))
}

func (h *Handler) CompleteTimerPhase(c *gin.Context) {
	h.Response.Success(c, h.TimerService.Complete(h.timerKey(c)))
}

func (h *Handler) SwitchTimerPhase(c *gin.Context) {
	var req SwitchPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "phase is required", err.Error())
		return
	}

	state, err := h.TimerService.SwitchPhase(h.timerKey(c), req.Phase)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, state)
}

func (h *Handler) UpdateTimerSettings(c *gin.Context) {
	var settings models.TimerSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.Response.BadRequest(c, "invalid timer settings", err.Error())
		return
	}
	h.Response.Success(c, h.TimerService.UpdateSettings(h.timerKey(c), settings))
}

func (h *Handler) LogStudySession(c *gin.Context) {
	var req LogSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "duration_minutes and focus_quality are required", err.Error())
		return
	}

	err := h.TimerService.LogSession(c.Request.Context(), currentUserID(c), req.DurationMinutes, req.FocusQuality, req.Subject, req.Notes)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"logged": true})
}

// ---------------------------------------------------------------------------
// Progress

func (h *Handler) GetProgress(c *gin.Context) {
	report, err := h.StatsService.GetProgressReport(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, report)
}

// ---------------------------------------------------------------------------
// Users

func (h *Handler) GetUserProfile(c *gin.Context) {
	profile, err := h.UserService.GetProfile(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, profile)
}

func (h *Handler) SaveUserProfile(c *gin.Context) {
	var profile models.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		h.Response.BadRequest(c, "invalid profile payload", err.Error())
		return
	}
	profile.UserID = c.Param("user_id")

	saved, err := h.UserService.SaveProfile(c.Request.Context(), &profile)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, saved, "profile saved")
}

func (h *Handler) UpdateUserPreferences(c *gin.Context) {
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid preferences payload", err.Error())
		return
	}

	profile, err := h.UserService.UpdatePreferences(c.Request.Context(), c.Param("user_id"), req.LearningStyle, req.StudyGoals, req.PrimarySubjects)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, profile, "preferences updated")
}

// ---------------------------------------------------------------------------
// Auth

// IssueToken signs a token for a user id. Identity verification belongs to an
// upstream identity provider; this endpoint only mints the session token.
func (h *Handler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "user_id is required", err.Error())
		return
	}

	cfg := config.GetCurrentConfig()
	if cfg == nil || cfg.AuthSecret == "" {
		h.Response.InternalError(c, "auth is not configured")
		return
	}

	token, err := auth.GenerateToken(req.UserID, &auth.TokenConfig{
		Secret:     []byte(cfg.AuthSecret),
		Expiration: 24 * time.Hour,
	})
	if err != nil {
		h.Response.InternalError(c, "failed to issue token", err.Error())
		return
	}

	h.Response.Success(c, gin.H{"token": token, "user_id": req.UserID})
}

// ---------------------------------------------------------------------------
// Settings

// GetSettings exposes the current runtime settings with secrets redacted.
func (h *Handler) GetSettings(c *gin.Context) {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		h.Response.InternalError(c, "configuration not initialized")
		return
	}

	ready, state := h.LLMService.GetProviderStatus()
	h.Response.Success(c, gin.H{
		"debug_mode":     cfg.DebugMode,
		"cms_configured": cfg.CMSBucketSlug != "",
		"auth_enabled":   cfg.AuthSecret != "",
		"llm_provider":   cfg.LLMProvider,
		"llm_ready":      ready,
		"llm_state":      state,
	})
}

// ---------------------------------------------------------------------------
// LLM settings

func (h *Handler) GetLLMStatus(c *gin.Context) {
	ready, state := h.LLMService.GetProviderStatus()
	h.Response.Success(c, gin.H{
		"ready":    ready,
		"state":    state,
		"provider": h.LLMService.GetProviderName(),
	})
}

func (h *Handler) GetLLMModels(c *gin.Context) {
	providers := llm.ListProviders()
	modelsByProvider := make(map[string][]string, len(providers))
	for _, name := range providers {
		modelsByProvider[name] = llm.GetSupportedModelsForProvider(name)
	}
	h.Response.Success(c, modelsByProvider)
}

func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req UpdateLLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "provider and config are required", err.Error())
		return
	}

	if err := h.LLMService.UpdateProvider(req.Provider, req.Config); err != nil {
		h.Response.Error(c, 400, ErrorLLMConfigInvalid, "failed to configure provider", err.Error())
		return
	}

	if err := config.UpdateLLMConfig(req.Provider, req.Config); err != nil {
		h.Response.InternalError(c, "provider updated but settings were not persisted", err.Error())
		return
	}

	ready, state := h.LLMService.GetProviderStatus()
	h.Response.Success(c, gin.H{"ready": ready, "state": state, "provider": req.Provider})
}

// ---------------------------------------------------------------------------
// WebSocket

// TutorWebSocket streams tutor replies over a WebSocket connection.
func (h *Handler) TutorWebSocket(c *gin.Context) {
	h.WebSocketHandler.TutorWebSocket(c)
}
