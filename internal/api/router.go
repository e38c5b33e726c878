// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/claritutor/claritutor/internal/config"
	"github.com/claritutor/claritutor/internal/di"
	"github.com/claritutor/claritutor/internal/services"
)

// SetupRouter builds the HTTP router. Services come from the DI container
// only; nothing is constructed here.
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	container := di.GetContainer()

	contentService, ok := container.Get("content").(*services.ContentService)
	if !ok {
		return nil, fmt.Errorf("content service not initialized")
	}

	personaService, ok := container.Get("persona").(*services.PersonaService)
	if !ok {
		return nil, fmt.Errorf("persona service not initialized")
	}

	sessionService, ok := container.Get("session").(*services.SessionService)
	if !ok {
		return nil, fmt.Errorf("session service not initialized")
	}

	timerService, ok := container.Get("timer").(*services.TimerService)
	if !ok {
		return nil, fmt.Errorf("timer service not initialized")
	}

	statsService, ok := container.Get("stats").(*services.StatsService)
	if !ok {
		return nil, fmt.Errorf("stats service not initialized")
	}

	userService, ok := container.Get("user").(*services.UserService)
	if !ok {
		return nil, fmt.Errorf("user service not initialized")
	}

	exportService, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("export service not initialized")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("llm service not initialized")
	}

	handler := NewHandler(
		contentService,
		personaService,
		sessionService,
		timerService,
		statsService,
		userService,
		exportService,
		llmService,
	)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())
	r.Use(optionalAuthMiddleware())

	// HTTPS redirect behind a proxy in production.
	if !cfg.DebugMode {
		r.Use(func(c *gin.Context) {
			if c.Request.Header.Get("X-Forwarded-Proto") == "http" {
				c.Redirect(http.StatusPermanentRedirect,
					"https://"+c.Request.Host+c.Request.URL.Path)
				return
			}
			c.Next()
		})
	}

	rateLimiter := NewRateLimiter()

	// WebSocket streaming chat
	r.GET("/ws/tutor/:session_id", handler.TutorWebSocket)

	api := r.Group("/api")
	{
		api.GET("/health", handler.HealthCheck)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/token", rateLimitMiddleware(rateLimiter, 10, time.Minute), handler.IssueToken)
		}

		contentGroup := api.Group("/content")
		{
			contentGroup.GET("/students", handler.ListStudents)
			contentGroup.GET("/students/:slug", handler.GetStudent)
			contentGroup.GET("/students/:slug/projects", handler.ListProjectsByStudent)
			contentGroup.GET("/materials", handler.ListStudyMaterials)
			contentGroup.GET("/materials/:slug", handler.GetStudyMaterial)
			contentGroup.GET("/notes", handler.ListNotes)
			contentGroup.GET("/notes/:slug", handler.GetNote)
			contentGroup.GET("/sessions", handler.ListContentStudySessions)
			contentGroup.GET("/sessions/:slug", handler.GetContentStudySession)
			contentGroup.GET("/projects", handler.ListStudyProjects)
			contentGroup.GET("/projects/:slug", handler.GetStudyProject)
		}

		api.GET("/personas", handler.ListPersonas)

		tutorGroup := api.Group("/tutor")
		{
			tutorGroup.POST("/sessions", handler.CreateTutorSession)
			tutorGroup.GET("/sessions/:session_id", handler.GetTutorSession)
			tutorGroup.DELETE("/sessions/:session_id", handler.CloseTutorSession)
			tutorGroup.POST("/sessions/:session_id/messages", rateLimitMiddleware(rateLimiter, 30, time.Minute), handler.SubmitTutorMessage)
			tutorGroup.POST("/sessions/:session_id/cancel", handler.CancelTutorGeneration)
			tutorGroup.POST("/sessions/:session_id/reset", handler.ResetTutorSession)
			tutorGroup.POST("/sessions/:session_id/save", handler.SaveTutorSession)
			tutorGroup.POST("/sessions/:session_id/load", handler.LoadTutorSession)
			tutorGroup.GET("/sessions/:session_id/quick-actions", handler.GetQuickActions)

			tutorGroup.GET("/conversations", handler.ListSavedConversations)
			tutorGroup.DELETE("/conversations/:conversation_id", handler.DeleteSavedConversation)
			tutorGroup.GET("/conversations/:conversation_id/export", handler.ExportConversation)
		}

		timerGroup := api.Group("/timer")
		{
			timerGroup.GET("", handler.GetTimerState)
			timerGroup.POST("/start", handler.StartTimer)
			timerGroup.POST("/pause", handler.PauseTimer)
			timerGroup.POST("/reset", handler.ResetTimer)
			timerGroup.POST("/complete", handler.CompleteTimerPhase)
			timerGroup.POST("/phase", handler.SwitchTimerPhase)
			timerGroup.PUT("/settings", handler.UpdateTimerSettings)
			timerGroup.POST("/log", handler.LogStudySession)
		}

		api.GET("/progress", handler.GetProgress)
		api.GET("/settings", handler.GetSettings)

		usersGroup := api.Group("/users/:user_id")
		{
			usersGroup.GET("/profile", handler.GetUserProfile)
			usersGroup.PUT("/profile", handler.SaveUserProfile)
			usersGroup.PUT("/preferences", handler.UpdateUserPreferences)
		}

		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", handler.UpdateLLMConfig)
		}
	}

	return r, nil
}
