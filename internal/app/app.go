// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/claritutor/claritutor/internal/cms"
	"github.com/claritutor/claritutor/internal/config"
	"github.com/claritutor/claritutor/internal/di"
	"github.com/claritutor/claritutor/internal/services"
	"github.com/claritutor/claritutor/internal/store"
	"github.com/claritutor/claritutor/internal/utils"

	// Wired LLM providers register themselves on import.
	_ "github.com/claritutor/claritutor/internal/llm/providers/anthropic"
	_ "github.com/claritutor/claritutor/internal/llm/providers/openai"
)

// InitServices constructs every service in dependency order and registers it
// in the DI container. Call once at startup, after config.InitConfig.
func InitServices() error {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not initialized")
	}

	container := di.GetContainer()

	// Persistence first: everything that saves goes through the repository.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	container.Register("repo", repo)

	// Read-only study content.
	cmsClient := cms.NewClient(cfg.CMSBaseURL, cfg.CMSBucketSlug, cfg.CMSReadKey, &http.Client{
		Timeout: 15 * time.Second,
	})
	container.Register("content", services.NewContentService(cmsClient))

	// Generator. A missing API key yields a standby service, not a startup
	// failure.
	llmService, err := services.NewLLMService()
	if err != nil {
		utils.GetLogger().Warn("llm service degraded at startup", map[string]interface{}{
			"error": err.Error(),
		})
		llmService = services.NewEmptyLLMService()
	}
	container.Register("llm", llmService)

	personaService := services.NewPersonaService()
	container.Register("persona", personaService)

	container.Register("session", services.NewSessionService(llmService, personaService, repo))
	container.Register("timer", services.NewTimerService(repo))
	container.Register("stats", services.NewStatsService(repo, llmService))
	container.Register("user", services.NewUserService(repo))
	container.Register("export", services.NewExportService(repo, cfg.DataDir))

	utils.GetLogger().Info("services initialized", map[string]interface{}{
		"count": len(container.GetNames()),
	})

	return nil
}

// Cleanup releases service resources at shutdown.
func Cleanup() {
	container := di.GetContainer()

	if repo, ok := container.Get("repo").(store.Repository); ok {
		if err := repo.Close(); err != nil {
			utils.GetLogger().Warn("failed to close database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	utils.GetLogger().Sync()
}
