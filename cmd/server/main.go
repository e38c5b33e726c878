// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/claritutor/claritutor/internal/api"
	"github.com/claritutor/claritutor/internal/app"
	"github.com/claritutor/claritutor/internal/config"
	"github.com/claritutor/claritutor/internal/di"
	"github.com/claritutor/claritutor/internal/utils"
)

func main() {
	log.Println("starting claritutor server...")

	// 1. Base configuration from the environment.
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 2. Required directories.
	createDirectories(baseConfig)

	// 3. Structured logging.
	if err := utils.InitLogger(filepath.Join(baseConfig.LogDir, "claritutor.log"), baseConfig.DebugMode); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	logger := utils.GetLogger()

	// 4. Config manager, merging any saved runtime settings.
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		logger.Fatalf("failed to initialize config system: %v", err)
	}

	// 5. Services, in dependency order, into the DI container.
	if err := app.InitServices(); err != nil {
		logger.Fatalf("failed to initialize services: %v", err)
	}
	defer app.Cleanup()

	// 6. Health check before accepting traffic.
	if err := performHealthCheck(); err != nil {
		logger.Warnf("service health check warning: %v", err)
	}

	// 7. Router over the registered services.
	router, err := api.SetupRouter()
	if err != nil {
		logger.Fatalf("failed to set up router: %v", err)
	}

	logger.Infof("server listening on port %s", baseConfig.Port)
	runWithGracefulShutdown(router, baseConfig.Port)
}

func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		cfg.LogDir,
		filepath.Join(cfg.DataDir, "exports"),
		filepath.Dir(cfg.DBPath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("warning: failed to create directory %s: %v", dir, err)
		}
	}
}

func performHealthCheck() error {
	container := di.GetContainer()

	criticalServices := []string{"repo", "llm", "session", "persona", "content"}
	for _, serviceName := range criticalServices {
		if service := container.Get(serviceName); service == nil {
			return fmt.Errorf("critical service not registered: %s", serviceName)
		}
	}
	return nil
}

func runWithGracefulShutdown(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.GetLogger().Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.GetLogger().Info("shutting down server", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.GetLogger().Errorf("forced shutdown: %v", err)
	}

	utils.GetLogger().Info("server stopped", nil)
}
