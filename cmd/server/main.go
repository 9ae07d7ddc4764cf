package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alimgiray/perfguide/internal/auth"
	"github.com/alimgiray/perfguide/internal/gitlab"
	"github.com/alimgiray/perfguide/internal/handlers"
	"github.com/alimgiray/perfguide/internal/metrics"
	"github.com/alimgiray/perfguide/internal/middleware"
	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/internal/repositories"
	"github.com/alimgiray/perfguide/internal/services"
	"github.com/alimgiray/perfguide/internal/workers"
	"github.com/alimgiray/perfguide/pkg/config"
	"github.com/alimgiray/perfguide/pkg/database"
	"github.com/alimgiray/perfguide/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	logger.Init()

	// Load configuration
	if err := config.Load(); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	if err := database.Init(cfg.Database.Path); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// Initialize dependencies
	userRepo := repositories.NewUserRepository(database.DB)
	sessionRepo := repositories.NewSessionRepository(database.DB)
	userService := services.NewUserService(userRepo)

	provider := auth.NewGitHubProvider(auth.GitHubOptions{
		ClientID:      cfg.GitHub.ClientID,
		ClientSecret:  cfg.GitHub.ClientSecret,
		CallbackURL:   cfg.GitHub.CallbackURL,
		APIURL:        cfg.GitHub.APIURL,
		SessionTTL:    cfg.Session.TTL,
		RefreshWindow: cfg.Session.RefreshWindow,
	}, userService, sessionRepo)
	unsubscribe := provider.OnAuthStateChange(func(event models.AuthEvent) {
		recorder.RecordAuthEvent(string(event.Type))
	})
	defer unsubscribe()

	gitlabService := gitlab.NewService(gitlab.Options{
		BaseURL:   cfg.GitLab.BaseURL,
		Timeout:   cfg.GitLab.Timeout,
		RateLimit: float64(cfg.GitLab.RateLimit),
	}, recorder)

	router, err := handlers.NewRouter(handlers.RouterConfig{
		Sessions: provider,
		Codec:    auth.NewCookieCodec(cfg.Session.Secret),
		Auth:     provider,
		Users:    userService,
		GitLab:   gitlabService,
		DB:       database.DB,
		Metrics:  metrics.Handler(registry),
		Session: middleware.SessionOptions{
			ResolveTimeout: cfg.Session.ResolveTimeout,
			CookieSecure:   cfg.Session.CookieSecure,
		},
		RedirectDelay: cfg.Session.RedirectDelay,
		PerPage:       cfg.GitLab.PerPage,
	})
	if err != nil {
		logger.Fatalf("Failed to build router: %v", err)
	}

	// Initialize worker manager
	cleanupWorker, err := workers.NewSessionCleanupWorker("session-cleanup-1", cfg.Session.CleanupSchedule, sessionRepo, recorder)
	if err != nil {
		logger.Fatalf("Failed to create session cleanup worker: %v", err)
	}
	workerManager := workers.NewWorkerManager(cleanupWorker)
	if err := workerManager.StartAll(); err != nil {
		logger.Fatalf("Failed to start workers: %v", err)
	}
	defer workerManager.StopAll()

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server stopped")
}
