package handlers

import (
	"net/http"
	"time"

	"github.com/alimgiray/perfguide/internal/auth"
	"github.com/alimgiray/perfguide/internal/gitlab"
	"github.com/alimgiray/perfguide/internal/middleware"
	"github.com/alimgiray/perfguide/internal/session"
	"github.com/alimgiray/perfguide/web"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries everything the HTTP routes depend on
type RouterConfig struct {
	Sessions session.Source
	Codec    *auth.CookieCodec
	Auth     AuthBackend
	Users    GitLabTokens
	GitLab   gitlab.API
	DB       Pinger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Session       middleware.SessionOptions
	RedirectDelay time.Duration
	PerPage       int
}

// NewRouter builds the engine with templates, middleware and routes
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.SetHTMLTemplate(templates)
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.SecurityHeaders())

	setupRoutes(router, cfg)
	return router, nil
}

func setupRoutes(router *gin.Engine, cfg RouterConfig) {
	homeHandler := NewHomeHandler()
	authHandler := NewAuthHandler(cfg.Auth, cfg.Codec, cfg.Session.CookieSecure)
	dashboardHandler := NewDashboardHandler()
	gitlabHandler := NewGitLabHandler(cfg.GitLab, cfg.Users, cfg.PerPage)
	notFoundHandler := NewNotFoundHandler()
	healthHandler := NewHealthHandler(cfg.DB)

	// Health check and metrics skip session resolution
	router.GET("/health", healthHandler.HealthCheck)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	sessionMiddleware := middleware.SessionMiddleware(cfg.Sessions, cfg.Codec, cfg.Session)
	pages := router.Group("/", sessionMiddleware)

	pages.GET("/", homeHandler.Index)

	// Auth routes
	pages.GET("/auth", middleware.PublicOnly("/dashboard"), authHandler.Login)
	pages.GET("/login", authHandler.LoginAlias)
	pages.GET("/sign-in", authHandler.LoginAlias)
	pages.GET("/auth/github", authHandler.GitHubLogin)
	pages.GET("/auth/github/callback", authHandler.GitHubCallback)
	pages.POST("/logout", authHandler.Logout)

	// Protected routes
	protected := pages.Group("/", middleware.AuthRequired("/", cfg.RedirectDelay))
	{
		protected.GET("/dashboard", dashboardHandler.Dashboard)
	}

	gl := protected.Group("/gitlab")
	{
		gl.GET("", gitlabHandler.Index)
		gl.POST("/connect", gitlabHandler.Connect)
		gl.POST("/disconnect", gitlabHandler.Disconnect)
		gl.POST("/repositories", gitlabHandler.CreateRepository)
		gl.POST("/repositories/:id", gitlabHandler.UpdateRepository)
		gl.POST("/repositories/:id/delete", gitlabHandler.DeleteRepository)
		gl.GET("/repositories/:id/issues", gitlabHandler.Issues)
		gl.GET("/repositories/:id/issues/export", gitlabHandler.ExportIssues)
		gl.GET("/repositories/:id/webhooks", gitlabHandler.Webhooks)
		gl.POST("/repositories/:id/webhooks", gitlabHandler.CreateWebhook)
	}

	router.NoRoute(sessionMiddleware, notFoundHandler.NotFound)
}
