// Package http wires the gin router for the chat API.
package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"propchat/internal/config"
	"propchat/internal/transport/http/handler"
	"propchat/internal/transport/http/middleware"
)

type Handlers struct {
	Chat    *handler.ChatHandler
	Upload  *handler.UploadHandler
	Session *handler.SessionHandler
	Indexer *handler.IndexerHandler
	Health  *handler.HealthHandler
}

// NewRouter builds the engine with CORS, API key auth on all routes except
// the health check, and per-route rate limits on chat and upload.
func NewRouter(cfg *config.Config, h Handlers) *gin.Engine {
	gin.SetMode(cfg.App.GinMode)
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := engine.Group("/api")
	api.GET("/health", h.Health.Health)

	protected := api.Group("", middleware.APIKey(cfg.Auth.APIKey))
	{
		chatLimit := middleware.NewRateLimiter(cfg.RateLimit.ChatPerMinute)
		uploadLimit := middleware.NewRateLimiter(cfg.RateLimit.UploadPerMinute)

		protected.POST("/chat", chatLimit.Handler(), h.Chat.Chat)
		protected.POST("/upload", uploadLimit.Handler(), h.Upload.Upload)
		protected.POST("/cleanup-session", h.Session.Cleanup)
		protected.GET("/indexer/status", h.Indexer.Status)
		protected.POST("/indexer/run", h.Indexer.Run)
	}

	return engine
}
