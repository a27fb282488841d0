package router

import (
	"speech-coach-demo/backend/internal/api"
	"speech-coach-demo/backend/internal/ws"
	"speech-coach-demo/backend/pkg/config"
	"speech-coach-demo/backend/pkg/di"
	"speech-coach-demo/backend/pkg/errors"
	"speech-coach-demo/backend/pkg/logger"
	"speech-coach-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Rate limit by client IP
	rateLimiterOpts := middleware.DefaultRateLimiterOptions()
	rateLimiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	rateLimiterOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, rateLimiterOpts)
	engine.Use(rateLimiter.Middleware())

	// Initialize the websocket hub
	hub := ws.NewHub(
		container.Transcriber,
		container.MessageService,
		container.Metrics,
		container.Logger,
	)
	// Base64 inflates the raw clip size by about a third
	hub.SetMaxMessageSize(cfg.Security.MaxAudioBytes * 2)

	go hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Hub:       hub,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	jwtAuth := middleware.JWTAuth(r.Container.JWTService, r.Logger)

	sessionHandler := api.NewSessionHandler(r.Container.MergeService, r.Logger, r.Container.Metrics)
	messageHandler := api.NewMessageHandler(r.Container.MessageService, r.Logger)

	r.setupHealthRoutes()
	r.Engine.GET("/health/ready", r.Container.Health.Handler())

	// WebSocket route
	r.Engine.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(r.Hub, c)
	})

	// Prometheus metrics
	r.Engine.GET("/metrics", r.Container.Metrics.Handler())

	apiRoutes := r.Engine.Group("/api")
	{
		sessionRoutes := apiRoutes.Group("/sessions")
		{
			sessionRoutes.POST("/temp", sessionHandler.CreateTemporary)
			sessionRoutes.POST("/merge", jwtAuth, sessionHandler.Merge)
		}

		apiRoutes.GET("/messages", messageHandler.History)
	}
}

// corsMiddleware restricts browser access to the configured origins while
// allowing websocket-specific headers through.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
