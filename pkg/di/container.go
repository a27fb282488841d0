// Package di wires the long-lived collaborators together once at process
// start. Everything downstream receives its dependencies explicitly.
package di

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"speech-coach-demo/backend/internal/ai"
	"speech-coach-demo/backend/internal/service"
	"speech-coach-demo/backend/pkg/cache"
	"speech-coach-demo/backend/pkg/config"
	"speech-coach-demo/backend/pkg/health"
	"speech-coach-demo/backend/pkg/jwt"
	"speech-coach-demo/backend/pkg/logger"
	"speech-coach-demo/backend/pkg/metrics"
	"speech-coach-demo/backend/pkg/resilience"
)

// Container holds all the dependencies for the application
type Container struct {
	Config         *config.Config
	DB             *gorm.DB
	Logger         *logger.Logger
	JWTService     *jwt.Service
	Metrics        *metrics.Metrics
	Health         *health.Checker
	HistoryCache   *cache.HistoryCache
	Transcriber    ai.Transcriber
	MessageService *service.MessageService
	MergeService   *service.MergeService
}

// New creates a new dependency injection container
func New(db *gorm.DB, log *logger.Logger) (*Container, error) {
	cfg := config.Get()

	m := metrics.New()

	var historyCache *cache.HistoryCache
	if cfg.Redis.Enabled {
		historyCache = cache.NewHistoryCache(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, log)
	}

	gemini, err := ai.NewGeminiTranscriber(ai.GeminiConfig{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Timeout:     cfg.Gemini.Timeout,
		Instruction: cfg.Gemini.Instruction,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	breaker := resilience.New(resilience.DefaultConfig("gemini"), log)
	transcriber := ai.NewBreakerTranscriber(gemini, breaker, log)

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	messageService := service.NewMessageService(db, log, historyCache)
	mergeService := service.NewMergeService(db, log, historyCache)

	checker := health.NewChecker(log, 2*time.Second)
	checker.Register("database", true, func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if historyCache != nil {
		checker.Register("cache", false, historyCache.Ping)
	}

	return &Container{
		Config:         cfg,
		DB:             db,
		Logger:         log,
		JWTService:     jwtService,
		Metrics:        m,
		Health:         checker,
		HistoryCache:   historyCache,
		Transcriber:    transcriber,
		MessageService: messageService,
		MergeService:   mergeService,
	}, nil
}
