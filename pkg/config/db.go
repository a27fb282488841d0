package config

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	applogger "speech-coach-demo/backend/pkg/logger"
)

const connectRetries = 5

// NewDB opens the postgres connection described by the Database config
// section and tunes the pool from it. Connection attempts retry with the
// configured timeout as the backoff, so a relay starting alongside its
// database does not crash-loop.
func NewDB() (*gorm.DB, error) {
	cfg := Get()
	log := applogger.GetGlobal()

	timeout := cfg.Database.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
		int(timeout.Seconds()),
	)

	gormConfig := &gorm.Config{}
	if cfg.Server.Env == "development" {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	} else {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err == nil {
			break
		}

		log.Warn("database connect failed",
			"attempt", attempt,
			"retries", connectRetries,
			"backoff", timeout.String(),
			"error", err.Error(),
		)
		if attempt < connectRetries {
			time.Sleep(timeout)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	maxConns := cfg.Database.MaxConns
	if maxConns <= 0 {
		maxConns = 20
	}

	// The relay holds connections briefly (one store per envelope, one
	// transaction per merge), so half the pool idling is plenty.
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	return db, nil
}
