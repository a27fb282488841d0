package service

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"speech-coach-demo/backend/internal/models"
	"speech-coach-demo/backend/pkg/logger"
)

// newTestDB opens an isolated in-memory database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Message{},
		&models.TemporaryUser{},
		&models.SessionMerge{},
	))

	return db
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}
