package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"speech-coach-demo/backend/internal/models"
	"speech-coach-demo/backend/pkg/cache"
	"speech-coach-demo/backend/pkg/logger"
)

// MergeService reassigns a temporary session's history to a permanent
// user identity.
type MergeService struct {
	db    *gorm.DB
	log   *logger.Logger
	cache *cache.HistoryCache
}

// NewMergeService creates a merge service. cache may be nil.
func NewMergeService(db *gorm.DB, log *logger.Logger, cache *cache.HistoryCache) *MergeService {
	return &MergeService{
		db:    db,
		log:   log,
		cache: cache,
	}
}

// Merge reassigns every message owned by tempUserID to userID and writes
// one audit record, inside a single transaction. Either both writes
// commit or neither is visible. Merging an already-merged pair reassigns
// nothing but still appends an audit record.
func (s *MergeService) Merge(ctx context.Context, tempUserID, userID string) (*models.SessionMerge, error) {
	if tempUserID == "" || userID == "" {
		return nil, &MergeError{Err: fmt.Errorf("both tempUserID and userID are required")}
	}

	record := &models.SessionMerge{
		ID:         uuid.New().String(),
		UserID:     userID,
		TempUserID: tempUserID,
		Status:     models.StatusCompleted,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reassign := tx.Model(&models.Message{}).
			Where("temp_user_id = ?", tempUserID).
			Updates(map[string]interface{}{
				"user_id":      userID,
				"temp_user_id": nil,
				"session_type": models.SessionTypeLoggedIn,
			})
		if reassign.Error != nil {
			return reassign.Error
		}

		if err := tx.Create(record).Error; err != nil {
			return err
		}

		s.log.Info("sessions merged",
			"temp_user_id", tempUserID,
			"user_id", userID,
			"messages_reassigned", reassign.RowsAffected,
		)
		return nil
	})
	if err != nil {
		return nil, &MergeError{Err: err}
	}

	s.cache.Invalidate(ctx, userID, tempUserID)

	return record, nil
}
