// Package service holds the two writers of the message log: the message
// store and the session merge.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"speech-coach-demo/backend/internal/models"
	"speech-coach-demo/backend/pkg/cache"
	"speech-coach-demo/backend/pkg/logger"
)

// StoreInput is the typed record accepted by Store. Zero values mean
// "absent"; defaults are applied at the boundary.
type StoreInput struct {
	Message        string
	IsAI           bool
	SessionType    string
	Status         string
	UserID         string
	TempUserID     string
	AudioURL       string
	AudioDuration  *float64
	AudioFormat    string
	Transcription  string
	Analysis       string
	Reply          string
	ProcessingTime *float64
}

// MessageService appends conversational turns to the message log.
type MessageService struct {
	db    *gorm.DB
	log   *logger.Logger
	cache *cache.HistoryCache
}

// NewMessageService creates a message service. cache may be nil.
func NewMessageService(db *gorm.DB, log *logger.Logger, cache *cache.HistoryCache) *MessageService {
	return &MessageService{
		db:    db,
		log:   log,
		cache: cache,
	}
}

// Store normalizes input, lazily creates the temporary session row when
// needed, and inserts exactly one message row. The persisted row is
// returned on success.
func (s *MessageService) Store(ctx context.Context, input StoreInput) (*models.Message, error) {
	sessionType := input.SessionType
	if sessionType == "" {
		sessionType = models.SessionTypeTemporary
	}

	status := input.Status
	if !models.ValidStatus(status) {
		status = models.StatusReceived
	}

	audioFormat := input.AudioFormat
	if audioFormat == "" {
		audioFormat = "wav"
	}

	if input.TempUserID != "" {
		if err := s.ensureTemporaryUser(ctx, input.TempUserID); err != nil {
			return nil, &StoreError{Err: err}
		}
	}

	message := &models.Message{
		ID:             uuid.New().String(),
		Message:        input.Message,
		IsAI:           input.IsAI,
		SessionType:    sessionType,
		Status:         status,
		TempUserID:     nilIfEmpty(input.TempUserID),
		UserID:         nilIfEmpty(input.UserID),
		AudioURL:       nilIfEmpty(input.AudioURL),
		AudioDuration:  input.AudioDuration,
		AudioFormat:    &audioFormat,
		Transcription:  nilIfEmpty(input.Transcription),
		Analysis:       nilIfEmpty(input.Analysis),
		Reply:          nilIfEmpty(input.Reply),
		ProcessingTime: input.ProcessingTime,
	}

	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, &StoreError{Err: err}
	}

	s.cache.Invalidate(ctx, input.UserID, input.TempUserID)

	return message, nil
}

// History returns all messages owned by a user or a temporary session, in
// chronological order. Exactly one of userID / tempUserID must be set.
func (s *MessageService) History(ctx context.Context, userID, tempUserID string) ([]models.Message, error) {
	owner := userID
	column := "user_id"
	if owner == "" {
		owner = tempUserID
		column = "temp_user_id"
	}
	if owner == "" {
		return nil, fmt.Errorf("either userID or tempUserID is required")
	}

	if messages, ok := s.cache.Get(ctx, owner); ok {
		return messages, nil
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where(column+" = ?", owner).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, owner, messages)

	return messages, nil
}

// ensureTemporaryUser creates the temporary session row on first
// reference. Read-check-then-insert; a concurrent first use of the same
// identifier can race, which is accepted.
func (s *MessageService) ensureTemporaryUser(ctx context.Context, tempUserID string) error {
	var existing models.TemporaryUser
	err := s.db.WithContext(ctx).First(&existing, "id = ?", tempUserID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.db.WithContext(ctx).Create(&models.TemporaryUser{ID: tempUserID}).Error; err != nil {
		return fmt.Errorf("create temporary session %q: %w", tempUserID, err)
	}

	s.log.Info("temporary session created", "temp_user_id", tempUserID)
	return nil
}

// GenerateTempUserID returns a fresh temporary session identifier.
func GenerateTempUserID() string {
	return "temp_" + uuid.New().String()
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
