package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speech-coach-demo/backend/internal/models"
)

func TestStoreAppliesDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db, newTestLogger(), nil)

	stored, err := svc.Store(context.Background(), StoreInput{})

	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "", stored.Message)
	assert.False(t, stored.IsAI)
	assert.Equal(t, models.SessionTypeTemporary, stored.SessionType)
	assert.Equal(t, models.StatusReceived, stored.Status)
	require.NotNil(t, stored.AudioFormat)
	assert.Equal(t, "wav", *stored.AudioFormat)
	assert.Nil(t, stored.UserID)
	assert.Nil(t, stored.TempUserID)
}

func TestStoreUnknownStatusCollapsesToReceived(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db, newTestLogger(), nil)

	stored, err := svc.Store(context.Background(), StoreInput{Status: "exploded"})

	require.NoError(t, err)
	assert.Equal(t, models.StatusReceived, stored.Status)
}

func TestStoreCreatesTemporaryUserOnFirstReference(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db, newTestLogger(), nil)

	_, err := svc.Store(context.Background(), StoreInput{
		Message:    "hello",
		TempUserID: "temp_42",
	})
	require.NoError(t, err)

	var tempUsers []models.TemporaryUser
	require.NoError(t, db.Find(&tempUsers).Error)
	require.Len(t, tempUsers, 1)
	assert.Equal(t, "temp_42", tempUsers[0].ID)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStoreDoesNotDuplicateTemporaryUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db, newTestLogger(), nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Store(context.Background(), StoreInput{
			Message:    "turn",
			TempUserID: "temp_42",
		})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.TemporaryUser{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStorePersistsFullRecord(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db, newTestLogger(), nil)

	duration := 3.5
	elapsed := 1.25
	stored, err := svc.Store(context.Background(), StoreInput{
		Message:        "hello there",
		IsAI:           false,
		SessionType:    models.SessionTypeLoggedIn,
		Status:         models.StatusCompleted,
		UserID:         "user_7",
		AudioURL:       "https://example.com/clip.wav",
		AudioDuration:  &duration,
		Transcription:  "hello there",
		Analysis:       "Communication Tip: good pace",
		ProcessingTime: &elapsed,
	})

	require.NoError(t, err)

	var got models.Message
	require.NoError(t, db.First(&got, "id = ?", stored.ID).Error)
	assert.Equal(t, "hello there", got.Message)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "user_7", *got.UserID)
	require.NotNil(t, got.Transcription)
	assert.Equal(t, "hello there", *got.Transcription)
	require.NotNil(t, got.ProcessingTime)
	assert.InDelta(t, 1.25, *got.ProcessingTime, 1e-9)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestHistoryReturnsOwnerMessagesInOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db, newTestLogger(), nil)
	ctx := context.Background()

	for _, text := range []string{"first", "second"} {
		_, err := svc.Store(ctx, StoreInput{Message: text, TempUserID: "temp_1"})
		require.NoError(t, err)
	}
	_, err := svc.Store(ctx, StoreInput{Message: "other owner", TempUserID: "temp_2"})
	require.NoError(t, err)

	history, err := svc.History(ctx, "", "temp_1")

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Message)
	assert.Equal(t, "second", history[1].Message)
}

func TestHistoryRequiresAnOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db, newTestLogger(), nil)

	_, err := svc.History(context.Background(), "", "")

	assert.Error(t, err)
}

func TestGenerateTempUserID(t *testing.T) {
	id := GenerateTempUserID()

	assert.True(t, strings.HasPrefix(id, "temp_"))
	assert.NotEqual(t, id, GenerateTempUserID())
}
