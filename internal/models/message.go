package models

import (
	"time"
)

// Session types for a message owner.
const (
	SessionTypeTemporary = "temporary"
	SessionTypeLoggedIn  = "logged-in"
)

// Pipeline status values matching the database enum.
const (
	StatusReceived   = "received"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ValidStatus reports whether s is one of the known pipeline status values.
func ValidStatus(s string) bool {
	switch s {
	case StatusReceived, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Message is one logged conversational turn: either a transcribed user
// utterance or a generated reply. Rows are created once and only rewritten
// by a session merge, which reassigns ownership.
type Message struct {
	ID             string   `json:"id" gorm:"primaryKey"`
	Message        string   `json:"message"`
	IsAI           bool     `json:"is_ai"`
	SessionType    string   `json:"session_type"`
	Status         string   `json:"status"`
	TempUserID     *string  `json:"temp_user_id" gorm:"index"`
	UserID         *string  `json:"user_id" gorm:"index"`
	AudioURL       *string  `json:"audio_url,omitempty"`
	AudioDuration  *float64 `json:"audio_duration,omitempty"`
	AudioFormat    *string  `json:"audio_format,omitempty"`
	Transcription  *string  `json:"transcription,omitempty"`
	Analysis       *string  `json:"analysis,omitempty"`
	Reply          *string  `json:"reply,omitempty"`
	ProcessingTime *float64 `json:"processing_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TemporaryUser is the placeholder identity for an unauthenticated speaker.
// The row must exist before any message referencing it is written; the
// message store creates it lazily on first reference.
type TemporaryUser struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionMerge is the audit record written when a temporary session's
// history is reassigned to a permanent user. Immutable after creation.
type SessionMerge struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index"`
	TempUserID string    `json:"temp_user_id" gorm:"index"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
