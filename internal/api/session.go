package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"speech-coach-demo/backend/internal/service"
	"speech-coach-demo/backend/pkg/errors"
	"speech-coach-demo/backend/pkg/logger"
	"speech-coach-demo/backend/pkg/metrics"
)

// SessionHandler exposes temporary-session creation and identity
// promotion over HTTP.
type SessionHandler struct {
	merges  *service.MergeService
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(merges *service.MergeService, log *logger.Logger, m *metrics.Metrics) *SessionHandler {
	return &SessionHandler{
		merges:  merges,
		log:     log,
		metrics: m,
	}
}

// CreateTemporary hands out a fresh temporary session identifier. The
// durable row is created lazily by the message store on first use.
func (h *SessionHandler) CreateTemporary(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{
		"tempUserId": service.GenerateTempUserID(),
	})
}

type mergeRequest struct {
	TempUserID string `json:"tempUserId" binding:"required"`
}

// Merge reassigns the caller's temporary session history to their
// authenticated identity. The user ID comes from the validated token.
func (h *SessionHandler) Merge(c *gin.Context) {
	userID := c.GetString("userId")
	if userID == "" {
		c.Error(errors.NewUnauthorizedError(errors.CodeUnauthorized, "Authenticated user required"))
		return
	}

	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeBadRequest, "tempUserId is required"))
		return
	}

	record, err := h.merges.Merge(c.Request.Context(), req.TempUserID, userID)
	if err != nil {
		h.metrics.MergesTotal.WithLabelValues("error").Inc()
		h.log.LogError(err, "session merge failed",
			"temp_user_id", req.TempUserID,
			"user_id", userID,
		)
		c.Error(errors.NewInternalServerError(errors.CodeMergeFailed, "Failed to merge sessions"))
		return
	}

	h.metrics.MergesTotal.WithLabelValues(record.Status).Inc()
	c.JSON(http.StatusOK, gin.H{
		"status":     record.Status,
		"userId":     record.UserID,
		"tempUserId": record.TempUserID,
	})
}
