package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"speech-coach-demo/backend/internal/service"
	"speech-coach-demo/backend/pkg/errors"
	"speech-coach-demo/backend/pkg/logger"
)

// MessageHandler serves conversation history over HTTP.
type MessageHandler struct {
	messages *service.MessageService
	log      *logger.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(messages *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		log:      log,
	}
}

// History returns every logged turn for one owner, oldest first. Exactly
// one of userId / tempUserId must be supplied.
func (h *MessageHandler) History(c *gin.Context) {
	userID := c.Query("userId")
	tempUserID := c.Query("tempUserId")

	if (userID == "") == (tempUserID == "") {
		c.Error(errors.NewBadRequestError(errors.CodeBadRequest, "Exactly one of userId or tempUserId is required"))
		return
	}

	messages, err := h.messages.History(c.Request.Context(), userID, tempUserID)
	if err != nil {
		h.log.LogError(err, "failed to load history", "user_id", userID, "temp_user_id", tempUserID)
		c.Error(errors.NewInternalServerError(errors.CodeStoreFailed, "Failed to load history"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
