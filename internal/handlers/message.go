package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/crypt"
	"messenger-service/internal/repositories"
	"messenger-service/internal/ws"
)

// MessageHandler serves message history and the REST forms of the edit
// and delete intents. Edit and delete go through the delivery router so
// live sessions see the same broadcasts regardless of transport.
type MessageHandler struct {
	messages repositories.MessageRepository
	groups   repositories.GroupRepository
	codec    *crypt.Codec
	router   *ws.Router
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messages repositories.MessageRepository, groups repositories.GroupRepository, codec *crypt.Codec, router *ws.Router) *MessageHandler {
	return &MessageHandler{messages: messages, groups: groups, codec: codec, router: router}
}

// GetMessages handles GET /api/messages?other_id=N or ?group_id=N.
// Content is returned unsealed.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID := c.GetInt("userID")

	if groupParam := c.Query("group_id"); groupParam != "" {
		groupID, err := strconv.Atoi(groupParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
			return
		}

		member, err := h.groups.IsMember(c.Request.Context(), groupID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
			return
		}

		msgs, err := h.messages.ListGroup(c.Request.Context(), groupID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
			return
		}
		for i := range msgs {
			msgs[i].Content = h.codec.Open(msgs[i].Content)
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
		return
	}

	otherID, err := strconv.Atoi(c.Query("other_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "other_id or group_id is required"})
		return
	}

	msgs, err := h.messages.ListPrivate(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	for i := range msgs {
		msgs[i].Content = h.codec.Open(msgs[i].Content)
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// EditMessage handles PUT /api/messages/:id.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.router.Edit(c.Request.Context(), c.GetInt("userID"), messageID, req.Content); err != nil {
		respondIntentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DeleteMessage handles DELETE /api/messages/:id.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.router.Delete(c.Request.Context(), c.GetInt("userID"), messageID); err != nil {
		respondIntentError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondIntentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, ws.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender may modify a message"})
	case errors.Is(err, ws.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "content must not be empty"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
