package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/store"
)

type createMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
	RoomID  string `json:"roomId" binding:"required"`
}

func (a *API) handleListMessages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := a.store.MessagesByRoom(c.Request.Context(), c.Param("id"), callerID(c), page, limit)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found or access denied"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, history)
}

// handleCreateMessage is the non-socket message path. It persists through
// the same store and then hands the hydrated record to the gateway, so a
// message posted over HTTP triggers the same broadcast fan-out as one sent
// over a socket.
func (a *API) handleCreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid message payload"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Message content cannot be empty"})
		return
	}

	msg, err := a.store.AppendMessage(c.Request.Context(), callerID(c), req.RoomID, content)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found or access denied"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send message"})
		return
	}

	a.gateway.BroadcastMessage(chat.StoredMessage{
		ID:         msg.ID,
		Content:    msg.Content,
		UserID:     msg.UserID,
		RoomID:     msg.RoomID,
		AuthorName: msg.Author.Username,
		CreatedAt:  msg.CreatedAt,
	})
	c.JSON(http.StatusCreated, msg)
}

func (a *API) handleDeleteMessage(c *gin.Context) {
	err := a.store.DeleteMessage(c.Request.Context(), c.Param("id"), callerID(c))
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Message not found"})
	case errors.Is(err, store.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "You can only delete your own messages"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete message"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
