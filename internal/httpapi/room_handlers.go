package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/parley-chat/parley/internal/store"
)

type createRoomRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=60"`
	Description string `json:"description" binding:"max=300"`
}

func (a *API) handleListRooms(c *gin.Context) {
	rooms, err := a.store.ListRooms(c.Request.Context(), callerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (a *API) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid room payload"})
		return
	}

	room, err := a.store.CreateRoom(c.Request.Context(), req.Name, req.Description, callerID(c))
	if errors.Is(err, store.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"message": "Room name already exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to create room"})
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (a *API) handleGetRoom(c *gin.Context) {
	room, err := a.store.RoomByID(c.Request.Context(), c.Param("id"), callerID(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load room"})
		return
	}
	c.JSON(http.StatusOK, room)
}

func (a *API) handleJoinRoom(c *gin.Context) {
	err := a.store.JoinRoom(c.Request.Context(), c.Param("id"), callerID(c))
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "User is already a member of this room"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to join room"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Joined the room"})
	}
}

func (a *API) handleLeaveRoom(c *gin.Context) {
	err := a.store.LeaveRoom(c.Request.Context(), c.Param("id"), callerID(c))
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User is not a member of this room"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to leave room"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Successfully left the room"})
	}
}

func (a *API) handleDeleteRoom(c *gin.Context) {
	err := a.store.DeleteRoom(c.Request.Context(), c.Param("id"), callerID(c))
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
	case errors.Is(err, store.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Only room members can delete the room"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete room"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
	}
}
