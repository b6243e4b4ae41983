// Package httpapi exposes the REST surface of Parley: registration and
// login, room CRUD, and message history. Messages created here are handed
// to the gateway so REST-created messages reach every connected socket.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/store"
)

// Storage is the slice of the persistent store the HTTP API depends on.
// *store.Store satisfies it; tests substitute an in-memory fake.
type Storage interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error)
	UserByName(ctx context.Context, username string) (*store.User, error)
	UserByID(ctx context.Context, userID string) (*store.User, error)

	CreateRoom(ctx context.Context, name, description, creatorID string) (*store.Room, error)
	ListRooms(ctx context.Context, userID string) ([]store.Room, error)
	RoomByID(ctx context.Context, roomID, userID string) (*store.Room, error)
	JoinRoom(ctx context.Context, roomID, userID string) error
	LeaveRoom(ctx context.Context, roomID, userID string) error
	DeleteRoom(ctx context.Context, roomID, userID string) error

	AppendMessage(ctx context.Context, userID, roomID, content string) (*store.Message, error)
	MessagesByRoom(ctx context.Context, roomID, userID string, page, limit int) (*store.MessagePage, error)
	DeleteMessage(ctx context.Context, messageID, userID string) error
}

// Broadcaster is the gateway entry point used to fan REST-created messages
// out to connected sockets.
type Broadcaster interface {
	BroadcastMessage(msg chat.StoredMessage)
}

// API bundles the handlers' dependencies.
type API struct {
	store   Storage
	tokens  *auth.TokenManager
	gateway Broadcaster
}

// New wires the REST handlers.
func New(storage Storage, tokens *auth.TokenManager, gateway Broadcaster) *API {
	return &API{store: storage, tokens: tokens, gateway: gateway}
}

// Register attaches all REST routes to the router group.
func (a *API) Register(r *gin.Engine) {
	r.GET("/health", a.handleHealth)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", a.handleRegister)
	authGroup.POST("/login", a.handleLogin)
	authGroup.GET("/profile", a.RequireAuth(), a.handleProfile)

	rooms := r.Group("/rooms", a.RequireAuth())
	rooms.GET("", a.handleListRooms)
	rooms.POST("", a.handleCreateRoom)
	rooms.GET("/:id", a.handleGetRoom)
	rooms.POST("/:id/join", a.handleJoinRoom)
	rooms.POST("/:id/leave", a.handleLeaveRoom)
	rooms.DELETE("/:id", a.handleDeleteRoom)
	rooms.GET("/:id/messages", a.handleListMessages)

	messages := r.Group("/messages", a.RequireAuth())
	messages.POST("", a.handleCreateMessage)
	messages.DELETE("/:id", a.handleDeleteMessage)
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
