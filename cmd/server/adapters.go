package main

import (
	"context"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/store"
)

// tokenVerifier adapts auth.TokenManager to the gateway's verifier
// contract.
type tokenVerifier struct {
	tokens *auth.TokenManager
}

func (v tokenVerifier) Verify(token string) (chat.Identity, error) {
	claims, err := v.tokens.Verify(token)
	if err != nil {
		return chat.Identity{}, err
	}
	return chat.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// directory adapts the postgres store to the gateway's directory contract.
type directory struct {
	store *store.Store
}

func (d directory) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	return d.store.IsMember(ctx, userID, roomID)
}

func (d directory) FindUser(ctx context.Context, userID string) (chat.Identity, error) {
	user, err := d.store.UserByID(ctx, userID)
	if err != nil {
		return chat.Identity{}, err
	}
	return chat.Identity{UserID: user.ID, Username: user.Username}, nil
}

// messageStore adapts the postgres store to the gateway's append contract.
type messageStore struct {
	store *store.Store
}

func (m messageStore) Append(ctx context.Context, userID, roomID, content string) (chat.StoredMessage, error) {
	msg, err := m.store.AppendMessage(ctx, userID, roomID, content)
	if err != nil {
		return chat.StoredMessage{}, err
	}
	return chat.StoredMessage{
		ID:         msg.ID,
		Content:    msg.Content,
		UserID:     msg.UserID,
		RoomID:     msg.RoomID,
		AuthorName: msg.Author.Username,
		CreatedAt:  msg.CreatedAt,
	}, nil
}
