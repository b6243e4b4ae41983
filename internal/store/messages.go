package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// MessagePage is a page of room history plus pagination totals.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}

// AppendMessage persists a message after verifying the author belongs to
// the room, returning the hydrated record with the server-assigned id and
// timestamp. Returns ErrNotFound when the room is missing or the author is
// not a member.
func (s *Store) AppendMessage(ctx context.Context, userID, roomID, content string) (*Message, error) {
	member, err := s.IsMember(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotFound
	}

	var m Message
	err = s.pool.QueryRow(ctx,
		`INSERT INTO messages (content, user_id, room_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, content, user_id, room_id, created_at,
		           (SELECT username FROM users WHERE id = $2)`,
		content, userID, roomID,
	).Scan(&m.ID, &m.Content, &m.UserID, &m.RoomID, &m.CreatedAt, &m.Author.Username)
	if err != nil {
		return nil, errors.Wrap(err, "append message")
	}
	m.Author.ID = m.UserID

	_, _ = s.pool.Exec(ctx, `UPDATE rooms SET updated_at = now() WHERE id = $1`, roomID)
	return &m, nil
}

// MessagesByRoom returns a page of room history, oldest first, after
// verifying the caller's membership.
func (s *Store) MessagesByRoom(ctx context.Context, roomID, userID string, page, limit int) (*MessagePage, error) {
	member, err := s.IsMember(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotFound
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE room_id = $1`, roomID,
	).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "count messages")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.content, m.user_id, m.room_id, m.created_at, u.username
		 FROM messages m JOIN users u ON u.id = m.user_id
		 WHERE m.room_id = $1
		 ORDER BY m.created_at DESC
		 OFFSET $2 LIMIT $3`,
		roomID, (page-1)*limit, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "page messages")
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Content, &m.UserID, &m.RoomID, &m.CreatedAt, &m.Author.Username); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		m.Author.ID = m.UserID
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Pages are fetched newest-first; flip so clients render oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	totalPages := (total + limit - 1) / limit
	return &MessagePage{
		Messages:   messages,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// DeleteMessage removes a message. Only the author may delete it.
func (s *Store) DeleteMessage(ctx context.Context, messageID, userID string) error {
	var authorID string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM messages WHERE id = $1`, messageID,
	).Scan(&authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "message by id")
	}
	if authorID != userID {
		return ErrForbidden
	}

	_, err = s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	return errors.Wrap(err, "delete message")
}
