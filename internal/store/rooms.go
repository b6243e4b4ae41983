package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// CreateRoom creates a room and adds the creator as its first member.
// Returns ErrConflict if the name is taken.
func (s *Store) CreateRoom(ctx context.Context, name, description, creatorID string) (*Room, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin create room")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var r Room
	err = tx.QueryRow(ctx,
		`INSERT INTO rooms (name, description) VALUES ($1, $2)
		 RETURNING id, name, description, created_at, updated_at`,
		name, description,
	).Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, errors.Wrap(err, "create room")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)`,
		r.ID, creatorID,
	); err != nil {
		return nil, errors.Wrap(err, "add creator to room")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit create room")
	}

	r.MemberCount = 1
	r.IsJoined = true
	return &r, nil
}

// ListRooms returns every room ordered by recent activity, annotating each
// with whether the given user has joined it.
func (s *Store) ListRooms(ctx context.Context, userID string) ([]Room, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
		        (SELECT count(*) FROM room_members m WHERE m.room_id = r.id),
		        (SELECT count(*) FROM messages msg WHERE msg.room_id = r.id),
		        EXISTS (SELECT 1 FROM room_members m WHERE m.room_id = r.id AND m.user_id = $1)
		 FROM rooms r
		 ORDER BY r.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list rooms")
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt,
			&r.MemberCount, &r.MessageCount, &r.IsJoined); err != nil {
			return nil, errors.Wrap(err, "scan room")
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// RoomByID fetches a single room with its member list.
func (s *Store) RoomByID(ctx context.Context, roomID, userID string) (*Room, error) {
	var r Room
	err := s.pool.QueryRow(ctx,
		`SELECT r.id, r.name, r.description, r.created_at, r.updated_at,
		        (SELECT count(*) FROM room_members m WHERE m.room_id = r.id),
		        (SELECT count(*) FROM messages msg WHERE msg.room_id = r.id),
		        EXISTS (SELECT 1 FROM room_members m WHERE m.room_id = r.id AND m.user_id = $2)
		 FROM rooms r WHERE r.id = $1`,
		roomID, userID,
	).Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt,
		&r.MemberCount, &r.MessageCount, &r.IsJoined)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "room by id")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username, u.created_at
		 FROM users u JOIN room_members m ON m.user_id = u.id
		 WHERE m.room_id = $1 ORDER BY m.joined_at`,
		roomID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "room members")
	}
	defer rows.Close()

	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan member")
		}
		r.Members = append(r.Members, u)
	}
	return &r, rows.Err()
}

// JoinRoom records room membership. Returns ErrNotFound for a missing room
// and ErrConflict when the user is already a member.
func (s *Store) JoinRoom(ctx context.Context, roomID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO room_members (room_id, user_id)
		 SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM rooms WHERE id = $1)`,
		roomID, userID,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return errors.Wrap(err, "join room")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = s.pool.Exec(ctx, `UPDATE rooms SET updated_at = now() WHERE id = $1`, roomID)
	return errors.Wrap(err, "touch room")
}

// LeaveRoom removes membership; the room is dropped once its last member
// leaves. Returns ErrNotFound when the user was not a member.
func (s *Store) LeaveRoom(ctx context.Context, roomID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	)
	if err != nil {
		return errors.Wrap(err, "leave room")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = s.pool.Exec(ctx,
		`DELETE FROM rooms WHERE id = $1
		 AND NOT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1)`,
		roomID,
	)
	return errors.Wrap(err, "drop empty room")
}

// DeleteRoom removes a room entirely. Only members may delete it.
func (s *Store) DeleteRoom(ctx context.Context, roomID, userID string) error {
	member, err := s.IsMember(ctx, userID, roomID)
	if err != nil {
		return err
	}
	if !member {
		return ErrForbidden
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return errors.Wrap(err, "delete room")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsMember answers the gateway's authorization query: does the user
// currently belong to the room. Queried live on every join, never cached.
func (s *Store) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	var member bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`,
		roomID, userID,
	).Scan(&member)
	if err != nil {
		return false, errors.Wrap(err, "membership check")
	}
	return member, nil
}
