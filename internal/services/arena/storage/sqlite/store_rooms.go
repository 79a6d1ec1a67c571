package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

// PutRoom persists one room row.
func (s *Store) PutRoom(ctx context.Context, record storage.RoomRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.JoinCode = strings.TrimSpace(record.JoinCode)
	if record.ID == "" {
		return fmt.Errorf("room id is required")
	}
	if record.JoinCode == "" {
		return fmt.Errorf("room join code is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO rooms (
		id, join_code, name, admin_user_id, initial_points, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		initial_points = excluded.initial_points,
		status = excluded.status,
		updated_at = excluded.updated_at
	`,
		record.ID,
		record.JoinCode,
		record.Name,
		record.AdminUserID,
		record.InitialPoints,
		record.Status,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put room: %w", err)
	}
	return nil
}

// GetRoom loads one room by id.
func (s *Store) GetRoom(ctx context.Context, roomID string) (storage.RoomRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RoomRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.RoomRecord{}, err
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return storage.RoomRecord{}, fmt.Errorf("room id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, join_code, name, admin_user_id, initial_points, status, created_at, updated_at
FROM rooms
WHERE id = ?
`, roomID)
	record, err := scanRoom(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RoomRecord{}, storage.ErrNotFound
		}
		return storage.RoomRecord{}, fmt.Errorf("get room: %w", err)
	}
	return record, nil
}

// GetRoomByJoinCode loads one room by its join code.
func (s *Store) GetRoomByJoinCode(ctx context.Context, joinCode string) (storage.RoomRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RoomRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.RoomRecord{}, err
	}
	joinCode = strings.TrimSpace(joinCode)
	if joinCode == "" {
		return storage.RoomRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, join_code, name, admin_user_id, initial_points, status, created_at, updated_at
FROM rooms
WHERE join_code = ?
`, joinCode)
	record, err := scanRoom(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RoomRecord{}, storage.ErrNotFound
		}
		return storage.RoomRecord{}, fmt.Errorf("get room by join code: %w", err)
	}
	return record, nil
}

// ListRoomsByAdmin lists rooms administered by one user, newest first.
func (s *Store) ListRoomsByAdmin(ctx context.Context, adminUserID string) ([]storage.RoomRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	adminUserID = strings.TrimSpace(adminUserID)
	if adminUserID == "" {
		return nil, fmt.Errorf("admin user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, join_code, name, admin_user_id, initial_points, status, created_at, updated_at
FROM rooms
WHERE admin_user_id = ?
ORDER BY created_at DESC, id DESC
`, adminUserID)
	if err != nil {
		return nil, fmt.Errorf("list rooms by admin: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

// ListRoomsByParticipant lists rooms one user has joined, newest first.
func (s *Store) ListRoomsByParticipant(ctx context.Context, userID string) ([]storage.RoomRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT r.id, r.join_code, r.name, r.admin_user_id, r.initial_points, r.status, r.created_at, r.updated_at
FROM rooms r
JOIN participants p ON p.room_id = r.id
WHERE p.user_id = ?
ORDER BY p.joined_at DESC, r.id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms by participant: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

// UpdateRoomStatus sets one room's lifecycle status.
func (s *Store) UpdateRoomStatus(ctx context.Context, roomID string, status storage.RoomStatus, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return fmt.Errorf("room id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE rooms
SET status = ?, updated_at = ?
WHERE id = ?
`, status, toMillis(updatedAt), roomID)
	if err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room status rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteRoom removes one room; dependent rows cascade.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return fmt.Errorf("room id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete room rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanRoom(scan scanner) (storage.RoomRecord, error) {
	var record storage.RoomRecord
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.JoinCode,
		&record.Name,
		&record.AdminUserID,
		&record.InitialPoints,
		&record.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.RoomRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func collectRooms(rows *sql.Rows) ([]storage.RoomRecord, error) {
	var records []storage.RoomRecord
	for rows.Next() {
		record, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan room row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room rows: %w", err)
	}
	return records, nil
}
