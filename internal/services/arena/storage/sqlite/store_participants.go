package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

// JoinRoom atomically persists a participant row with its seed allocation
// ledger entry.
func (s *Store) JoinRoom(ctx context.Context, participant storage.ParticipantRecord, allocation storage.TransactionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	participant.RoomID = strings.TrimSpace(participant.RoomID)
	participant.UserID = strings.TrimSpace(participant.UserID)
	if participant.RoomID == "" {
		return fmt.Errorf("room id is required")
	}
	if participant.UserID == "" {
		return fmt.Errorf("user id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin join room write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback join room write: %v", cause, rollbackErr)
		}
		return cause
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO participants (
		room_id, user_id, team_name, current_points, is_banned, joined_at
	) VALUES (?, ?, ?, ?, 0, ?)
	`,
		participant.RoomID,
		participant.UserID,
		participant.TeamName,
		participant.CurrentPoints,
		toMillis(participant.JoinedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return rollbackWith(apperrors.New(apperrors.CodeRoomAlreadyJoined, "participant already joined room"))
		}
		if isForeignKeyConstraintError(err) {
			return rollbackWith(storage.ErrNotFound)
		}
		return rollbackWith(fmt.Errorf("insert participant: %w", err))
	}

	if err := insertTransactionExec(ctx, tx, allocation); err != nil {
		return rollbackWith(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit join room write: %w", err)
	}
	return nil
}

// GetParticipant loads one participant by room and user.
func (s *Store) GetParticipant(ctx context.Context, roomID string, userID string) (storage.ParticipantRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ParticipantRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.ParticipantRecord{}, err
	}
	roomID = strings.TrimSpace(roomID)
	userID = strings.TrimSpace(userID)
	if roomID == "" {
		return storage.ParticipantRecord{}, fmt.Errorf("room id is required")
	}
	if userID == "" {
		return storage.ParticipantRecord{}, fmt.Errorf("user id is required")
	}

	return getParticipantQuery(ctx, s.sqlDB, roomID, userID)
}

// ListParticipants lists a room's participants by points descending.
func (s *Store) ListParticipants(ctx context.Context, roomID string) ([]storage.ParticipantRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT room_id, user_id, team_name, current_points, is_banned, joined_at
FROM participants
WHERE room_id = ?
ORDER BY current_points DESC, joined_at ASC
`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var records []storage.ParticipantRecord
	for rows.Next() {
		record, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan participant row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participant rows: %w", err)
	}
	return records, nil
}

// SetParticipantBanned flips one participant's ban flag.
func (s *Store) SetParticipantBanned(ctx context.Context, roomID string, userID string, banned bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	roomID = strings.TrimSpace(roomID)
	userID = strings.TrimSpace(userID)
	if roomID == "" {
		return fmt.Errorf("room id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE participants
SET is_banned = ?
WHERE room_id = ? AND user_id = ?
`, boolToInt(banned), roomID, userID)
	if err != nil {
		return fmt.Errorf("set participant banned: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set participant banned rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func getParticipantQuery(ctx context.Context, querier sqlQuerier, roomID string, userID string) (storage.ParticipantRecord, error) {
	row := querier.QueryRowContext(ctx, `
SELECT room_id, user_id, team_name, current_points, is_banned, joined_at
FROM participants
WHERE room_id = ? AND user_id = ?
`, roomID, userID)
	record, err := scanParticipant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ParticipantRecord{}, storage.ErrNotFound
		}
		return storage.ParticipantRecord{}, fmt.Errorf("get participant: %w", err)
	}
	return record, nil
}

func scanParticipant(scan scanner) (storage.ParticipantRecord, error) {
	var record storage.ParticipantRecord
	var isBanned int
	var joinedAt int64
	if err := scan(
		&record.RoomID,
		&record.UserID,
		&record.TeamName,
		&record.CurrentPoints,
		&isBanned,
		&joinedAt,
	); err != nil {
		return storage.ParticipantRecord{}, err
	}
	record.IsBanned = isBanned != 0
	record.JoinedAt = fromMillis(joinedAt)
	return record, nil
}
