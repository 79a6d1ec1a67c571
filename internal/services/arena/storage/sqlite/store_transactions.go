package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

// ListTransactionsByUser lists ledger entries involving one user in either
// direction, newest first, capped at limit.
func (s *Store) ListTransactionsByUser(ctx context.Context, roomID string, userID string, limit int) ([]storage.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roomID = strings.TrimSpace(roomID)
	userID = strings.TrimSpace(userID)
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, room_id, type, from_user_id, to_user_id, points, question_id, unlock_code_id, description, created_at
FROM transactions
WHERE room_id = ? AND (from_user_id = ? OR to_user_id = ?)
ORDER BY created_at DESC, id DESC
LIMIT ?
`, roomID, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions by user: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactionsByRoom lists a room's full ledger, newest first.
func (s *Store) ListTransactionsByRoom(ctx context.Context, roomID string) ([]storage.TransactionRecord, error) {
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
SELECT id, room_id, type, from_user_id, to_user_id, points, question_id, unlock_code_id, description, created_at
FROM transactions
WHERE room_id = ?
ORDER BY created_at DESC, id DESC
`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by room: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func insertTransactionExec(ctx context.Context, execer sqlExecer, record storage.TransactionRecord) error {
	_, err := execer.ExecContext(ctx, `
	INSERT INTO transactions (
		id, room_id, type, from_user_id, to_user_id, points,
		question_id, unlock_code_id, description, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.RoomID,
		record.Type,
		record.FromUserID,
		record.ToUserID,
		record.Points,
		record.QuestionID,
		record.UnlockCodeID,
		record.Description,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func scanTransaction(scan scanner) (storage.TransactionRecord, error) {
	var record storage.TransactionRecord
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.RoomID,
		&record.Type,
		&record.FromUserID,
		&record.ToUserID,
		&record.Points,
		&record.QuestionID,
		&record.UnlockCodeID,
		&record.Description,
		&createdAt,
	); err != nil {
		return storage.TransactionRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func collectTransactions(rows *sql.Rows) ([]storage.TransactionRecord, error) {
	var records []storage.TransactionRecord
	for rows.Next() {
		record, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return records, nil
}
