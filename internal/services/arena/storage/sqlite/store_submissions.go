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

// PutSubmission persists one graded submission row.
func (s *Store) PutSubmission(ctx context.Context, record storage.SubmissionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return fmt.Errorf("submission id is required")
	}

	return insertSubmissionExec(ctx, s.sqlDB, record)
}

// HasCorrectSubmission reports whether a user already solved a question.
func (s *Store) HasCorrectSubmission(ctx context.Context, roomID string, userID string, questionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	roomID = strings.TrimSpace(roomID)
	userID = strings.TrimSpace(userID)
	questionID = strings.TrimSpace(questionID)
	if roomID == "" {
		return false, fmt.Errorf("room id is required")
	}
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}
	if questionID == "" {
		return false, fmt.Errorf("question id is required")
	}

	var found int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT 1
FROM submissions
WHERE room_id = ? AND user_id = ? AND question_id = ? AND status = ?
LIMIT 1
`, roomID, userID, questionID, storage.SubmissionStatusCorrect).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("has correct submission: %w", err)
	}
	return true, nil
}

// ListSubmissionsByUser lists one user's submissions in a room, newest first.
func (s *Store) ListSubmissionsByUser(ctx context.Context, roomID string, userID string) ([]storage.SubmissionRecord, error) {
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

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, room_id, user_id, question_id, output, status, points_earned, created_at
FROM submissions
WHERE room_id = ? AND user_id = ?
ORDER BY created_at DESC, id DESC
`, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var records []storage.SubmissionRecord
	for rows.Next() {
		record, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}
	return records, nil
}

func insertSubmissionExec(ctx context.Context, execer sqlExecer, record storage.SubmissionRecord) error {
	_, err := execer.ExecContext(ctx, `
	INSERT INTO submissions (
		id, room_id, user_id, question_id, output, status, points_earned, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.RoomID,
		record.UserID,
		record.QuestionID,
		record.Output,
		record.Status,
		record.PointsEarned,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return apperrors.New(apperrors.CodeQuestionAlreadySolved, "question already solved")
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func scanSubmission(scan scanner) (storage.SubmissionRecord, error) {
	var record storage.SubmissionRecord
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.RoomID,
		&record.UserID,
		&record.QuestionID,
		&record.Output,
		&record.Status,
		&record.PointsEarned,
		&createdAt,
	); err != nil {
		return storage.SubmissionRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
