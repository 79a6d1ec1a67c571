package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

// PutQuestion persists one question row.
func (s *Store) PutQuestion(ctx context.Context, record storage.QuestionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.RoomID = strings.TrimSpace(record.RoomID)
	if record.ID == "" {
		return fmt.Errorf("question id is required")
	}
	if record.RoomID == "" {
		return fmt.Errorf("room id is required")
	}

	testCasesJSON, err := json.Marshal(record.TestCases)
	if err != nil {
		return fmt.Errorf("marshal test cases: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO questions (
		id, room_id, number, title, description, input_format, output_format,
		constraints, examples, test_cases_json, points, difficulty, access_code, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		input_format = excluded.input_format,
		output_format = excluded.output_format,
		constraints = excluded.constraints,
		examples = excluded.examples,
		test_cases_json = excluded.test_cases_json,
		points = excluded.points,
		difficulty = excluded.difficulty,
		access_code = excluded.access_code
	`,
		record.ID,
		record.RoomID,
		record.Number,
		record.Title,
		record.Description,
		record.InputFormat,
		record.OutputFormat,
		record.Constraints,
		record.Examples,
		string(testCasesJSON),
		record.Points,
		record.Difficulty,
		record.AccessCode,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("put question: %w", err)
	}
	return nil
}

// GetQuestion loads one question by id.
func (s *Store) GetQuestion(ctx context.Context, questionID string) (storage.QuestionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.QuestionRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.QuestionRecord{}, err
	}
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return storage.QuestionRecord{}, fmt.Errorf("question id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, questionSelect+` WHERE id = ?`, questionID)
	record, err := scanQuestion(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.QuestionRecord{}, storage.ErrNotFound
		}
		return storage.QuestionRecord{}, fmt.Errorf("get question: %w", err)
	}
	return record, nil
}

// GetQuestionByNumber loads one question by its sequence number in a room.
func (s *Store) GetQuestionByNumber(ctx context.Context, roomID string, number int) (storage.QuestionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.QuestionRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.QuestionRecord{}, err
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return storage.QuestionRecord{}, fmt.Errorf("room id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, questionSelect+` WHERE room_id = ? AND number = ?`, roomID, number)
	record, err := scanQuestion(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.QuestionRecord{}, storage.ErrNotFound
		}
		return storage.QuestionRecord{}, fmt.Errorf("get question by number: %w", err)
	}
	return record, nil
}

// GetQuestionByAccessCode loads the room question carrying an access code.
// The match is case-insensitive.
func (s *Store) GetQuestionByAccessCode(ctx context.Context, roomID string, accessCode string) (storage.QuestionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.QuestionRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.QuestionRecord{}, err
	}
	roomID = strings.TrimSpace(roomID)
	accessCode = strings.TrimSpace(accessCode)
	if roomID == "" {
		return storage.QuestionRecord{}, fmt.Errorf("room id is required")
	}
	if accessCode == "" {
		return storage.QuestionRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx,
		questionSelect+` WHERE room_id = ? AND access_code != '' AND LOWER(access_code) = LOWER(?)`,
		roomID, accessCode)
	record, err := scanQuestion(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.QuestionRecord{}, storage.ErrNotFound
		}
		return storage.QuestionRecord{}, fmt.Errorf("get question by access code: %w", err)
	}
	return record, nil
}

// ListQuestionsByRoom lists a room's questions in sequence order.
func (s *Store) ListQuestionsByRoom(ctx context.Context, roomID string) ([]storage.QuestionRecord, error) {
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

	rows, err := s.sqlDB.QueryContext(ctx, questionSelect+` WHERE room_id = ? ORDER BY number ASC`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var records []storage.QuestionRecord
	for rows.Next() {
		record, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question rows: %w", err)
	}
	return records, nil
}

// NextQuestionNumber returns the next unused sequence number for a room.
func (s *Store) NextQuestionNumber(ctx context.Context, roomID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return 0, fmt.Errorf("room id is required")
	}

	var maxNumber sql.NullInt64
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT MAX(number) FROM questions WHERE room_id = ?
`, roomID).Scan(&maxNumber); err != nil {
		return 0, fmt.Errorf("next question number: %w", err)
	}
	return int(maxNumber.Int64) + 1, nil
}

const questionSelect = `
SELECT id, room_id, number, title, description, input_format, output_format,
       constraints, examples, test_cases_json, points, difficulty, access_code, created_at
FROM questions`

func scanQuestion(scan scanner) (storage.QuestionRecord, error) {
	var record storage.QuestionRecord
	var testCasesJSON string
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.RoomID,
		&record.Number,
		&record.Title,
		&record.Description,
		&record.InputFormat,
		&record.OutputFormat,
		&record.Constraints,
		&record.Examples,
		&testCasesJSON,
		&record.Points,
		&record.Difficulty,
		&record.AccessCode,
		&createdAt,
	); err != nil {
		return storage.QuestionRecord{}, err
	}
	if err := json.Unmarshal([]byte(testCasesJSON), &record.TestCases); err != nil {
		return storage.QuestionRecord{}, fmt.Errorf("unmarshal test cases: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
