package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

// PutUnlockCode persists one unlock code row.
func (s *Store) PutUnlockCode(ctx context.Context, record storage.UnlockCodeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.Code = strings.TrimSpace(record.Code)
	if record.ID == "" {
		return fmt.Errorf("unlock code id is required")
	}
	if record.Code == "" {
		return fmt.Errorf("unlock code value is required")
	}

	if err := insertUnlockCodeExec(ctx, s.sqlDB, record); err != nil {
		return err
	}
	return nil
}

// GetUnlockCode loads one unlock code by id.
func (s *Store) GetUnlockCode(ctx context.Context, codeID string) (storage.UnlockCodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UnlockCodeRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.UnlockCodeRecord{}, err
	}
	codeID = strings.TrimSpace(codeID)
	if codeID == "" {
		return storage.UnlockCodeRecord{}, fmt.Errorf("unlock code id is required")
	}

	return getUnlockCodeQuery(ctx, s.sqlDB, codeID)
}

// GetUnlockCodeByOwnerAndValue loads one owned, unconsumed unlock code by
// its value. The value match is case-insensitive.
func (s *Store) GetUnlockCodeByOwnerAndValue(ctx context.Context, roomID string, ownerUserID string, codeValue string) (storage.UnlockCodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UnlockCodeRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.UnlockCodeRecord{}, err
	}
	roomID = strings.TrimSpace(roomID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	codeValue = strings.TrimSpace(codeValue)
	if roomID == "" {
		return storage.UnlockCodeRecord{}, fmt.Errorf("room id is required")
	}
	if ownerUserID == "" {
		return storage.UnlockCodeRecord{}, fmt.Errorf("owner user id is required")
	}
	if codeValue == "" {
		return storage.UnlockCodeRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx,
		unlockCodeSelect+` WHERE room_id = ? AND owner_user_id = ? AND is_used = 0 AND LOWER(code) = LOWER(?)`,
		roomID, ownerUserID, codeValue)
	record, err := scanUnlockCode(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UnlockCodeRecord{}, storage.ErrNotFound
		}
		return storage.UnlockCodeRecord{}, fmt.Errorf("get unlock code by value: %w", err)
	}
	return record, nil
}

// ListCodesByOwner lists one owner's unlock codes in a room, newest first.
func (s *Store) ListCodesByOwner(ctx context.Context, roomID string, ownerUserID string) ([]storage.UnlockCodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roomID = strings.TrimSpace(roomID)
	ownerUserID = strings.TrimSpace(ownerUserID)
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	if ownerUserID == "" {
		return nil, fmt.Errorf("owner user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		unlockCodeSelect+` WHERE room_id = ? AND owner_user_id = ? ORDER BY created_at DESC, id DESC`,
		roomID, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list codes by owner: %w", err)
	}
	defer rows.Close()
	return collectUnlockCodes(rows)
}

// ListCodesForSale lists a room's open listings, newest first.
func (s *Store) ListCodesForSale(ctx context.Context, roomID string) ([]storage.UnlockCodeRecord, error) {
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

	rows, err := s.sqlDB.QueryContext(ctx,
		unlockCodeSelect+` WHERE room_id = ? AND is_for_sale = 1 AND is_used = 0 AND sold_to_user_id = '' ORDER BY updated_at DESC, id DESC`,
		roomID)
	if err != nil {
		return nil, fmt.Errorf("list codes for sale: %w", err)
	}
	defer rows.Close()
	return collectUnlockCodes(rows)
}

// MarkCodeForSale lists one unsold, unused, sellable code at the given price.
func (s *Store) MarkCodeForSale(ctx context.Context, codeID string, price int, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	codeID = strings.TrimSpace(codeID)
	if codeID == "" {
		return fmt.Errorf("unlock code id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE unlock_codes
SET is_for_sale = 1, selling_price = ?, updated_at = ?
WHERE id = ? AND can_sell = 1 AND is_used = 0 AND sold_to_user_id = ''
`, price, toMillis(updatedAt), codeID)
	if err != nil {
		return fmt.Errorf("mark code for sale: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark code for sale rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrConflict
	}
	return nil
}

// MarkCodeUsed consumes one unused code. A second call returns
// CodeUnlockCodeUsed; the flag never flips back.
func (s *Store) MarkCodeUsed(ctx context.Context, codeID string, usedByUserID string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	codeID = strings.TrimSpace(codeID)
	usedByUserID = strings.TrimSpace(usedByUserID)
	if codeID == "" {
		return fmt.Errorf("unlock code id is required")
	}
	if usedByUserID == "" {
		return fmt.Errorf("used by user id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE unlock_codes
SET is_used = 1, used_by_user_id = ?, is_for_sale = 0, updated_at = ?
WHERE id = ? AND is_used = 0
`, usedByUserID, toMillis(updatedAt), codeID)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark code used rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeUnlockCodeUsed, "unlock code already used")
	}
	return nil
}

// HasUnlockForQuestion reports whether a user holds any unlock code
// targeting the given question.
func (s *Store) HasUnlockForQuestion(ctx context.Context, roomID string, userID string, questionID string) (bool, error) {
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
FROM unlock_codes
WHERE room_id = ? AND owner_user_id = ? AND target_question_id = ?
LIMIT 1
`, roomID, userID, questionID).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("has unlock for question: %w", err)
	}
	return true, nil
}

const unlockCodeSelect = `
SELECT id, code, room_id, source_question_id, target_question_id, owner_user_id,
       can_sell, is_used, used_by_user_id, is_for_sale, selling_price, sold_to_user_id,
       created_at, updated_at
FROM unlock_codes`

func insertUnlockCodeExec(ctx context.Context, execer sqlExecer, record storage.UnlockCodeRecord) error {
	_, err := execer.ExecContext(ctx, `
	INSERT INTO unlock_codes (
		id, code, room_id, source_question_id, target_question_id, owner_user_id,
		can_sell, is_used, used_by_user_id, is_for_sale, selling_price, sold_to_user_id,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.Code,
		record.RoomID,
		record.SourceQuestionID,
		record.TargetQuestionID,
		record.OwnerUserID,
		boolToInt(record.CanSell),
		boolToInt(record.IsUsed),
		record.UsedByUserID,
		boolToInt(record.IsForSale),
		record.SellingPrice,
		record.SoldToUserID,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert unlock code: %w", err)
	}
	return nil
}

func getUnlockCodeQuery(ctx context.Context, querier sqlQuerier, codeID string) (storage.UnlockCodeRecord, error) {
	row := querier.QueryRowContext(ctx, unlockCodeSelect+` WHERE id = ?`, codeID)
	record, err := scanUnlockCode(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UnlockCodeRecord{}, storage.ErrNotFound
		}
		return storage.UnlockCodeRecord{}, fmt.Errorf("get unlock code: %w", err)
	}
	return record, nil
}

func scanUnlockCode(scan scanner) (storage.UnlockCodeRecord, error) {
	var record storage.UnlockCodeRecord
	var canSell int
	var isUsed int
	var isForSale int
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.Code,
		&record.RoomID,
		&record.SourceQuestionID,
		&record.TargetQuestionID,
		&record.OwnerUserID,
		&canSell,
		&isUsed,
		&record.UsedByUserID,
		&isForSale,
		&record.SellingPrice,
		&record.SoldToUserID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.UnlockCodeRecord{}, err
	}
	record.CanSell = canSell != 0
	record.IsUsed = isUsed != 0
	record.IsForSale = isForSale != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func collectUnlockCodes(rows *sql.Rows) ([]storage.UnlockCodeRecord, error) {
	var records []storage.UnlockCodeRecord
	for rows.Next() {
		record, err := scanUnlockCode(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan unlock code row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unlock code rows: %w", err)
	}
	return records, nil
}
