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

// PutPurchaseRequest persists one purchase request row. A second pending
// request from the same buyer for the same code returns CodeRequestDuplicate.
func (s *Store) PutPurchaseRequest(ctx context.Context, record storage.PurchaseRequestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return fmt.Errorf("purchase request id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO purchase_requests (
		id, room_id, unlock_code_id, seller_user_id, buyer_user_id,
		offered_price, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.RoomID,
		record.UnlockCodeID,
		record.SellerUserID,
		record.BuyerUserID,
		record.OfferedPrice,
		record.Status,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return apperrors.New(apperrors.CodeRequestDuplicate, "pending purchase request already exists")
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("put purchase request: %w", err)
	}
	return nil
}

// GetPurchaseRequest loads one purchase request by id.
func (s *Store) GetPurchaseRequest(ctx context.Context, requestID string) (storage.PurchaseRequestRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.PurchaseRequestRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.PurchaseRequestRecord{}, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return storage.PurchaseRequestRecord{}, fmt.Errorf("purchase request id is required")
	}

	return getPurchaseRequestQuery(ctx, s.sqlDB, requestID)
}

// ListPendingRequestsBySeller lists one seller's pending requests, oldest first.
func (s *Store) ListPendingRequestsBySeller(ctx context.Context, roomID string, sellerUserID string) ([]storage.PurchaseRequestRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roomID = strings.TrimSpace(roomID)
	sellerUserID = strings.TrimSpace(sellerUserID)
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	if sellerUserID == "" {
		return nil, fmt.Errorf("seller user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		purchaseRequestSelect+` WHERE room_id = ? AND seller_user_id = ? AND status = ? ORDER BY created_at ASC, id ASC`,
		roomID, sellerUserID, storage.RequestStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	var records []storage.PurchaseRequestRecord
	for rows.Next() {
		record, err := scanPurchaseRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan purchase request row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase request rows: %w", err)
	}
	return records, nil
}

const purchaseRequestSelect = `
SELECT id, room_id, unlock_code_id, seller_user_id, buyer_user_id,
       offered_price, status, created_at, updated_at
FROM purchase_requests`

func getPurchaseRequestQuery(ctx context.Context, querier sqlQuerier, requestID string) (storage.PurchaseRequestRecord, error) {
	row := querier.QueryRowContext(ctx, purchaseRequestSelect+` WHERE id = ?`, requestID)
	record, err := scanPurchaseRequest(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PurchaseRequestRecord{}, storage.ErrNotFound
		}
		return storage.PurchaseRequestRecord{}, fmt.Errorf("get purchase request: %w", err)
	}
	return record, nil
}

func scanPurchaseRequest(scan scanner) (storage.PurchaseRequestRecord, error) {
	var record storage.PurchaseRequestRecord
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.RoomID,
		&record.UnlockCodeID,
		&record.SellerUserID,
		&record.BuyerUserID,
		&record.OfferedPrice,
		&record.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.PurchaseRequestRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
