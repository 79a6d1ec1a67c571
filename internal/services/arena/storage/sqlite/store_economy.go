package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

// TransferPoints atomically moves points between participants and appends
// the ledger entry. A system credit leaves FromUserID empty and mints points
// for the recipient without a debit.
func (s *Store) TransferPoints(ctx context.Context, params storage.TransferParams) (storage.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.TransactionRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.TransactionRecord{}, err
	}
	params.RoomID = strings.TrimSpace(params.RoomID)
	params.FromUserID = strings.TrimSpace(params.FromUserID)
	params.ToUserID = strings.TrimSpace(params.ToUserID)
	if params.TransactionID == "" {
		return storage.TransactionRecord{}, fmt.Errorf("transaction id is required")
	}
	if params.RoomID == "" {
		return storage.TransactionRecord{}, fmt.Errorf("room id is required")
	}
	if params.ToUserID == "" {
		return storage.TransactionRecord{}, fmt.Errorf("recipient user id is required")
	}
	if params.Points <= 0 {
		return storage.TransactionRecord{}, apperrors.New(apperrors.CodeTransferAmountInvalid, "transfer amount must be greater than zero")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.TransactionRecord{}, fmt.Errorf("begin transfer write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback transfer write: %v", cause, rollbackErr)
		}
		return cause
	}

	if params.FromUserID != "" {
		if err := debitParticipantExec(ctx, tx, params.RoomID, params.FromUserID, params.Points); err != nil {
			return storage.TransactionRecord{}, rollbackWith(err)
		}
	}
	if err := creditParticipantExec(ctx, tx, params.RoomID, params.ToUserID, params.Points); err != nil {
		return storage.TransactionRecord{}, rollbackWith(err)
	}

	record := storage.TransactionRecord{
		ID:           params.TransactionID,
		RoomID:       params.RoomID,
		Type:         params.Type,
		FromUserID:   params.FromUserID,
		ToUserID:     params.ToUserID,
		Points:       params.Points,
		QuestionID:   params.QuestionID,
		UnlockCodeID: params.UnlockCodeID,
		Description:  params.Description,
		CreatedAt:    params.Now.UTC(),
	}
	if err := insertTransactionExec(ctx, tx, record); err != nil {
		return storage.TransactionRecord{}, rollbackWith(err)
	}

	if err := tx.Commit(); err != nil {
		return storage.TransactionRecord{}, fmt.Errorf("commit transfer write: %w", err)
	}
	return record, nil
}

// SettleTrade settles one marketplace trade in a single transaction. Every
// precondition is re-validated against current rows; a failed check aborts
// with a coded error and no effect.
func (s *Store) SettleTrade(ctx context.Context, params storage.SettleTradeParams) (storage.SettleTradeResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.SettleTradeResult{}, err
	}
	if err := s.ready(); err != nil {
		return storage.SettleTradeResult{}, err
	}
	params.RoomID = strings.TrimSpace(params.RoomID)
	params.CodeID = strings.TrimSpace(params.CodeID)
	if params.TransactionID == "" {
		return storage.SettleTradeResult{}, fmt.Errorf("transaction id is required")
	}
	if params.RoomID == "" {
		return storage.SettleTradeResult{}, fmt.Errorf("room id is required")
	}
	if params.CodeID == "" {
		return storage.SettleTradeResult{}, fmt.Errorf("unlock code id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.SettleTradeResult{}, fmt.Errorf("begin trade settle: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback trade settle: %v", cause, rollbackErr)
		}
		return cause
	}

	code, err := getUnlockCodeQuery(ctx, tx, params.CodeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found"))
		}
		return storage.SettleTradeResult{}, rollbackWith(err)
	}
	if code.RoomID != params.RoomID {
		return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found"))
	}

	var seller string
	var buyer string
	var price int

	switch params.Kind {
	case storage.TradeKindDirect:
		seller = params.SellerUserID
		buyer = params.BuyerUserID
		price = params.Price
		if code.OwnerUserID != seller {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeNotFound, "seller does not own unlock code"))
		}
		if !code.CanSell {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeNotSellable, "unlock code is not sellable"))
		}
		if code.IsUsed {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeUsed, "unlock code already used"))
		}
		if code.IsForSale {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeListed, "unlock code already listed for sale"))
		}
		if code.SoldToUserID != "" {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeSold, "unlock code already sold"))
		}
		if buyer == seller {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeTradeSelfTrade, "cannot trade with yourself"))
		}

	case storage.TradeKindListing:
		seller = code.OwnerUserID
		buyer = params.BuyerUserID
		price = code.SellingPrice
		if !code.IsForSale {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeNotForSale, "unlock code is not for sale"))
		}
		if code.IsUsed {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeUsed, "unlock code already used"))
		}
		if code.SoldToUserID != "" {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeSold, "unlock code already sold"))
		}
		if buyer == seller {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeTradeSelfTrade, "cannot buy your own listing"))
		}

	case storage.TradeKindNegotiated:
		seller = params.SellerUserID
		request, err := getPurchaseRequestQuery(ctx, tx, params.RequestID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return storage.SettleTradeResult{}, rollbackWith(storage.ErrNotFound)
			}
			return storage.SettleTradeResult{}, rollbackWith(err)
		}
		if request.RoomID != params.RoomID {
			return storage.SettleTradeResult{}, rollbackWith(storage.ErrNotFound)
		}
		if request.Status != storage.RequestStatusPending {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeRequestAlreadyHandled, "purchase request already processed"))
		}
		if code.OwnerUserID != seller {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeRequestNotSeller, "caller is not the code seller"))
		}
		if code.SoldToUserID != "" {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeSold, "unlock code already sold"))
		}
		if code.IsUsed {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeUsed, "unlock code already used"))
		}
		buyer = request.BuyerUserID
		price = request.OfferedPrice

	default:
		return storage.SettleTradeResult{}, rollbackWith(fmt.Errorf("unknown trade kind %q", params.Kind))
	}

	buyerParticipant, err := getParticipantQuery(ctx, tx, params.RoomID, buyer)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeParticipantNotInRoom, "buyer is not in room"))
		}
		return storage.SettleTradeResult{}, rollbackWith(err)
	}
	if buyerParticipant.IsBanned {
		return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeParticipantBanned, "buyer is banned from room"))
	}
	if buyerParticipant.CurrentPoints < price {
		return storage.SettleTradeResult{}, rollbackWith(apperrors.WithMetadata(
			apperrors.CodeInsufficientPoints,
			"buyer lacks points for trade",
			map[string]string{
				"required":  strconv.Itoa(price),
				"available": strconv.Itoa(buyerParticipant.CurrentPoints),
			},
		))
	}

	if err := debitParticipantExec(ctx, tx, params.RoomID, buyer, price); err != nil {
		return storage.SettleTradeResult{}, rollbackWith(err)
	}
	if err := creditParticipantExec(ctx, tx, params.RoomID, seller, price); err != nil {
		return storage.SettleTradeResult{}, rollbackWith(err)
	}

	now := toMillis(params.Now)
	switch params.Kind {
	case storage.TradeKindDirect:
		result, err := tx.ExecContext(ctx, `
UPDATE unlock_codes
SET is_for_sale = 1, selling_price = ?, sold_to_user_id = ?, can_sell = 0, updated_at = ?
WHERE id = ? AND is_used = 0 AND sold_to_user_id = ''
`, price, buyer, now, params.CodeID)
		if err != nil {
			return storage.SettleTradeResult{}, rollbackWith(fmt.Errorf("annotate sold code: %w", err))
		}
		if err := requireOneRow(result, apperrors.New(apperrors.CodeUnlockCodeSold, "unlock code already sold")); err != nil {
			return storage.SettleTradeResult{}, rollbackWith(err)
		}

	case storage.TradeKindListing:
		result, err := tx.ExecContext(ctx, `
UPDATE unlock_codes
SET is_used = 1, used_by_user_id = ?, is_for_sale = 0, updated_at = ?
WHERE id = ? AND is_used = 0 AND is_for_sale = 1
`, buyer, now, params.CodeID)
		if err != nil {
			return storage.SettleTradeResult{}, rollbackWith(fmt.Errorf("consume listed code: %w", err))
		}
		if err := requireOneRow(result, apperrors.New(apperrors.CodeUnlockCodeUsed, "unlock code already used")); err != nil {
			return storage.SettleTradeResult{}, rollbackWith(err)
		}

	case storage.TradeKindNegotiated:
		result, err := tx.ExecContext(ctx, `
UPDATE unlock_codes
SET sold_to_user_id = ?, can_sell = 0, updated_at = ?
WHERE id = ? AND is_used = 0 AND sold_to_user_id = ''
`, buyer, now, params.CodeID)
		if err != nil {
			return storage.SettleTradeResult{}, rollbackWith(fmt.Errorf("annotate sold code: %w", err))
		}
		if err := requireOneRow(result, apperrors.New(apperrors.CodeUnlockCodeSold, "unlock code already sold")); err != nil {
			return storage.SettleTradeResult{}, rollbackWith(err)
		}

		result, err = tx.ExecContext(ctx, `
UPDATE purchase_requests
SET status = ?, updated_at = ?
WHERE id = ? AND status = ?
`, storage.RequestStatusAccepted, now, params.RequestID, storage.RequestStatusPending)
		if err != nil {
			return storage.SettleTradeResult{}, rollbackWith(fmt.Errorf("accept purchase request: %w", err))
		}
		if err := requireOneRow(result, apperrors.New(apperrors.CodeRequestAlreadyHandled, "purchase request already processed")); err != nil {
			return storage.SettleTradeResult{}, rollbackWith(err)
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE purchase_requests
SET status = ?, updated_at = ?
WHERE unlock_code_id = ? AND status = ?
`, storage.RequestStatusRejected, now, params.CodeID, storage.RequestStatusPending); err != nil {
			return storage.SettleTradeResult{}, rollbackWith(fmt.Errorf("reject competing requests: %w", err))
		}
	}

	minted := params.MintedCode
	minted.RoomID = params.RoomID
	minted.OwnerUserID = buyer
	if err := insertUnlockCodeExec(ctx, tx, minted); err != nil {
		// Access-code listings reuse the literal value, so the buyer can
		// already hold an identical code.
		if errors.Is(err, storage.ErrConflict) {
			return storage.SettleTradeResult{}, rollbackWith(apperrors.New(apperrors.CodeUnlockCodeOwned, "buyer already owns a code with this value"))
		}
		return storage.SettleTradeResult{}, rollbackWith(err)
	}

	transaction := storage.TransactionRecord{
		ID:           params.TransactionID,
		RoomID:       params.RoomID,
		Type:         storage.TransactionTypeCodePurchase,
		FromUserID:   buyer,
		ToUserID:     seller,
		Points:       price,
		QuestionID:   code.TargetQuestionID,
		UnlockCodeID: params.CodeID,
		Description:  params.Description,
		CreatedAt:    params.Now.UTC(),
	}
	if err := insertTransactionExec(ctx, tx, transaction); err != nil {
		return storage.SettleTradeResult{}, rollbackWith(err)
	}

	if err := tx.Commit(); err != nil {
		return storage.SettleTradeResult{}, fmt.Errorf("commit trade settle: %w", err)
	}
	return storage.SettleTradeResult{
		Transaction: transaction,
		MintedCode:  minted,
		Price:       price,
	}, nil
}

// RecordSolve atomically records a correct submission, awards its points,
// and mints the next-question unlock code when one is supplied.
func (s *Store) RecordSolve(ctx context.Context, params storage.RecordSolveParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	submission := params.Submission
	if strings.TrimSpace(submission.ID) == "" {
		return fmt.Errorf("submission id is required")
	}
	if params.TransactionID == "" {
		return fmt.Errorf("transaction id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin solve settle: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback solve settle: %v", cause, rollbackErr)
		}
		return cause
	}

	if err := insertSubmissionExec(ctx, tx, submission); err != nil {
		return rollbackWith(err)
	}
	if err := creditParticipantExec(ctx, tx, submission.RoomID, submission.UserID, submission.PointsEarned); err != nil {
		return rollbackWith(err)
	}

	transaction := storage.TransactionRecord{
		ID:          params.TransactionID,
		RoomID:      submission.RoomID,
		Type:        storage.TransactionTypeQuestionSolve,
		ToUserID:    submission.UserID,
		Points:      submission.PointsEarned,
		QuestionID:  submission.QuestionID,
		Description: "question solve award",
		CreatedAt:   params.Now.UTC(),
	}
	if err := insertTransactionExec(ctx, tx, transaction); err != nil {
		return rollbackWith(err)
	}

	if params.MintedCode != nil {
		err := insertUnlockCodeExec(ctx, tx, *params.MintedCode)
		// A solver can already hold the literal access-code value through a
		// trade; the existing code grants the same access.
		if err != nil && !errors.Is(err, storage.ErrConflict) {
			return rollbackWith(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit solve settle: %w", err)
	}
	return nil
}

func debitParticipantExec(ctx context.Context, execer sqlExecer, roomID string, userID string, points int) error {
	result, err := execer.ExecContext(ctx, `
UPDATE participants
SET current_points = current_points - ?
WHERE room_id = ? AND user_id = ? AND is_banned = 0 AND current_points >= ?
`, points, roomID, userID, points)
	if err != nil {
		return fmt.Errorf("debit participant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit participant rows affected: %w", err)
	}
	if affected == 0 {
		return classifyDebitFailure(ctx, execer, roomID, userID)
	}
	return nil
}

func creditParticipantExec(ctx context.Context, execer sqlExecer, roomID string, userID string, points int) error {
	result, err := execer.ExecContext(ctx, `
UPDATE participants
SET current_points = current_points + ?
WHERE room_id = ? AND user_id = ?
`, points, roomID, userID)
	if err != nil {
		return fmt.Errorf("credit participant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit participant rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeParticipantNotInRoom, "recipient is not in room")
	}
	return nil
}

// classifyDebitFailure distinguishes a missing payer, a banned payer, and an
// insufficient balance after a conditional debit matched no row.
func classifyDebitFailure(ctx context.Context, execer sqlExecer, roomID string, userID string) error {
	querier, ok := execer.(sqlQuerier)
	if !ok {
		return apperrors.New(apperrors.CodeInsufficientPoints, "payer cannot cover transfer")
	}
	participant, err := getParticipantQuery(ctx, querier, roomID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeParticipantNotInRoom, "payer is not in room")
		}
		return err
	}
	if participant.IsBanned {
		return apperrors.New(apperrors.CodeParticipantBanned, "payer is banned from room")
	}
	return apperrors.New(apperrors.CodeInsufficientPoints, "payer cannot cover transfer")
}

func requireOneRow(result interface{ RowsAffected() (int64, error) }, conflict error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return conflict
	}
	return nil
}
