// Package ledger exposes the point-transfer primitive every economy
// mutation settles through.
package ledger

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/platform/id"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

// Store is the ledger persistence boundary.
type Store interface {
	TransferPoints(ctx context.Context, params storage.TransferParams) (storage.TransactionRecord, error)
}

// Service executes atomic point transfers.
type Service struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs the ledger primitive.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store: store,
		clock: clock,
		newID: newID,
	}
}

// TransferInput describes one requested point movement. An empty FromUserID
// is a system credit that mints points for the recipient.
type TransferInput struct {
	RoomID       string
	FromUserID   string
	ToUserID     string
	Points       int
	Type         storage.TransactionType
	QuestionID   string
	UnlockCodeID string
	Description  string
}

// Transfer validates the input and settles the transfer atomically. On any
// precondition failure the ledger is left untouched.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (storage.TransactionRecord, error) {
	if s == nil || s.store == nil {
		return storage.TransactionRecord{}, apperrors.New(apperrors.CodeUnknown, "ledger store is not configured")
	}
	input.RoomID = strings.TrimSpace(input.RoomID)
	input.FromUserID = strings.TrimSpace(input.FromUserID)
	input.ToUserID = strings.TrimSpace(input.ToUserID)
	if input.RoomID == "" {
		return storage.TransactionRecord{}, apperrors.New(apperrors.CodeNotFound, "room id is required")
	}
	if input.ToUserID == "" {
		return storage.TransactionRecord{}, apperrors.New(apperrors.CodeTradeBuyerRequired, "transfer recipient is required")
	}
	if input.Points <= 0 {
		return storage.TransactionRecord{}, apperrors.New(apperrors.CodeTransferAmountInvalid, "transfer amount must be greater than zero")
	}
	if input.FromUserID == input.ToUserID {
		return storage.TransactionRecord{}, apperrors.New(apperrors.CodeTradeSelfTrade, "cannot transfer points to yourself")
	}

	transactionID, err := s.newID()
	if err != nil {
		return storage.TransactionRecord{}, err
	}
	return s.store.TransferPoints(ctx, storage.TransferParams{
		TransactionID: transactionID,
		RoomID:        input.RoomID,
		FromUserID:    input.FromUserID,
		ToUserID:      input.ToUserID,
		Points:        input.Points,
		Type:          input.Type,
		QuestionID:    input.QuestionID,
		UnlockCodeID:  input.UnlockCodeID,
		Description:   strings.TrimSpace(input.Description),
		Now:           s.clock().UTC(),
	})
}
