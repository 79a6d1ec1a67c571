// Package unlockcode manages the unlock-code lifecycle: minting, listing
// for sale, and redemption against the room question sequence.
package unlockcode

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/platform/id"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

// mintRetries bounds retries when a generated code value collides.
const mintRetries = 5

// Store is the unlock-code persistence boundary.
type Store interface {
	PutUnlockCode(ctx context.Context, record storage.UnlockCodeRecord) error
	GetUnlockCodeByOwnerAndValue(ctx context.Context, roomID string, ownerUserID string, codeValue string) (storage.UnlockCodeRecord, error)
	ListCodesByOwner(ctx context.Context, roomID string, ownerUserID string) ([]storage.UnlockCodeRecord, error)
	MarkCodeForSale(ctx context.Context, codeID string, price int, updatedAt time.Time) error
	MarkCodeUsed(ctx context.Context, codeID string, usedByUserID string, updatedAt time.Time) error
	HasUnlockForQuestion(ctx context.Context, roomID string, userID string, questionID string) (bool, error)
}

// QuestionReader resolves redeem targets.
type QuestionReader interface {
	GetQuestion(ctx context.Context, questionID string) (storage.QuestionRecord, error)
	GetQuestionByAccessCode(ctx context.Context, roomID string, accessCode string) (storage.QuestionRecord, error)
}

// Service orchestrates unlock-code lifecycle behavior.
type Service struct {
	store     Store
	questions QuestionReader
	clock     func() time.Time
	newID     func() (string, error)
	newCode   func() (string, error)
}

// NewService constructs unlock-code use-cases.
func NewService(store Store, questions QuestionReader, clock func() time.Time, newID func() (string, error), newCode func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	if newCode == nil {
		newCode = GenerateValue
	}
	return &Service{
		store:     store,
		questions: questions,
		clock:     clock,
		newID:     newID,
		newCode:   newCode,
	}
}

// MintInput describes one unlock code to create. An empty Value requests a
// random code.
type MintInput struct {
	RoomID           string
	SourceQuestionID string
	TargetQuestionID string
	OwnerUserID      string
	CanSell          bool
	ForSale          bool
	Price            int
	Value            string
}

// Mint creates one unlock code, retrying on value collisions when the value
// was generated.
func (s *Service) Mint(ctx context.Context, input MintInput) (storage.UnlockCodeRecord, error) {
	if s == nil || s.store == nil {
		return storage.UnlockCodeRecord{}, apperrors.New(apperrors.CodeUnknown, "unlock code store is not configured")
	}
	input.RoomID = strings.TrimSpace(input.RoomID)
	input.TargetQuestionID = strings.TrimSpace(input.TargetQuestionID)
	input.OwnerUserID = strings.TrimSpace(input.OwnerUserID)
	input.Value = strings.TrimSpace(input.Value)
	if input.RoomID == "" || input.TargetQuestionID == "" || input.OwnerUserID == "" {
		return storage.UnlockCodeRecord{}, apperrors.New(apperrors.CodeNotFound, "mint target is incomplete")
	}

	generated := input.Value == ""
	attempts := 1
	if generated {
		attempts = mintRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		value := input.Value
		if generated {
			var err error
			value, err = s.newCode()
			if err != nil {
				return storage.UnlockCodeRecord{}, err
			}
		}
		codeID, err := s.newID()
		if err != nil {
			return storage.UnlockCodeRecord{}, err
		}
		now := s.clock().UTC()
		record := storage.UnlockCodeRecord{
			ID:               codeID,
			Code:             value,
			RoomID:           input.RoomID,
			SourceQuestionID: input.SourceQuestionID,
			TargetQuestionID: input.TargetQuestionID,
			OwnerUserID:      input.OwnerUserID,
			CanSell:          input.CanSell,
			IsForSale:        input.ForSale,
			SellingPrice:     input.Price,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err = s.store.PutUnlockCode(ctx, record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, storage.ErrConflict) || !generated {
			return storage.UnlockCodeRecord{}, err
		}
		lastErr = err
	}
	return storage.UnlockCodeRecord{}, lastErr
}

// ListForSale lists one owned code on the room marketplace.
func (s *Service) ListForSale(ctx context.Context, roomID string, ownerUserID string, codeValue string, price int) (storage.UnlockCodeRecord, error) {
	if s == nil || s.store == nil {
		return storage.UnlockCodeRecord{}, apperrors.New(apperrors.CodeUnknown, "unlock code store is not configured")
	}
	codeValue = strings.TrimSpace(codeValue)
	if codeValue == "" {
		return storage.UnlockCodeRecord{}, apperrors.New(apperrors.CodeUnlockCodeRequired, "unlock code value is required")
	}
	if price <= 0 {
		return storage.UnlockCodeRecord{}, apperrors.New(apperrors.CodeSellingPriceInvalid, "selling price must be greater than zero")
	}

	record, err := s.store.GetUnlockCodeByOwnerAndValue(ctx, roomID, ownerUserID, codeValue)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.UnlockCodeRecord{}, apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found for owner")
		}
		return storage.UnlockCodeRecord{}, err
	}
	if err := sellableState(record); err != nil {
		return storage.UnlockCodeRecord{}, err
	}

	now := s.clock().UTC()
	if err := s.store.MarkCodeForSale(ctx, record.ID, price, now); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return storage.UnlockCodeRecord{}, apperrors.New(apperrors.CodeUnlockCodeNotSellable, "unlock code state changed")
		}
		return storage.UnlockCodeRecord{}, err
	}
	record.IsForSale = true
	record.SellingPrice = price
	record.UpdatedAt = now
	return record, nil
}

// sellableState reports why a code cannot be listed, if anything.
func sellableState(record storage.UnlockCodeRecord) error {
	if !record.CanSell {
		return apperrors.New(apperrors.CodeUnlockCodeNotSellable, "unlock code is not sellable")
	}
	if record.IsUsed {
		return apperrors.New(apperrors.CodeUnlockCodeUsed, "unlock code already used")
	}
	if record.SoldToUserID != "" {
		return apperrors.New(apperrors.CodeUnlockCodeSold, "unlock code already sold")
	}
	if record.IsForSale {
		return apperrors.New(apperrors.CodeUnlockCodeListed, "unlock code already listed for sale")
	}
	return nil
}

// RedeemResult reports the question a redeemed code unlocked.
type RedeemResult struct {
	Question storage.QuestionRecord
	// AlreadyUnlocked is set when an access-code redeem matched a question
	// the user had already unlocked.
	AlreadyUnlocked bool
}

// Redeem consumes an owned unlock code, or falls back to the room's static
// access codes when no owned code matches. Access-code redemption is
// idempotent: a question already unlocked reports success without minting.
func (s *Service) Redeem(ctx context.Context, roomID string, userID string, codeValue string) (RedeemResult, error) {
	if s == nil || s.store == nil || s.questions == nil {
		return RedeemResult{}, apperrors.New(apperrors.CodeUnknown, "unlock code store is not configured")
	}
	roomID = strings.TrimSpace(roomID)
	userID = strings.TrimSpace(userID)
	codeValue = strings.TrimSpace(codeValue)
	if codeValue == "" {
		return RedeemResult{}, apperrors.New(apperrors.CodeUnlockCodeRequired, "unlock code value is required")
	}

	record, err := s.store.GetUnlockCodeByOwnerAndValue(ctx, roomID, userID, codeValue)
	if err == nil {
		if err := s.store.MarkCodeUsed(ctx, record.ID, userID, s.clock().UTC()); err != nil {
			return RedeemResult{}, err
		}
		question, err := s.questions.GetQuestion(ctx, record.TargetQuestionID)
		if err != nil {
			return RedeemResult{}, err
		}
		return RedeemResult{Question: question}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return RedeemResult{}, err
	}

	return s.redeemAccessCode(ctx, roomID, userID, codeValue)
}

func (s *Service) redeemAccessCode(ctx context.Context, roomID string, userID string, codeValue string) (RedeemResult, error) {
	question, err := s.questions.GetQuestionByAccessCode(ctx, roomID, codeValue)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return RedeemResult{}, apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found")
		}
		return RedeemResult{}, err
	}

	unlocked, err := s.store.HasUnlockForQuestion(ctx, roomID, userID, question.ID)
	if err != nil {
		return RedeemResult{}, err
	}
	if unlocked {
		return RedeemResult{Question: question, AlreadyUnlocked: true}, nil
	}

	// Mint a consumed stand-in so the grant shows up in the user's codes.
	codeID, err := s.newID()
	if err != nil {
		return RedeemResult{}, err
	}
	now := s.clock().UTC()
	standIn := storage.UnlockCodeRecord{
		ID:               codeID,
		Code:             question.AccessCode,
		RoomID:           roomID,
		TargetQuestionID: question.ID,
		OwnerUserID:      userID,
		IsUsed:           true,
		UsedByUserID:     userID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.PutUnlockCode(ctx, standIn); err != nil && !errors.Is(err, storage.ErrConflict) {
		return RedeemResult{}, err
	}
	return RedeemResult{Question: question}, nil
}

// CodesForOwner lists one user's unlock codes in a room.
func (s *Service) CodesForOwner(ctx context.Context, roomID string, ownerUserID string) ([]storage.UnlockCodeRecord, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "unlock code store is not configured")
	}
	return s.store.ListCodesByOwner(ctx, roomID, ownerUserID)
}
