// Package market implements the marketplace protocol: direct sales, open
// listing purchases, and negotiated purchase requests. All three flows
// settle through one atomic store operation.
package market

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/platform/grpc/pagination"
	"github.com/Tejaspatil1175/codecore-backend/internal/platform/id"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

const (
	defaultListingPageSize = 50
	maxListingPageSize     = 200
)

// Store is the marketplace persistence boundary.
type Store interface {
	SettleTrade(ctx context.Context, params storage.SettleTradeParams) (storage.SettleTradeResult, error)
	GetUnlockCode(ctx context.Context, codeID string) (storage.UnlockCodeRecord, error)
	GetUnlockCodeByOwnerAndValue(ctx context.Context, roomID string, ownerUserID string, codeValue string) (storage.UnlockCodeRecord, error)
	ListCodesForSale(ctx context.Context, roomID string) ([]storage.UnlockCodeRecord, error)
	PutPurchaseRequest(ctx context.Context, record storage.PurchaseRequestRecord) error
	GetPurchaseRequest(ctx context.Context, requestID string) (storage.PurchaseRequestRecord, error)
	ListPendingRequestsBySeller(ctx context.Context, roomID string, sellerUserID string) ([]storage.PurchaseRequestRecord, error)
}

// Service orchestrates marketplace trades.
type Service struct {
	store  Store
	clock  func() time.Time
	newID  func() (string, error)
	tracer trace.Tracer
}

// NewService constructs marketplace use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store:  store,
		clock:  clock,
		newID:  newID,
		tracer: otel.Tracer("arena/market"),
	}
}

// SellInput describes one direct sale to a chosen buyer.
type SellInput struct {
	RoomID       string
	SellerUserID string
	CodeValue    string
	BuyerUserID  string
	Price        int
}

// SellToTeam settles a direct sale: the buyer pays the agreed price, the
// original code stays with the seller as a sold audit record, and the buyer
// receives a fresh non-sellable copy.
func (s *Service) SellToTeam(ctx context.Context, input SellInput) (storage.SettleTradeResult, error) {
	if s == nil || s.store == nil {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeUnknown, "market store is not configured")
	}
	input.BuyerUserID = strings.TrimSpace(input.BuyerUserID)
	input.CodeValue = strings.TrimSpace(input.CodeValue)
	if input.BuyerUserID == "" {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeTradeBuyerRequired, "buyer is required")
	}
	if input.CodeValue == "" {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeUnlockCodeRequired, "unlock code value is required")
	}
	if input.BuyerUserID == input.SellerUserID {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeTradeSelfTrade, "cannot sell a code to yourself")
	}
	if input.Price <= 0 {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeSellingPriceInvalid, "selling price must be greater than zero")
	}

	original, err := s.store.GetUnlockCodeByOwnerAndValue(ctx, input.RoomID, input.SellerUserID, input.CodeValue)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found for seller")
		}
		return storage.SettleTradeResult{}, err
	}

	return s.settle(ctx, storage.SettleTradeParams{
		Kind:         storage.TradeKindDirect,
		RoomID:       input.RoomID,
		CodeID:       original.ID,
		SellerUserID: input.SellerUserID,
		BuyerUserID:  input.BuyerUserID,
		Price:        input.Price,
		Description:  "direct sale",
	}, original, input.BuyerUserID)
}

// Purchase settles an open-listing purchase at the listed price. The listed
// code is consumed and the buyer receives a fresh non-sellable copy.
func (s *Service) Purchase(ctx context.Context, roomID string, buyerUserID string, codeID string) (storage.SettleTradeResult, error) {
	if s == nil || s.store == nil {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeUnknown, "market store is not configured")
	}
	buyerUserID = strings.TrimSpace(buyerUserID)
	codeID = strings.TrimSpace(codeID)
	if buyerUserID == "" {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeTradeBuyerRequired, "buyer is required")
	}
	if codeID == "" {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeUnlockCodeRequired, "unlock code id is required")
	}

	original, err := s.store.GetUnlockCode(ctx, codeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found")
		}
		return storage.SettleTradeResult{}, err
	}

	return s.settle(ctx, storage.SettleTradeParams{
		Kind:        storage.TradeKindListing,
		RoomID:      roomID,
		CodeID:      original.ID,
		BuyerUserID: buyerUserID,
		Description: "listing purchase",
	}, original, buyerUserID)
}

// RequestInput describes one negotiated purchase offer.
type RequestInput struct {
	RoomID       string
	BuyerUserID  string
	CodeID       string
	OfferedPrice int
}

// SendPurchaseRequest records a negotiated offer for a code. A buyer holds
// at most one pending request per code.
func (s *Service) SendPurchaseRequest(ctx context.Context, input RequestInput) (storage.PurchaseRequestRecord, error) {
	if s == nil || s.store == nil {
		return storage.PurchaseRequestRecord{}, apperrors.New(apperrors.CodeUnknown, "market store is not configured")
	}
	input.RoomID = strings.TrimSpace(input.RoomID)
	input.BuyerUserID = strings.TrimSpace(input.BuyerUserID)
	input.CodeID = strings.TrimSpace(input.CodeID)
	if input.BuyerUserID == "" {
		return storage.PurchaseRequestRecord{}, apperrors.New(apperrors.CodeTradeBuyerRequired, "buyer is required")
	}
	if input.OfferedPrice <= 0 {
		return storage.PurchaseRequestRecord{}, apperrors.New(apperrors.CodeRequestOfferInvalid, "offered price must be greater than zero")
	}

	code, err := s.store.GetUnlockCode(ctx, input.CodeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.PurchaseRequestRecord{}, apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found")
		}
		return storage.PurchaseRequestRecord{}, err
	}
	if code.RoomID != input.RoomID {
		return storage.PurchaseRequestRecord{}, apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found")
	}
	if code.OwnerUserID == input.BuyerUserID {
		return storage.PurchaseRequestRecord{}, apperrors.New(apperrors.CodeTradeSelfTrade, "cannot request your own code")
	}
	if code.IsUsed {
		return storage.PurchaseRequestRecord{}, apperrors.New(apperrors.CodeUnlockCodeUsed, "unlock code already used")
	}
	if code.SoldToUserID != "" {
		return storage.PurchaseRequestRecord{}, apperrors.New(apperrors.CodeUnlockCodeSold, "unlock code already sold")
	}

	requestID, err := s.newID()
	if err != nil {
		return storage.PurchaseRequestRecord{}, err
	}
	now := s.clock().UTC()
	record := storage.PurchaseRequestRecord{
		ID:           requestID,
		RoomID:       input.RoomID,
		UnlockCodeID: code.ID,
		SellerUserID: code.OwnerUserID,
		BuyerUserID:  input.BuyerUserID,
		OfferedPrice: input.OfferedPrice,
		Status:       storage.RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.PutPurchaseRequest(ctx, record); err != nil {
		return storage.PurchaseRequestRecord{}, err
	}
	return record, nil
}

// AcceptPurchaseRequest settles a pending request: the buyer pays the
// offered price, the original stays with the seller annotated as sold, the
// buyer receives a copy, and every other pending request on the code is
// rejected.
func (s *Service) AcceptPurchaseRequest(ctx context.Context, roomID string, sellerUserID string, requestID string) (storage.SettleTradeResult, error) {
	if s == nil || s.store == nil {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeUnknown, "market store is not configured")
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeNotFound, "purchase request id is required")
	}

	request, err := s.store.GetPurchaseRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeNotFound, "purchase request not found")
		}
		return storage.SettleTradeResult{}, err
	}
	original, err := s.store.GetUnlockCode(ctx, request.UnlockCodeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.SettleTradeResult{}, apperrors.New(apperrors.CodeUnlockCodeNotFound, "unlock code not found")
		}
		return storage.SettleTradeResult{}, err
	}

	return s.settle(ctx, storage.SettleTradeParams{
		Kind:         storage.TradeKindNegotiated,
		RoomID:       roomID,
		CodeID:       original.ID,
		SellerUserID: strings.TrimSpace(sellerUserID),
		RequestID:    request.ID,
		Description:  "negotiated sale",
	}, original, request.BuyerUserID)
}

// ListingsForRoom lists a room's open listings, capped by pageSize.
func (s *Service) ListingsForRoom(ctx context.Context, roomID string, pageSize int32) ([]storage.UnlockCodeRecord, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "market store is not configured")
	}
	listings, err := s.store.ListCodesForSale(ctx, roomID)
	if err != nil {
		return nil, err
	}
	limit := pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{
		Default: defaultListingPageSize,
		Max:     maxListingPageSize,
	})
	if len(listings) > limit {
		listings = listings[:limit]
	}
	return listings, nil
}

// PendingRequestsForSeller lists one seller's pending purchase requests.
func (s *Service) PendingRequestsForSeller(ctx context.Context, roomID string, sellerUserID string) ([]storage.PurchaseRequestRecord, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "market store is not configured")
	}
	return s.store.ListPendingRequestsBySeller(ctx, roomID, sellerUserID)
}

// settle builds the buyer's minted copy and runs the atomic trade under a
// span tagged with the trade kind.
func (s *Service) settle(ctx context.Context, params storage.SettleTradeParams, original storage.UnlockCodeRecord, buyerUserID string) (storage.SettleTradeResult, error) {
	mintID, err := s.newID()
	if err != nil {
		return storage.SettleTradeResult{}, err
	}
	transactionID, err := s.newID()
	if err != nil {
		return storage.SettleTradeResult{}, err
	}
	now := s.clock().UTC()
	params.MintedCode = storage.UnlockCodeRecord{
		ID:               mintID,
		Code:             original.Code,
		RoomID:           params.RoomID,
		SourceQuestionID: original.SourceQuestionID,
		TargetQuestionID: original.TargetQuestionID,
		OwnerUserID:      buyerUserID,
		CanSell:          false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	params.TransactionID = transactionID
	params.Now = now

	ctx, span := s.tracer.Start(ctx, "market.settle",
		trace.WithAttributes(
			attribute.String("trade.kind", string(params.Kind)),
			attribute.String("trade.code_id", params.CodeID),
		),
	)
	defer span.End()

	result, err := s.store.SettleTrade(ctx, params)
	if err != nil {
		span.RecordError(err)
		return storage.SettleTradeResult{}, err
	}
	return result, nil
}
