// Package errors provides structured error handling for the arena economy.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Room errors
	CodeRoomNameRequired     Code = "ROOM_NAME_REQUIRED"
	CodeRoomJoinCodeRequired Code = "ROOM_JOIN_CODE_REQUIRED"
	CodeRoomClosed           Code = "ROOM_CLOSED"
	CodeRoomAlreadyJoined    Code = "ROOM_ALREADY_JOINED"
	CodeRoomNotAdmin         Code = "ROOM_NOT_ADMIN"
	CodeRoomInvalidPoints    Code = "ROOM_INVALID_INITIAL_POINTS"

	// Participant errors
	CodeParticipantNotInRoom Code = "PARTICIPANT_NOT_IN_ROOM"
	CodeParticipantBanned    Code = "PARTICIPANT_BANNED"

	// Question errors
	CodeQuestionTitleRequired     Code = "QUESTION_TITLE_REQUIRED"
	CodeQuestionTestCasesRequired Code = "QUESTION_TEST_CASES_REQUIRED"
	CodeQuestionPointsInvalid     Code = "QUESTION_POINTS_INVALID"
	CodeQuestionAlreadySolved     Code = "QUESTION_ALREADY_SOLVED"
	CodeSubmissionEmpty           Code = "SUBMISSION_EMPTY"

	// Unlock code errors
	CodeUnlockCodeRequired    Code = "UNLOCK_CODE_REQUIRED"
	CodeUnlockCodeNotFound    Code = "UNLOCK_CODE_NOT_FOUND"
	CodeUnlockCodeNotSellable Code = "UNLOCK_CODE_NOT_SELLABLE"
	CodeUnlockCodeUsed        Code = "UNLOCK_CODE_ALREADY_USED"
	CodeUnlockCodeSold        Code = "UNLOCK_CODE_ALREADY_SOLD"
	CodeUnlockCodeListed      Code = "UNLOCK_CODE_ALREADY_LISTED"
	CodeUnlockCodeNotForSale  Code = "UNLOCK_CODE_NOT_FOR_SALE"
	CodeUnlockCodeOwned       Code = "UNLOCK_CODE_ALREADY_OWNED"
	CodeSellingPriceInvalid   Code = "SELLING_PRICE_INVALID"

	// Trade errors
	CodeTradeBuyerRequired    Code = "TRADE_BUYER_REQUIRED"
	CodeTradeSelfTrade        Code = "TRADE_SELF_TRADE"
	CodeInsufficientPoints    Code = "INSUFFICIENT_POINTS"
	CodeTransferAmountInvalid Code = "TRANSFER_AMOUNT_INVALID"

	// Purchase request errors
	CodeRequestOfferInvalid   Code = "PURCHASE_REQUEST_OFFER_INVALID"
	CodeRequestDuplicate      Code = "PURCHASE_REQUEST_DUPLICATE"
	CodeRequestAlreadyHandled Code = "PURCHASE_REQUEST_ALREADY_PROCESSED"
	CodeRequestNotSeller      Code = "PURCHASE_REQUEST_NOT_SELLER"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeRoomNameRequired,
		CodeRoomJoinCodeRequired,
		CodeRoomInvalidPoints,
		CodeQuestionTitleRequired,
		CodeQuestionTestCasesRequired,
		CodeQuestionPointsInvalid,
		CodeSubmissionEmpty,
		CodeUnlockCodeRequired,
		CodeSellingPriceInvalid,
		CodeTradeBuyerRequired,
		CodeTransferAmountInvalid,
		CodeRequestOfferInvalid:
		return codes.InvalidArgument

	// PermissionDenied - caller is not allowed to act
	case CodeRoomNotAdmin,
		CodeParticipantBanned,
		CodeUnlockCodeNotSellable,
		CodeRequestNotSeller:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeRoomClosed,
		CodeRoomAlreadyJoined,
		CodeQuestionAlreadySolved,
		CodeUnlockCodeUsed,
		CodeUnlockCodeSold,
		CodeUnlockCodeListed,
		CodeUnlockCodeNotForSale,
		CodeUnlockCodeOwned,
		CodeTradeSelfTrade,
		CodeInsufficientPoints,
		CodeRequestDuplicate,
		CodeRequestAlreadyHandled:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeParticipantNotInRoom,
		CodeUnlockCodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to the HTTP status class used by the
// peripheral HTTP layer.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition, codes.AlreadyExists:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
