// Package storage defines the arena persistence contract: record types,
// store interfaces, and the atomic economy operations every trade and
// solve settles through.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
)

// RoomStatus identifies one room lifecycle state.
type RoomStatus string

const (
	// RoomStatusActive means the room accepts joins and submissions.
	RoomStatusActive RoomStatus = "active"
	// RoomStatusClosed means the room rejects joins and submissions.
	RoomStatusClosed RoomStatus = "closed"
)

// TransactionType identifies why points moved.
type TransactionType string

const (
	// TransactionTypeInitialAllocation seeds a participant on join.
	TransactionTypeInitialAllocation TransactionType = "initial_allocation"
	// TransactionTypeQuestionSolve awards points for a correct solve.
	TransactionTypeQuestionSolve TransactionType = "question_solve"
	// TransactionTypeCodePurchase moves points between teams for an unlock code.
	TransactionTypeCodePurchase TransactionType = "code_purchase"
)

// RequestStatus identifies one purchase-request lifecycle state.
type RequestStatus string

const (
	// RequestStatusPending means the request awaits a seller decision.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusAccepted means the seller accepted and the trade settled.
	RequestStatusAccepted RequestStatus = "accepted"
	// RequestStatusRejected means the request was declined or superseded.
	RequestStatusRejected RequestStatus = "rejected"
)

// TradeKind tags which marketplace flow a settle belongs to.
type TradeKind string

const (
	// TradeKindDirect is a seller-initiated sale to a chosen buyer.
	TradeKindDirect TradeKind = "direct"
	// TradeKindListing is a buyer purchase of an openly listed code.
	TradeKindListing TradeKind = "listing"
	// TradeKindNegotiated is a seller acceptance of a purchase request.
	TradeKindNegotiated TradeKind = "negotiated"
)

// SubmissionStatus identifies one submission outcome.
type SubmissionStatus string

const (
	// SubmissionStatusCorrect means every test case passed.
	SubmissionStatusCorrect SubmissionStatus = "correct"
	// SubmissionStatusIncorrect means at least one test case failed.
	SubmissionStatusIncorrect SubmissionStatus = "incorrect"
)

// Difficulty identifies a question difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// RoomRecord stores one competition room.
type RoomRecord struct {
	ID            string
	JoinCode      string
	Name          string
	AdminUserID   string
	InitialPoints int
	Status        RoomStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ParticipantRecord stores one team's membership and balance in a room.
type ParticipantRecord struct {
	RoomID        string
	UserID        string
	TeamName      string
	CurrentPoints int
	IsBanned      bool
	JoinedAt      time.Time
}

// TestCase stores one question test case.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	IsHidden       bool   `json:"is_hidden"`
}

// QuestionRecord stores one question in a room's sequence.
type QuestionRecord struct {
	ID           string
	RoomID       string
	Number       int
	Title        string
	Description  string
	InputFormat  string
	OutputFormat string
	Constraints  string
	Examples     string
	TestCases    []TestCase
	Points       int
	Difficulty   Difficulty
	AccessCode   string
	CreatedAt    time.Time
}

// UnlockCodeRecord stores one unlock code and its trade state.
type UnlockCodeRecord struct {
	ID               string
	Code             string
	RoomID           string
	SourceQuestionID string
	TargetQuestionID string
	OwnerUserID      string
	CanSell          bool
	IsUsed           bool
	UsedByUserID     string
	IsForSale        bool
	SellingPrice     int
	SoldToUserID     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PurchaseRequestRecord stores one negotiated purchase request.
type PurchaseRequestRecord struct {
	ID           string
	RoomID       string
	UnlockCodeID string
	SellerUserID string
	BuyerUserID  string
	OfferedPrice int
	Status       RequestStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransactionRecord stores one append-only ledger entry.
type TransactionRecord struct {
	ID           string
	RoomID       string
	Type         TransactionType
	FromUserID   string
	ToUserID     string
	Points       int
	QuestionID   string
	UnlockCodeID string
	Description  string
	CreatedAt    time.Time
}

// SubmissionRecord stores one graded submission.
type SubmissionRecord struct {
	ID           string
	RoomID       string
	UserID       string
	QuestionID   string
	Output       string
	Status       SubmissionStatus
	PointsEarned int
	CreatedAt    time.Time
}

// RoomStore persists room lifecycle state.
type RoomStore interface {
	PutRoom(ctx context.Context, record RoomRecord) error
	GetRoom(ctx context.Context, roomID string) (RoomRecord, error)
	GetRoomByJoinCode(ctx context.Context, joinCode string) (RoomRecord, error)
	ListRoomsByAdmin(ctx context.Context, adminUserID string) ([]RoomRecord, error)
	ListRoomsByParticipant(ctx context.Context, userID string) ([]RoomRecord, error)
	UpdateRoomStatus(ctx context.Context, roomID string, status RoomStatus, updatedAt time.Time) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// ParticipantStore persists room membership and balances.
type ParticipantStore interface {
	// JoinRoom atomically persists a participant with its seed allocation entry.
	JoinRoom(ctx context.Context, participant ParticipantRecord, allocation TransactionRecord) error
	GetParticipant(ctx context.Context, roomID string, userID string) (ParticipantRecord, error)
	ListParticipants(ctx context.Context, roomID string) ([]ParticipantRecord, error)
	SetParticipantBanned(ctx context.Context, roomID string, userID string, banned bool) error
}

// QuestionStore persists the room question sequence.
type QuestionStore interface {
	PutQuestion(ctx context.Context, record QuestionRecord) error
	GetQuestion(ctx context.Context, questionID string) (QuestionRecord, error)
	GetQuestionByNumber(ctx context.Context, roomID string, number int) (QuestionRecord, error)
	GetQuestionByAccessCode(ctx context.Context, roomID string, accessCode string) (QuestionRecord, error)
	ListQuestionsByRoom(ctx context.Context, roomID string) ([]QuestionRecord, error)
	NextQuestionNumber(ctx context.Context, roomID string) (int, error)
}

// UnlockCodeStore persists unlock codes outside of trade settlement.
type UnlockCodeStore interface {
	PutUnlockCode(ctx context.Context, record UnlockCodeRecord) error
	GetUnlockCode(ctx context.Context, codeID string) (UnlockCodeRecord, error)
	// GetUnlockCodeByOwnerAndValue matches the code value case-insensitively
	// and only against codes that have not been consumed.
	GetUnlockCodeByOwnerAndValue(ctx context.Context, roomID string, ownerUserID string, codeValue string) (UnlockCodeRecord, error)
	ListCodesByOwner(ctx context.Context, roomID string, ownerUserID string) ([]UnlockCodeRecord, error)
	ListCodesForSale(ctx context.Context, roomID string) ([]UnlockCodeRecord, error)
	MarkCodeForSale(ctx context.Context, codeID string, price int, updatedAt time.Time) error
	// MarkCodeUsed flips is_used exactly once; a second call returns ErrConflict.
	MarkCodeUsed(ctx context.Context, codeID string, usedByUserID string, updatedAt time.Time) error
	HasUnlockForQuestion(ctx context.Context, roomID string, userID string, questionID string) (bool, error)
}

// PurchaseRequestStore persists negotiated purchase requests.
type PurchaseRequestStore interface {
	PutPurchaseRequest(ctx context.Context, record PurchaseRequestRecord) error
	GetPurchaseRequest(ctx context.Context, requestID string) (PurchaseRequestRecord, error)
	ListPendingRequestsBySeller(ctx context.Context, roomID string, sellerUserID string) ([]PurchaseRequestRecord, error)
}

// TransactionStore reads the append-only ledger.
type TransactionStore interface {
	ListTransactionsByUser(ctx context.Context, roomID string, userID string, limit int) ([]TransactionRecord, error)
	ListTransactionsByRoom(ctx context.Context, roomID string) ([]TransactionRecord, error)
}

// SubmissionStore persists graded submissions.
type SubmissionStore interface {
	PutSubmission(ctx context.Context, record SubmissionRecord) error
	HasCorrectSubmission(ctx context.Context, roomID string, userID string, questionID string) (bool, error)
	ListSubmissionsByUser(ctx context.Context, roomID string, userID string) ([]SubmissionRecord, error)
}

// TransferParams describes one atomic point transfer.
type TransferParams struct {
	TransactionID string
	RoomID        string
	// FromUserID is empty for system credits (awards, seed allocations).
	FromUserID   string
	ToUserID     string
	Points       int
	Type         TransactionType
	QuestionID   string
	UnlockCodeID string
	Description  string
	Now          time.Time
}

// SettleTradeParams describes one atomic marketplace settlement.
// Preconditions are re-validated inside the transaction; the settle has no
// effect when any of them fails.
type SettleTradeParams struct {
	Kind         TradeKind
	RoomID       string
	CodeID       string
	SellerUserID string
	BuyerUserID  string
	// Price is the agreed amount for direct and negotiated trades. Listing
	// trades read the listed price inside the transaction.
	Price int
	// MintedCode is the buyer's copy, built by the caller with a fresh ID
	// and code value.
	MintedCode    UnlockCodeRecord
	TransactionID string
	// RequestID names the accepted request for negotiated trades.
	RequestID   string
	Description string
	Now         time.Time
}

// SettleTradeResult reports what a settled trade recorded.
type SettleTradeResult struct {
	Transaction TransactionRecord
	MintedCode  UnlockCodeRecord
	Price       int
}

// RecordSolveParams describes one atomic correct-solve settlement: the
// submission row, the point award, and the next-question unlock mint.
type RecordSolveParams struct {
	Submission    SubmissionRecord
	TransactionID string
	// MintedCode is the unlock code for the next question, nil when the
	// solved question is the last in the sequence.
	MintedCode *UnlockCodeRecord
	Now        time.Time
}

// EconomyStore executes the multi-row economy mutations. Each method is a
// single transaction: all writes land or none do.
type EconomyStore interface {
	TransferPoints(ctx context.Context, params TransferParams) (TransactionRecord, error)
	SettleTrade(ctx context.Context, params SettleTradeParams) (SettleTradeResult, error)
	RecordSolve(ctx context.Context, params RecordSolveParams) error
}
