package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPutGetRoomAndJoinCodeLookup(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	room := storage.RoomRecord{
		ID:            "room-1",
		JoinCode:      "AB12CD",
		Name:          "Qualifier",
		AdminUserID:   "admin-1",
		InitialPoints: 500,
		Status:        storage.RoomStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.PutRoom(context.Background(), room); err != nil {
		t.Fatalf("put room: %v", err)
	}

	got, err := store.GetRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Name != room.Name || got.AdminUserID != room.AdminUserID || got.InitialPoints != 500 {
		t.Fatalf("unexpected room: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("expected created at %v, got %v", now, got.CreatedAt)
	}

	byCode, err := store.GetRoomByJoinCode(context.Background(), "AB12CD")
	if err != nil {
		t.Fatalf("get room by join code: %v", err)
	}
	if byCode.ID != "room-1" {
		t.Fatalf("unexpected room by join code: %+v", byCode)
	}

	if _, err := store.GetRoom(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutRoomRejectsDuplicateJoinCode(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	if err := store.PutRoom(context.Background(), roomFixture("room-1", "SAME01", now)); err != nil {
		t.Fatalf("put first room: %v", err)
	}
	err := store.PutRoom(context.Background(), roomFixture("room-2", "SAME01", now))
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRoomStatusLifecycleAndDelete(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	if err := store.PutRoom(context.Background(), roomFixture("room-1", "AAAAAA", now)); err != nil {
		t.Fatalf("put room: %v", err)
	}

	if err := store.UpdateRoomStatus(context.Background(), "room-1", storage.RoomStatusClosed, now.Add(time.Minute)); err != nil {
		t.Fatalf("close room: %v", err)
	}
	got, err := store.GetRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Status != storage.RoomStatusClosed {
		t.Fatalf("expected closed status, got %s", got.Status)
	}

	if err := store.DeleteRoom(context.Background(), "room-1"); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if _, err := store.GetRoom(context.Background(), "room-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteRoom(context.Background(), "room-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on re-delete, got %v", err)
	}
}

func TestJoinRoomSeedsParticipantWithAllocation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)

	joinParticipant(t, store, "room-1", "user-1", "Team Rocket", 500, now)

	participant, err := store.GetParticipant(context.Background(), "room-1", "user-1")
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if participant.CurrentPoints != 500 || participant.TeamName != "Team Rocket" {
		t.Fatalf("unexpected participant: %+v", participant)
	}

	transactions, err := store.ListTransactionsByUser(context.Background(), "room-1", "user-1", 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected 1 allocation entry, got %d", len(transactions))
	}
	if transactions[0].Type != storage.TransactionTypeInitialAllocation {
		t.Fatalf("unexpected transaction type %s", transactions[0].Type)
	}
}

func TestJoinRoomRejectsSecondJoin(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)
	joinParticipant(t, store, "room-1", "user-1", "Team A", 500, now)

	err := store.JoinRoom(context.Background(), storage.ParticipantRecord{
		RoomID:        "room-1",
		UserID:        "user-1",
		TeamName:      "Team A Again",
		CurrentPoints: 500,
		JoinedAt:      now,
	}, allocationFixture("txn-dup", "room-1", "user-1", 500, now))
	if apperrors.CodeOf(err) != apperrors.CodeRoomAlreadyJoined {
		t.Fatalf("expected CodeRoomAlreadyJoined, got %v", err)
	}

	// The failed join must not leave a dangling ledger entry.
	transactions, err := store.ListTransactionsByUser(context.Background(), "room-1", "user-1", 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected single allocation entry, got %d", len(transactions))
	}
}

func TestSetParticipantBanned(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)
	joinParticipant(t, store, "room-1", "user-1", "Team A", 500, now)

	if err := store.SetParticipantBanned(context.Background(), "room-1", "user-1", true); err != nil {
		t.Fatalf("ban participant: %v", err)
	}
	participant, err := store.GetParticipant(context.Background(), "room-1", "user-1")
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if !participant.IsBanned {
		t.Fatal("expected participant to be banned")
	}

	if err := store.SetParticipantBanned(context.Background(), "room-1", "missing", true); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQuestionSequenceAndAccessCodeLookup(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)

	next, err := store.NextQuestionNumber(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("next question number: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected first number 1, got %d", next)
	}

	first := questionFixture("q-1", "room-1", 1, now)
	first.AccessCode = "SecretGate"
	if err := store.PutQuestion(context.Background(), first); err != nil {
		t.Fatalf("put question 1: %v", err)
	}
	if err := store.PutQuestion(context.Background(), questionFixture("q-2", "room-1", 2, now)); err != nil {
		t.Fatalf("put question 2: %v", err)
	}

	next, err = store.NextQuestionNumber(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("next question number: %v", err)
	}
	if next != 3 {
		t.Fatalf("expected next number 3, got %d", next)
	}

	byNumber, err := store.GetQuestionByNumber(context.Background(), "room-1", 2)
	if err != nil {
		t.Fatalf("get question by number: %v", err)
	}
	if byNumber.ID != "q-2" {
		t.Fatalf("unexpected question by number: %+v", byNumber)
	}

	byAccess, err := store.GetQuestionByAccessCode(context.Background(), "room-1", "secretgate")
	if err != nil {
		t.Fatalf("get question by access code: %v", err)
	}
	if byAccess.ID != "q-1" {
		t.Fatalf("unexpected question by access code: %+v", byAccess)
	}

	listed, err := store.ListQuestionsByRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(listed) != 2 || listed[0].Number != 1 || listed[1].Number != 2 {
		t.Fatalf("unexpected question order: %+v", listed)
	}
	if len(listed[0].TestCases) != 2 {
		t.Fatalf("expected test cases to round-trip, got %+v", listed[0].TestCases)
	}
}

func TestUnlockCodeValueLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 13, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)
	seedQuestions(t, store, "room-1", 2, now)

	code := codeFixture("code-1", "Ab3dEf9h", "room-1", "q-2", "user-1", now)
	if err := store.PutUnlockCode(context.Background(), code); err != nil {
		t.Fatalf("put unlock code: %v", err)
	}

	got, err := store.GetUnlockCodeByOwnerAndValue(context.Background(), "room-1", "user-1", "AB3DEF9H")
	if err != nil {
		t.Fatalf("get code by value: %v", err)
	}
	if got.ID != "code-1" {
		t.Fatalf("unexpected code: %+v", got)
	}

	if _, err := store.GetUnlockCodeByOwnerAndValue(context.Background(), "room-1", "user-2", "AB3DEF9H"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner, got %v", err)
	}
}

func TestUnlockCodeValueLookupSkipsConsumedCodes(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 13, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)
	seedQuestions(t, store, "room-1", 2, now)

	spent := codeFixture("code-1", "GateWord", "room-1", "q-2", "user-1", now)
	spent.IsUsed = true
	spent.UsedByUserID = "user-1"
	if err := store.PutUnlockCode(context.Background(), spent); err != nil {
		t.Fatalf("put consumed code: %v", err)
	}

	if _, err := store.GetUnlockCodeByOwnerAndValue(context.Background(), "room-1", "user-1", "GateWord"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for consumed code, got %v", err)
	}
}

func TestMarkCodeUsedIsOneWay(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 13, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)
	seedQuestions(t, store, "room-1", 2, now)

	code := codeFixture("code-1", "Ab3dEf9h", "room-1", "q-2", "user-1", now)
	if err := store.PutUnlockCode(context.Background(), code); err != nil {
		t.Fatalf("put unlock code: %v", err)
	}

	if err := store.MarkCodeUsed(context.Background(), "code-1", "user-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("mark code used: %v", err)
	}
	err := store.MarkCodeUsed(context.Background(), "code-1", "user-2", now.Add(2*time.Minute))
	if apperrors.CodeOf(err) != apperrors.CodeUnlockCodeUsed {
		t.Fatalf("expected CodeUnlockCodeUsed, got %v", err)
	}

	got, err := store.GetUnlockCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("get code: %v", err)
	}
	if !got.IsUsed || got.UsedByUserID != "user-1" {
		t.Fatalf("expected first consumer to win, got %+v", got)
	}
}

func TestMarkCodeForSaleRequiresSellableState(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 13, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)
	seedQuestions(t, store, "room-1", 2, now)

	sellable := codeFixture("code-1", "SellMe01", "room-1", "q-2", "user-1", now)
	if err := store.PutUnlockCode(context.Background(), sellable); err != nil {
		t.Fatalf("put sellable code: %v", err)
	}
	locked := codeFixture("code-2", "NoSell01", "room-1", "q-2", "user-2", now)
	locked.CanSell = false
	if err := store.PutUnlockCode(context.Background(), locked); err != nil {
		t.Fatalf("put locked code: %v", err)
	}

	if err := store.MarkCodeForSale(context.Background(), "code-1", 120, now.Add(time.Minute)); err != nil {
		t.Fatalf("mark code for sale: %v", err)
	}
	listings, err := store.ListCodesForSale(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("list codes for sale: %v", err)
	}
	if len(listings) != 1 || listings[0].ID != "code-1" || listings[0].SellingPrice != 120 {
		t.Fatalf("unexpected listings: %+v", listings)
	}

	if err := store.MarkCodeForSale(context.Background(), "code-2", 120, now.Add(time.Minute)); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict for non-sellable code, got %v", err)
	}
}

func TestPurchaseRequestDuplicatePendingRejected(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)
	seedQuestions(t, store, "room-1", 2, now)
	if err := store.PutUnlockCode(context.Background(), codeFixture("code-1", "Trade001", "room-1", "q-2", "seller-1", now)); err != nil {
		t.Fatalf("put code: %v", err)
	}

	request := storage.PurchaseRequestRecord{
		ID:           "req-1",
		RoomID:       "room-1",
		UnlockCodeID: "code-1",
		SellerUserID: "seller-1",
		BuyerUserID:  "buyer-1",
		OfferedPrice: 80,
		Status:       storage.RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.PutPurchaseRequest(context.Background(), request); err != nil {
		t.Fatalf("put request: %v", err)
	}

	duplicate := request
	duplicate.ID = "req-2"
	err := store.PutPurchaseRequest(context.Background(), duplicate)
	if apperrors.CodeOf(err) != apperrors.CodeRequestDuplicate {
		t.Fatalf("expected CodeRequestDuplicate, got %v", err)
	}

	pending, err := store.ListPendingRequestsBySeller(context.Background(), "room-1", "seller-1")
	if err != nil {
		t.Fatalf("list pending requests: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "req-1" {
		t.Fatalf("unexpected pending requests: %+v", pending)
	}
}

func TestDeleteRoomCascades(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)
	seedRoom(t, store, "room-1", "AAAAAA", now)
	seedQuestions(t, store, "room-1", 2, now)
	joinParticipant(t, store, "room-1", "user-1", "Team A", 500, now)
	if err := store.PutUnlockCode(context.Background(), codeFixture("code-1", "Cascade1", "room-1", "q-2", "user-1", now)); err != nil {
		t.Fatalf("put code: %v", err)
	}

	if err := store.DeleteRoom(context.Background(), "room-1"); err != nil {
		t.Fatalf("delete room: %v", err)
	}

	if _, err := store.GetParticipant(context.Background(), "room-1", "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected participant cascade, got %v", err)
	}
	if _, err := store.GetUnlockCode(context.Background(), "code-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected unlock code cascade, got %v", err)
	}
	if _, err := store.GetQuestion(context.Background(), "q-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected question cascade, got %v", err)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "arena.db")
	store, err := Open(storePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Fatalf("close store: %v", closeErr)
		}
	})
	return store
}

func roomFixture(id string, joinCode string, now time.Time) storage.RoomRecord {
	return storage.RoomRecord{
		ID:            id,
		JoinCode:      joinCode,
		Name:          "Room " + id,
		AdminUserID:   "admin-1",
		InitialPoints: 500,
		Status:        storage.RoomStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func seedRoom(t *testing.T, store *Store, id string, joinCode string, now time.Time) {
	t.Helper()
	if err := store.PutRoom(context.Background(), roomFixture(id, joinCode, now)); err != nil {
		t.Fatalf("seed room %s: %v", id, err)
	}
}

func questionFixture(id string, roomID string, number int, now time.Time) storage.QuestionRecord {
	return storage.QuestionRecord{
		ID:     id,
		RoomID: roomID,
		Number: number,
		Title:  "Question " + id,
		TestCases: []storage.TestCase{
			{Input: "1 2", ExpectedOutput: "3"},
			{Input: "4 5", ExpectedOutput: "9", IsHidden: true},
		},
		Points:     100,
		Difficulty: storage.DifficultyEasy,
		CreatedAt:  now,
	}
}

func seedQuestions(t *testing.T, store *Store, roomID string, count int, now time.Time) {
	t.Helper()
	for number := 1; number <= count; number++ {
		question := questionFixture("q-"+strconv.Itoa(number), roomID, number, now)
		if err := store.PutQuestion(context.Background(), question); err != nil {
			t.Fatalf("seed question %d: %v", number, err)
		}
	}
}

func codeFixture(id string, value string, roomID string, targetQuestionID string, owner string, now time.Time) storage.UnlockCodeRecord {
	return storage.UnlockCodeRecord{
		ID:               id,
		Code:             value,
		RoomID:           roomID,
		SourceQuestionID: "q-1",
		TargetQuestionID: targetQuestionID,
		OwnerUserID:      owner,
		CanSell:          true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func allocationFixture(id string, roomID string, userID string, points int, now time.Time) storage.TransactionRecord {
	return storage.TransactionRecord{
		ID:          id,
		RoomID:      roomID,
		Type:        storage.TransactionTypeInitialAllocation,
		ToUserID:    userID,
		Points:      points,
		Description: "initial allocation",
		CreatedAt:   now,
	}
}

func joinParticipant(t *testing.T, store *Store, roomID string, userID string, teamName string, points int, now time.Time) {
	t.Helper()
	err := store.JoinRoom(context.Background(), storage.ParticipantRecord{
		RoomID:        roomID,
		UserID:        userID,
		TeamName:      teamName,
		CurrentPoints: points,
		JoinedAt:      now,
	}, allocationFixture("txn-join-"+roomID+"-"+userID, roomID, userID, points, now))
	if err != nil {
		t.Fatalf("join participant %s: %v", userID, err)
	}
}
