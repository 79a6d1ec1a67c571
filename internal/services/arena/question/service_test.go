package question

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/runner"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

type fakeQuestionStore struct {
	questions   map[string]storage.QuestionRecord
	solved      map[string]bool
	unlocks     map[string]bool
	submissions []storage.SubmissionRecord
	solves      []storage.RecordSolveParams
	nextNumber  int
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{
		questions:  map[string]storage.QuestionRecord{},
		solved:     map[string]bool{},
		unlocks:    map[string]bool{},
		nextNumber: 1,
	}
}

func solveKey(roomID, userID, questionID string) string {
	return roomID + "/" + userID + "/" + questionID
}

func (f *fakeQuestionStore) PutQuestion(_ context.Context, record storage.QuestionRecord) error {
	f.questions[record.ID] = record
	return nil
}

func (f *fakeQuestionStore) GetQuestion(_ context.Context, questionID string) (storage.QuestionRecord, error) {
	record, ok := f.questions[questionID]
	if !ok {
		return storage.QuestionRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeQuestionStore) GetQuestionByNumber(_ context.Context, roomID string, number int) (storage.QuestionRecord, error) {
	for _, record := range f.questions {
		if record.RoomID == roomID && record.Number == number {
			return record, nil
		}
	}
	return storage.QuestionRecord{}, storage.ErrNotFound
}

func (f *fakeQuestionStore) ListQuestionsByRoom(_ context.Context, roomID string) ([]storage.QuestionRecord, error) {
	var records []storage.QuestionRecord
	for number := 1; ; number++ {
		record, err := f.GetQuestionByNumber(context.Background(), roomID, number)
		if err != nil {
			return records, nil
		}
		records = append(records, record)
	}
}

func (f *fakeQuestionStore) NextQuestionNumber(_ context.Context, _ string) (int, error) {
	number := f.nextNumber
	f.nextNumber++
	return number, nil
}

func (f *fakeQuestionStore) PutSubmission(_ context.Context, record storage.SubmissionRecord) error {
	f.submissions = append(f.submissions, record)
	return nil
}

func (f *fakeQuestionStore) HasCorrectSubmission(_ context.Context, roomID string, userID string, questionID string) (bool, error) {
	return f.solved[solveKey(roomID, userID, questionID)], nil
}

func (f *fakeQuestionStore) HasUnlockForQuestion(_ context.Context, roomID string, userID string, questionID string) (bool, error) {
	return f.unlocks[solveKey(roomID, userID, questionID)], nil
}

func (f *fakeQuestionStore) RecordSolve(_ context.Context, params storage.RecordSolveParams) error {
	key := solveKey(params.Submission.RoomID, params.Submission.UserID, params.Submission.QuestionID)
	if f.solved[key] {
		return apperrors.New(apperrors.CodeQuestionAlreadySolved, "question already solved")
	}
	f.solved[key] = true
	f.solves = append(f.solves, params)
	return nil
}

type fakeRoomReader struct {
	rooms        map[string]storage.RoomRecord
	participants map[string]storage.ParticipantRecord
}

func newFakeRoomReader() *fakeRoomReader {
	return &fakeRoomReader{
		rooms:        map[string]storage.RoomRecord{},
		participants: map[string]storage.ParticipantRecord{},
	}
}

func (f *fakeRoomReader) GetRoom(_ context.Context, roomID string) (storage.RoomRecord, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return storage.RoomRecord{}, storage.ErrNotFound
	}
	return room, nil
}

func (f *fakeRoomReader) GetParticipant(_ context.Context, roomID string, userID string) (storage.ParticipantRecord, error) {
	participant, ok := f.participants[roomID+"/"+userID]
	if !ok {
		return storage.ParticipantRecord{}, storage.ErrNotFound
	}
	return participant, nil
}

// fakeRunner replays one execution per received stdin.
type fakeRunner struct {
	executions map[string]runner.Execution
	calls      int
}

func (f *fakeRunner) Execute(_ context.Context, input runner.ExecuteInput) (runner.Execution, error) {
	f.calls++
	execution, ok := f.executions[input.Stdin]
	if !ok {
		return runner.Execution{Status: runner.StatusRuntimeError, Detail: "no scripted outcome"}, nil
	}
	return execution, nil
}

func fixedQuestionClock() func() time.Time {
	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func sequenceQuestionIDs() func() (string, error) {
	next := 0
	return func() (string, error) {
		next++
		return fmt.Sprintf("id-%d", next), nil
	}
}

func fixedCodeValues(value string) func() (string, error) {
	return func() (string, error) { return value, nil }
}

func questionRecord(id string, number int) storage.QuestionRecord {
	return storage.QuestionRecord{
		ID:     id,
		RoomID: "room-1",
		Number: number,
		Title:  fmt.Sprintf("Question %d", number),
		TestCases: []storage.TestCase{
			{Input: "1 2", ExpectedOutput: "3"},
			{Input: "10 20", ExpectedOutput: "30", IsHidden: true},
		},
		Points:     100,
		Difficulty: storage.DifficultyEasy,
	}
}

func activeFixture() (*fakeQuestionStore, *fakeRoomReader) {
	store := newFakeQuestionStore()
	store.questions["q-1"] = questionRecord("q-1", 1)
	store.questions["q-2"] = questionRecord("q-2", 2)
	store.nextNumber = 3

	rooms := newFakeRoomReader()
	rooms.rooms["room-1"] = storage.RoomRecord{ID: "room-1", AdminUserID: "admin", Status: storage.RoomStatusActive}
	rooms.participants["room-1/team-a"] = storage.ParticipantRecord{RoomID: "room-1", UserID: "team-a", CurrentPoints: 500}
	return store, rooms
}

func TestAddAppendsWithNextNumber(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("unused00"))

	record, err := service.Add(context.Background(), AddInput{
		RoomID:      "room-1",
		AdminUserID: "admin",
		Title:       "  Sum of three  ",
		TestCases:   []storage.TestCase{{Input: "1 2 3", ExpectedOutput: "6"}},
		Points:      150,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if record.Number != 3 {
		t.Fatalf("number = %d, want 3", record.Number)
	}
	if record.Title != "Sum of three" {
		t.Fatalf("title = %q, want trimmed", record.Title)
	}
	if record.Difficulty != storage.DifficultyEasy {
		t.Fatalf("difficulty = %q, want default easy", record.Difficulty)
	}
}

func TestAddValidation(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("unused00"))

	cases := []struct {
		name  string
		input AddInput
		code  apperrors.Code
	}{
		{
			name:  "missing title",
			input: AddInput{RoomID: "room-1", AdminUserID: "admin", TestCases: []storage.TestCase{{}}, Points: 10},
			code:  apperrors.CodeQuestionTitleRequired,
		},
		{
			name:  "missing test cases",
			input: AddInput{RoomID: "room-1", AdminUserID: "admin", Title: "t", Points: 10},
			code:  apperrors.CodeQuestionTestCasesRequired,
		},
		{
			name:  "non-positive points",
			input: AddInput{RoomID: "room-1", AdminUserID: "admin", Title: "t", TestCases: []storage.TestCase{{}}},
			code:  apperrors.CodeQuestionPointsInvalid,
		},
		{
			name:  "not the admin",
			input: AddInput{RoomID: "room-1", AdminUserID: "team-a", Title: "t", TestCases: []storage.TestCase{{}}, Points: 10},
			code:  apperrors.CodeRoomNotAdmin,
		},
		{
			name:  "unknown room",
			input: AddInput{RoomID: "missing", AdminUserID: "admin", Title: "t", TestCases: []storage.TestCase{{}}, Points: 10},
			code:  apperrors.CodeNotFound,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.Add(context.Background(), tc.input)
			if apperrors.CodeOf(err) != tc.code {
				t.Fatalf("error code = %q, want %q (err: %v)", apperrors.CodeOf(err), tc.code, err)
			}
		})
	}
}

func TestListMarksAccessPerUser(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	store.unlocks[solveKey("room-1", "team-a", "q-2")] = true
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("unused00"))

	views, err := service.List(context.Background(), "room-1", "team-a")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
	if !views[0].Unlocked {
		t.Fatal("first question must always be unlocked")
	}
	if !views[1].Unlocked {
		t.Fatal("held unlock must open the second question")
	}

	views, err = service.List(context.Background(), "room-1", "team-b")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if views[1].Unlocked {
		t.Fatal("second question must stay locked without an unlock")
	}
	if views[1].Description != "" {
		t.Fatal("locked questions must not expose their statement")
	}
}

func TestGetStripsHiddenCasesAndExpectedOutputs(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("unused00"))

	detail, err := service.Get(context.Background(), "room-1", "team-a", "q-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Samples) != 1 {
		t.Fatalf("samples = %d, want 1 visible case", len(detail.Samples))
	}
	if detail.Samples[0].Input != "1 2" {
		t.Fatalf("sample input = %q, want the visible case input", detail.Samples[0].Input)
	}

	_, err = service.Get(context.Background(), "room-1", "team-a", "q-2")
	if apperrors.CodeOf(err) != apperrors.CodeUnlockCodeRequired {
		t.Fatalf("locked question: got %v, want %q", err, apperrors.CodeUnlockCodeRequired)
	}
}

func TestSubmitOutputCorrectSettlesSolve(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("unused00"))

	// Both cases expect the same literal output.
	store.questions["q-1"] = storage.QuestionRecord{
		ID: "q-1", RoomID: "room-1", Number: 1, Title: "Echo",
		TestCases: []storage.TestCase{
			{Input: "a", ExpectedOutput: "3\n"},
			{Input: "b", ExpectedOutput: "3", IsHidden: true},
		},
		Points: 100,
	}

	result, err := service.Submit(context.Background(), SubmitInput{
		RoomID:     "room-1",
		UserID:     "team-a",
		QuestionID: "q-1",
		Output:     "3\r\n",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Correct || result.PointsEarned != 100 {
		t.Fatalf("result = %+v, want correct with 100 points", result)
	}
	if len(store.solves) != 1 {
		t.Fatalf("record solves = %d, want 1", len(store.solves))
	}
	solve := store.solves[0]
	if solve.Submission.Status != storage.SubmissionStatusCorrect || solve.Submission.PointsEarned != 100 {
		t.Fatalf("unexpected solve submission: %+v", solve.Submission)
	}
	if solve.MintedCode == nil || solve.MintedCode.TargetQuestionID != "q-2" || !solve.MintedCode.CanSell {
		t.Fatalf("solve must mint a sellable unlock for the next question: %+v", solve.MintedCode)
	}
	if result.UnlockCode != solve.MintedCode.Code {
		t.Fatalf("result code = %q, want the minted value %q", result.UnlockCode, solve.MintedCode.Code)
	}
	if len(store.submissions) != 0 {
		t.Fatal("correct submissions must be recorded only inside the solve transaction")
	}
}

func TestSubmitIncorrectRecordsAuditRowAndFiltersHiddenCases(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("unused00"))

	result, err := service.Submit(context.Background(), SubmitInput{
		RoomID:     "room-1",
		UserID:     "team-a",
		QuestionID: "q-1",
		Output:     "wrong",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Correct {
		t.Fatal("wrong output must not be correct")
	}
	if len(store.submissions) != 1 || store.submissions[0].Status != storage.SubmissionStatusIncorrect {
		t.Fatalf("incorrect submission must be recorded: %+v", store.submissions)
	}
	if len(store.solves) != 0 {
		t.Fatal("incorrect submission must not settle a solve")
	}
	if len(result.Results) != 2 {
		t.Fatalf("case results = %d, want 2", len(result.Results))
	}
	hidden := result.Results[1]
	if !hidden.Hidden || hidden.Input != "" || hidden.Expected != "" || hidden.Actual != "" {
		t.Fatalf("hidden case must be filtered: %+v", hidden)
	}
}

func TestSubmitGuards(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	rooms.rooms["room-closed"] = storage.RoomRecord{ID: "room-closed", Status: storage.RoomStatusClosed}
	rooms.participants["room-1/team-banned"] = storage.ParticipantRecord{RoomID: "room-1", UserID: "team-banned", IsBanned: true}
	store.solved[solveKey("room-1", "team-a", "q-2")] = true
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("unused00"))

	cases := []struct {
		name  string
		input SubmitInput
		code  apperrors.Code
	}{
		{
			name:  "unknown room",
			input: SubmitInput{RoomID: "missing", UserID: "team-a", QuestionID: "q-1", Output: "3"},
			code:  apperrors.CodeNotFound,
		},
		{
			name:  "closed room",
			input: SubmitInput{RoomID: "room-closed", UserID: "team-a", QuestionID: "q-1", Output: "3"},
			code:  apperrors.CodeRoomClosed,
		},
		{
			name:  "not a participant",
			input: SubmitInput{RoomID: "room-1", UserID: "stranger", QuestionID: "q-1", Output: "3"},
			code:  apperrors.CodeParticipantNotInRoom,
		},
		{
			name:  "banned participant",
			input: SubmitInput{RoomID: "room-1", UserID: "team-banned", QuestionID: "q-1", Output: "3"},
			code:  apperrors.CodeParticipantBanned,
		},
		{
			name:  "already solved",
			input: SubmitInput{RoomID: "room-1", UserID: "team-a", QuestionID: "q-2", Output: "3"},
			code:  apperrors.CodeQuestionAlreadySolved,
		},
		{
			name:  "empty submission",
			input: SubmitInput{RoomID: "room-1", UserID: "team-a", QuestionID: "q-1"},
			code:  apperrors.CodeSubmissionEmpty,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.Submit(context.Background(), tc.input)
			if apperrors.CodeOf(err) != tc.code {
				t.Fatalf("error code = %q, want %q (err: %v)", apperrors.CodeOf(err), tc.code, err)
			}
		})
	}
}

func TestSubmitSourceRunsEveryCase(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	executor := &fakeRunner{executions: map[string]runner.Execution{
		"1 2":   {Status: runner.StatusOK, Stdout: "3\n"},
		"10 20": {Status: runner.StatusOK, Stdout: "30\n"},
	}}
	service := NewService(store, rooms, executor, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("rand1234"))

	result, err := service.Submit(context.Background(), SubmitInput{
		RoomID:     "room-1",
		UserID:     "team-a",
		QuestionID: "q-1",
		SourceCode: "print(sum(map(int, input().split())))",
		Language:   "python",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Correct {
		t.Fatalf("result = %+v, want correct", result)
	}
	if executor.calls != 2 {
		t.Fatalf("runner calls = %d, want one per test case", executor.calls)
	}
}

func TestSubmitRunnerFailureFailsCaseNotSubmission(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	executor := &fakeRunner{executions: map[string]runner.Execution{
		"1 2":   {Status: runner.StatusOK, Stdout: "3\n"},
		"10 20": {Status: runner.StatusTimeout, Detail: "terminated by signal SIGKILL"},
	}}
	service := NewService(store, rooms, executor, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("rand1234"))

	result, err := service.Submit(context.Background(), SubmitInput{
		RoomID:     "room-1",
		UserID:     "team-a",
		QuestionID: "q-1",
		SourceCode: "while True: pass",
		Language:   "python",
	})
	if err != nil {
		t.Fatalf("runner failures must never be system faults: %v", err)
	}
	if result.Correct {
		t.Fatal("a failed case must fail the submission")
	}
	if len(store.submissions) != 1 {
		t.Fatalf("incorrect submission must still be recorded, got %d", len(store.submissions))
	}
}

func TestSubmitLastQuestionReportsCompletion(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	store.unlocks[solveKey("room-1", "team-a", "q-2")] = true
	store.questions["q-2"] = storage.QuestionRecord{
		ID: "q-2", RoomID: "room-1", Number: 2, Title: "Final",
		TestCases: []storage.TestCase{{Input: "x", ExpectedOutput: "done"}},
		Points:    200,
	}
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("rand1234"))

	result, err := service.Submit(context.Background(), SubmitInput{
		RoomID:     "room-1",
		UserID:     "team-a",
		QuestionID: "q-2",
		Output:     "done",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Completed || result.UnlockCode != "" {
		t.Fatalf("result = %+v, want completion without a minted code", result)
	}
	if store.solves[0].MintedCode != nil {
		t.Fatal("last solve must not mint a code")
	}
}

func TestSubmitNextAccessCodeQuestionAutoLists(t *testing.T) {
	t.Parallel()

	store, rooms := activeFixture()
	next := store.questions["q-2"]
	next.AccessCode = "BONUS42"
	store.questions["q-2"] = next
	service := NewService(store, rooms, nil, fixedQuestionClock(), sequenceQuestionIDs(), fixedCodeValues("rand1234"))

	store.questions["q-1"] = storage.QuestionRecord{
		ID: "q-1", RoomID: "room-1", Number: 1, Title: "Echo",
		TestCases: []storage.TestCase{{Input: "a", ExpectedOutput: "3"}},
		Points:    100,
	}
	result, err := service.Submit(context.Background(), SubmitInput{
		RoomID:     "room-1",
		UserID:     "team-a",
		QuestionID: "q-1",
		Output:     "3",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	minted := store.solves[0].MintedCode
	if minted == nil {
		t.Fatal("solve must mint an unlock for the next question")
	}
	if minted.Code != "BONUS42" {
		t.Fatalf("minted value = %q, want the literal access code", minted.Code)
	}
	if !minted.IsForSale || minted.SellingPrice != accessCodeListPrice {
		t.Fatalf("access-code mints must auto-list at %d points: %+v", accessCodeListPrice, minted)
	}
	if result.UnlockCode != "BONUS42" {
		t.Fatalf("result code = %q, want BONUS42", result.UnlockCode)
	}
}

func TestNormalizeOutput(t *testing.T) {
	t.Parallel()

	if got := NormalizeOutput("  3\r\n4\r\n  "); got != "3\n4" {
		t.Fatalf("NormalizeOutput = %q, want %q", got, "3\n4")
	}
}
