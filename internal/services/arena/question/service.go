// Package question manages the room question sequence and the progression
// engine: adding questions, per-user access views, and graded submissions
// that award points and mint the next unlock code.
package question

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/platform/id"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/runner"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/unlockcode"
)

// accessCodeListPrice is the price auto-assigned when a minted unlock code
// reuses a question's literal access code.
const accessCodeListPrice = 50

// Store is the question persistence boundary.
type Store interface {
	PutQuestion(ctx context.Context, record storage.QuestionRecord) error
	GetQuestion(ctx context.Context, questionID string) (storage.QuestionRecord, error)
	GetQuestionByNumber(ctx context.Context, roomID string, number int) (storage.QuestionRecord, error)
	ListQuestionsByRoom(ctx context.Context, roomID string) ([]storage.QuestionRecord, error)
	NextQuestionNumber(ctx context.Context, roomID string) (int, error)
	PutSubmission(ctx context.Context, record storage.SubmissionRecord) error
	HasCorrectSubmission(ctx context.Context, roomID string, userID string, questionID string) (bool, error)
	HasUnlockForQuestion(ctx context.Context, roomID string, userID string, questionID string) (bool, error)
	RecordSolve(ctx context.Context, params storage.RecordSolveParams) error
}

// RoomReader resolves rooms and participants for access checks.
type RoomReader interface {
	GetRoom(ctx context.Context, roomID string) (storage.RoomRecord, error)
	GetParticipant(ctx context.Context, roomID string, userID string) (storage.ParticipantRecord, error)
}

// Service orchestrates question management and grading.
type Service struct {
	store   Store
	rooms   RoomReader
	runner  runner.Client
	clock   func() time.Time
	newID   func() (string, error)
	newCode func() (string, error)
}

// NewService constructs question use-cases. The runner may be nil when only
// output submissions are graded.
func NewService(store Store, rooms RoomReader, executor runner.Client, clock func() time.Time, newID func() (string, error), newCode func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	if newCode == nil {
		newCode = unlockcode.GenerateValue
	}
	return &Service{
		store:   store,
		rooms:   rooms,
		runner:  executor,
		clock:   clock,
		newID:   newID,
		newCode: newCode,
	}
}

// AddInput describes one question appended to a room's sequence.
type AddInput struct {
	RoomID       string
	AdminUserID  string
	Title        string
	Description  string
	InputFormat  string
	OutputFormat string
	Constraints  string
	Examples     string
	TestCases    []storage.TestCase
	Points       int
	Difficulty   storage.Difficulty
	AccessCode   string
}

// Add appends a question with the next sequence number. Only the room admin
// may add questions.
func (s *Service) Add(ctx context.Context, input AddInput) (storage.QuestionRecord, error) {
	if s == nil || s.store == nil {
		return storage.QuestionRecord{}, apperrors.New(apperrors.CodeUnknown, "question store is not configured")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return storage.QuestionRecord{}, apperrors.New(apperrors.CodeQuestionTitleRequired, "question title is required")
	}
	if len(input.TestCases) == 0 {
		return storage.QuestionRecord{}, apperrors.New(apperrors.CodeQuestionTestCasesRequired, "at least one test case is required")
	}
	if input.Points <= 0 {
		return storage.QuestionRecord{}, apperrors.New(apperrors.CodeQuestionPointsInvalid, "question points must be greater than zero")
	}

	room, err := s.rooms.GetRoom(ctx, input.RoomID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.QuestionRecord{}, apperrors.New(apperrors.CodeNotFound, "room not found")
		}
		return storage.QuestionRecord{}, err
	}
	if room.AdminUserID != input.AdminUserID {
		return storage.QuestionRecord{}, apperrors.New(apperrors.CodeRoomNotAdmin, "only the room admin can add questions")
	}

	number, err := s.store.NextQuestionNumber(ctx, input.RoomID)
	if err != nil {
		return storage.QuestionRecord{}, err
	}
	questionID, err := s.newID()
	if err != nil {
		return storage.QuestionRecord{}, err
	}
	difficulty := input.Difficulty
	if difficulty == "" {
		difficulty = storage.DifficultyEasy
	}
	record := storage.QuestionRecord{
		ID:           questionID,
		RoomID:       input.RoomID,
		Number:       number,
		Title:        input.Title,
		Description:  input.Description,
		InputFormat:  input.InputFormat,
		OutputFormat: input.OutputFormat,
		Constraints:  input.Constraints,
		Examples:     input.Examples,
		TestCases:    input.TestCases,
		Points:       input.Points,
		Difficulty:   difficulty,
		AccessCode:   strings.TrimSpace(input.AccessCode),
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.store.PutQuestion(ctx, record); err != nil {
		return storage.QuestionRecord{}, err
	}
	return record, nil
}

// View is one question as seen by a participant. Statement fields are
// populated only for unlocked questions and test cases are never included.
type View struct {
	ID         string
	Number     int
	Title      string
	Points     int
	Difficulty storage.Difficulty
	Unlocked   bool
	Solved     bool

	Description  string
	InputFormat  string
	OutputFormat string
	Constraints  string
	Examples     string
}

// List returns the room's questions as a per-user access view. A question
// is unlocked when it is the first in the sequence, already solved, or the
// user holds an unlock code targeting it.
func (s *Service) List(ctx context.Context, roomID string, userID string) ([]View, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "question store is not configured")
	}
	records, err := s.store.ListQuestionsByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(records))
	for _, record := range records {
		unlocked, solved, err := s.accessState(ctx, record, userID)
		if err != nil {
			return nil, err
		}
		view := View{
			ID:         record.ID,
			Number:     record.Number,
			Title:      record.Title,
			Points:     record.Points,
			Difficulty: record.Difficulty,
			Unlocked:   unlocked,
			Solved:     solved,
		}
		if unlocked {
			view.Description = record.Description
			view.InputFormat = record.InputFormat
			view.OutputFormat = record.OutputFormat
			view.Constraints = record.Constraints
			view.Examples = record.Examples
		}
		views = append(views, view)
	}
	return views, nil
}

// Sample is one visible test case with its expected output withheld.
type Sample struct {
	Input string
}

// Detail is one unlocked question with graded material stripped.
type Detail struct {
	View
	Samples []Sample
}

// Get returns one question for a user who has unlocked it. Hidden test
// cases and all expected outputs are stripped.
func (s *Service) Get(ctx context.Context, roomID string, userID string, questionID string) (Detail, error) {
	if s == nil || s.store == nil {
		return Detail{}, apperrors.New(apperrors.CodeUnknown, "question store is not configured")
	}
	record, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Detail{}, apperrors.New(apperrors.CodeNotFound, "question not found")
		}
		return Detail{}, err
	}
	if record.RoomID != roomID {
		return Detail{}, apperrors.New(apperrors.CodeNotFound, "question not found")
	}
	unlocked, solved, err := s.accessState(ctx, record, userID)
	if err != nil {
		return Detail{}, err
	}
	if !unlocked {
		return Detail{}, apperrors.New(apperrors.CodeUnlockCodeRequired, "question is locked, redeem an unlock code first")
	}
	detail := Detail{
		View: View{
			ID:           record.ID,
			Number:       record.Number,
			Title:        record.Title,
			Points:       record.Points,
			Difficulty:   record.Difficulty,
			Unlocked:     true,
			Solved:       solved,
			Description:  record.Description,
			InputFormat:  record.InputFormat,
			OutputFormat: record.OutputFormat,
			Constraints:  record.Constraints,
			Examples:     record.Examples,
		},
	}
	for _, testCase := range record.TestCases {
		if testCase.IsHidden {
			continue
		}
		detail.Samples = append(detail.Samples, Sample{Input: testCase.Input})
	}
	return detail, nil
}

func (s *Service) accessState(ctx context.Context, record storage.QuestionRecord, userID string) (unlocked bool, solved bool, err error) {
	solved, err = s.store.HasCorrectSubmission(ctx, record.RoomID, userID, record.ID)
	if err != nil {
		return false, false, err
	}
	if record.Number == 1 || solved {
		return true, solved, nil
	}
	held, err := s.store.HasUnlockForQuestion(ctx, record.RoomID, userID, record.ID)
	if err != nil {
		return false, false, err
	}
	return held, solved, nil
}

// CaseResult reports one graded test case. Hidden cases expose only their
// pass flag.
type CaseResult struct {
	Number   int
	Passed   bool
	Hidden   bool
	Input    string
	Expected string
	Actual   string
	Detail   string
}

// SubmitInput describes one submission: either a literal Output or
// SourceCode with a Language for the runner.
type SubmitInput struct {
	RoomID     string
	UserID     string
	QuestionID string
	Output     string
	SourceCode string
	Language   string
}

// SubmitResult reports a graded submission and, on a correct solve, the
// unlock minted for the next question.
type SubmitResult struct {
	Correct      bool
	PointsEarned int
	Results      []CaseResult
	// UnlockCode is the code value minted for the next question, empty when
	// the submission was incorrect or the course is complete.
	UnlockCode string
	// Completed is true when the solved question was the last one.
	Completed bool
}

// Submit grades a submission. Incorrect submissions record an audit row and
// return per-case results; correct submissions settle atomically: the
// submission row, the point award, and the next-question unlock mint all
// land together.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	if s == nil || s.store == nil {
		return SubmitResult{}, apperrors.New(apperrors.CodeUnknown, "question store is not configured")
	}
	room, err := s.rooms.GetRoom(ctx, input.RoomID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SubmitResult{}, apperrors.New(apperrors.CodeNotFound, "room not found")
		}
		return SubmitResult{}, err
	}
	if room.Status != storage.RoomStatusActive {
		return SubmitResult{}, apperrors.New(apperrors.CodeRoomClosed, "room is closed")
	}
	participant, err := s.rooms.GetParticipant(ctx, input.RoomID, input.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SubmitResult{}, apperrors.New(apperrors.CodeParticipantNotInRoom, "join the room before submitting")
		}
		return SubmitResult{}, err
	}
	if participant.IsBanned {
		return SubmitResult{}, apperrors.New(apperrors.CodeParticipantBanned, "banned participants cannot submit")
	}
	question, err := s.store.GetQuestion(ctx, input.QuestionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SubmitResult{}, apperrors.New(apperrors.CodeNotFound, "question not found")
		}
		return SubmitResult{}, err
	}
	if question.RoomID != input.RoomID {
		return SubmitResult{}, apperrors.New(apperrors.CodeNotFound, "question not found")
	}
	solved, err := s.store.HasCorrectSubmission(ctx, input.RoomID, input.UserID, input.QuestionID)
	if err != nil {
		return SubmitResult{}, err
	}
	if solved {
		return SubmitResult{}, apperrors.New(apperrors.CodeQuestionAlreadySolved, "question already solved")
	}

	hasOutput := strings.TrimSpace(input.Output) != ""
	hasSource := strings.TrimSpace(input.SourceCode) != ""
	if !hasOutput && !hasSource {
		return SubmitResult{}, apperrors.New(apperrors.CodeSubmissionEmpty, "submission must carry an output or source code")
	}

	var results []CaseResult
	if hasSource {
		results, err = s.gradeSource(ctx, question, input)
		if err != nil {
			return SubmitResult{}, err
		}
	} else {
		results = gradeOutput(question, input.Output)
	}
	correct := true
	for _, result := range results {
		if !result.Passed {
			correct = false
			break
		}
	}

	submissionID, err := s.newID()
	if err != nil {
		return SubmitResult{}, err
	}
	submitted := input.Output
	if hasSource {
		submitted = input.SourceCode
	}
	now := s.clock().UTC()
	submission := storage.SubmissionRecord{
		ID:         submissionID,
		RoomID:     input.RoomID,
		UserID:     input.UserID,
		QuestionID: question.ID,
		Output:     submitted,
		CreatedAt:  now,
	}

	if !correct {
		submission.Status = storage.SubmissionStatusIncorrect
		if err := s.store.PutSubmission(ctx, submission); err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Results: filterHidden(results)}, nil
	}

	submission.Status = storage.SubmissionStatusCorrect
	submission.PointsEarned = question.Points
	minted, completed, err := s.nextUnlock(ctx, question, input.UserID, now)
	if err != nil {
		return SubmitResult{}, err
	}
	transactionID, err := s.newID()
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.store.RecordSolve(ctx, storage.RecordSolveParams{
		Submission:    submission,
		TransactionID: transactionID,
		MintedCode:    minted,
		Now:           now,
	}); err != nil {
		return SubmitResult{}, err
	}
	result := SubmitResult{
		Correct:      true,
		PointsEarned: question.Points,
		Results:      filterHidden(results),
		Completed:    completed,
	}
	if minted != nil {
		result.UnlockCode = minted.Code
	}
	return result, nil
}

// nextUnlock builds the unlock code for the question after the solved one.
// A next question carrying a literal access code mints that value and lists
// it at the default price; otherwise the value is random and unlisted.
func (s *Service) nextUnlock(ctx context.Context, solvedQuestion storage.QuestionRecord, userID string, now time.Time) (*storage.UnlockCodeRecord, bool, error) {
	next, err := s.store.GetQuestionByNumber(ctx, solvedQuestion.RoomID, solvedQuestion.Number+1)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, true, nil
		}
		return nil, false, err
	}
	codeID, err := s.newID()
	if err != nil {
		return nil, false, err
	}
	record := storage.UnlockCodeRecord{
		ID:               codeID,
		RoomID:           solvedQuestion.RoomID,
		SourceQuestionID: solvedQuestion.ID,
		TargetQuestionID: next.ID,
		OwnerUserID:      userID,
		CanSell:          true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if next.AccessCode != "" {
		record.Code = next.AccessCode
		record.IsForSale = true
		record.SellingPrice = accessCodeListPrice
	} else {
		value, err := s.newCode()
		if err != nil {
			return nil, false, err
		}
		record.Code = value
	}
	return &record, false, nil
}

// gradeOutput compares one literal output against every test case.
func gradeOutput(question storage.QuestionRecord, output string) []CaseResult {
	results := make([]CaseResult, 0, len(question.TestCases))
	for i, testCase := range question.TestCases {
		results = append(results, CaseResult{
			Number:   i + 1,
			Passed:   outputMatches(output, testCase.ExpectedOutput),
			Hidden:   testCase.IsHidden,
			Input:    testCase.Input,
			Expected: testCase.ExpectedOutput,
			Actual:   output,
		})
	}
	return results
}

// gradeSource runs the submitted program once per test case. Any runner
// failure fails that case and never surfaces as a system fault.
func (s *Service) gradeSource(ctx context.Context, question storage.QuestionRecord, input SubmitInput) ([]CaseResult, error) {
	if s.runner == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "code execution is not configured")
	}
	results := make([]CaseResult, 0, len(question.TestCases))
	for i, testCase := range question.TestCases {
		execution, err := s.runner.Execute(ctx, runner.ExecuteInput{
			Language: input.Language,
			Source:   input.SourceCode,
			Stdin:    testCase.Input,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeSubmissionEmpty, "submission is not executable", err)
		}
		result := CaseResult{
			Number:   i + 1,
			Hidden:   testCase.IsHidden,
			Input:    testCase.Input,
			Expected: testCase.ExpectedOutput,
		}
		if execution.OK() {
			result.Actual = execution.Stdout
			result.Passed = outputMatches(execution.Stdout, testCase.ExpectedOutput)
		} else {
			result.Detail = string(execution.Status)
			if execution.Detail != "" {
				result.Detail += ": " + execution.Detail
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// filterHidden blanks the graded material of hidden cases.
func filterHidden(results []CaseResult) []CaseResult {
	filtered := make([]CaseResult, len(results))
	copy(filtered, results)
	for i := range filtered {
		if filtered[i].Hidden {
			filtered[i].Input = ""
			filtered[i].Expected = ""
			filtered[i].Actual = ""
			filtered[i].Detail = ""
		}
	}
	return filtered
}
