// Package room manages competition rooms: lifecycle, membership with seed
// point allocations, leaderboards, and ledger audit views.
package room

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/Tejaspatil1175/codecore-backend/internal/platform/errors"
	"github.com/Tejaspatil1175/codecore-backend/internal/platform/id"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage"
)

const (
	// DefaultInitialPoints seeds every participant that joins a room
	// created without an explicit allocation.
	DefaultInitialPoints = 500

	// transactionHistoryLimit caps the per-user audit view.
	transactionHistoryLimit = 50

	// joinCodeRetries bounds retries when a generated join code collides.
	joinCodeRetries = 5
)

// Store is the room persistence boundary.
type Store interface {
	PutRoom(ctx context.Context, record storage.RoomRecord) error
	GetRoom(ctx context.Context, roomID string) (storage.RoomRecord, error)
	GetRoomByJoinCode(ctx context.Context, joinCode string) (storage.RoomRecord, error)
	ListRoomsByAdmin(ctx context.Context, adminUserID string) ([]storage.RoomRecord, error)
	ListRoomsByParticipant(ctx context.Context, userID string) ([]storage.RoomRecord, error)
	UpdateRoomStatus(ctx context.Context, roomID string, status storage.RoomStatus, updatedAt time.Time) error
	DeleteRoom(ctx context.Context, roomID string) error
	JoinRoom(ctx context.Context, participant storage.ParticipantRecord, allocation storage.TransactionRecord) error
	GetParticipant(ctx context.Context, roomID string, userID string) (storage.ParticipantRecord, error)
	ListParticipants(ctx context.Context, roomID string) ([]storage.ParticipantRecord, error)
	SetParticipantBanned(ctx context.Context, roomID string, userID string, banned bool) error
	ListTransactionsByUser(ctx context.Context, roomID string, userID string, limit int) ([]storage.TransactionRecord, error)
	ListTransactionsByRoom(ctx context.Context, roomID string) ([]storage.TransactionRecord, error)
}

// Service orchestrates room use-cases.
type Service struct {
	store       Store
	clock       func() time.Time
	newID       func() (string, error)
	newJoinCode func() (string, error)
}

// NewService constructs room use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error), newJoinCode func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	if newJoinCode == nil {
		newJoinCode = generateJoinCode
	}
	return &Service{
		store:       store,
		clock:       clock,
		newID:       newID,
		newJoinCode: newJoinCode,
	}
}

// CreateInput describes one room to create. Zero InitialPoints selects the
// default allocation.
type CreateInput struct {
	AdminUserID   string
	Name          string
	InitialPoints int
}

// Create opens a room with a unique join code.
func (s *Service) Create(ctx context.Context, input CreateInput) (storage.RoomRecord, error) {
	if s == nil || s.store == nil {
		return storage.RoomRecord{}, apperrors.New(apperrors.CodeUnknown, "room store is not configured")
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return storage.RoomRecord{}, apperrors.New(apperrors.CodeRoomNameRequired, "room name is required")
	}
	if input.InitialPoints < 0 {
		return storage.RoomRecord{}, apperrors.New(apperrors.CodeRoomInvalidPoints, "initial points cannot be negative")
	}
	if input.InitialPoints == 0 {
		input.InitialPoints = DefaultInitialPoints
	}

	roomID, err := s.newID()
	if err != nil {
		return storage.RoomRecord{}, err
	}
	now := s.clock().UTC()
	record := storage.RoomRecord{
		ID:            roomID,
		Name:          input.Name,
		AdminUserID:   input.AdminUserID,
		InitialPoints: input.InitialPoints,
		Status:        storage.RoomStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for attempt := 0; attempt < joinCodeRetries; attempt++ {
		joinCode, err := s.newJoinCode()
		if err != nil {
			return storage.RoomRecord{}, err
		}
		record.JoinCode = joinCode
		err = s.store.PutRoom(ctx, record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return storage.RoomRecord{}, err
		}
	}
	return storage.RoomRecord{}, apperrors.New(apperrors.CodeUnknown, "could not allocate a unique join code")
}

// JoinInput describes one team joining a room.
type JoinInput struct {
	UserID   string
	TeamName string
	JoinCode string
}

// Join adds a participant to an active room. The membership row and its
// seed allocation land in one transaction.
func (s *Service) Join(ctx context.Context, input JoinInput) (storage.ParticipantRecord, storage.RoomRecord, error) {
	if s == nil || s.store == nil {
		return storage.ParticipantRecord{}, storage.RoomRecord{}, apperrors.New(apperrors.CodeUnknown, "room store is not configured")
	}
	joinCode := strings.ToUpper(strings.TrimSpace(input.JoinCode))
	if joinCode == "" {
		return storage.ParticipantRecord{}, storage.RoomRecord{}, apperrors.New(apperrors.CodeRoomJoinCodeRequired, "join code is required")
	}
	room, err := s.store.GetRoomByJoinCode(ctx, joinCode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ParticipantRecord{}, storage.RoomRecord{}, apperrors.New(apperrors.CodeNotFound, "no room with that join code")
		}
		return storage.ParticipantRecord{}, storage.RoomRecord{}, err
	}
	if room.Status != storage.RoomStatusActive {
		return storage.ParticipantRecord{}, storage.RoomRecord{}, apperrors.New(apperrors.CodeRoomClosed, "room is closed")
	}

	transactionID, err := s.newID()
	if err != nil {
		return storage.ParticipantRecord{}, storage.RoomRecord{}, err
	}
	now := s.clock().UTC()
	participant := storage.ParticipantRecord{
		RoomID:        room.ID,
		UserID:        input.UserID,
		TeamName:      strings.TrimSpace(input.TeamName),
		CurrentPoints: room.InitialPoints,
		JoinedAt:      now,
	}
	allocation := storage.TransactionRecord{
		ID:          transactionID,
		RoomID:      room.ID,
		Type:        storage.TransactionTypeInitialAllocation,
		ToUserID:    input.UserID,
		Points:      room.InitialPoints,
		Description: "initial allocation",
		CreatedAt:   now,
	}
	if err := s.store.JoinRoom(ctx, participant, allocation); err != nil {
		return storage.ParticipantRecord{}, storage.RoomRecord{}, err
	}
	return participant, room, nil
}

// Close stops a room from accepting joins and submissions.
func (s *Service) Close(ctx context.Context, roomID string, adminUserID string) error {
	return s.setStatus(ctx, roomID, adminUserID, storage.RoomStatusClosed)
}

// Reopen returns a closed room to the active state.
func (s *Service) Reopen(ctx context.Context, roomID string, adminUserID string) error {
	return s.setStatus(ctx, roomID, adminUserID, storage.RoomStatusActive)
}

func (s *Service) setStatus(ctx context.Context, roomID string, adminUserID string, status storage.RoomStatus) error {
	if s == nil || s.store == nil {
		return apperrors.New(apperrors.CodeUnknown, "room store is not configured")
	}
	if _, err := s.requireAdmin(ctx, roomID, adminUserID); err != nil {
		return err
	}
	return s.store.UpdateRoomStatus(ctx, roomID, status, s.clock().UTC())
}

// Delete removes a room and everything it owns: questions, submissions,
// codes, requests, and ledger entries.
func (s *Service) Delete(ctx context.Context, roomID string, adminUserID string) error {
	if s == nil || s.store == nil {
		return apperrors.New(apperrors.CodeUnknown, "room store is not configured")
	}
	if _, err := s.requireAdmin(ctx, roomID, adminUserID); err != nil {
		return err
	}
	return s.store.DeleteRoom(ctx, roomID)
}

// Ban blocks a participant from paying, purchasing, and submitting.
func (s *Service) Ban(ctx context.Context, roomID string, adminUserID string, userID string) error {
	return s.setBanned(ctx, roomID, adminUserID, userID, true)
}

// Unban lifts a ban.
func (s *Service) Unban(ctx context.Context, roomID string, adminUserID string, userID string) error {
	return s.setBanned(ctx, roomID, adminUserID, userID, false)
}

func (s *Service) setBanned(ctx context.Context, roomID string, adminUserID string, userID string, banned bool) error {
	if s == nil || s.store == nil {
		return apperrors.New(apperrors.CodeUnknown, "room store is not configured")
	}
	if _, err := s.requireAdmin(ctx, roomID, adminUserID); err != nil {
		return err
	}
	if err := s.store.SetParticipantBanned(ctx, roomID, userID, banned); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeParticipantNotInRoom, "participant not in room")
		}
		return err
	}
	return nil
}

// Standing is one leaderboard row.
type Standing struct {
	Rank     int
	UserID   string
	TeamName string
	Points   int
}

// Leaderboard ranks the room's non-banned participants by points.
func (s *Service) Leaderboard(ctx context.Context, roomID string) ([]Standing, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "room store is not configured")
	}
	participants, err := s.store.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}
	standings := make([]Standing, 0, len(participants))
	for _, participant := range participants {
		if participant.IsBanned {
			continue
		}
		standings = append(standings, Standing{
			Rank:     len(standings) + 1,
			UserID:   participant.UserID,
			TeamName: participant.TeamName,
			Points:   participant.CurrentPoints,
		})
	}
	return standings, nil
}

// Get loads one room.
func (s *Service) Get(ctx context.Context, roomID string) (storage.RoomRecord, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.RoomRecord{}, apperrors.New(apperrors.CodeNotFound, "room not found")
		}
		return storage.RoomRecord{}, err
	}
	return room, nil
}

// RoomsForUser lists the rooms a user participates in.
func (s *Service) RoomsForUser(ctx context.Context, userID string) ([]storage.RoomRecord, error) {
	return s.store.ListRoomsByParticipant(ctx, userID)
}

// RoomsForAdmin lists the rooms a user administers.
func (s *Service) RoomsForAdmin(ctx context.Context, adminUserID string) ([]storage.RoomRecord, error) {
	return s.store.ListRoomsByAdmin(ctx, adminUserID)
}

// Participants lists a room's participants, highest balance first.
func (s *Service) Participants(ctx context.Context, roomID string) ([]storage.ParticipantRecord, error) {
	return s.store.ListParticipants(ctx, roomID)
}

// TransactionsForUser returns a user's recent ledger entries in the room,
// both directions, newest first.
func (s *Service) TransactionsForUser(ctx context.Context, roomID string, userID string) ([]storage.TransactionRecord, error) {
	return s.store.ListTransactionsByUser(ctx, roomID, userID, transactionHistoryLimit)
}

// TransactionsForRoom returns the room's full ledger. Admin only.
func (s *Service) TransactionsForRoom(ctx context.Context, roomID string, adminUserID string) ([]storage.TransactionRecord, error) {
	if s == nil || s.store == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "room store is not configured")
	}
	if _, err := s.requireAdmin(ctx, roomID, adminUserID); err != nil {
		return nil, err
	}
	return s.store.ListTransactionsByRoom(ctx, roomID)
}

func (s *Service) requireAdmin(ctx context.Context, roomID string, adminUserID string) (storage.RoomRecord, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.RoomRecord{}, apperrors.New(apperrors.CodeNotFound, "room not found")
		}
		return storage.RoomRecord{}, err
	}
	if room.AdminUserID != adminUserID {
		return storage.RoomRecord{}, apperrors.New(apperrors.CodeRoomNotAdmin, "only the room admin can do that")
	}
	return room, nil
}
