package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campusware/gameroom-backend/internal/apperror"
	"github.com/campusware/gameroom-backend/internal/entity"
	"github.com/campusware/gameroom-backend/internal/pkg"
	"github.com/campusware/gameroom-backend/internal/repository"
)

// maxClaimAttempts bounds how often a lost claim race is retried before
// falling back to a fresh room.
const maxClaimAttempts = 3

type MatchmakingService interface {
	RequestMatch(ctx context.Context, playerID string) (*entity.Room, error)
}

type matchmakingService struct {
	logger *slog.Logger
	rooms  repository.RoomRepository
}

func NewMatchmakingService(logger *slog.Logger, rooms repository.RoomRepository) MatchmakingService {
	return &matchmakingService{
		logger: logger,
		rooms:  rooms,
	}
}

// RequestMatch - pairs the player into a room: claim a waiting room if one
// exists, otherwise create a new one and wait. A waiting room snatched by a
// concurrent requester between read and claim is simply retried.
func (that *matchmakingService) RequestMatch(ctx context.Context, playerID string) (*entity.Room, error) {
	log := that.logger.With("method", "RequestMatch", "playerID", playerID)

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		waiting, err := that.rooms.FindWaiting(ctx, playerID)
		if errors.Is(err, apperror.ErrNoWaitingRoom) {
			return that.createRoom(ctx, playerID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find waiting room: %w", err)
		}

		claimed, err := that.claimRoom(ctx, waiting.ID, playerID)
		if err == nil {
			log.Info("claimed waiting room", "roomID", claimed.ID)
			return claimed, nil
		}

		if isClaimLost(err) {
			log.Debug("waiting room lost to a concurrent requester", "roomID", waiting.ID, "error", err)
			continue
		}

		return nil, fmt.Errorf("failed to claim waiting room: %w", err)
	}

	// every candidate got snatched mid-claim; open a fresh room instead
	return that.createRoom(ctx, playerID)
}

// claimRoom - conditional claim: only succeeds if the room is still waiting
// at commit time and the requester is not its creator.
func (that *matchmakingService) claimRoom(ctx context.Context, roomID, playerID string) (*entity.Room, error) {
	return that.rooms.Update(ctx, roomID, func(room *entity.Room) error {
		if !room.IsWaiting() || room.HasPlayer(playerID) {
			return apperror.ErrRoomClaimed
		}

		room.Join(playerID)
		return nil
	})
}

func (that *matchmakingService) createRoom(ctx context.Context, playerID string) (*entity.Room, error) {
	room := entity.NewRoom(pkg.GenerateRoomID(), playerID)

	if err := that.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	that.logger.Info("created waiting room", "roomID", room.ID, "playerID", playerID)

	return room, nil
}

func isClaimLost(err error) bool {
	return errors.Is(err, apperror.ErrRoomClaimed) ||
		errors.Is(err, apperror.ErrStaleState) ||
		errors.Is(err, apperror.ErrRoomNotFound)
}
