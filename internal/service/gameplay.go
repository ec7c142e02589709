package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusware/gameroom-backend/internal/apperror"
	"github.com/campusware/gameroom-backend/internal/entity"
	"github.com/campusware/gameroom-backend/internal/repository"
	"github.com/campusware/gameroom-backend/internal/rules"
)

type GamePlayService interface {
	SubmitMove(ctx context.Context, roomID, playerID string, cell int) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type gamePlayService struct {
	logger *slog.Logger
	rooms  repository.RoomRepository
}

func NewGamePlayService(logger *slog.Logger, rooms repository.RoomRepository) GamePlayService {
	return &gamePlayService{
		logger: logger,
		rooms:  rooms,
	}
}

// SubmitMove - the single point of truth for move legality. The move is
// validated against a read snapshot, and the commit is predicated on the
// version of that snapshot: if the room changed in between, nothing is
// written and the caller gets ErrStaleState so it refetches instead of
// silently retrying the same move.
func (that *gamePlayService) SubmitMove(ctx context.Context, roomID, playerID string, cell int) (*entity.Room, error) {
	snapshot, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	// rejected before any write is attempted
	if err = snapshot.ValidateMove(playerID, cell); err != nil {
		return nil, err
	}

	room, err := that.rooms.Update(ctx, roomID, func(room *entity.Room) error {
		if room.Version != snapshot.Version {
			return apperror.ErrStaleState
		}

		// the preconditions hold at commit time, not merely at read time
		if err := room.ValidateMove(playerID, cell); err != nil {
			return err
		}

		room.PlaceMark(playerID, cell)

		if result := rules.Evaluate(room.Board[:]); result.Terminal() {
			room.Finish(result.Winner, result.IsDraw)
		} else {
			room.PassTurn(playerID)
		}

		return nil
	})
	if err != nil {
		// keep rejections bare so callers can dispatch on them
		if apperror.IsInvalidMove(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to submit move: %w", err)
	}

	if room.IsFinished() {
		that.logger.Info("room finished", "roomID", room.ID, "winner", room.WinnerPlayer(), "isDraw", room.IsDraw)
	}

	return room, nil
}

// GetRoom - the explicit fresh read used after reconnects and lost commits.
func (that *gamePlayService) GetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}
