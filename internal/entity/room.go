package entity

import (
	"fmt"
	"time"

	"github.com/campusware/gameroom-backend/internal/apperror"
)

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// BoardSize is the edge length of the square board.
const BoardSize = 3

// BoardCells is the fixed board length; constant for every room.
const BoardCells = BoardSize * BoardSize

type Status string

// Room is the single authoritative record of one match. Every mutation goes
// through the repository's conditional commit; nothing else writes to it.
type Room struct {
	ID        string           `json:"id"`
	Player1   string           `json:"player_1"`
	Player2   string           `json:"player_2"`
	Board     [BoardCells]Mark `json:"board"`
	Turn      string           `json:"turn"`
	Status    Status           `json:"status"`
	Winner    Mark             `json:"winner"`
	IsDraw    bool             `json:"is_draw"`
	Version   int64            `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewRoom - creates a waiting room owned by its first player. The creator
// keeps the first move once an opponent joins.
func NewRoom(id, creatorID string) *Room {
	return &Room{
		ID:      id,
		Player1: creatorID,
		Turn:    creatorID,
		Status:  StatusWaiting,
	}
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) HasPlayer(playerID string) bool {
	return playerID != "" && (that.Player1 == playerID || that.Player2 == playerID)
}

// MarkOf - the creator always plays X, the joiner O.
func (that *Room) MarkOf(playerID string) Mark {
	switch playerID {
	case that.Player1:
		return MarkX
	case that.Player2:
		return MarkO
	default:
		return MarkEmpty
	}
}

func (that *Room) Opponent(playerID string) string {
	if playerID == that.Player1 {
		return that.Player2
	}
	return that.Player1
}

// Join - seats the second player and starts play. Callers must have checked
// that the room is still waiting; the conditional commit enforces it at
// write time.
func (that *Room) Join(playerID string) {
	that.Player2 = playerID
	that.Status = StatusPlaying
	that.Turn = that.Player1
}

// ValidateMove - checks every precondition of a move without writing.
func (that *Room) ValidateMove(playerID string, cell int) error {
	switch {
	case that.IsFinished():
		return apperror.ErrRoomFinished
	case !that.IsPlaying():
		return apperror.ErrRoomNotStarted
	}

	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Turn != playerID {
		return apperror.ErrNotYourTurn
	}

	if !that.Board[cell].IsEmpty() {
		return apperror.ErrCellOccupied
	}

	return nil
}

func (that *Room) PlaceMark(playerID string, cell int) {
	that.Board[cell] = that.MarkOf(playerID)
}

// PassTurn - hands the move to the opponent of the player who just moved.
func (that *Room) PassTurn(playerID string) {
	that.Turn = that.Opponent(playerID)
}

// Finish - makes the room terminal. Exactly one of winner/isDraw is set.
func (that *Room) Finish(winner Mark, isDraw bool) {
	that.Status = StatusFinished
	that.Winner = winner
	that.IsDraw = isDraw
	that.Turn = ""
}

// WinnerPlayer - maps the winning mark back to a player id, empty for
// draws and unfinished rooms.
func (that *Room) WinnerPlayer() string {
	switch that.Winner {
	case MarkX:
		return that.Player1
	case MarkO:
		return that.Player2
	default:
		return ""
	}
}
