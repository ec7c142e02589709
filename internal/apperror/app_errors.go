package apperror

import "errors"

var (
	ErrRoomFinished   = errors.New("room is already finished")
	ErrRoomNotStarted = errors.New("room is not in play")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrCellOccupied   = errors.New("cell is already occupied")
	ErrInvalidCell    = errors.New("invalid cell index")

	ErrRoomNotFound        = errors.New("room not found")
	ErrNoWaitingRoom       = errors.New("no waiting room available")
	ErrRoomClaimed         = errors.New("waiting room was claimed by another player")
	ErrStaleState          = errors.New("room changed between read and commit")
	ErrChannelDisconnected = errors.New("room feed disconnected")
)

// IsInvalidMove reports whether err belongs to the rejection class that is
// checked before any write and leaves the room untouched.
func IsInvalidMove(err error) bool {
	return errors.Is(err, ErrRoomFinished) ||
		errors.Is(err, ErrRoomNotStarted) ||
		errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrCellOccupied) ||
		errors.Is(err, ErrInvalidCell)
}
