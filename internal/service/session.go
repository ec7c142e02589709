package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campusware/gameroom-backend/internal/apperror"
	"github.com/campusware/gameroom-backend/internal/entity"
	"github.com/campusware/gameroom-backend/internal/pubsub"
)

const (
	StateIdle      SessionState = "idle"
	StateSearching SessionState = "searching"
	StateVersus    SessionState = "versus"
	StatePlaying   SessionState = "playing"
	StateFinished  SessionState = "finished"
)

var ErrSessionBusy = errors.New("session already has an active match")

type SessionState string

// SessionEvents is the sink a session reports into: state transitions,
// authoritative room snapshots and unrecoverable failures. Callbacks run
// on the session's goroutines and must not call back into the session.
type SessionEvents interface {
	StateChanged(state SessionState)
	RoomUpdated(room *entity.Room)
	Failed(err error)
}

type matchFinder interface {
	RequestMatch(ctx context.Context, playerID string) (*entity.Room, error)
}

type movePlayer interface {
	SubmitMove(ctx context.Context, roomID, playerID string, cell int) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type roomFeed interface {
	Subscribe(ctx context.Context, roomID string, onUpdate func(*entity.Room), onDisconnect func()) (*pubsub.Subscription, error)
}

// Session drives one player through idle → searching → versus → playing →
// finished. It never applies a move locally: the board only changes when a
// subscribed snapshot arrives, and snapshots staler than the rendered one
// are dropped.
type Session struct {
	logger      *slog.Logger
	playerID    string
	versusDelay time.Duration

	matchmaking matchFinder
	gameplay    movePlayer
	feed        roomFeed
	events      SessionEvents

	mu         sync.Mutex
	state      SessionState
	room       *entity.Room
	sub        *pubsub.Subscription
	introTimer *time.Timer
}

func NewSession(logger *slog.Logger, playerID string, versusDelay time.Duration, matchmaking matchFinder, gameplay movePlayer, feed roomFeed, events SessionEvents) *Session {
	return &Session{
		logger:      logger.With("component", "session", "playerID", playerID),
		playerID:    playerID,
		versusDelay: versusDelay,
		matchmaking: matchmaking,
		gameplay:    gameplay,
		feed:        feed,
		events:      events,
		state:       StateIdle,
	}
}

func (that *Session) PlayerID() string {
	return that.playerID
}

func (that *Session) State() SessionState {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.state
}

func (that *Session) Room() *entity.Room {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.room
}

// FindMatch - requests a match, subscribes to the resulting room and primes
// the view with an explicit fresh read, since events between the claim and
// the subscribe are not replayed.
func (that *Session) FindMatch(ctx context.Context) error {
	that.mu.Lock()
	if that.state != StateIdle {
		that.mu.Unlock()
		return ErrSessionBusy
	}
	that.setStateLocked(StateSearching)
	that.mu.Unlock()

	room, err := that.matchmaking.RequestMatch(ctx, that.playerID)
	if err != nil {
		that.abandon(fmt.Errorf("matchmaking failed: %w", err))
		return err
	}

	sub, err := that.feed.Subscribe(ctx, room.ID, that.handleUpdate, that.handleDisconnect)
	if err != nil {
		that.abandon(fmt.Errorf("failed to open room feed: %w", err))
		return err
	}

	that.mu.Lock()
	that.sub = sub
	that.mu.Unlock()

	snapshot, err := that.gameplay.GetRoom(ctx, room.ID)
	if err != nil {
		// the claim result is still a valid snapshot to render
		that.logger.Debug("fresh read after subscribe failed", "roomID", room.ID, "error", err)
		snapshot = room
	}

	that.handleUpdate(snapshot)

	return nil
}

// SubmitMove - forwards a cell click to the authoritative store. Invalid
// moves have no effect; a stale commit triggers a fresh read so the next
// render shows the state that won.
func (that *Session) SubmitMove(ctx context.Context, cell int) error {
	that.mu.Lock()
	state, room := that.state, that.room
	that.mu.Unlock()

	if state != StatePlaying || room == nil {
		return nil
	}

	_, err := that.gameplay.SubmitMove(ctx, room.ID, that.playerID, cell)
	switch {
	case err == nil:
		// the board changes on the next feed delivery, not here
		return nil
	case apperror.IsInvalidMove(err):
		that.logger.Debug("move rejected", "roomID", room.ID, "cell", cell, "error", err)
		return nil
	case errors.Is(err, apperror.ErrStaleState):
		that.refresh(ctx, room.ID)
		return nil
	default:
		that.events.Failed(err)
		return err
	}
}

// Reconnect - reopens the room feed after it dropped, then does an explicit
// fresh read: events missed while disconnected are never replayed.
func (that *Session) Reconnect(ctx context.Context) error {
	that.mu.Lock()
	if that.room == nil {
		that.mu.Unlock()
		return nil
	}
	roomID := that.room.ID

	if that.sub != nil {
		if err := that.sub.Close(); err != nil {
			that.logger.Error("failed to close stale room feed", "error", err)
		}
		that.sub = nil
	}
	that.mu.Unlock()

	sub, err := that.feed.Subscribe(ctx, roomID, that.handleUpdate, that.handleDisconnect)
	if err != nil {
		return fmt.Errorf("failed to reopen room feed: %w", err)
	}

	that.mu.Lock()
	that.sub = sub
	that.mu.Unlock()

	that.refresh(ctx, roomID)

	return nil
}

// Ready - ends the versus introduction early; play also starts on its own
// once the configured delay elapses.
func (that *Session) Ready() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != StateVersus {
		return
	}

	that.setStateLocked(StatePlaying)
}

// Leave - releases the feed and returns to idle. A created waiting room is
// not retracted; it ages out with the waiting TTL.
func (that *Session) Leave() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.introTimer != nil {
		that.introTimer.Stop()
		that.introTimer = nil
	}

	if that.sub != nil {
		if err := that.sub.Close(); err != nil {
			that.logger.Error("failed to close room feed", "error", err)
		}
		that.sub = nil
	}

	that.room = nil
	that.setStateLocked(StateIdle)
}

// handleUpdate - applies a delivered snapshot: drop it if stale, otherwise
// replace the local view wholesale and advance the state machine.
func (that *Session) handleUpdate(room *entity.Room) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateIdle {
		return
	}

	if that.room != nil && room.Version <= that.room.Version {
		return
	}

	that.room = room
	that.events.RoomUpdated(room)

	switch {
	case room.IsPlaying() && that.state == StateSearching:
		that.setStateLocked(StateVersus)
		that.introTimer = time.AfterFunc(that.versusDelay, that.Ready)
	case room.IsFinished() && that.state != StateFinished:
		if that.introTimer != nil {
			that.introTimer.Stop()
			that.introTimer = nil
		}
		that.setStateLocked(StateFinished)
	}
}

// handleDisconnect - surfaces an unexpected feed drop. The session keeps its
// last rendered snapshot; the client decides when to Reconnect.
func (that *Session) handleDisconnect() {
	that.mu.Lock()
	active := that.state != StateIdle
	that.mu.Unlock()

	if !active {
		return
	}

	that.events.Failed(apperror.ErrChannelDisconnected)
}

func (that *Session) refresh(ctx context.Context, roomID string) {
	snapshot, err := that.gameplay.GetRoom(ctx, roomID)
	if err != nil {
		that.events.Failed(fmt.Errorf("failed to refresh room: %w", err))
		return
	}

	that.handleUpdate(snapshot)
}

func (that *Session) abandon(err error) {
	that.mu.Lock()
	that.setStateLocked(StateIdle)
	that.mu.Unlock()

	that.events.Failed(err)
}

func (that *Session) setStateLocked(state SessionState) {
	if that.state == state {
		return
	}

	that.state = state
	that.events.StateChanged(state)
}
