package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/campusware/gameroom-backend/internal/apperror"
	"github.com/campusware/gameroom-backend/internal/entity"
	"github.com/campusware/gameroom-backend/internal/pubsub"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRooms is an in-memory stand-in for the redis repository with the same
// contract: serialized conditional updates, clean rejections, version bumps.
type memRooms struct {
	mu    sync.Mutex
	order []string
	rooms map[string]*entity.Room

	// beforeUpdate lets a test inject a concurrent writer between the
	// caller's read and its commit.
	beforeUpdate func(id string) error
	// published receives every committed update when set.
	published func(room *entity.Room)
}

func newMemRooms() *memRooms {
	return &memRooms{rooms: make(map[string]*entity.Room)}
}

func cloneRoom(room *entity.Room) *entity.Room {
	copied := *room
	return &copied
}

func (that *memRooms) Create(_ context.Context, room *entity.Room) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room.Version = 1
	room.UpdatedAt = time.Now().UTC()
	that.order = append(that.order, room.ID)
	that.rooms[room.ID] = cloneRoom(room)

	return nil
}

func (that *memRooms) GetByID(_ context.Context, id string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[id]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return cloneRoom(room), nil
}

func (that *memRooms) FindWaiting(_ context.Context, excludePlayerID string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, id := range that.order {
		room, ok := that.rooms[id]
		if !ok || !room.IsWaiting() || room.Player1 == excludePlayerID {
			continue
		}

		return cloneRoom(room), nil
	}

	return nil, apperror.ErrNoWaitingRoom
}

func (that *memRooms) Update(_ context.Context, id string, mutate func(room *entity.Room) error) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.beforeUpdate != nil {
		if err := that.beforeUpdate(id); err != nil {
			return nil, err
		}
	}

	room, ok := that.rooms[id]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	working := cloneRoom(room)
	if err := mutate(working); err != nil {
		return nil, err
	}

	working.Version++
	working.UpdatedAt = time.Now().UTC()
	that.rooms[id] = cloneRoom(working)

	if that.published != nil {
		that.published(cloneRoom(working))
	}

	return working, nil
}

func (that *memRooms) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, id)

	return nil
}

// memFeed fans committed snapshots out to per-room subscribers, the way the
// redis channel does.
type memFeed struct {
	mu          sync.Mutex
	handlers    map[string][]func(*entity.Room)
	disconnects map[string][]func()
}

func newMemFeed() *memFeed {
	return &memFeed{
		handlers:    make(map[string][]func(*entity.Room)),
		disconnects: make(map[string][]func()),
	}
}

func (that *memFeed) Subscribe(_ context.Context, roomID string, onUpdate func(*entity.Room), onDisconnect func()) (*pubsub.Subscription, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.handlers[roomID] = append(that.handlers[roomID], onUpdate)
	if onDisconnect != nil {
		that.disconnects[roomID] = append(that.disconnects[roomID], onDisconnect)
	}

	return &pubsub.Subscription{}, nil
}

func (that *memFeed) deliver(room *entity.Room) {
	that.mu.Lock()
	handlers := append([]func(*entity.Room){}, that.handlers[room.ID]...)
	that.mu.Unlock()

	for _, handler := range handlers {
		handler(cloneRoom(room))
	}
}

// drop simulates the feed falling over: every subscriber of the room hears
// about the disconnect and stops receiving deliveries.
func (that *memFeed) drop(roomID string) {
	that.mu.Lock()
	disconnects := append([]func(){}, that.disconnects[roomID]...)
	that.handlers[roomID] = nil
	that.disconnects[roomID] = nil
	that.mu.Unlock()

	for _, notify := range disconnects {
		notify()
	}
}

// recordingEvents captures everything a session reports.
type recordingEvents struct {
	mu     sync.Mutex
	states []SessionState
	rooms  []*entity.Room
	errs   []error
}

func (that *recordingEvents) StateChanged(state SessionState) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.states = append(that.states, state)
}

func (that *recordingEvents) RoomUpdated(room *entity.Room) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.rooms = append(that.rooms, room)
}

func (that *recordingEvents) Failed(err error) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.errs = append(that.errs, err)
}

func (that *recordingEvents) statesSeen() []SessionState {
	that.mu.Lock()
	defer that.mu.Unlock()
	return append([]SessionState{}, that.states...)
}

func (that *recordingEvents) lastRoom() *entity.Room {
	that.mu.Lock()
	defer that.mu.Unlock()
	if len(that.rooms) == 0 {
		return nil
	}
	return that.rooms[len(that.rooms)-1]
}

func (that *recordingEvents) failures() []error {
	that.mu.Lock()
	defer that.mu.Unlock()
	return append([]error{}, that.errs...)
}

func (that *recordingEvents) lastFailure() error {
	that.mu.Lock()
	defer that.mu.Unlock()
	if len(that.errs) == 0 {
		return nil
	}
	return that.errs[len(that.errs)-1]
}
