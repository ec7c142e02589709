package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusware/gameroom-backend/internal/apperror"
	"github.com/campusware/gameroom-backend/internal/entity"
	"github.com/campusware/gameroom-backend/internal/pubsub"
)

// waitingIndexKey holds the ids of rooms open for matchmaking.
const waitingIndexKey = "rooms:waiting"

func roomKey(id string) string {
	return "room:" + id
}

// RoomRepository owns every write to a room record. Update is the only
// mutation path and commits conditionally, so exactly one of two
// concurrent competing writers succeeds and the other observes a clean
// rejection.
type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	FindWaiting(ctx context.Context, excludePlayerID string) (*entity.Room, error)
	Update(ctx context.Context, id string, mutate func(room *entity.Room) error) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbRoom struct {
	client      *redis.Client
	waitingTTL  time.Duration
	finishedTTL time.Duration
}

func NewRoomRepository(client *redis.Client, waitingTTL, finishedTTL time.Duration) RoomRepository {
	return &dbRoom{
		client:      client,
		waitingTTL:  waitingTTL,
		finishedTTL: finishedTTL,
	}
}

// Create - inserts a fresh room and, while it is waiting, indexes it for
// matchmaking. Waiting rooms expire with the waiting TTL so abandoned ones
// do not pile up.
func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	room.Version = 1
	room.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(room.ID), payload, that.expiration(room))
		if room.IsWaiting() {
			pipe.SAdd(ctx, waitingIndexKey, room.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	room := &entity.Room{}
	if err = json.Unmarshal([]byte(response), room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return room, nil
}

// FindWaiting - returns a waiting room not created by the requester.
// Index entries whose record expired or already started are pruned along
// the way.
func (that *dbRoom) FindWaiting(ctx context.Context, excludePlayerID string) (*entity.Room, error) {
	ids, err := that.client.SMembers(ctx, waitingIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read waiting index: %w", err)
	}

	for _, id := range ids {
		room, err := that.GetByID(ctx, id)
		if errors.Is(err, apperror.ErrRoomNotFound) {
			that.client.SRem(ctx, waitingIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}

		if !room.IsWaiting() {
			that.client.SRem(ctx, waitingIndexKey, id)
			continue
		}

		if room.Player1 == excludePlayerID {
			continue
		}

		return room, nil
	}

	return nil, apperror.ErrNoWaitingRoom
}

// Update - the conditional commit. The room key is watched while mutate
// runs against the freshly read record; the write only lands if the record
// is still unchanged at commit time. A lost race surfaces as ErrStaleState,
// and mutate rejections abort without writing anything. Every committed
// update bumps the version and publishes the new snapshot to the room's
// channel.
func (that *dbRoom) Update(ctx context.Context, id string, mutate func(room *entity.Room) error) (*entity.Room, error) {
	var updated *entity.Room

	txn := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, roomKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get room by id: %w", err)
		}

		room := &entity.Room{}
		if err = json.Unmarshal([]byte(response), room); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}

		wasWaiting := room.IsWaiting()

		if err = mutate(room); err != nil {
			return err
		}

		room.Version++
		room.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("could not marshal room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey(id), payload, that.expiration(room))
			if wasWaiting && !room.IsWaiting() {
				pipe.SRem(ctx, waitingIndexKey, id)
			}
			pipe.Publish(ctx, pubsub.ChannelFor(id), payload)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to commit room update: %w", err)
		}

		updated = room
		return nil
	}

	err := that.client.Watch(ctx, txn, roomKey(id))
	if errors.Is(err, redis.TxFailedErr) {
		return nil, apperror.ErrStaleState
	}
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (that *dbRoom) DeleteByID(ctx context.Context, id string) error {
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(id))
		pipe.SRem(ctx, waitingIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete room by id: %w", err)
	}

	return nil
}

// expiration - waiting rooms are bounded, finished rooms stay readable for
// late fresh reads, rooms in play never expire.
func (that *dbRoom) expiration(room *entity.Room) time.Duration {
	switch {
	case room.IsWaiting():
		return that.waitingTTL
	case room.IsFinished():
		return that.finishedTTL
	default:
		return 0
	}
}
