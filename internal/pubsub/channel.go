// Package pubsub is the per-room synchronization channel: a thin wrapper
// over redis pub/sub that fans full Room snapshots out to subscribers.
// Delivery is at-least-once and unordered; subscribers treat every snapshot
// as a full replacement and discard anything staler than what they already
// rendered. Events missed while disconnected are not replayed, so a
// reconnecting client must do an explicit fresh read.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/campusware/gameroom-backend/internal/entity"
)

// ChannelFor - the redis channel carrying change events for one room.
func ChannelFor(roomID string) string {
	return "room:events:" + roomID
}

type Channel struct {
	logger *slog.Logger
	client *redis.Client
}

func New(logger *slog.Logger, client *redis.Client) *Channel {
	return &Channel{
		logger: logger,
		client: client,
	}
}

// Subscribe - opens a feed for one room; onUpdate receives every delivered
// snapshot until the subscription is closed. Closing never mutates the room.
// onDisconnect fires when the feed drops without the subscriber asking for
// it; the subscriber then owns reconnecting and doing a fresh read.
func (that *Channel) Subscribe(ctx context.Context, roomID string, onUpdate func(*entity.Room), onDisconnect func()) (*Subscription, error) {
	sub := that.client.Subscribe(ctx, ChannelFor(roomID))

	// confirm the subscription before handing it out, so no caller assumes
	// a feed that was never established
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", roomID, err)
	}

	subscription := &Subscription{pubsub: sub, done: make(chan struct{})}
	go that.fanOut(roomID, sub.Channel(), subscription.done, onUpdate, onDisconnect)

	return subscription, nil
}

func (that *Channel) fanOut(roomID string, messages <-chan *redis.Message, done <-chan struct{}, onUpdate func(*entity.Room), onDisconnect func()) {
	log := that.logger.With("component", "pubsub", "roomID", roomID)

	for {
		select {
		case <-done:
			return
		case msg, ok := <-messages:
			if !ok {
				select {
				case <-done:
					// closed by the subscriber, not a failure
				default:
					log.Warn("room feed dropped")
					if onDisconnect != nil {
						onDisconnect()
					}
				}
				return
			}

			room := &entity.Room{}
			if err := json.Unmarshal([]byte(msg.Payload), room); err != nil {
				log.Error("failed to unmarshal room snapshot", "error", err)
				continue
			}

			onUpdate(room)
		}
	}
}

type Subscription struct {
	once   sync.Once
	pubsub *redis.PubSub
	done   chan struct{}
}

func (that *Subscription) Close() error {
	var err error

	that.once.Do(func() {
		if that.done != nil {
			close(that.done)
		}
		if that.pubsub != nil {
			err = that.pubsub.Close()
		}
	})

	if err != nil {
		return fmt.Errorf("failed to close subscription: %w", err)
	}

	return nil
}
