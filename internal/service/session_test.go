package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusware/gameroom-backend/internal/apperror"
	"github.com/campusware/gameroom-backend/internal/entity"
)

const eventuallyTick = 2 * time.Millisecond

// sessionPair wires two sessions against one shared store and feed, the way
// two client processes share one room and one notification channel.
type sessionPair struct {
	rooms    *memRooms
	feed     *memFeed
	alice    *Session
	bob      *Session
	aliceLog *recordingEvents
	bobLog   *recordingEvents
}

func newSessionPair(t *testing.T) *sessionPair {
	t.Helper()

	rooms := newMemRooms()
	feed := newMemFeed()
	rooms.published = feed.deliver

	matchmaking := NewMatchmakingService(discardLogger(), rooms)
	gameplay := NewGamePlayService(discardLogger(), rooms)

	aliceLog := &recordingEvents{}
	bobLog := &recordingEvents{}

	return &sessionPair{
		rooms:    rooms,
		feed:     feed,
		alice:    NewSession(discardLogger(), "alice", time.Millisecond, matchmaking, gameplay, feed, aliceLog),
		bob:      NewSession(discardLogger(), "bob", time.Millisecond, matchmaking, gameplay, feed, bobLog),
		aliceLog: aliceLog,
		bobLog:   bobLog,
	}
}

func (that *sessionPair) startMatch(t *testing.T, ctx context.Context) {
	t.Helper()

	require.NoError(t, that.alice.FindMatch(ctx))
	require.NoError(t, that.bob.FindMatch(ctx))

	for _, session := range []*Session{that.alice, that.bob} {
		require.Eventually(t, func() bool {
			return session.State() == StatePlaying
		}, time.Second, eventuallyTick)
	}
}

func TestSession_FindMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("first player searches, second player completes the match", func(t *testing.T) {
		pair := newSessionPair(t)

		// When: alice searches first
		require.NoError(t, pair.alice.FindMatch(ctx))

		// Then: she waits in a room of her own
		assert.Equal(t, StateSearching, pair.alice.State())
		room := pair.alice.Room()
		require.NotNil(t, room)
		assert.Equal(t, entity.StatusWaiting, room.Status)

		// When: bob searches
		require.NoError(t, pair.bob.FindMatch(ctx))

		// Then: both sessions move through versus into playing
		for _, session := range []*Session{pair.alice, pair.bob} {
			require.Eventually(t, func() bool {
				return session.State() == StatePlaying
			}, time.Second, eventuallyTick)
		}

		// Then: both render the same room snapshot
		assert.Equal(t, pair.alice.Room().ID, pair.bob.Room().ID)
		assert.Contains(t, pair.aliceLog.statesSeen(), StateVersus)
		assert.Contains(t, pair.bobLog.statesSeen(), StateVersus)
	})

	t.Run("a session with an active match refuses a second search", func(t *testing.T) {
		pair := newSessionPair(t)

		require.NoError(t, pair.alice.FindMatch(ctx))

		// When: alice searches again without leaving
		err := pair.alice.FindMatch(ctx)

		// Then: the session refuses
		require.ErrorIs(t, err, ErrSessionBusy)
	})
}

func TestSession_Play(t *testing.T) {
	ctx := context.Background()

	t.Run("moves render only through feed deliveries", func(t *testing.T) {
		pair := newSessionPair(t)
		pair.startMatch(t, ctx)

		// When: alice plays cell 0
		require.NoError(t, pair.alice.SubmitMove(ctx, 0))

		// Then: both sessions render the move from the delivered snapshot
		require.Eventually(t, func() bool {
			room := pair.bob.Room()
			return room != nil && room.Board[0] == entity.MarkX
		}, time.Second, eventuallyTick)

		assert.Equal(t, entity.MarkX, pair.alice.Room().Board[0])
		assert.Equal(t, "bob", pair.alice.Room().Turn)
	})

	t.Run("an out-of-turn click has no effect", func(t *testing.T) {
		pair := newSessionPair(t)
		pair.startMatch(t, ctx)

		before := pair.bob.Room().Version

		// When: bob clicks while it is alice's turn
		require.NoError(t, pair.bob.SubmitMove(ctx, 4))

		// Then: nothing changed and no failure surfaced
		assert.Equal(t, before, pair.bob.Room().Version)
		assert.Empty(t, pair.bobLog.failures())
	})

	t.Run("full game to the finished state on both sides", func(t *testing.T) {
		pair := newSessionPair(t)
		pair.startMatch(t, ctx)

		// When: alice takes the top row while bob plays the middle
		moves := []struct {
			session *Session
			cell    int
		}{
			{pair.alice, 0},
			{pair.bob, 4},
			{pair.alice, 1},
			{pair.bob, 5},
			{pair.alice, 2},
		}

		for _, move := range moves {
			require.NoError(t, move.session.SubmitMove(ctx, move.cell))
		}

		// Then: both sessions finish and render alice as the winner
		for _, session := range []*Session{pair.alice, pair.bob} {
			require.Eventually(t, func() bool {
				return session.State() == StateFinished
			}, time.Second, eventuallyTick)

			room := session.Room()
			require.NotNil(t, room)
			assert.Equal(t, entity.StatusFinished, room.Status)
			assert.Equal(t, "alice", room.WinnerPlayer())
			assert.False(t, room.IsDraw)
		}
	})

	t.Run("stale deliveries are discarded", func(t *testing.T) {
		pair := newSessionPair(t)
		pair.startMatch(t, ctx)

		require.NoError(t, pair.alice.SubmitMove(ctx, 0))
		require.Eventually(t, func() bool {
			return pair.bob.Room().Board[0] == entity.MarkX
		}, time.Second, eventuallyTick)

		current := pair.bob.Room()

		// When: an older snapshot of the same room is delivered again
		stale := cloneRoom(current)
		stale.Board[0] = entity.MarkEmpty
		stale.Version = current.Version - 1
		pair.feed.deliver(stale)

		// Then: the rendered view keeps the newer state
		assert.Equal(t, entity.MarkX, pair.bob.Room().Board[0])
		assert.Equal(t, current.Version, pair.bob.Room().Version)
	})

	t.Run("a dropped feed surfaces and reconnect does a fresh read", func(t *testing.T) {
		pair := newSessionPair(t)
		pair.startMatch(t, ctx)

		room := pair.bob.Room()
		require.NotNil(t, room)

		// When: the room feed falls over
		pair.feed.drop(room.ID)

		// Then: both sessions report the disconnect and keep their last view
		require.ErrorIs(t, pair.aliceLog.lastFailure(), apperror.ErrChannelDisconnected)
		require.ErrorIs(t, pair.bobLog.lastFailure(), apperror.ErrChannelDisconnected)
		assert.Equal(t, StatePlaying, pair.bob.State())

		// When: alice plays while bob is disconnected
		require.NoError(t, pair.alice.SubmitMove(ctx, 0))

		// Then: the move does not reach bob's stale view
		assert.Equal(t, entity.MarkEmpty, pair.bob.Room().Board[0])

		// When: bob reconnects
		require.NoError(t, pair.bob.Reconnect(ctx))

		// Then: the missed move arrives through the fresh read, and later
		// commits flow through the reopened feed again
		assert.Equal(t, entity.MarkX, pair.bob.Room().Board[0])

		require.NoError(t, pair.alice.Reconnect(ctx))
		require.NoError(t, pair.bob.SubmitMove(ctx, 4))
		require.Eventually(t, func() bool {
			return pair.bob.Room().Board[4] == entity.MarkO
		}, time.Second, eventuallyTick)
	})

	t.Run("leave releases the room and ignores later deliveries", func(t *testing.T) {
		pair := newSessionPair(t)
		pair.startMatch(t, ctx)

		room := pair.bob.Room()

		// When: bob leaves mid-game
		pair.bob.Leave()

		// Then: he is idle with no room
		assert.Equal(t, StateIdle, pair.bob.State())
		assert.Nil(t, pair.bob.Room())

		// When: alice keeps playing
		require.NoError(t, pair.alice.SubmitMove(ctx, 0))

		// Then: bob's session stays untouched while alice renders the move
		assert.Nil(t, pair.bob.Room())
		require.Eventually(t, func() bool {
			return pair.alice.Room().Board[0] == entity.MarkX
		}, time.Second, eventuallyTick)

		// the shared room itself is unaffected by bob's local teardown
		stored, err := pair.rooms.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPlaying, stored.Status)
	})
}
