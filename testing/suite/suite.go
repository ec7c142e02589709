// Package suite boots a throwaway redis container and wires the room store
// and the per-room synchronization channel against it, so integration tests
// run the same WATCH/MULTI and pub/sub paths the server does.
package suite

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	"github.com/campusware/gameroom-backend/internal/pubsub"
	"github.com/campusware/gameroom-backend/internal/repository"
)

// Rooms created through the suite get TTLs far above any test's runtime,
// so expiry never interferes unless a test builds its own repository.
const (
	waitingTTL  = time.Minute
	finishedTTL = time.Minute
)

const (
	containerLifetimeSeconds = 120
	maxWait                  = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

// Suite hands each test a clean redis plus the configured room repository
// and synchronization channel built on top of it.
type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client
	Rooms   repository.RoomRepository
	Channel *pubsub.Channel
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWait)
	t.Cleanup(func() {
		cancel()
	})

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	}, func(config *docker.HostConfig) {
		// a stopped container removes itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	// hard kill the container even if cleanup never runs
	_ = resource.Expire(containerLifetimeSeconds)

	redisHost := resource.GetHostPort(redisPort)

	// redis inside the container might not accept connections yet
	pool.MaxWait = maxWait

	var redisClient *redis.Client
	if err = pool.Retry(func() error {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisHost,
		})
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}

		t.Fatalf("could not connect to redis: %v", err)
	}

	if err = redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	t.Cleanup(func() {
		t.Helper()

		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}
	})

	return ctx, &Suite{
		T:       t,
		Logger:  logger,
		Storage: redisClient,
		Rooms:   repository.NewRoomRepository(redisClient, waitingTTL, finishedTTL),
		Channel: pubsub.New(logger, redisClient),
	}
}
