package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campusware/gameroom-backend/internal/pkg"
	"github.com/campusware/gameroom-backend/internal/pubsub"
	"github.com/campusware/gameroom-backend/internal/service"
)

type Server struct {
	logger      *slog.Logger
	matchmaking service.MatchmakingService
	gameplay    service.GamePlayService
	channel     *pubsub.Channel
	versusDelay time.Duration
	upgrader    websocket.Upgrader
}

func New(logger *slog.Logger, matchmaking service.MatchmakingService, gameplay service.GamePlayService, channel *pubsub.Channel, versusDelay time.Duration) *Server {
	return &Server{
		logger:      logger,
		matchmaking: matchmaking,
		gameplay:    gameplay,
		channel:     channel,
		versusDelay: versusDelay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}
}

// Start - starts the WebSocket server and shuts it down when ctx ends.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.handleConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleConnection - upgrades the connection and binds one session to it.
// The player id comes from the identity layer via query param; anonymous
// connections get a generated session id.
func (that *Server) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "error", err)
		return
	}

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = pkg.GenerateSessionID()
	}

	cl := &client{
		logger: that.logger.With("component", "ws-client", "playerID", playerID),
		conn:   conn,
	}
	cl.session = service.NewSession(that.logger, playerID, that.versusDelay, that.matchmaking, that.gameplay, that.channel, cl)

	log.Info("websocket connection established", "playerID", playerID)

	cl.send(ActionConnected, ConnectedPayload{PlayerID: playerID})
	cl.readLoop(ctx)

	cl.session.Leave()
	_ = conn.Close()

	log.Info("websocket connection closed", "playerID", playerID)
}
