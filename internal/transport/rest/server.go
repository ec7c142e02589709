package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusware/gameroom-backend/internal/apperror"
	"github.com/campusware/gameroom-backend/internal/service"
)

type Server struct {
	logger   *slog.Logger
	gameplay service.GamePlayService
}

func New(logger *slog.Logger, gameplay service.GamePlayService) *Server {
	return &Server{
		logger:   logger,
		gameplay: gameplay,
	}
}

// Start - serves the health probe and the room fresh-read endpoint that
// reconnecting clients use instead of relying on buffered feed events.
func (that *Server) Start(ctx context.Context, port string) error {
	router := chi.NewRouter()
	router.Get("/ping", that.handlePing)
	router.Get("/rooms/{roomID}", that.handleGetRoom)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
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

func (that *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	room, err := that.gameplay.GetRoom(r.Context(), roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		that.logger.Error("failed to get room", "roomID", roomID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(room); err != nil {
		that.logger.Error("failed to encode room", "roomID", roomID, "error", err)
	}
}
