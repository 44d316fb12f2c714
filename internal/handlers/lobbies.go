// internal/handlers/lobbies.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ListLobbiesHandler serves GET /lobbies with a summary of every live lobby.
func ListLobbiesHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		lobbies, err := gs.Lobbies(ctx)
		if err != nil {
			logger.Warnf("listing lobbies: %v", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"lobbies": lobbies})
	}
}

// HealthHandler serves GET /healthz. It fails once the event loop has stopped.
func HealthHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		select {
		case <-gs.Done():
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "stopped"})
		default:
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}
	}
}
