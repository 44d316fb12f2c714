// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/CarterLud/unotwist/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Routes mounts the game socket and the HTTP endpoints, each behind request logging.
func Routes(logger *logrus.Logger, gs *GameServer) *http.ServeMux {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("/ws", logged(WSHandler(logger, gs)))
	mux.Handle("/lobbies", logged(ListLobbiesHandler(logger, gs)))
	mux.Handle("/healthz", HealthHandler(gs))
	return mux
}
