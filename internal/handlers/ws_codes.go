// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes, in the 3000-3999 range reserved for applications.
const (
	StatusServerShutdown websocket.StatusCode = 3000 // the game server stopped
	StatusWriteFailed    websocket.StatusCode = 3001 // the server could not deliver a frame
)
