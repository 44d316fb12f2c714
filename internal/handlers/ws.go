// internal/handlers/ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/CarterLud/unotwist/internal/middleware"
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// WSHandler upgrades the request and runs the connection until either side
// goes away. Decoded frames are handed to the game server's event loop.
func WSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go func() {
			select {
			case <-gs.Done():
				cancel()
			case <-ctx.Done():
			}
		}()

		conn := NewConnection(r.RemoteAddr)
		if !gs.Submit(func() { gs.connect(conn) }) {
			c.Close(StatusServerShutdown, "server shutting down")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		go writePump(ctx, cancel, c, conn, logger)
		err = readPump(ctx, c, gs, conn, logger)

		gs.Submit(func() { gs.disconnect(conn) })
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)

		select {
		case <-gs.Done():
			c.Close(StatusServerShutdown, "server shutting down")
		default:
			c.Close(websocket.StatusNormalClosure, "")
		}
	}
}

// readPump decodes inbound frames until the socket closes. A normal close
// returns nil.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, conn *Connection, logger *logrus.Logger) error {
	limiter := rate.NewLimiter(rate.Limit(gs.cfg.MessagesPerSec), gs.cfg.MessageBurst)
	fields := logrus.Fields{"conn": conn.ID, "remote": conn.RemoteAddr}

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.WithFields(fields).Warnf("ignoring non-text frame of type %d", typ)
			continue
		}

		msg, err := protocol.Decode(data)
		switch {
		case errors.Is(err, protocol.ErrUnknownType):
			logger.WithFields(fields).Debugf("unknown frame: %v", err)
			conn.WriteError("Unknown message type")
			continue
		case err != nil:
			logger.WithFields(fields).Warnf("dropping frame: %v", err)
			continue
		}

		if !gs.Submit(func() { gs.handle(conn, msg) }) {
			return nil
		}
	}
}

// writePump encodes queued messages onto the socket and pings the client.
// A failed write cancels the connection.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, conn *Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cancel()
	fields := logrus.Fields{"conn": conn.ID, "remote": conn.RemoteAddr}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := protocol.Encode(msg)
			if err != nil {
				logger.WithFields(fields).Warnf("failed to encode %s: %v", msg.MessageType(), err)
				continue
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				logger.WithFields(fields).Warnf("failed to write to websocket: %v", err)
				c.Close(StatusWriteFailed, "write failed")
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				logger.WithFields(fields).Warnf("ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}
