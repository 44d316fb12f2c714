// internal/handlers/connection.go
package handlers

import (
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const outBuffer = 64

// Connection is one websocket client. The write pump drains OutChan.
type Connection struct {
	ID         uuid.UUID
	RemoteAddr string
	OutChan    chan protocol.ServerMessage
}

func NewConnection(remoteAddr string) *Connection {
	return &Connection{
		ID:         uuid.New(),
		RemoteAddr: remoteAddr,
		OutChan:    make(chan protocol.ServerMessage, outBuffer),
	}
}

// Write queues msg without blocking. A full queue drops the message.
func (c *Connection) Write(msg protocol.ServerMessage) {
	select {
	case c.OutChan <- msg:
	default:
		log.WithFields(log.Fields{"conn": c.ID, "remote": c.RemoteAddr}).
			Warnf("OutChan full, dropped message type '%s'", msg.MessageType())
	}
}

// WriteError is a convenience to send an error frame.
func (c *Connection) WriteError(msg string) {
	c.Write(protocol.Error{Message: msg})
}
