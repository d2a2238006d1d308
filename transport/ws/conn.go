package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"chatwire/domain"
	"chatwire/domain/event"
)

// Conn is one client connection's outbox. The read loop lives in the
// handler; WritePump is the single goroutine allowed to write to the
// underlying websocket.
type Conn struct {
	ID     domain.ConnID
	log    *slog.Logger
	socket *websocket.Conn
	outbox chan event.Outbound

	closeOnce sync.Once
	done      chan struct{}
}

func NewConn(id domain.ConnID, log *slog.Logger, socket *websocket.Conn, bufferSize int) *Conn {
	return &Conn{
		ID:     id,
		log:    log,
		socket: socket,
		outbox: make(chan event.Outbound, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume is called by the dispatcher's fan-out.
// It hands the event to the write pump without ever blocking the caller:
// a full outbox means this client is too slow and the event is dropped.
func (c *Conn) Consume(ctx context.Context, e event.Outbound) error {
	select {
	case c.outbox <- e:
		return nil
	case <-c.done:
		return websocket.ErrCloseSent
	case <-ctx.Done():
		return ctx.Err()
	default:
		c.log.Debug("Backpressure, event dropped", "conn", c.ID, "event", e.Event)
		return nil
	}
}

// WritePump drains the outbox onto the wire until the connection closes.
func (c *Conn) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case e := <-c.outbox:
			if err := c.socket.WriteJSON(e); err != nil {
				c.log.Debug("Write failed, closing", "conn", c.ID, "error", err)
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.socket.Close()
	})
}
