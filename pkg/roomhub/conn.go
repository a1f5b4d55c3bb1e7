package roomhub

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// Transport is the write side of one live endpoint.
// *websocket.Conn from gorilla satisfies it directly.
type Transport interface {
	WriteJSON(v any) error
	Close() error
}

// Conn — одно живое соединение (одно устройство). Ephemeral: a rider or
// driver may own several concurrent Conns, none of them authoritative.
type Conn struct {
	id       uuid.UUID
	entityID uuid.UUID // rider or driver the connection claims to represent

	transport Transport
	send      chan any
	done      chan struct{}
	closeOnce sync.Once

	l logger.Logger
}

func newConn(entityID uuid.UUID, transport Transport, sendBuffer int, l logger.Logger) *Conn {
	c := &Conn{
		id:        uuid.MustNew(),
		entityID:  entityID,
		transport: transport,
		send:      make(chan any, sendBuffer),
		done:      make(chan struct{}),
		l:         l,
	}

	go c.writeLoop()

	return c
}

func (c *Conn) ID() uuid.UUID {
	return c.id
}

func (c *Conn) EntityID() uuid.UUID {
	return c.entityID
}

// writeLoop is the single writer for this connection. All fan-out goes
// through the buffered send channel, so a publish never blocks on the socket.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.transport.WriteJSON(msg); err != nil {
				ctx := wrap.WithConnID(context.Background(), c.id.String())
				c.l.Debug(ctx, "write failed, closing connection", "err", err.Error())
				_ = c.Close()
				return
			}
		}
	}
}

// Send delivers a message to this connection only, outside of any room.
// Same drop semantics as room publishes.
func (c *Conn) Send(msg any) bool {
	return c.enqueue(msg)
}

// enqueue hands a message to the writer without blocking. Returns false if
// the buffer is full or the connection is closed, the message is dropped.
func (c *Conn) enqueue(msg any) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close is idempotent; repeated calls return nil.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.transport.Close()
	})
	return err
}
