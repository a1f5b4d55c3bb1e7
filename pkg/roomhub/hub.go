package roomhub

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/metrics"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

var ErrConnIsNotFound = errors.New("connection not found")

const defaultSendBuffer = 64

// RideRoom returns the room id for a ride.
func RideRoom(rideID uuid.UUID) string {
	return "ride:" + rideID.String()
}

// DriverRoom returns the personal room id for a driver.
func DriverRoom(driverID uuid.UUID) string {
	return "driver:" + driverID.String()
}

// Hub хранит все активные соединения и их членство в комнатах.
// A room is a named fan-out group: a ride room or a driver's personal room.
// Publishing to a room that has no members is a silent no-op, drivers may
// go briefly offline without the ride being abandoned.
type Hub struct {
	mu          sync.RWMutex
	conns       map[uuid.UUID]*Conn
	rooms       map[string]map[uuid.UUID]*Conn
	memberships map[uuid.UUID]map[string]struct{} // conn id → room ids, for LeaveAll

	sendBuffer int
	l          logger.Logger
}

func New(l logger.Logger) *Hub {
	return &Hub{
		conns:       make(map[uuid.UUID]*Conn),
		rooms:       make(map[string]map[uuid.UUID]*Conn),
		memberships: make(map[uuid.UUID]map[string]struct{}),
		sendBuffer:  defaultSendBuffer,
		l:           l,
	}
}

// Register wraps the transport into a Conn, starts its writer and tracks it.
// Multiple connections per entity are allowed, none replaces another.
func (h *Hub) Register(ctx context.Context, entityID uuid.UUID, transport Transport) *Conn {
	conn := newConn(entityID, transport, h.sendBuffer, h.l)

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()

	metrics.WebSocketConnectionsGauge.Inc()

	h.l.Debug(wrap.WithConnID(ctx, conn.id.String()), "connection registered", "entity_id", entityID)

	return conn
}

// Unregister removes the connection from every room it joined and closes it.
// Invoked on disconnect. Never mutates ride state.
func (h *Hub) Unregister(ctx context.Context, connID uuid.UUID) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, connID)
	h.leaveAllLocked(connID)
	h.mu.Unlock()

	_ = conn.Close()
	metrics.WebSocketConnectionsGauge.Dec()

	h.l.Debug(wrap.WithConnID(ctx, connID.String()), "connection unregistered")
}

// Join adds the connection to a room. Idempotent: joining twice yields the
// same membership as joining once. There is no replay, callers needing
// catch-up state fetch the current ride status explicitly after joining.
func (h *Hub) Join(connID uuid.UUID, roomID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		return ErrConnIsNotFound
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[uuid.UUID]*Conn)
		h.rooms[roomID] = room
		metrics.RoomsGauge.Set(float64(len(h.rooms)))
	}
	room[connID] = conn

	member, ok := h.memberships[connID]
	if !ok {
		member = make(map[string]struct{})
		h.memberships[connID] = member
	}
	member[roomID] = struct{}{}

	return nil
}

// Leave removes the connection from a room. Idempotent.
func (h *Hub) Leave(connID uuid.UUID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(connID, roomID)
}

// LeaveAll removes the connection from every room it was in. Idempotent.
func (h *Hub) LeaveAll(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveAllLocked(connID)
}

func (h *Hub) leaveLocked(connID uuid.UUID, roomID string) {
	if room, ok := h.rooms[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
			metrics.RoomsGauge.Set(float64(len(h.rooms)))
		}
	}
	if member, ok := h.memberships[connID]; ok {
		delete(member, roomID)
		if len(member) == 0 {
			delete(h.memberships, connID)
		}
	}
}

func (h *Hub) leaveAllLocked(connID uuid.UUID) {
	for roomID := range h.memberships[connID] {
		h.leaveLocked(connID, roomID)
	}
}

// Publish delivers the event to every connection currently in the room.
// Delivery is per-subscriber best-effort: a full write buffer drops the
// message for that subscriber only and never blocks the publisher.
// Connections that join after publication do not receive it.
func (h *Hub) Publish(ctx context.Context, roomID string, event any) {
	h.mu.RLock()
	room := h.rooms[roomID]
	targets := make([]*Conn, 0, len(room))
	for _, conn := range room {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if !conn.enqueue(event) {
			metrics.RoomMessagesDropped.Inc()
			h.l.Warn(wrap.WithConnID(ctx, conn.id.String()),
				"dropped room message for slow subscriber",
				"room_id", roomID,
			)
		}
	}
}

// Members returns the number of connections currently in the room.
func (h *Hub) Members(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[roomID])
}

// Connections returns the number of live connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}

// Close закрывает каждое соединение
func (h *Hub) Close(ctx context.Context) {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.Unregister(ctx, conn.id)
	}

	h.l.Info(wrap.WithAction(ctx, "hub_close"), "all websocket connections closed")
}
