package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/roomhub"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type RideReader interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
}

type LocationReporter interface {
	Report(ctx context.Context, sample models.LocationSample) bool
}

type SOSTrigger interface {
	Trigger(ctx context.Context, rideID, riderID uuid.UUID, sosType types.SOSType, description string, loc models.Location) (*models.SOSIncident, error)
}

// Gateway владеет жизненным циклом вебсокет-соединений: upgrade, чтение
// клиентских сообщений, членство в комнатах. A disconnect only removes the
// connection and its memberships; ride state is never touched from here.
type Gateway struct {
	hub      *roomhub.Hub
	rides    RideReader
	location LocationReporter
	sos      SOSTrigger

	upgrader websocket.Upgrader
	l        logger.Logger
}

func NewGateway(hub *roomhub.Hub, rides RideReader, location LocationReporter, sos SOSTrigger, l logger.Logger) *Gateway {
	return &Gateway{
		hub:      hub,
		rides:    rides,
		location: location,
		sos:      sos,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

// HandleWS godoc
// @Summary      Realtime channel
// @Description  Upgrades to a WebSocket for ride rooms, location reports and SOS
// @Tags         Realtime
// @Security     BearerAuth
// @Router       /ws [get]
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_connect")
	user := models.UserFromContext(ctx)

	if user.IsAnonymous() {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.l.Error(ctx, "websocket upgrade failed", err)
		return
	}

	conn := g.hub.Register(ctx, user.ID, socket)
	defer g.hub.Unregister(ctx, conn.ID())

	ctx = wrap.WithConnID(ctx, conn.ID().String())

	// read loop owns the socket's read side; writes go through the hub
	for {
		var msg ClientMessage
		if err := socket.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.l.Debug(ctx, "websocket closed unexpectedly", "err", err.Error())
			}
			return
		}

		g.handleMessage(ctx, conn, user, msg)
	}
}

func (g *Gateway) handleMessage(ctx context.Context, conn *roomhub.Conn, user *models.User, msg ClientMessage) {
	switch msg.Type {
	case types.EventJoinRide:
		g.joinRide(ctx, conn, user, msg)
	case types.EventJoinDriverChannel:
		g.joinDriverChannel(ctx, conn, user, msg)
	case types.EventReportLocation:
		g.reportLocation(ctx, conn, user, msg)
	case types.EventTriggerSOS:
		g.triggerSOS(ctx, conn, user, msg)
	default:
		g.sendError(conn, "unknown message type")
	}
}

// joinRide subscribes the connection to a ride room. Only the ride's rider
// and its assigned driver may watch the ride.
func (g *Gateway) joinRide(ctx context.Context, conn *roomhub.Conn, user *models.User, msg ClientMessage) {
	if msg.RideID == nil {
		g.sendError(conn, "ride_id is required")
		return
	}

	ride, err := g.rides.Get(ctx, *msg.RideID)
	if err != nil {
		g.sendError(conn, "ride not found")
		return
	}

	participant := ride.RiderID == user.ID ||
		(ride.DriverID != nil && *ride.DriverID == user.ID)
	if !participant && user.Role != types.AdminRole {
		g.sendError(conn, "not a participant of this ride")
		return
	}

	if err := g.hub.Join(conn.ID(), roomhub.RideRoom(ride.ID)); err != nil {
		g.sendError(conn, "failed to join ride")
		return
	}

	g.l.Debug(wrap.WithRideID(ctx, ride.ID.String()), "connection joined ride room")
}

// joinDriverChannel subscribes a driver to their personal offer room.
func (g *Gateway) joinDriverChannel(ctx context.Context, conn *roomhub.Conn, user *models.User, msg ClientMessage) {
	if user.Role != types.DriverRole {
		g.sendError(conn, "driver role required")
		return
	}
	// a driver can only listen to their own channel
	if msg.DriverID != nil && *msg.DriverID != user.ID {
		g.sendError(conn, "cannot join another driver's channel")
		return
	}

	if err := g.hub.Join(conn.ID(), roomhub.DriverRoom(user.ID)); err != nil {
		g.sendError(conn, "failed to join driver channel")
		return
	}

	g.l.Debug(wrap.WithDriverID(ctx, user.ID.String()), "connection joined driver channel")
}

// reportLocation feeds one sample into the broadcast pipeline. The driver id
// always comes from the token, never from the message body.
func (g *Gateway) reportLocation(ctx context.Context, conn *roomhub.Conn, user *models.User, msg ClientMessage) {
	if user.Role != types.DriverRole {
		g.sendError(conn, "driver role required")
		return
	}
	if msg.Timestamp <= 0 {
		g.sendError(conn, "timestamp is required")
		return
	}

	// a sample tagged with a ride fans out to that ride's room, so it must
	// come from the ride's assigned driver
	if msg.RideID != nil {
		ride, err := g.rides.Get(ctx, *msg.RideID)
		if err != nil {
			g.sendError(conn, "ride not found")
			return
		}
		if ride.DriverID == nil || *ride.DriverID != user.ID {
			g.sendError(conn, "not the assigned driver of this ride")
			return
		}
	}

	g.location.Report(ctx, models.LocationSample{
		DriverID:  user.ID,
		RideID:    msg.RideID,
		Latitude:  msg.Latitude,
		Longitude: msg.Longitude,
		Heading:   msg.Heading,
		SpeedKph:  msg.SpeedKph,
		Timestamp: msg.Timestamp,
	})
}

// triggerSOS raises an emergency over the socket. The acknowledgement comes
// back through the ride room, same as for the HTTP trigger.
func (g *Gateway) triggerSOS(ctx context.Context, conn *roomhub.Conn, user *models.User, msg ClientMessage) {
	if msg.RideID == nil {
		g.sendError(conn, "ride_id is required")
		return
	}

	_, err := g.sos.Trigger(ctx, *msg.RideID, user.ID, types.SOSType(msg.SOSType), msg.Description, models.Location{
		Latitude:  msg.Latitude,
		Longitude: msg.Longitude,
	})
	if err != nil {
		g.sendError(conn, err.Error())
		return
	}
}

func (g *Gateway) sendError(conn *roomhub.Conn, message string) {
	conn.Send(ErrorEvent{
		Type:    types.EventError,
		Message: message,
	})
}
