package dispatch

import (
	"context"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/metrics"
	"github.com/Temutjin2k/ride-coordination/pkg/roomhub"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

const defaultCandidateLimit = 10

// CandidateStrategy выбирает водителей, которым предлагается поездка.
// Implemented by the redis geo driver index.
type CandidateStrategy interface {
	Candidates(ctx context.Context, pickup models.Location, class types.VehicleClass, limit int) ([]uuid.UUID, error)
}

// RoomPublisher delivers events to a room. Implemented by roomhub.Hub.
type RoomPublisher interface {
	Publish(ctx context.Context, roomID string, event any)
}

// Router offers freshly requested rides to nearby drivers. An offer is an
// invitation only: acceptance goes through the ride service, which settles
// races. No candidates is not an error, the request simply stays open.
type Router struct {
	strategy CandidateStrategy
	rooms    RoomPublisher
	limit    int
	log      logger.Logger
}

func NewRouter(strategy CandidateStrategy, rooms RoomPublisher, limit int, log logger.Logger) *Router {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	return &Router{
		strategy: strategy,
		rooms:    rooms,
		limit:    limit,
		log:      log,
	}
}

func (r *Router) Dispatch(ctx context.Context, ride *models.Ride) {
	ctx = wrap.WithAction(wrap.WithRideID(ctx, ride.ID.String()), "dispatch_ride")

	candidates, err := r.strategy.Candidates(ctx, ride.Pickup, ride.VehicleClass, r.limit)
	if err != nil {
		r.log.Error(ctx, "candidate lookup failed", err)
		return
	}
	if len(candidates) == 0 {
		r.log.Info(ctx, "no candidates for ride")
		return
	}

	event := models.NewRideAvailableEvent{
		Type:         types.EventNewRideAvailable,
		RideID:       ride.ID,
		Pickup:       ride.Pickup,
		Dropoff:      ride.Dropoff,
		VehicleClass: ride.VehicleClass,
	}

	for _, driverID := range candidates {
		r.rooms.Publish(ctx, roomhub.DriverRoom(driverID), event)
		metrics.DispatchCandidatesNotified.Inc()
	}

	r.log.Info(ctx, "ride offered to candidates", "candidates", len(candidates))
}
