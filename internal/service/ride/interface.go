package ride

import (
	"context"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type RideRepo interface {
	Create(ctx context.Context, ride *models.Ride) error
	Save(ctx context.Context, ride *models.Ride) error
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	Active(ctx context.Context) ([]*models.Ride, error)
	HistoryByRider(ctx context.Context, riderID uuid.UUID, limit int) ([]*models.Ride, error)
	HistoryByDriver(ctx context.Context, driverID uuid.UUID, limit int) ([]*models.Ride, error)
}

// RoomPublisher delivers events to a room. Implemented by roomhub.Hub.
type RoomPublisher interface {
	Publish(ctx context.Context, roomID string, event any)
}

// EventPublisher forwards ride status changes to external consumers.
// Implemented by the rabbit event broker.
type EventPublisher interface {
	PublishRideStatus(ctx context.Context, msg models.RideStatusMessage) error
}

// Dispatcher offers a freshly created ride to candidate drivers.
type Dispatcher interface {
	Dispatch(ctx context.Context, ride *models.Ride)
}
