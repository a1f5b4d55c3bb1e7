package sos

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type IncidentRepo interface {
	Create(ctx context.Context, incident *models.SOSIncident) error
	Get(ctx context.Context, incidentID uuid.UUID) (*models.SOSIncident, error)
	ByRide(ctx context.Context, rideID uuid.UUID) ([]*models.SOSIncident, error)
	// RecentByRide returns the newest incident for the ride created after
	// the cutoff, or nil when there is none.
	RecentByRide(ctx context.Context, rideID uuid.UUID, cutoff time.Time) (*models.SOSIncident, error)
	Resolve(ctx context.Context, incidentID uuid.UUID, at time.Time) error
}

// RideReader exposes the current ride state. Implemented by the ride service.
type RideReader interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
}

// RoomPublisher delivers events to a room. Implemented by roomhub.Hub.
type RoomPublisher interface {
	Publish(ctx context.Context, roomID string, event any)
}

// AlertPublisher forwards incidents to the responder workflow.
// Implemented by the rabbit event broker.
type AlertPublisher interface {
	PublishSOSAlert(ctx context.Context, msg models.SOSAlertMessage) error
}
