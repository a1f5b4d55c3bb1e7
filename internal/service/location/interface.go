package location

import (
	"context"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// RoomPublisher delivers events to a room. Implemented by roomhub.Hub.
type RoomPublisher interface {
	Publish(ctx context.Context, roomID string, event any)
}

// GeoIndex keeps the searchable driver position index fresh.
// Implemented by the redis driver index.
type GeoIndex interface {
	Upsert(ctx context.Context, driverID uuid.UUID, lat, lng float64) error
}

// SampleLog appends accepted samples to an external stream.
// Implemented by the kafka sample log.
type SampleLog interface {
	Append(ctx context.Context, sample models.LocationSample) error
}
