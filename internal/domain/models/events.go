package models

import (
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

/* ======================= Websocket, server → client ======================= */

// RideStatusChangedEvent is published to the ride room on every successful
// transition, in the order transitions occurred.
type RideStatusChangedEvent struct {
	Type      types.EventType  `json:"type"` // "ride-status-changed"
	RideID    uuid.UUID        `json:"ride_id"`
	Status    types.RideStatus `json:"status"`
	DriverID  *uuid.UUID       `json:"driver_id,omitempty"`
	Fare      *FareData        `json:"fare,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type DriverLocationEvent struct {
	Type      types.EventType `json:"type"` // "driver-location"
	DriverID  uuid.UUID       `json:"driver_id"`
	RideID    *uuid.UUID      `json:"ride_id,omitempty"`
	Latitude  float64         `json:"lat"`
	Longitude float64         `json:"lng"`
	Heading   *float64        `json:"heading,omitempty"`
	SpeedKph  *float64        `json:"speed_kph,omitempty"`
}

// NewRideAvailableEvent is sent to each dispatch candidate's personal room.
type NewRideAvailableEvent struct {
	Type         types.EventType    `json:"type"` // "new-ride-available"
	RideID       uuid.UUID          `json:"ride_id"`
	Pickup       Location           `json:"pickup"`
	Dropoff      Location           `json:"dropoff"`
	VehicleClass types.VehicleClass `json:"vehicle_class"`
}

type SOSAcknowledgedEvent struct {
	Type       types.EventType `json:"type"` // "sos-acknowledged"
	IncidentID uuid.UUID       `json:"incident_id"`
	RideID     uuid.UUID       `json:"ride_id"`
}

/* ======================= rabbitmq ======================= */

// RideStatusMessage mirrors RideStatusChangedEvent for external consumers
// of the ride topic exchange.
type RideStatusMessage struct {
	RideID    uuid.UUID        `json:"ride_id"`
	Status    types.RideStatus `json:"status"`
	DriverID  *uuid.UUID       `json:"driver_id,omitempty"`
	Fare      *FareData        `json:"fare,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// SOSAlertMessage is delivered to the responder workflow. Retryable by a
// surrounding process: the incident record always exists before this is sent.
type SOSAlertMessage struct {
	IncidentID  uuid.UUID     `json:"incident_id"`
	RideID      uuid.UUID     `json:"ride_id"`
	RiderID     uuid.UUID     `json:"rider_id"`
	Type        types.SOSType `json:"type"`
	Description string        `json:"description,omitempty"`
	Location    Location      `json:"location"`
	CreatedAt   time.Time     `json:"created_at"`
}
