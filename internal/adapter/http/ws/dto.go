package ws

import (
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// ClientMessage — любое сообщение клиента по вебсокету.
// Type routes the payload; unrelated fields are ignored.
type ClientMessage struct {
	Type types.EventType `json:"type"`

	// join-ride, report-location, trigger-sos
	RideID *uuid.UUID `json:"ride_id,omitempty"`

	// join-driver-channel
	DriverID *uuid.UUID `json:"driver_id,omitempty"`

	// report-location and trigger-sos coordinates
	Latitude  float64  `json:"lat,omitempty"`
	Longitude float64  `json:"lng,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	SpeedKph  *float64 `json:"speed_kph,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"` // unix millis, producer clock

	// trigger-sos
	SOSType     string `json:"sos_type,omitempty"`
	Description string `json:"description,omitempty"`
}

// ErrorEvent is sent back on a malformed or rejected client message.
type ErrorEvent struct {
	Type    types.EventType `json:"type"` // "error"
	Message string          `json:"message"`
}
