package models

import (
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// LocationSample — один отчет о позиции водителя.
// Timestamp is producer-assigned and must be monotonic per driver.
type LocationSample struct {
	DriverID  uuid.UUID  `json:"driver_id"`
	RideID    *uuid.UUID `json:"ride_id,omitempty"` // nil while the driver is idle
	Latitude  float64    `json:"lat"`
	Longitude float64    `json:"lng"`
	Heading   *float64   `json:"heading,omitempty"`
	SpeedKph  *float64   `json:"speed_kph,omitempty"`
	Timestamp int64      `json:"timestamp"` // unix millis
}
