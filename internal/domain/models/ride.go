package models

import (
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Same reports whether two locations are effectively the same point.
func (l Location) Same(other Location) bool {
	const eps = 1e-6
	dLat := l.Latitude - other.Latitude
	dLng := l.Longitude - other.Longitude
	return dLat > -eps && dLat < eps && dLng > -eps && dLng < eps
}

// Ride — одна поездка от запроса до терминального статуса.
// Mutated only by the ride service; immutable once terminal.
type Ride struct {
	ID           uuid.UUID
	RiderID      uuid.UUID
	DriverID     *uuid.UUID // nil until accepted
	Pickup       Location
	Dropoff      Location
	VehicleClass types.VehicleClass
	Status       types.RideStatus

	// Финальная стоимость, есть только у завершенных поездок
	Fare *FareData

	// Причина отмены, есть только у отмененных поездок
	CancellationReason *string

	// Оценка пассажира, 1-5
	Rating *int

	CreatedAt    time.Time
	TransitionAt time.Time // last status change
	CompletedAt  *time.Time
	CancelledAt  *time.Time
}

// FareData records the fare at completion time.
type FareData struct {
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	DistanceKm float64 `json:"distance_km"`
}

// Clone returns a deep copy of the ride. Snapshots handed outside the
// registry lock must not alias registry state.
func (r *Ride) Clone() *Ride {
	cp := *r
	if r.DriverID != nil {
		id := *r.DriverID
		cp.DriverID = &id
	}
	if r.Fare != nil {
		f := *r.Fare
		cp.Fare = &f
	}
	if r.CancellationReason != nil {
		s := *r.CancellationReason
		cp.CancellationReason = &s
	}
	if r.Rating != nil {
		v := *r.Rating
		cp.Rating = &v
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		cp.CancelledAt = &t
	}
	return &cp
}
