package dto

import (
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type LocationDTO struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Address   string  `json:"address,omitempty" validate:"max=500"`
}

func (l *LocationDTO) ToModel() models.Location {
	if l == nil {
		return models.Location{}
	}
	return models.Location{
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Address:   l.Address,
	}
}

type CreateRideRequest struct {
	Pickup       *LocationDTO `json:"pickup" validate:"required"`
	Dropoff      *LocationDTO `json:"dropoff" validate:"required"`
	VehicleClass string       `json:"vehicle_class" validate:"required,oneof=ECONOMY PREMIUM XL"`
}

type CancelRideRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type CompleteRideRequest struct {
	// Optional metered fare from the driver app. Absent means the server
	// estimates the fare from the route.
	Fare *FareDTO `json:"fare,omitempty"`
}

type FareDTO struct {
	Amount     float64 `json:"amount" validate:"gt=0"`
	Currency   string  `json:"currency" validate:"required,len=3"`
	DistanceKm float64 `json:"distance_km" validate:"gte=0"`
}

func (f *FareDTO) ToModel() *models.FareData {
	if f == nil {
		return nil
	}
	return &models.FareData{
		Amount:     f.Amount,
		Currency:   f.Currency,
		DistanceKm: f.DistanceKm,
	}
}

type RateRideRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type RideResponse struct {
	ID                 uuid.UUID        `json:"ride_id"`
	RiderID            uuid.UUID        `json:"rider_id"`
	DriverID           *uuid.UUID       `json:"driver_id,omitempty"`
	Pickup             models.Location  `json:"pickup"`
	Dropoff            models.Location  `json:"dropoff"`
	VehicleClass       string           `json:"vehicle_class"`
	Status             string           `json:"status"`
	Fare               *models.FareData `json:"fare,omitempty"`
	CancellationReason *string          `json:"cancellation_reason,omitempty"`
	Rating             *int             `json:"rating,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	TransitionAt       time.Time        `json:"transition_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
}

func NewRideResponse(r *models.Ride) RideResponse {
	return RideResponse{
		ID:                 r.ID,
		RiderID:            r.RiderID,
		DriverID:           r.DriverID,
		Pickup:             r.Pickup,
		Dropoff:            r.Dropoff,
		VehicleClass:       string(r.VehicleClass),
		Status:             r.Status.String(),
		Fare:               r.Fare,
		CancellationReason: r.CancellationReason,
		Rating:             r.Rating,
		CreatedAt:          r.CreatedAt,
		TransitionAt:       r.TransitionAt,
		CompletedAt:        r.CompletedAt,
		CancelledAt:        r.CancelledAt,
	}
}

func NewRideListResponse(rides []*models.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, NewRideResponse(r))
	}
	return out
}
