package models

import (
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// SOSIncident — запись об экстренном инциденте.
// Created once per trigger, never deleted by this core. Resolution is set
// by an external responder workflow.
type SOSIncident struct {
	ID          uuid.UUID       `json:"incident_id"`
	RideID      uuid.UUID       `json:"ride_id"`
	RiderID     uuid.UUID       `json:"rider_id"`
	Type        types.SOSType   `json:"type"`
	Description string          `json:"description,omitempty"`
	Location    Location        `json:"location"`
	Status      types.SOSStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
}
