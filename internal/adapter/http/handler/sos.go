package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-coordination/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type SOSService interface {
	Trigger(ctx context.Context, rideID, riderID uuid.UUID, sosType types.SOSType, description string, loc models.Location) (*models.SOSIncident, error)
	Resolve(ctx context.Context, incidentID uuid.UUID) (*models.SOSIncident, error)
	Get(ctx context.Context, incidentID uuid.UUID) (*models.SOSIncident, error)
	ByRide(ctx context.Context, rideID uuid.UUID) ([]*models.SOSIncident, error)
}

type SOS struct {
	service SOSService
	l       logger.Logger
}

func NewSOS(service SOSService, l logger.Logger) *SOS {
	return &SOS{
		service: service,
		l:       l,
	}
}

// Trigger godoc
// @Summary      Trigger SOS
// @Description  Raises an emergency on an active ride. Idempotent within a short window.
// @Tags         SOS
// @Accept       json
// @Produce      json
// @Param        ride_id path string true "Ride ID"
// @Param        request body dto.TriggerSOSRequest true "Incident details"
// @Success      201  {object}  map[string]models.SOSIncident
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /rides/{ride_id}/sos [post]
func (h *SOS) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_trigger_sos")
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	var req dto.TriggerSOSRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		failedValidationResponse(w, validationErrors(err))
		return
	}

	incident, err := h.service.Trigger(ctx, rideID, user.ID, types.SOSType(req.Type), req.Description, req.Location.ToModel())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to trigger sos", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"incident": incident}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Get godoc
// @Summary      Get SOS incident
// @Tags         SOS
// @Produce      json
// @Param        incident_id path string true "Incident ID"
// @Success      200  {object}  map[string]models.SOSIncident
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /sos/{incident_id} [get]
func (h *SOS) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_get_sos")

	incidentID, err := uuid.Parse(r.PathValue("incident_id"))
	if err != nil {
		badRequestResponse(w, "invalid incident id")
		return
	}

	incident, err := h.service.Get(ctx, incidentID)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"incident": incident}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// ByRide godoc
// @Summary      List SOS incidents of a ride
// @Tags         SOS
// @Produce      json
// @Param        ride_id path string true "Ride ID"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides/{ride_id}/sos [get]
func (h *SOS) ByRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_list_sos")

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	incidents, err := h.service.ByRide(ctx, rideID)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"incidents": incidents}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Resolve godoc
// @Summary      Resolve SOS incident
// @Description  Marks an open incident as resolved on behalf of the responder workflow
// @Tags         SOS
// @Produce      json
// @Param        incident_id path string true "Incident ID"
// @Success      200  {object}  map[string]models.SOSIncident
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /sos/{incident_id}/resolve [post]
func (h *SOS) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_resolve_sos")

	incidentID, err := uuid.Parse(r.PathValue("incident_id"))
	if err != nil {
		badRequestResponse(w, "invalid incident id")
		return
	}

	incident, err := h.service.Resolve(ctx, incidentID)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"incident": incident}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}
