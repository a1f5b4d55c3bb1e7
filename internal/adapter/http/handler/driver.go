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

// PresenceService controls driver availability for dispatch.
// Implemented by the redis driver index.
type PresenceService interface {
	SetOnline(ctx context.Context, driverID uuid.UUID, class types.VehicleClass) error
	SetOffline(ctx context.Context, driverID uuid.UUID) error
}

type Driver struct {
	presence PresenceService
	l        logger.Logger
}

func NewDriver(presence PresenceService, l logger.Logger) *Driver {
	return &Driver{
		presence: presence,
		l:        l,
	}
}

// Online godoc
// @Summary      Driver goes online
// @Description  Makes the driver visible to dispatch for the given vehicle class
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Param        request body dto.DriverOnlineRequest true "Availability details"
// @Success      200  {object}  map[string]string
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/online [post]
func (h *Driver) Online(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_driver_online")
	user := models.UserFromContext(ctx)

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		badRequestResponse(w, "invalid driver id")
		return
	}
	if user.ID != driverID {
		errorResponse(w, http.StatusForbidden, "forbidden")
		return
	}

	var req dto.DriverOnlineRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		failedValidationResponse(w, validationErrors(err))
		return
	}

	if err := h.presence.SetOnline(ctx, driverID, types.VehicleClass(req.VehicleClass)); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver online", err)
		internalErrorResponse(w, "failed to go online")
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": "online"}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Offline godoc
// @Summary      Driver goes offline
// @Description  Removes the driver from dispatch candidate search
// @Tags         Drivers
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Success      200  {object}  map[string]string
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/offline [post]
func (h *Driver) Offline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_driver_offline")
	user := models.UserFromContext(ctx)

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		badRequestResponse(w, "invalid driver id")
		return
	}
	if user.ID != driverID {
		errorResponse(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.presence.SetOffline(ctx, driverID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver offline", err)
		internalErrorResponse(w, "failed to go offline")
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": "offline"}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}
