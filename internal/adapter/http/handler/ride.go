package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Temutjin2k/ride-coordination/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type RideService interface {
	Create(ctx context.Context, riderID uuid.UUID, pickup, dropoff models.Location, class types.VehicleClass) (*models.Ride, error)
	Accept(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	StartRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	Complete(ctx context.Context, rideID, driverID uuid.UUID, fare *models.FareData) (*models.Ride, error)
	Cancel(ctx context.Context, rideID, actorID uuid.UUID, reason string) (*models.Ride, error)
	Rate(ctx context.Context, rideID, riderID uuid.UUID, rating int) (*models.Ride, error)
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	HistoryByRider(ctx context.Context, riderID uuid.UUID, limit int) ([]*models.Ride, error)
	HistoryByDriver(ctx context.Context, driverID uuid.UUID, limit int) ([]*models.Ride, error)
}

type Ride struct {
	service RideService
	l       logger.Logger
}

func NewRide(service RideService, l logger.Logger) *Ride {
	return &Ride{
		service: service,
		l:       l,
	}
}

// Create godoc
// @Summary      Request a ride
// @Description  Creates a new ride request and offers it to nearby drivers
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateRideRequest true "Ride request"
// @Success      201  {object}  map[string]dto.RideResponse
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]any
// @Security     BearerAuth
// @Router       /rides [post]
func (h *Ride) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_create_ride")
	user := models.UserFromContext(ctx)

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		failedValidationResponse(w, validationErrors(err))
		return
	}

	ride, err := h.service.Create(ctx, user.ID, req.Pickup.ToModel(), req.Dropoff.ToModel(), types.VehicleClass(req.VehicleClass))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create ride", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Get godoc
// @Summary      Get ride
// @Description  Returns the current state of the ride
// @Tags         Rides
// @Produce      json
// @Param        ride_id path string true "Ride ID"
// @Success      200  {object}  map[string]dto.RideResponse
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /rides/{ride_id} [get]
func (h *Ride) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_get_ride")

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	ride, err := h.service.Get(ctx, rideID)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Accept godoc
// @Summary      Accept a ride
// @Description  Assigns the calling driver to the ride. First accept wins.
// @Tags         Rides
// @Produce      json
// @Param        ride_id path string true "Ride ID"
// @Success      200  {object}  map[string]dto.RideResponse
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /rides/{ride_id}/accept [post]
func (h *Ride) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_accept_ride")
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	ride, err := h.service.Accept(ctx, rideID, user.ID)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Start godoc
// @Summary      Start a ride
// @Description  Moves an accepted ride to IN_PROGRESS. Assigned driver only.
// @Tags         Rides
// @Produce      json
// @Param        ride_id path string true "Ride ID"
// @Success      200  {object}  map[string]dto.RideResponse
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /rides/{ride_id}/start [post]
func (h *Ride) Start(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_start_ride")
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	ride, err := h.service.StartRide(ctx, rideID, user.ID)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Complete godoc
// @Summary      Complete a ride
// @Description  Finishes an in-progress ride and records the fare
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        ride_id path string true "Ride ID"
// @Param        request body dto.CompleteRideRequest false "Completion details"
// @Success      200  {object}  map[string]dto.RideResponse
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /rides/{ride_id}/complete [post]
func (h *Ride) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_complete_ride")
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	// body is optional, absence means server-side fare estimation
	var req dto.CompleteRideRequest
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &req); err != nil {
			badRequestResponse(w, err.Error())
			return
		}
		if req.Fare != nil {
			if err := validate.Struct(req.Fare); err != nil {
				failedValidationResponse(w, validationErrors(err))
				return
			}
		}
	}

	ride, err := h.service.Complete(ctx, rideID, user.ID, req.Fare.ToModel())
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Cancel godoc
// @Summary      Cancel a ride
// @Description  Cancels a ride that has not started yet
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        ride_id path string true "Ride ID"
// @Param        request body dto.CancelRideRequest false "Cancellation details"
// @Success      200  {object}  map[string]dto.RideResponse
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_cancel_ride")
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	var req dto.CancelRideRequest
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &req); err != nil {
			badRequestResponse(w, err.Error())
			return
		}
		if err := validate.Struct(req); err != nil {
			failedValidationResponse(w, validationErrors(err))
			return
		}
	}

	ride, err := h.service.Cancel(ctx, rideID, user.ID, req.Reason)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// Rate godoc
// @Summary      Rate a ride
// @Description  Sets the rider's rating on a completed ride
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Param        ride_id path string true "Ride ID"
// @Param        request body dto.RateRideRequest true "Rating"
// @Success      200  {object}  map[string]dto.RideResponse
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /rides/{ride_id}/rate [post]
func (h *Ride) Rate(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_rate_ride")
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	var req dto.RateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		failedValidationResponse(w, validationErrors(err))
		return
	}

	ride, err := h.service.Rate(ctx, rideID, user.ID, req.Rating)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// RiderHistory godoc
// @Summary      Rider's ride history
// @Tags         Rides
// @Produce      json
// @Param        rider_id path string true "Rider ID"
// @Param        limit query int false "Max rides to return"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /riders/{rider_id}/rides [get]
func (h *Ride) RiderHistory(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_rider_history")
	user := models.UserFromContext(ctx)

	riderID, err := uuid.Parse(r.PathValue("rider_id"))
	if err != nil {
		badRequestResponse(w, "invalid rider id")
		return
	}

	// riders see their own history, admins see anyone's
	if user.Role != types.AdminRole && user.ID != riderID {
		errorResponse(w, http.StatusForbidden, "forbidden")
		return
	}

	rides, err := h.service.HistoryByRider(ctx, riderID, limitParam(r))
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rides": dto.NewRideListResponse(rides)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

// DriverHistory godoc
// @Summary      Driver's ride history
// @Tags         Rides
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Param        limit query int false "Max rides to return"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/rides [get]
func (h *Ride) DriverHistory(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_driver_history")
	user := models.UserFromContext(ctx)

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		badRequestResponse(w, "invalid driver id")
		return
	}

	if user.Role != types.AdminRole && user.ID != driverID {
		errorResponse(w, http.StatusForbidden, "forbidden")
		return
	}

	rides, err := h.service.HistoryByDriver(ctx, driverID, limitParam(r))
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rides": dto.NewRideListResponse(rides)}, nil); err != nil {
		internalErrorResponse(w, "failed to write response")
	}
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}
