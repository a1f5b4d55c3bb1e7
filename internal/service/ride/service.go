package ride

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/metrics"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Service владеет жизненным циклом поездок. Every transition is validated
// and applied under the ride's shard lock, then its side effects (room
// fan-out, persistence, broker publish) run in order on the pump goroutine.
type Service struct {
	registry   *registry
	pump       *pump
	repo       RideRepo
	dispatcher Dispatcher
	log        logger.Logger
}

func NewService(repo RideRepo, rooms RoomPublisher, broker EventPublisher, dispatcher Dispatcher, log logger.Logger) *Service {
	reg := newRegistry()
	return &Service{
		registry:   reg,
		pump:       newPump(repo, rooms, broker, reg.remove, log),
		repo:       repo,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Start warms the registry with every non-terminal ride from the store and
// starts the effect pump. Must be called before serving traffic.
func (s *Service) Start(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "ride_service_start")

	rides, err := s.repo.Active(ctx)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	for _, ride := range rides {
		s.registry.put(ride)
	}

	s.pump.start()

	s.log.Info(ctx, "ride service started", "active_rides", len(rides))
	return nil
}

// Stop drains and stops the effect pump.
func (s *Service) Stop(ctx context.Context) {
	s.pump.stop()
	s.log.Info(wrap.WithAction(ctx, "ride_service_stop"), "ride service stopped")
}

// Create registers a new ride request and offers it to candidate drivers.
// The ride is durable before the call returns; dispatch runs asynchronously.
func (s *Service) Create(ctx context.Context, riderID uuid.UUID, pickup, dropoff models.Location, class types.VehicleClass) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithRiderID(ctx, riderID.String()), "create_ride")

	var zero models.Location
	if pickup == zero || dropoff == zero {
		return nil, wrap.Error(ctx, types.ErrInvalidRequest)
	}
	if pickup.Same(dropoff) {
		return nil, wrap.Error(ctx, types.ErrInvalidRequest)
	}
	if !class.Valid() {
		return nil, wrap.Error(ctx, types.ErrInvalidRequest)
	}

	now := time.Now().UTC()
	ride := &models.Ride{
		ID:           uuid.MustNew(),
		RiderID:      riderID,
		Pickup:       pickup,
		Dropoff:      dropoff,
		VehicleClass: class,
		Status:       types.StatusRequested,
		CreatedAt:    now,
		TransitionAt: now,
	}

	ctx = wrap.WithRideID(ctx, ride.ID.String())

	if err := s.repo.Create(ctx, ride); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	// Resident before any subscriber can address it, enqueued under the
	// shard lock so the REQUESTED event precedes any accept that races in.
	sh := s.registry.shard(ride.ID)
	sh.mu.Lock()
	sh.rides[ride.ID] = ride
	snap := ride.Clone()
	s.pump.enqueue(effect{ride: snap, event: statusEvent(snap)})
	sh.mu.Unlock()

	s.log.Info(ctx, "ride created", "vehicle_class", class)

	if s.dispatcher != nil {
		go s.dispatcher.Dispatch(context.WithoutCancel(ctx), snap)
	}

	return snap, nil
}

// Accept assigns the driver to the ride. Exactly one of any number of
// concurrent accepts wins; the rest get ErrAlreadyAssigned.
func (s *Service) Accept(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(wrap.WithRideID(ctx, rideID.String()), driverID.String()), "accept_ride")

	snap, err := s.transition(ctx, rideID, func(r *models.Ride) error {
		if r.Status != types.StatusRequested {
			metrics.AcceptRaceLosses.Inc()
			return types.ErrAlreadyAssigned
		}
		id := driverID
		r.DriverID = &id
		r.Status = types.StatusAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "ride accepted")
	return snap, nil
}

// StartRide moves an accepted ride to IN_PROGRESS. Only the assigned driver
// may start it.
func (s *Service) StartRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(wrap.WithRideID(ctx, rideID.String()), driverID.String()), "start_ride")

	snap, err := s.transition(ctx, rideID, func(r *models.Ride) error {
		if r.DriverID == nil || *r.DriverID != driverID {
			return types.ErrNotAssignedDriver
		}
		if r.Status != types.StatusAccepted {
			return types.ErrInvalidTransition
		}
		r.Status = types.StatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "ride started")
	return snap, nil
}

// Complete finishes an in-progress ride. A metered fare from the driver app
// wins; otherwise the fare is estimated from the route distance.
func (s *Service) Complete(ctx context.Context, rideID, driverID uuid.UUID, fare *models.FareData) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(wrap.WithRideID(ctx, rideID.String()), driverID.String()), "complete_ride")

	snap, err := s.transition(ctx, rideID, func(r *models.Ride) error {
		if r.DriverID == nil || *r.DriverID != driverID {
			return types.ErrNotAssignedDriver
		}
		if r.Status != types.StatusInProgress {
			return types.ErrInvalidTransition
		}
		r.Status = types.StatusCompleted
		if fare != nil {
			f := *fare
			r.Fare = &f
		} else {
			r.Fare = estimateFare(r.Pickup, r.Dropoff, r.VehicleClass)
		}
		now := time.Now().UTC()
		r.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "ride completed", "fare", snap.Fare.Amount)
	return snap, nil
}

// Cancel aborts a ride that has not started yet. Allowed to the rider or the
// assigned driver, from REQUESTED or ACCEPTED only.
func (s *Service) Cancel(ctx context.Context, rideID, actorID uuid.UUID, reason string) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithRideID(ctx, rideID.String()), "cancel_ride")

	snap, err := s.transition(ctx, rideID, func(r *models.Ride) error {
		if actorID != r.RiderID && (r.DriverID == nil || *r.DriverID != actorID) {
			return types.ErrNotRideOwner
		}
		if r.Status != types.StatusRequested && r.Status != types.StatusAccepted {
			return types.ErrInvalidTransition
		}
		r.Status = types.StatusCancelled
		if reason != "" {
			rs := reason
			r.CancellationReason = &rs
		}
		now := time.Now().UTC()
		r.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "ride cancelled", "reason", reason)
	return snap, nil
}

// Rate sets the rider's rating on a completed ride. Ratings do not produce
// room events; they are a plain durable update. The check-then-save runs
// under the ride's shard lock so concurrent ratings are serialized and
// exactly one passes the already-rated guard.
func (s *Service) Rate(ctx context.Context, rideID, riderID uuid.UUID, rating int) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithRiderID(wrap.WithRideID(ctx, rideID.String()), riderID.String()), "rate_ride")

	if rating < 1 || rating > 5 {
		return nil, wrap.Error(ctx, types.ErrInvalidRequest)
	}

	sh := s.registry.shard(rideID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	ride, resident := sh.rides[rideID]
	if !resident {
		persisted, err := s.repo.Get(ctx, rideID)
		if err != nil {
			return nil, wrap.Error(ctx, err)
		}
		ride = persisted
	}

	if ride.RiderID != riderID {
		return nil, wrap.Error(ctx, types.ErrNotRideOwner)
	}
	if ride.Status != types.StatusCompleted {
		return nil, wrap.Error(ctx, types.ErrInvalidTransition)
	}
	if ride.Rating != nil {
		return nil, wrap.Error(ctx, types.ErrAlreadyRated)
	}

	r := rating
	ride.Rating = &r
	if err := s.repo.Save(ctx, ride); err != nil {
		ride.Rating = nil
		return nil, wrap.Error(ctx, err)
	}

	s.log.Info(ctx, "ride rated", "rating", rating)
	return ride.Clone(), nil
}

// Get returns the current state of the ride: live registry state if the ride
// is non-terminal, the durable record otherwise.
func (s *Service) Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	if snap := s.registry.snapshot(rideID); snap != nil {
		return snap, nil
	}

	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(wrap.WithRideID(ctx, rideID.String()), err)
	}
	return ride, nil
}

func (s *Service) HistoryByRider(ctx context.Context, riderID uuid.UUID, limit int) ([]*models.Ride, error) {
	rides, err := s.repo.HistoryByRider(ctx, riderID, clampLimit(limit))
	if err != nil {
		return nil, wrap.Error(wrap.WithRiderID(ctx, riderID.String()), err)
	}
	return rides, nil
}

func (s *Service) HistoryByDriver(ctx context.Context, driverID uuid.UUID, limit int) ([]*models.Ride, error) {
	rides, err := s.repo.HistoryByDriver(ctx, driverID, clampLimit(limit))
	if err != nil {
		return nil, wrap.Error(wrap.WithDriverID(ctx, driverID.String()), err)
	}
	return rides, nil
}

// transition runs mutate on the ride under its shard lock. On success the
// post-transition snapshot and its event are enqueued before the lock is
// released, so pump order equals transition order for the ride.
func (s *Service) transition(ctx context.Context, rideID uuid.UUID, mutate func(r *models.Ride) error) (*models.Ride, error) {
	sh := s.registry.shard(rideID)
	sh.mu.Lock()
	ride, ok := sh.rides[rideID]
	if !ok {
		sh.mu.Unlock()
		return s.transitionNonResident(ctx, rideID, mutate)
	}

	if err := mutate(ride); err != nil {
		sh.mu.Unlock()
		return nil, wrap.Error(ctx, err)
	}

	ride.TransitionAt = time.Now().UTC()
	snap := ride.Clone()
	s.pump.enqueue(effect{ride: snap, event: statusEvent(snap)})
	sh.mu.Unlock()

	return snap, nil
}

// transitionNonResident covers rides absent from the registry: terminal
// (evicted) rides, unknown ids, and non-terminal rides persisted by a
// previous process. Only the last kind gets adopted and retried.
func (s *Service) transitionNonResident(ctx context.Context, rideID uuid.UUID, mutate func(r *models.Ride) error) (*models.Ride, error) {
	persisted, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	// run the guards on a throwaway copy to surface the precise error
	if err := mutate(persisted.Clone()); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.registry.adopt(persisted)
	return s.transition(ctx, rideID, mutate)
}

func statusEvent(r *models.Ride) models.RideStatusChangedEvent {
	return models.RideStatusChangedEvent{
		Type:      types.EventRideStatusChanged,
		RideID:    r.ID,
		Status:    r.Status,
		DriverID:  r.DriverID,
		Fare:      r.Fare,
		Timestamp: r.TransitionAt,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
