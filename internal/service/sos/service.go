package sos

import (
	"context"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/metrics"
	"github.com/Temutjin2k/ride-coordination/pkg/roomhub"
	"github.com/Temutjin2k/ride-coordination/pkg/trm"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// Повторное нажатие SOS в этом окне не создает новый инцидент
const defaultDedupeWindow = 30 * time.Second

const triggerShards = 32

// Service обрабатывает срабатывания SOS.
// The incident record is durable before anything else happens: fan-out and
// responder alerts are best-effort, the record is not.
type Service struct {
	repo   IncidentRepo
	rides  RideReader
	rooms  RoomPublisher
	alerts AlertPublisher
	txm    trm.TxManager
	window time.Duration
	log    logger.Logger

	// locks serialize the dedupe-check-then-create sequence per ride id,
	// same sharding discipline as the ride registry.
	locks [triggerShards]sync.Mutex

	mu     sync.Mutex
	recent map[uuid.UUID]recentIncident // ride id → newest incident
}

type recentIncident struct {
	incidentID uuid.UUID
	createdAt  time.Time
}

func NewService(repo IncidentRepo, rides RideReader, rooms RoomPublisher, alerts AlertPublisher, txm trm.TxManager, window time.Duration, log logger.Logger) *Service {
	if window <= 0 {
		window = defaultDedupeWindow
	}
	return &Service{
		repo:   repo,
		rides:  rides,
		rooms:  rooms,
		alerts: alerts,
		txm:    txm,
		window: window,
		log:    log,
		recent: make(map[uuid.UUID]recentIncident),
	}
}

func (s *Service) triggerLock(rideID uuid.UUID) *sync.Mutex {
	return &s.locks[int(rideID[0])%triggerShards]
}

// Trigger raises an SOS on an active ride. Repeated triggers within the
// dedupe window return the already-created incident instead of a new one.
func (s *Service) Trigger(ctx context.Context, rideID, riderID uuid.UUID, sosType types.SOSType, description string, loc models.Location) (*models.SOSIncident, error) {
	ctx = wrap.WithAction(wrap.WithRiderID(wrap.WithRideID(ctx, rideID.String()), riderID.String()), "trigger_sos")

	if !sosType.Valid() {
		return nil, wrap.Error(ctx, types.ErrInvalidRequest)
	}

	ride, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if ride.RiderID != riderID {
		return nil, wrap.Error(ctx, types.ErrNotRideOwner)
	}
	if !ride.Status.Escalatable() {
		return nil, wrap.Error(ctx, types.ErrNoActiveRide)
	}

	now := time.Now().UTC()

	// Overlapping taps on the same ride are serialized here: the window
	// check and the create must not interleave, or both would persist.
	lk := s.triggerLock(rideID)
	lk.Lock()

	if existing := s.dedupe(ctx, rideID, now); existing != nil {
		lk.Unlock()
		s.log.Info(ctx, "sos trigger deduplicated", "incident_id", existing.ID)
		return existing, nil
	}

	incident := &models.SOSIncident{
		ID:          uuid.MustNew(),
		RideID:      rideID,
		RiderID:     riderID,
		Type:        sosType,
		Description: description,
		Location:    loc,
		Status:      types.SOSOpen,
		CreatedAt:   now,
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		lk.Unlock()
		return nil, wrap.Error(ctx, err)
	}

	s.mu.Lock()
	s.recent[rideID] = recentIncident{incidentID: incident.ID, createdAt: now}
	s.mu.Unlock()
	lk.Unlock()

	metrics.SOSIncidentsTotal.WithLabelValues(sosType.String()).Inc()
	s.log.Info(ctx, "sos incident created", "incident_id", incident.ID, "sos_type", sosType)

	// Everything below is best-effort. The incident already exists; a lost
	// notification is recoverable, a lost record is not.
	s.rooms.Publish(ctx, roomhub.RideRoom(rideID), models.SOSAcknowledgedEvent{
		Type:       types.EventSOSAcknowledged,
		IncidentID: incident.ID,
		RideID:     rideID,
	})

	if s.alerts != nil {
		msg := models.SOSAlertMessage{
			IncidentID:  incident.ID,
			RideID:      rideID,
			RiderID:     riderID,
			Type:        sosType,
			Description: description,
			Location:    loc,
			CreatedAt:   now,
		}
		if err := s.alerts.PublishSOSAlert(ctx, msg); err != nil {
			s.log.Error(ctx, "failed to publish sos alert", err, "incident_id", incident.ID)
		}
	}

	return incident, nil
}

// Resolve closes an open incident on behalf of the responder workflow.
// The update and the readback run in one transaction so the returned
// incident reflects exactly the state that was committed.
func (s *Service) Resolve(ctx context.Context, incidentID uuid.UUID) (*models.SOSIncident, error) {
	ctx = wrap.WithAction(ctx, "resolve_sos")

	var incident *models.SOSIncident
	err := s.inTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Resolve(txCtx, incidentID, time.Now().UTC()); err != nil {
			return err
		}

		var err error
		incident, err = s.repo.Get(txCtx, incidentID)
		return err
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.log.Info(ctx, "sos incident resolved", "incident_id", incidentID)
	return incident, nil
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txm == nil {
		return fn(ctx)
	}
	return s.txm.Do(ctx, fn)
}

func (s *Service) Get(ctx context.Context, incidentID uuid.UUID) (*models.SOSIncident, error) {
	incident, err := s.repo.Get(ctx, incidentID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return incident, nil
}

func (s *Service) ByRide(ctx context.Context, rideID uuid.UUID) ([]*models.SOSIncident, error) {
	incidents, err := s.repo.ByRide(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(wrap.WithRideID(ctx, rideID.String()), err)
	}
	return incidents, nil
}

// dedupe returns the incident to reuse for this trigger, or nil if a new one
// should be created. Called with the ride's trigger lock held. The in-memory
// gate covers the common case; the store lookup covers triggers racing a
// restart.
func (s *Service) dedupe(ctx context.Context, rideID uuid.UUID, now time.Time) *models.SOSIncident {
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	rec, ok := s.recent[rideID]
	if ok && rec.createdAt.Before(cutoff) {
		delete(s.recent, rideID)
		ok = false
	}
	s.mu.Unlock()

	if ok {
		incident, err := s.repo.Get(ctx, rec.incidentID)
		if err == nil {
			return incident
		}
		s.log.Warn(ctx, "deduped incident missing from store", "incident_id", rec.incidentID)
	}

	incident, err := s.repo.RecentByRide(ctx, rideID, cutoff)
	if err != nil {
		s.log.Warn(ctx, "recent incident lookup failed", "error", err.Error())
		return nil
	}
	if incident == nil {
		return nil
	}

	s.mu.Lock()
	s.recent[rideID] = recentIncident{incidentID: incident.ID, createdAt: incident.CreatedAt}
	s.mu.Unlock()

	return incident
}
