package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type fakeStrategy struct {
	candidates []uuid.UUID
	err        error
	gotClass   types.VehicleClass
	gotLimit   int
}

func (f *fakeStrategy) Candidates(_ context.Context, _ models.Location, class types.VehicleClass, limit int) ([]uuid.UUID, error) {
	f.gotClass = class
	f.gotLimit = limit
	return f.candidates, f.err
}

type fakeRooms struct {
	mu     sync.Mutex
	events map[string][]any
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{events: make(map[string][]any)}
}

func (f *fakeRooms) Publish(_ context.Context, roomID string, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[roomID] = append(f.events[roomID], event)
}

func testRide() *models.Ride {
	return &models.Ride{
		ID:           uuid.MustNew(),
		RiderID:      uuid.MustNew(),
		Pickup:       models.Location{Latitude: 51.09, Longitude: 71.41},
		Dropoff:      models.Location{Latitude: 51.16, Longitude: 71.47},
		VehicleClass: types.PremiumClass,
		Status:       types.StatusRequested,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestDispatchNotifiesEachCandidate(t *testing.T) {
	drivers := []uuid.UUID{uuid.MustNew(), uuid.MustNew(), uuid.MustNew()}
	strategy := &fakeStrategy{candidates: drivers}
	rooms := newFakeRooms()

	router := NewRouter(strategy, rooms, 0, logger.InitLogger("dispatch-test", logger.LevelError))
	ride := testRide()
	router.Dispatch(context.Background(), ride)

	if strategy.gotClass != types.PremiumClass {
		t.Fatalf("strategy queried with wrong class: %s", strategy.gotClass)
	}
	if strategy.gotLimit != defaultCandidateLimit {
		t.Fatalf("strategy queried with wrong limit: %d", strategy.gotLimit)
	}

	for _, d := range drivers {
		events := rooms.events["driver:"+d.String()]
		if len(events) != 1 {
			t.Fatalf("driver %s got %d offers, expected 1", d, len(events))
		}
		offer, ok := events[0].(models.NewRideAvailableEvent)
		if !ok {
			t.Fatalf("unexpected event type %T", events[0])
		}
		if offer.RideID != ride.ID || offer.Type != types.EventNewRideAvailable {
			t.Fatalf("offer does not match the ride")
		}
	}
}

func TestDispatchHonorsConfiguredLimit(t *testing.T) {
	strategy := &fakeStrategy{}
	router := NewRouter(strategy, newFakeRooms(), 3, logger.InitLogger("dispatch-test", logger.LevelError))

	router.Dispatch(context.Background(), testRide())

	if strategy.gotLimit != 3 {
		t.Fatalf("strategy queried with limit %d, expected 3", strategy.gotLimit)
	}
}

func TestDispatchNoCandidatesIsNoop(t *testing.T) {
	rooms := newFakeRooms()
	router := NewRouter(&fakeStrategy{}, rooms, 0, logger.InitLogger("dispatch-test", logger.LevelError))

	router.Dispatch(context.Background(), testRide())

	if len(rooms.events) != 0 {
		t.Fatalf("no offers should be published without candidates")
	}
}

func TestDispatchStrategyErrorIsSwallowed(t *testing.T) {
	rooms := newFakeRooms()
	strategy := &fakeStrategy{err: errors.New("redis down")}
	router := NewRouter(strategy, rooms, 0, logger.InitLogger("dispatch-test", logger.LevelError))

	// must not panic and must not publish anything
	router.Dispatch(context.Background(), testRide())

	if len(rooms.events) != 0 {
		t.Fatalf("no offers should be published on strategy error")
	}
}
