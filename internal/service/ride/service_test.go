package ride

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type fakeRepo struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*models.Ride
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rides: make(map[uuid.UUID]*models.Ride)}
}

func (f *fakeRepo) Create(_ context.Context, ride *models.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rides[ride.ID] = ride.Clone()
	return nil
}

func (f *fakeRepo) Save(_ context.Context, ride *models.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := ride.Clone()
	// rating is write-once in the store; a nil rating never clears it
	if cp.Rating == nil {
		if prev, ok := f.rides[ride.ID]; ok {
			cp.Rating = prev.Rating
		}
	}
	f.rides[ride.ID] = cp
	return nil
}

func (f *fakeRepo) Get(_ context.Context, rideID uuid.UUID) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	return ride.Clone(), nil
}

func (f *fakeRepo) Active(_ context.Context) ([]*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Ride
	for _, r := range f.rides {
		if !r.Status.Terminal() {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) HistoryByRider(_ context.Context, riderID uuid.UUID, _ int) ([]*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Ride
	for _, r := range f.rides {
		if r.RiderID == riderID {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) HistoryByDriver(_ context.Context, driverID uuid.UUID, _ int) ([]*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Ride
	for _, r := range f.rides {
		if r.DriverID != nil && *r.DriverID == driverID {
			out = append(out, r.Clone())
		}
	}
	return out, nil
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

func (f *fakeRooms) forRoom(roomID string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.events[roomID]...)
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeRooms) {
	t.Helper()

	repo := newFakeRepo()
	rooms := newFakeRooms()
	log := logger.InitLogger("ride-test", logger.LevelError)

	svc := NewService(repo, rooms, nil, nil, log)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	return svc, repo, rooms
}

func pickup() models.Location  { return models.Location{Latitude: 51.0909, Longitude: 71.4187} }
func dropoff() models.Location { return models.Location{Latitude: 51.1605, Longitude: 71.4704} }

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	defer svc.Stop(context.Background())

	ctx := context.Background()
	rider := uuid.MustNew()

	cases := []struct {
		name    string
		pickup  models.Location
		dropoff models.Location
		class   types.VehicleClass
	}{
		{"missing pickup", models.Location{}, dropoff(), types.EconomyClass},
		{"missing dropoff", pickup(), models.Location{}, types.EconomyClass},
		{"identical points", pickup(), pickup(), types.EconomyClass},
		{"unknown vehicle class", pickup(), dropoff(), types.VehicleClass("HELICOPTER")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, rider, tc.pickup, tc.dropoff, tc.class)
			if !errors.Is(err, types.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestCreatePersistsRequestedRide(t *testing.T) {
	svc, repo, _ := newTestService(t)
	defer svc.Stop(context.Background())

	ctx := context.Background()
	rider := uuid.MustNew()

	ride, err := svc.Create(ctx, rider, pickup(), dropoff(), types.PremiumClass)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if ride.Status != types.StatusRequested {
		t.Fatalf("expected REQUESTED, got %s", ride.Status)
	}

	stored, err := repo.Get(ctx, ride.ID)
	if err != nil {
		t.Fatalf("ride not persisted: %v", err)
	}
	if stored.RiderID != rider {
		t.Fatalf("persisted rider mismatch")
	}
}

func TestAcceptRaceSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(t)
	defer svc.Stop(context.Background())

	ctx := context.Background()
	ride, err := svc.Create(ctx, uuid.MustNew(), pickup(), dropoff(), types.EconomyClass)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const drivers = 32

	var wg sync.WaitGroup
	var winners, losers int64
	var mu sync.Mutex
	var winner uuid.UUID

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			driverID := uuid.MustNew()
			_, err := svc.Accept(ctx, ride.ID, driverID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
				winner = driverID
			case errors.Is(err, types.ErrAlreadyAssigned):
				losers++
			default:
				t.Errorf("unexpected accept error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
	if losers != drivers-1 {
		t.Fatalf("expected %d losers, got %d", drivers-1, losers)
	}

	got, err := svc.Get(ctx, ride.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != types.StatusAccepted {
		t.Fatalf("expected ACCEPTED, got %s", got.Status)
	}
	if got.DriverID == nil || *got.DriverID != winner {
		t.Fatalf("assigned driver does not match the winner")
	}
}

func TestTransitionGraph(t *testing.T) {
	svc, _, _ := newTestService(t)
	defer svc.Stop(context.Background())

	ctx := context.Background()
	driver := uuid.MustNew()
	stranger := uuid.MustNew()

	ride, err := svc.Create(ctx, uuid.MustNew(), pickup(), dropoff(), types.EconomyClass)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// no driver assigned yet
	if _, err := svc.StartRide(ctx, ride.ID, driver); !errors.Is(err, types.ErrNotAssignedDriver) {
		t.Fatalf("expected ErrNotAssignedDriver, got %v", err)
	}

	if _, err := svc.Accept(ctx, ride.ID, driver); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// completing an accepted ride skips IN_PROGRESS
	if _, err := svc.Complete(ctx, ride.ID, driver, nil); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// only the assigned driver starts the ride
	if _, err := svc.StartRide(ctx, ride.ID, stranger); !errors.Is(err, types.ErrNotAssignedDriver) {
		t.Fatalf("expected ErrNotAssignedDriver, got %v", err)
	}

	if _, err := svc.StartRide(ctx, ride.ID, driver); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	done, err := svc.Complete(ctx, ride.ID, driver, nil)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if done.Status != types.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", done.Status)
	}
	if done.Fare == nil || done.Fare.Amount <= 0 {
		t.Fatalf("expected an estimated fare on completion")
	}
	if done.CompletedAt == nil {
		t.Fatalf("expected CompletedAt to be set")
	}

	// terminal rides reject further transitions
	if _, err := svc.StartRide(ctx, ride.ID, driver); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on terminal ride, got %v", err)
	}
}

func TestCancelRules(t *testing.T) {
	svc, _, _ := newTestService(t)
	defer svc.Stop(context.Background())

	ctx := context.Background()
	rider := uuid.MustNew()
	driver := uuid.MustNew()

	t.Run("rider cancels requested ride", func(t *testing.T) {
		ride, _ := svc.Create(ctx, rider, pickup(), dropoff(), types.EconomyClass)
		got, err := svc.Cancel(ctx, ride.ID, rider, "changed my mind")
		if err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
		if got.Status != types.StatusCancelled {
			t.Fatalf("expected CANCELLED, got %s", got.Status)
		}
		if got.CancellationReason == nil || *got.CancellationReason != "changed my mind" {
			t.Fatalf("cancellation reason not recorded")
		}
	})

	t.Run("assigned driver cancels accepted ride", func(t *testing.T) {
		ride, _ := svc.Create(ctx, rider, pickup(), dropoff(), types.EconomyClass)
		if _, err := svc.Accept(ctx, ride.ID, driver); err != nil {
			t.Fatalf("accept failed: %v", err)
		}
		if _, err := svc.Cancel(ctx, ride.ID, driver, ""); err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		ride, _ := svc.Create(ctx, rider, pickup(), dropoff(), types.EconomyClass)
		if _, err := svc.Cancel(ctx, ride.ID, uuid.MustNew(), ""); !errors.Is(err, types.ErrNotRideOwner) {
			t.Fatalf("expected ErrNotRideOwner, got %v", err)
		}
	})

	t.Run("cannot cancel in progress", func(t *testing.T) {
		ride, _ := svc.Create(ctx, rider, pickup(), dropoff(), types.EconomyClass)
		if _, err := svc.Accept(ctx, ride.ID, driver); err != nil {
			t.Fatalf("accept failed: %v", err)
		}
		if _, err := svc.StartRide(ctx, ride.ID, driver); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if _, err := svc.Cancel(ctx, ride.ID, rider, ""); !errors.Is(err, types.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestRate(t *testing.T) {
	svc, _, _ := newTestService(t)

	ctx := context.Background()
	rider := uuid.MustNew()
	driver := uuid.MustNew()

	ride, _ := svc.Create(ctx, rider, pickup(), dropoff(), types.EconomyClass)
	if _, err := svc.Accept(ctx, ride.ID, driver); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := svc.StartRide(ctx, ride.ID, driver); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := svc.Complete(ctx, ride.ID, driver, nil); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	// drain the pump so the completed ride is durably stored
	svc.Stop(ctx)

	if _, err := svc.Rate(ctx, ride.ID, rider, 0); !errors.Is(err, types.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for rating 0, got %v", err)
	}
	if _, err := svc.Rate(ctx, ride.ID, uuid.MustNew(), 5); !errors.Is(err, types.ErrNotRideOwner) {
		t.Fatalf("expected ErrNotRideOwner, got %v", err)
	}

	rated, err := svc.Rate(ctx, ride.ID, rider, 5)
	if err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 5 {
		t.Fatalf("rating not recorded")
	}

	if _, err := svc.Rate(ctx, ride.ID, rider, 4); !errors.Is(err, types.ErrAlreadyRated) {
		t.Fatalf("expected ErrAlreadyRated, got %v", err)
	}
}

func TestRateConcurrentSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(t)

	ctx := context.Background()
	rider := uuid.MustNew()
	driver := uuid.MustNew()

	ride, _ := svc.Create(ctx, rider, pickup(), dropoff(), types.EconomyClass)
	if _, err := svc.Accept(ctx, ride.ID, driver); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := svc.StartRide(ctx, ride.ID, driver); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := svc.Complete(ctx, ride.ID, driver, nil); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	svc.Stop(ctx)

	const raters = 8

	var wg sync.WaitGroup
	var mu sync.Mutex
	var rated, rejected int

	for i := 0; i < raters; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := svc.Rate(ctx, ride.ID, rider, rating)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				rated++
			case errors.Is(err, types.ErrAlreadyRated):
				rejected++
			default:
				t.Errorf("unexpected rate error: %v", err)
			}
		}(1 + i%5)
	}
	wg.Wait()

	if rated != 1 {
		t.Fatalf("expected exactly 1 successful rating, got %d", rated)
	}
	if rejected != raters-1 {
		t.Fatalf("expected %d ErrAlreadyRated, got %d", raters-1, rejected)
	}

	got, err := svc.Get(ctx, ride.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Rating == nil {
		t.Fatalf("rating lost after the race")
	}
}

func TestRateSurvivesPendingCompletionWrite(t *testing.T) {
	svc, repo, _ := newTestService(t)

	ctx := context.Background()
	rider := uuid.MustNew()
	driver := uuid.MustNew()

	ride, _ := svc.Create(ctx, rider, pickup(), dropoff(), types.EconomyClass)
	if _, err := svc.Accept(ctx, ride.ID, driver); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := svc.StartRide(ctx, ride.ID, driver); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := svc.Complete(ctx, ride.ID, driver, nil); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	// rate while the completion snapshot may still sit in the pump queue
	if _, err := svc.Rate(ctx, ride.ID, rider, 5); err != nil {
		t.Fatalf("rate failed: %v", err)
	}

	svc.Stop(ctx)

	stored, err := repo.Get(ctx, ride.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != types.StatusCompleted {
		t.Fatalf("expected COMPLETED in store, got %s", stored.Status)
	}
	if stored.Rating == nil || *stored.Rating != 5 {
		t.Fatalf("rating clobbered by the completion write")
	}
}

func TestRoomEventsInTransitionOrder(t *testing.T) {
	svc, _, rooms := newTestService(t)

	ctx := context.Background()
	driver := uuid.MustNew()

	ride, err := svc.Create(ctx, uuid.MustNew(), pickup(), dropoff(), types.EconomyClass)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Accept(ctx, ride.ID, driver); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := svc.StartRide(ctx, ride.ID, driver); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := svc.Complete(ctx, ride.ID, driver, nil); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	svc.Stop(ctx)

	events := rooms.forRoom("ride:" + ride.ID.String())
	want := []types.RideStatus{
		types.StatusRequested,
		types.StatusAccepted,
		types.StatusInProgress,
		types.StatusCompleted,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		got, ok := ev.(models.RideStatusChangedEvent)
		if !ok {
			t.Fatalf("event %d has unexpected type %T", i, ev)
		}
		if got.Status != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got.Status)
		}
	}
}

func TestTerminalRideEvictedFromRegistry(t *testing.T) {
	svc, repo, _ := newTestService(t)

	ctx := context.Background()
	rider := uuid.MustNew()

	ride, _ := svc.Create(ctx, rider, pickup(), dropoff(), types.EconomyClass)
	if _, err := svc.Cancel(ctx, ride.ID, rider, ""); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	svc.Stop(ctx)

	if snap := svc.registry.snapshot(ride.ID); snap != nil {
		t.Fatalf("terminal ride still resident in registry")
	}

	stored, err := repo.Get(ctx, ride.ID)
	if err != nil {
		t.Fatalf("terminal ride not persisted: %v", err)
	}
	if stored.Status != types.StatusCancelled {
		t.Fatalf("expected CANCELLED in store, got %s", stored.Status)
	}
}

func TestUnknownRide(t *testing.T) {
	svc, _, _ := newTestService(t)
	defer svc.Stop(context.Background())

	ctx := context.Background()
	if _, err := svc.Get(ctx, uuid.MustNew()); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("expected ErrRideNotFound, got %v", err)
	}
	if _, err := svc.Accept(ctx, uuid.MustNew(), uuid.MustNew()); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("expected ErrRideNotFound, got %v", err)
	}
}
