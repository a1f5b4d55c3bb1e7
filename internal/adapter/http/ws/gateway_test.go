package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	"github.com/Temutjin2k/ride-coordination/pkg/roomhub"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type fakeRides struct {
	rides map[uuid.UUID]*models.Ride
}

func (f *fakeRides) Get(_ context.Context, rideID uuid.UUID) (*models.Ride, error) {
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	return ride.Clone(), nil
}

type fakeReporter struct {
	mu      sync.Mutex
	samples []models.LocationSample
}

func (f *fakeReporter) Report(_ context.Context, sample models.LocationSample) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, sample)
	return true
}

func (f *fakeReporter) all() []models.LocationSample {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.LocationSample(nil), f.samples...)
}

type fakeSOS struct{}

func (f *fakeSOS) Trigger(_ context.Context, rideID, riderID uuid.UUID, _ types.SOSType, _ string, _ models.Location) (*models.SOSIncident, error) {
	return &models.SOSIncident{ID: uuid.MustNew(), RideID: rideID, RiderID: riderID}, nil
}

// frameTransport captures everything the hub writes to the connection.
type frameTransport struct {
	got chan any
}

func newFrameTransport() *frameTransport {
	return &frameTransport{got: make(chan any, 16)}
}

func (f *frameTransport) WriteJSON(v any) error {
	f.got <- v
	return nil
}

func (f *frameTransport) Close() error { return nil }

func waitErrorFrame(t *testing.T, tr *frameTransport) {
	t.Helper()
	select {
	case v := <-tr.got:
		if _, ok := v.(ErrorEvent); !ok {
			t.Fatalf("expected an error frame, got %#v", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for an error frame")
	}
}

func newTestGateway(rides *fakeRides, reporter *fakeReporter) (*Gateway, *roomhub.Hub) {
	log := logger.InitLogger("ws-test", logger.LevelError)
	hub := roomhub.New(log)
	return NewGateway(hub, rides, reporter, &fakeSOS{}, log), hub
}

func TestReportLocationRejectsForeignRide(t *testing.T) {
	assigned := uuid.MustNew()
	ride := &models.Ride{
		ID:       uuid.MustNew(),
		RiderID:  uuid.MustNew(),
		DriverID: &assigned,
		Status:   types.StatusInProgress,
	}
	reporter := &fakeReporter{}
	g, hub := newTestGateway(&fakeRides{rides: map[uuid.UUID]*models.Ride{ride.ID: ride}}, reporter)

	ctx := context.Background()
	intruder := uuid.MustNew()
	tr := newFrameTransport()
	conn := hub.Register(ctx, intruder, tr)
	defer hub.Unregister(ctx, conn.ID())

	g.handleMessage(ctx, conn, &models.User{ID: intruder, Role: types.DriverRole}, ClientMessage{
		Type:      types.EventReportLocation,
		RideID:    &ride.ID,
		Latitude:  51.1,
		Longitude: 71.4,
		Timestamp: 100,
	})

	if got := reporter.all(); len(got) != 0 {
		t.Fatalf("sample from a non-assigned driver reached the pipeline: %#v", got)
	}
	waitErrorFrame(t, tr)
}

func TestReportLocationAssignedDriver(t *testing.T) {
	driver := uuid.MustNew()
	ride := &models.Ride{
		ID:       uuid.MustNew(),
		RiderID:  uuid.MustNew(),
		DriverID: &driver,
		Status:   types.StatusInProgress,
	}
	reporter := &fakeReporter{}
	g, hub := newTestGateway(&fakeRides{rides: map[uuid.UUID]*models.Ride{ride.ID: ride}}, reporter)

	ctx := context.Background()
	tr := newFrameTransport()
	conn := hub.Register(ctx, driver, tr)
	defer hub.Unregister(ctx, conn.ID())

	g.handleMessage(ctx, conn, &models.User{ID: driver, Role: types.DriverRole}, ClientMessage{
		Type:      types.EventReportLocation,
		RideID:    &ride.ID,
		Latitude:  51.1,
		Longitude: 71.4,
		Timestamp: 100,
	})

	got := reporter.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(got))
	}
	if got[0].DriverID != driver || got[0].RideID == nil || *got[0].RideID != ride.ID {
		t.Fatalf("sample fields mismatch: %#v", got[0])
	}
}

func TestReportLocationIdleDriver(t *testing.T) {
	reporter := &fakeReporter{}
	g, hub := newTestGateway(&fakeRides{rides: map[uuid.UUID]*models.Ride{}}, reporter)

	ctx := context.Background()
	driver := uuid.MustNew()
	tr := newFrameTransport()
	conn := hub.Register(ctx, driver, tr)
	defer hub.Unregister(ctx, conn.ID())

	// idle broadcast, no ride attached
	g.handleMessage(ctx, conn, &models.User{ID: driver, Role: types.DriverRole}, ClientMessage{
		Type:      types.EventReportLocation,
		Latitude:  51.1,
		Longitude: 71.4,
		Timestamp: 100,
	})

	got := reporter.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(got))
	}
	if got[0].RideID != nil {
		t.Fatalf("idle sample must not carry a ride id")
	}
}
