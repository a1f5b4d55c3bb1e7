package location

import (
	"context"
	"sync"
	"testing"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

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

func (f *fakeRooms) count(roomID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events[roomID])
}

func sample(driverID uuid.UUID, rideID *uuid.UUID, ts int64, lat float64) models.LocationSample {
	return models.LocationSample{
		DriverID:  driverID,
		RideID:    rideID,
		Latitude:  lat,
		Longitude: 71.42,
		Timestamp: ts,
	}
}

func TestStaleSamplesDropped(t *testing.T) {
	rooms := newFakeRooms()
	p := NewPipeline(rooms, nil, nil, logger.InitLogger("location-test", logger.LevelError))

	driver := uuid.MustNew()
	ride := uuid.MustNew()
	ctx := context.Background()

	// arrival order 100, 95, 101: the rewind in the middle must not apply
	if !p.Report(ctx, sample(driver, &ride, 100, 51.10)) {
		t.Fatalf("first sample rejected")
	}
	if p.Report(ctx, sample(driver, &ride, 95, 51.05)) {
		t.Fatalf("stale sample accepted")
	}
	if !p.Report(ctx, sample(driver, &ride, 101, 51.11)) {
		t.Fatalf("newer sample rejected")
	}

	last, ok := p.LastKnown(driver)
	if !ok {
		t.Fatalf("no last known position")
	}
	if last.Timestamp != 101 || last.Latitude != 51.11 {
		t.Fatalf("last known position is not the newest sample: ts=%d lat=%f", last.Timestamp, last.Latitude)
	}

	if got := rooms.count("ride:" + ride.String()); got != 2 {
		t.Fatalf("expected 2 room events, got %d", got)
	}
}

func TestEqualTimestampDropped(t *testing.T) {
	p := NewPipeline(newFakeRooms(), nil, nil, logger.InitLogger("location-test", logger.LevelError))

	driver := uuid.MustNew()
	ctx := context.Background()

	if !p.Report(ctx, sample(driver, nil, 100, 51.10)) {
		t.Fatalf("first sample rejected")
	}
	if p.Report(ctx, sample(driver, nil, 100, 51.20)) {
		t.Fatalf("duplicate timestamp accepted")
	}
}

func TestIdleDriverSkipsRoomPublish(t *testing.T) {
	rooms := newFakeRooms()
	p := NewPipeline(rooms, nil, nil, logger.InitLogger("location-test", logger.LevelError))

	driver := uuid.MustNew()
	if !p.Report(context.Background(), sample(driver, nil, 1, 51.10)) {
		t.Fatalf("sample rejected")
	}

	rooms.mu.Lock()
	total := len(rooms.events)
	rooms.mu.Unlock()
	if total != 0 {
		t.Fatalf("idle driver sample must not reach any room")
	}
}

func TestTrackersAreIndependent(t *testing.T) {
	p := NewPipeline(newFakeRooms(), nil, nil, logger.InitLogger("location-test", logger.LevelError))

	a := uuid.MustNew()
	b := uuid.MustNew()
	ctx := context.Background()

	if !p.Report(ctx, sample(a, nil, 100, 51.10)) {
		t.Fatalf("driver a sample rejected")
	}
	// driver b has its own clock; an older timestamp is fine
	if !p.Report(ctx, sample(b, nil, 50, 51.20)) {
		t.Fatalf("driver b sample rejected")
	}
}

func TestForget(t *testing.T) {
	p := NewPipeline(newFakeRooms(), nil, nil, logger.InitLogger("location-test", logger.LevelError))

	driver := uuid.MustNew()
	ctx := context.Background()

	p.Report(ctx, sample(driver, nil, 100, 51.10))
	p.Forget(driver)

	if _, ok := p.LastKnown(driver); ok {
		t.Fatalf("forgotten driver still has a tracker")
	}

	// after forgetting, older timestamps are accepted again
	if !p.Report(ctx, sample(driver, nil, 10, 51.05)) {
		t.Fatalf("sample after forget rejected")
	}
}

func TestConcurrentReports(t *testing.T) {
	p := NewPipeline(newFakeRooms(), nil, nil, logger.InitLogger("location-test", logger.LevelError))

	driver := uuid.MustNew()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			p.Report(ctx, sample(driver, nil, ts, 51.10))
		}(int64(i))
	}
	wg.Wait()

	last, ok := p.LastKnown(driver)
	if !ok {
		t.Fatalf("no last known position")
	}
	if last.Timestamp != 100 {
		t.Fatalf("expected newest timestamp 100, got %d", last.Timestamp)
	}
}
