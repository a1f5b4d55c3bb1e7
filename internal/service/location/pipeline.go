package location

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/metrics"
	"github.com/Temutjin2k/ride-coordination/pkg/roomhub"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// Pipeline принимает отчеты о позиции водителей и раздает их по комнатам.
// Samples are ordered per driver by producer timestamp: anything at or
// behind the newest already-seen timestamp is dropped without an error,
// so out-of-order delivery never rewinds a driver's position.
type Pipeline struct {
	trackers sync.Map // uuid.UUID → *tracker

	rooms RoomPublisher
	geo   GeoIndex
	log   SampleLog
	l     logger.Logger
}

type tracker struct {
	mu     sync.Mutex
	latest models.LocationSample
	seen   bool
}

func NewPipeline(rooms RoomPublisher, geo GeoIndex, sampleLog SampleLog, l logger.Logger) *Pipeline {
	return &Pipeline{
		rooms: rooms,
		geo:   geo,
		log:   sampleLog,
		l:     l,
	}
}

// Report ingests one sample. Returns true if the sample advanced the
// driver's position, false if it was dropped as stale.
func (p *Pipeline) Report(ctx context.Context, sample models.LocationSample) bool {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, sample.DriverID.String()), "report_location")

	tr := p.trackerFor(sample.DriverID)

	tr.mu.Lock()
	if tr.seen && sample.Timestamp <= tr.latest.Timestamp {
		tr.mu.Unlock()
		metrics.LocationSamplesDropped.Inc()
		return false
	}
	tr.latest = sample
	tr.seen = true
	tr.mu.Unlock()

	metrics.LocationSamplesAccepted.Inc()

	// Riders watching the ride see the driver move.
	if sample.RideID != nil {
		p.rooms.Publish(ctx, roomhub.RideRoom(*sample.RideID), models.DriverLocationEvent{
			Type:      types.EventDriverLocation,
			DriverID:  sample.DriverID,
			RideID:    sample.RideID,
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
			Heading:   sample.Heading,
			SpeedKph:  sample.SpeedKph,
		})
	}

	// Dispatch candidate search depends on the geo index; a failed upsert
	// only makes the driver look slightly out of date.
	if p.geo != nil {
		if err := p.geo.Upsert(ctx, sample.DriverID, sample.Latitude, sample.Longitude); err != nil {
			p.l.Warn(ctx, "failed to update driver geo index", "error", err.Error())
		}
	}

	if p.log != nil {
		if err := p.log.Append(ctx, sample); err != nil {
			p.l.Warn(ctx, "failed to append location sample to stream", "error", err.Error())
		}
	}

	return true
}

// LastKnown returns the newest accepted sample for the driver, if any.
func (p *Pipeline) LastKnown(driverID uuid.UUID) (models.LocationSample, bool) {
	v, ok := p.trackers.Load(driverID)
	if !ok {
		return models.LocationSample{}, false
	}

	tr := v.(*tracker)
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if !tr.seen {
		return models.LocationSample{}, false
	}
	return tr.latest, true
}

// Forget drops the driver's tracker, e.g. when the driver goes offline.
func (p *Pipeline) Forget(driverID uuid.UUID) {
	p.trackers.Delete(driverID)
}

func (p *Pipeline) trackerFor(driverID uuid.UUID) *tracker {
	if v, ok := p.trackers.Load(driverID); ok {
		return v.(*tracker)
	}
	v, _ := p.trackers.LoadOrStore(driverID, &tracker{})
	return v.(*tracker)
}
