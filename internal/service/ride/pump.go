package ride

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/metrics"
	"github.com/Temutjin2k/ride-coordination/pkg/roomhub"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// effect is the side-effect batch of one committed transition: room fan-out,
// durable write, external broker publish. Effects are enqueued while the
// ride's shard lock is held, so queue order equals transition order.
type effect struct {
	ride  *models.Ride // snapshot after the transition
	event models.RideStatusChangedEvent
}

// pump drains transition effects on a single goroutine. Global FIFO implies
// per-ride FIFO, which is the ordering room subscribers observe. Persistence
// and broker publishes happen here, never under a transition lock.
type pump struct {
	ch      chan effect
	repo    RideRepo
	rooms   RoomPublisher
	broker  EventPublisher
	evict   func(id uuid.UUID)
	log     logger.Logger
	wg      sync.WaitGroup
	stopped chan struct{}
}

func newPump(repo RideRepo, rooms RoomPublisher, broker EventPublisher, evict func(id uuid.UUID), log logger.Logger) *pump {
	return &pump{
		ch:      make(chan effect, 1024),
		repo:    repo,
		rooms:   rooms,
		broker:  broker,
		evict:   evict,
		log:     log,
		stopped: make(chan struct{}),
	}
}

func (p *pump) start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.stopped:
				// drain what is already queued
				for {
					select {
					case e := <-p.ch:
						p.apply(e)
					default:
						return
					}
				}
			case e := <-p.ch:
				p.apply(e)
			}
		}
	}()
}

func (p *pump) stop() {
	close(p.stopped)
	p.wg.Wait()
}

// enqueue is called with the ride's shard lock held. The channel is large
// enough that blocking here is a backpressure signal, not a steady state.
func (p *pump) enqueue(e effect) {
	p.ch <- e
}

func (p *pump) apply(e effect) {
	ctx := wrap.WithAction(wrap.WithRideID(context.Background(), e.ride.ID.String()), "apply_transition_effects")

	// Room fan-out first: the realtime contract. Subscribers of the same
	// ride see transitions in the order they occurred.
	p.rooms.Publish(ctx, roomhub.RideRoom(e.ride.ID), e.event)

	metrics.RidesTotal.WithLabelValues(e.ride.Status.String()).Inc()

	if err := p.repo.Save(ctx, e.ride); err != nil {
		p.log.Error(ctx, "failed to persist ride transition", err, "status", e.ride.Status)
	} else if e.ride.Status.Terminal() && p.evict != nil {
		// terminal rides are served from the durable store from now on
		p.evict(e.ride.ID)
	}

	if p.broker != nil {
		msg := models.RideStatusMessage{
			RideID:    e.ride.ID,
			Status:    e.ride.Status,
			DriverID:  e.ride.DriverID,
			Fare:      e.ride.Fare,
			Timestamp: e.ride.TransitionAt,
		}
		if err := p.broker.PublishRideStatus(ctx, msg); err != nil {
			p.log.Warn(ctx, "failed to publish ride status to broker", "error", err.Error())
		}
	}
}
