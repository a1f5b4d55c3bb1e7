package ride

import (
	"sync"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

const registryShards = 32

// registry is the in-memory authoritative store of non-terminal rides.
// Each ride is guarded by its shard lock: concurrent transition calls on
// the same ride are linearized, different rides rarely contend.
type registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*models.Ride
}

func newRegistry() *registry {
	r := &registry{}
	for i := range r.shards {
		r.shards[i].rides = make(map[uuid.UUID]*models.Ride)
	}
	return r
}

func (r *registry) shard(id uuid.UUID) *registryShard {
	return &r.shards[int(id[0])%registryShards]
}

func (r *registry) put(ride *models.Ride) {
	s := r.shard(ride.ID)
	s.mu.Lock()
	s.rides[ride.ID] = ride
	s.mu.Unlock()
}

// adopt inserts the ride only if it is not already resident. Used when a
// persisted non-terminal ride surfaces that this process has not seen yet.
func (r *registry) adopt(ride *models.Ride) {
	s := r.shard(ride.ID)
	s.mu.Lock()
	if _, ok := s.rides[ride.ID]; !ok {
		s.rides[ride.ID] = ride
	}
	s.mu.Unlock()
}

func (r *registry) remove(id uuid.UUID) {
	s := r.shard(id)
	s.mu.Lock()
	delete(s.rides, id)
	s.mu.Unlock()
}

// snapshot returns a clone of the ride, or nil if it is not resident.
func (r *registry) snapshot(id uuid.UUID) *models.Ride {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	ride, ok := s.rides[id]
	if !ok {
		return nil
	}
	return ride.Clone()
}
