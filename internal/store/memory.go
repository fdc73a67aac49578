package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/rajasatyajit/ReliefHub/internal/errors"
	"github.com/rajasatyajit/ReliefHub/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu        sync.RWMutex
	hubs      map[int64]models.Hub
	donations map[int64]models.Donation
	requests  map[int64]models.VictimRequest
	events    map[int64]models.DisasterEvent
	nextID    map[string]int64
	now       func() time.Time
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		hubs:      make(map[int64]models.Hub),
		donations: make(map[int64]models.Donation),
		requests:  make(map[int64]models.VictimRequest),
		events:    make(map[int64]models.DisasterEvent),
		nextID:    make(map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, apperrors.ErrNotFound)
}

func (s *InMemoryStore) ListHubs(ctx context.Context) ([]models.Hub, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Hub, 0, len(s.hubs))
	for _, id := range sortedKeys(s.hubs) {
		out = append(out, s.hubs[id].Snapshot())
	}
	return out, nil
}

func (s *InMemoryStore) GetHub(ctx context.Context, id int64) (*models.Hub, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hubs[id]
	if !ok {
		return nil, notFound("hub", id)
	}
	h = h.Snapshot()
	return &h, nil
}

func (s *InMemoryStore) CreateHub(ctx context.Context, hub models.Hub) (models.Hub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hub = hub.Snapshot()
	hub.ID = s.id("hubs")
	hub.CreatedAt = s.now()
	s.hubs[hub.ID] = hub
	return hub.Snapshot(), nil
}

func (s *InMemoryStore) UpdateHub(ctx context.Context, id int64, mutate func(*models.Hub) error) (models.Hub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hubs[id]
	if !ok {
		return models.Hub{}, notFound("hub", id)
	}
	h = h.Snapshot()
	if err := mutate(&h); err != nil {
		return models.Hub{}, err
	}
	h.ID = id
	s.hubs[id] = h.Snapshot()
	return h, nil
}

func (s *InMemoryStore) DeleteHub(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hubs[id]; !ok {
		return notFound("hub", id)
	}
	delete(s.hubs, id)
	return nil
}

func (s *InMemoryStore) CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d = d.Clone()
	d.ID = s.id("donations")
	d.CreatedAt = s.now()
	s.donations[d.ID] = d
	return d.Clone(), nil
}

func (s *InMemoryStore) ListDonations(ctx context.Context, newestFirst bool) ([]models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Donation, 0, len(s.donations))
	for _, id := range sortedKeys(s.donations) {
		out = append(out, s.donations[id].Clone())
	}
	if newestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID > out[j].ID
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out, nil
}

func (s *InMemoryStore) UpdateDonation(ctx context.Context, id int64, mutate func(*models.Donation) error) (models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.donations[id]
	if !ok {
		return models.Donation{}, notFound("donation", id)
	}
	d = d.Clone()
	if err := mutate(&d); err != nil {
		return models.Donation{}, err
	}
	d.ID = id
	s.donations[id] = d.Clone()
	return d, nil
}

func (s *InMemoryStore) CreateVictimRequest(ctx context.Context, r models.VictimRequest) (models.VictimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r = r.Clone()
	r.ID = s.id("victim_requests")
	r.CreatedAt = s.now()
	r.UpdatedAt = r.CreatedAt
	s.requests[r.ID] = r
	return r.Clone(), nil
}

func (s *InMemoryStore) ListVictimRequests(ctx context.Context) ([]models.VictimRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.VictimRequest, 0, len(s.requests))
	for _, id := range sortedKeys(s.requests) {
		out = append(out, s.requests[id].Clone())
	}
	return out, nil
}

func (s *InMemoryStore) CreateDisasterEvent(ctx context.Context, e models.DisasterEvent) (models.DisasterEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.id("disaster_events")
	e.CreatedAt = s.now()
	s.events[e.ID] = e
	return e, nil
}

func (s *InMemoryStore) RecentDisasterEvents(ctx context.Context, limit int) ([]models.DisasterEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := sortedKeys(s.events)
	out := make([]models.DisasterEvent, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		out = append(out, s.events[keys[i]])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Stats(ctx context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.Stats{
		TotalHubs:      len(s.hubs),
		TotalDonations: len(s.donations),
		TotalRequests:  len(s.requests),
		TotalEvents:    len(s.events),
	}
	for _, r := range s.requests {
		if r.FulfilledStatus == models.StatusPending {
			st.PendingRequests++
		}
	}
	return st, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
