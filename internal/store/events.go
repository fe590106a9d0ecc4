package store

import (
	"context"
	"sync"

	"github.com/example/cal-admin/internal/domain/booking"
)

type EventGateway interface {
	ListEventTypes(ctx context.Context) ([]booking.Event, error)
}

// EventStore mirrors BookingStore for the read-only event-type collection.
type EventStore struct {
	gw EventGateway

	mu      sync.Mutex
	events  []booking.Event
	loading bool
	lastErr error
}

func NewEventStore(gw EventGateway) *EventStore {
	return &EventStore{gw: gw}
}

func (s *EventStore) FetchEvents(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	list, err := s.gw.ListEventTypes(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		return err
	}
	s.events = list
	return nil
}

func (s *EventStore) Snapshot() []booking.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]booking.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *EventStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *EventStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
