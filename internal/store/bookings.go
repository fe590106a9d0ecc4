// Package store holds the console's session-scoped caches of remote state.
// Stores are constructed once per application and passed to consumers; the
// remote API stays the system of record and every local mutation is applied
// only after the remote call confirms it.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/example/cal-admin/internal/calcom"
	"github.com/example/cal-admin/internal/domain/booking"
)

// BookingGateway is the narrow remote surface the booking store depends on.
// *calcom.Client satisfies it.
type BookingGateway interface {
	ListBookings(ctx context.Context) ([]booking.Booking, error)
	CreateBooking(ctx context.Context, req calcom.CreateBookingRequest) (booking.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status booking.Status) (booking.Booking, error)
	RescheduleBooking(ctx context.Context, id int64, start, end time.Time) (booking.Booking, error)
}

// BookingStore owns the in-memory booking collection. The three busy flags
// are independent: fetching guards the list load, loading guards creation,
// and updatingID names the one booking with a status or time mutation in
// flight. The flags are advisory. The store does not serialize overlapping
// operations; when two mutations race the later response wins.
type BookingStore struct {
	gw BookingGateway

	mu         sync.Mutex
	bookings   []booking.Booking
	fetching   bool
	loading    bool
	updatingID *int64
	lastErr    error
}

func NewBookingStore(gw BookingGateway) *BookingStore {
	return &BookingStore{gw: gw}
}

// FetchBookings replaces the collection wholesale with the remote list.
// On failure the previous collection is left intact.
func (s *BookingStore) FetchBookings(ctx context.Context) error {
	s.mu.Lock()
	s.fetching = true
	s.lastErr = nil
	s.mu.Unlock()

	list, err := s.gw.ListBookings(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	if err != nil {
		s.lastErr = err
		return err
	}
	s.bookings = list
	return nil
}

// CreateBooking commits a new booking remotely and appends the confirmed
// result. Nothing is inserted optimistically: a failed create leaves the
// collection unchanged.
func (s *BookingStore) CreateBooking(ctx context.Context, req calcom.CreateBookingRequest) (booking.Booking, error) {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	created, err := s.gw.CreateBooking(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		return booking.Booking{}, err
	}
	s.bookings = append(s.bookings, created)
	return created, nil
}

// CancelBooking transitions a booking to CANCELLED. Re-cancelling an
// already-cancelled booking is allowed; the remote API arbitrates
// transitions it considers invalid.
func (s *BookingStore) CancelBooking(ctx context.Context, id int64) error {
	return s.updateStatus(ctx, id, booking.StatusCancelled)
}

// AcceptBooking transitions a booking to ACCEPTED.
func (s *BookingStore) AcceptBooking(ctx context.Context, id int64) error {
	return s.updateStatus(ctx, id, booking.StatusAccepted)
}

func (s *BookingStore) updateStatus(ctx context.Context, id int64, status booking.Status) error {
	s.mu.Lock()
	s.updatingID = &id
	s.lastErr = nil
	s.mu.Unlock()

	_, err := s.gw.UpdateBookingStatus(ctx, id, status)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatingID = nil
	if err != nil {
		s.lastErr = err
		return err
	}
	s.patch(id, func(b *booking.Booking) { b.Status = status })
	return nil
}

// RescheduleBooking moves a booking to a new interval, patching the local
// copy only after remote confirmation.
func (s *BookingStore) RescheduleBooking(ctx context.Context, id int64, start, end time.Time) error {
	s.mu.Lock()
	s.updatingID = &id
	s.lastErr = nil
	s.mu.Unlock()

	_, err := s.gw.RescheduleBooking(ctx, id, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatingID = nil
	if err != nil {
		s.lastErr = err
		return err
	}
	s.patch(id, func(b *booking.Booking) {
		b.StartTime = start
		b.EndTime = end
	})
	return nil
}

// patch maps the collection to a new slice, rewriting the matching booking
// and preserving every other element. Callers must hold mu.
func (s *BookingStore) patch(id int64, fn func(*booking.Booking)) {
	next := make([]booking.Booking, len(s.bookings))
	for i, b := range s.bookings {
		if b.ID == id {
			fn(&b)
		}
		next[i] = b
	}
	s.bookings = next
}

// Snapshot returns a copy of the collection safe for rendering while other
// operations are in flight.
func (s *BookingStore) Snapshot() []booking.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]booking.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}

func (s *BookingStore) Fetching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetching
}

func (s *BookingStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// UpdatingID reports which booking, if any, has a mutation in flight.
func (s *BookingStore) UpdatingID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updatingID == nil {
		return 0, false
	}
	return *s.updatingID, true
}

// Err returns the most recent operation failure. The underlying
// *calcom.APIError is preserved so callers can branch on its kind.
func (s *BookingStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
