package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cal-admin/internal/calcom"
	"github.com/example/cal-admin/internal/domain/booking"
	"github.com/example/cal-admin/internal/store"
)

type stubGateway struct {
	bookings []booking.Booking
	events   []booking.Event

	created     *calcom.CreateBookingRequest
	rescheduled *[2]time.Time
	nextID      int64
}

func (g *stubGateway) ListBookings(ctx context.Context) ([]booking.Booking, error) {
	return g.bookings, nil
}

func (g *stubGateway) CreateBooking(ctx context.Context, req calcom.CreateBookingRequest) (booking.Booking, error) {
	g.created = &req
	g.nextID++
	return booking.Booking{ID: g.nextID, EventTypeID: req.EventTypeID, StartTime: req.Start, EndTime: req.End, Status: booking.StatusPending}, nil
}

func (g *stubGateway) UpdateBookingStatus(ctx context.Context, id int64, status booking.Status) (booking.Booking, error) {
	return booking.Booking{ID: id, Status: status}, nil
}

func (g *stubGateway) RescheduleBooking(ctx context.Context, id int64, start, end time.Time) (booking.Booking, error) {
	g.rescheduled = &[2]time.Time{start, end}
	return booking.Booking{ID: id, StartTime: start, EndTime: end}, nil
}

func (g *stubGateway) ListEventTypes(ctx context.Context) ([]booking.Event, error) {
	return g.events, nil
}

// Wednesday mid-morning; every test date is relative to this.
var testNow = time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)

func newTestWorkflow(gw *stubGateway) (*Workflow, *store.BookingStore) {
	bookings := store.NewBookingStore(gw)
	events := store.NewEventStore(gw)
	w := New(bookings, events, time.UTC)
	w.now = func() time.Time { return testNow }
	return w, bookings
}

func TestSlotsFor(t *testing.T) {
	gw := &stubGateway{events: []booking.Event{{ID: 1, Title: "Intro", Length: 30}}}
	w, _ := newTestWorkflow(gw)

	slots, err := w.SlotsFor(context.Background(), 1, testNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, slots, 16)
	assert.Equal(t, booking.TimeSlot{Start: "09:00", End: "09:30"}, slots[0])
}

func TestSlotsFor_TodayWestOfUTC(t *testing.T) {
	// Form dates parse to UTC midnight; with a zone behind UTC that instant
	// lands before the local midnight, and today must still be bookable.
	gw := &stubGateway{events: []booking.Event{{ID: 1, Length: 30}}}
	bookings := store.NewBookingStore(gw)
	events := store.NewEventStore(gw)
	w := New(bookings, events, time.FixedZone("EDT", -4*60*60))
	w.now = func() time.Time { return testNow } // 2025-06-11 10:00 UTC, 06:00 EDT

	today := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	slots, err := w.SlotsFor(context.Background(), 1, today)
	require.NoError(t, err)
	assert.Len(t, slots, 16)
}

func TestSlotsFor_WeekendRejected(t *testing.T) {
	gw := &stubGateway{events: []booking.Event{{ID: 1, Length: 30}}}
	w, _ := newTestWorkflow(gw)

	saturday := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	_, err := w.SlotsFor(context.Background(), 1, saturday)
	assert.ErrorIs(t, err, ErrDateNotSelectable)
}

func TestCreate(t *testing.T) {
	gw := &stubGateway{events: []booking.Event{{ID: 1, Title: "Intro", Length: 30}}}
	w, bookings := newTestWorkflow(gw)

	date := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	created, err := w.Create(context.Background(), CreateInput{
		EventTypeID: 1,
		Date:        date,
		Start:       "09:30",
		Name:        "Jane Doe",
		Email:       "jane@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, created.Status)

	require.NotNil(t, gw.created)
	assert.True(t, gw.created.Start.Equal(time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)))
	assert.True(t, gw.created.End.Equal(time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Jane Doe", gw.created.Responses.Name)

	assert.Len(t, bookings.Snapshot(), 1)
}

func TestCreate_ValidationErrors(t *testing.T) {
	gw := &stubGateway{events: []booking.Event{{ID: 1, Length: 30}}}
	w, _ := newTestWorkflow(gw)

	_, err := w.Create(context.Background(), CreateInput{
		EventTypeID: 1,
		Date:        testNow,
		Start:       "09:00",
		Name:        "Jane",
		Email:       "not-an-email",
	})
	var verr validator.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, gw.created)
}

func TestCreate_PastDateRejected(t *testing.T) {
	gw := &stubGateway{events: []booking.Event{{ID: 1, Length: 30}}}
	w, _ := newTestWorkflow(gw)

	_, err := w.Create(context.Background(), CreateInput{
		EventTypeID: 1,
		Date:        testNow.AddDate(0, 0, -1),
		Start:       "09:00",
		Name:        "Jane",
		Email:       "jane@example.com",
	})
	assert.ErrorIs(t, err, ErrDateNotSelectable)
}

func TestCreate_UnknownSlotRejected(t *testing.T) {
	gw := &stubGateway{events: []booking.Event{{ID: 1, Length: 30}}}
	w, _ := newTestWorkflow(gw)

	_, err := w.Create(context.Background(), CreateInput{
		EventTypeID: 1,
		Date:        testNow.AddDate(0, 0, 1),
		Start:       "09:10",
		Name:        "Jane",
		Email:       "jane@example.com",
	})
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestCreate_UnknownEvent(t *testing.T) {
	gw := &stubGateway{events: []booking.Event{{ID: 1, Length: 30}}}
	w, _ := newTestWorkflow(gw)

	_, err := w.Create(context.Background(), CreateInput{
		EventTypeID: 42,
		Date:        testNow.AddDate(0, 0, 1),
		Start:       "09:00",
		Name:        "Jane",
		Email:       "jane@example.com",
	})
	assert.ErrorIs(t, err, booking.ErrEventNotFound)
}

func TestReschedule(t *testing.T) {
	orig := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	gw := &stubGateway{
		events:   []booking.Event{{ID: 1, Length: 60}},
		bookings: []booking.Booking{{ID: 7, EventTypeID: 1, StartTime: orig, EndTime: orig.Add(time.Hour)}},
	}
	w, bookings := newTestWorkflow(gw)
	require.NoError(t, bookings.FetchBookings(context.Background()))

	err := w.Reschedule(context.Background(), RescheduleInput{
		BookingID: 7,
		Date:      time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC),
		Start:     "14:00",
	})
	require.NoError(t, err)

	require.NotNil(t, gw.rescheduled)
	assert.True(t, gw.rescheduled[0].Equal(time.Date(2025, 6, 13, 14, 0, 0, 0, time.UTC)))
	assert.True(t, gw.rescheduled[1].Equal(time.Date(2025, 6, 13, 15, 0, 0, 0, time.UTC)))

	got := bookings.Snapshot()[0]
	assert.True(t, got.StartTime.Equal(gw.rescheduled[0]))
}

func TestReschedule_LoadsBookingsWhenEmpty(t *testing.T) {
	orig := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	gw := &stubGateway{
		events:   []booking.Event{{ID: 1, Length: 60}},
		bookings: []booking.Booking{{ID: 7, EventTypeID: 1, StartTime: orig, EndTime: orig.Add(time.Hour)}},
	}
	w, bookings := newTestWorkflow(gw)

	// No prior fetch this session; the workflow loads the collection itself.
	err := w.Reschedule(context.Background(), RescheduleInput{
		BookingID: 7,
		Date:      time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC),
		Start:     "14:00",
	})
	require.NoError(t, err)
	require.NotNil(t, gw.rescheduled)
	assert.Len(t, bookings.Snapshot(), 1)
}

func TestReschedule_UnknownBooking(t *testing.T) {
	gw := &stubGateway{events: []booking.Event{{ID: 1, Length: 30}}}
	w, _ := newTestWorkflow(gw)

	err := w.Reschedule(context.Background(), RescheduleInput{
		BookingID: 99,
		Date:      testNow.AddDate(0, 0, 1),
		Start:     "09:00",
	})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
