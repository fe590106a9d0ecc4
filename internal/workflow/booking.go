// Package workflow composes slot generation and the stores into the
// console's booking flows: pick an event type, an eligible date, and a
// generated slot, then commit the result remotely.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/cal-admin/internal/calcom"
	"github.com/example/cal-admin/internal/domain/booking"
	"github.com/example/cal-admin/internal/store"
)

var (
	ErrDateNotSelectable = errors.New("date is not selectable")
	ErrInvalidSlot       = errors.New("slot is not available for this event type")
	ErrBookingNotFound   = errors.New("booking not found")
)

type Workflow struct {
	bookings *store.BookingStore
	events   *store.EventStore
	loc      *time.Location
	validate *validator.Validate

	now func() time.Time
}

func New(bookings *store.BookingStore, events *store.EventStore, loc *time.Location) *Workflow {
	return &Workflow{
		bookings: bookings,
		events:   events,
		loc:      loc,
		validate: validator.New(),
		now:      time.Now,
	}
}

// CreateInput carries the add-booking form fields. Start is a "HH:MM" slot
// boundary produced by SlotsFor; the end time is always re-derived from the
// event length so the stored interval matches the event type.
type CreateInput struct {
	EventTypeID int64     `validate:"required"`
	Date        time.Time `validate:"required"`
	Start       string    `validate:"required"`
	Name        string    `validate:"required"`
	Email       string    `validate:"required,email"`
	Title       string
	Description string
}

type RescheduleInput struct {
	BookingID int64     `validate:"required"`
	Date      time.Time `validate:"required"`
	Start     string    `validate:"required"`
}

// SlotsFor returns the bookable slots for one event type on one day,
// refreshing the event-type cache when it is empty.
func (w *Workflow) SlotsFor(ctx context.Context, eventTypeID int64, date time.Time) ([]booking.TimeSlot, error) {
	if !booking.DateSelectable(date, w.now().In(w.loc)) {
		return nil, ErrDateNotSelectable
	}
	events, err := w.cachedEvents(ctx)
	if err != nil {
		return nil, err
	}
	return booking.GenerateSlots(events, eventTypeID)
}

// Create validates the form input, derives absolute start/end timestamps
// from the chosen date and slot, and commits the booking via the store.
func (w *Workflow) Create(ctx context.Context, in CreateInput) (booking.Booking, error) {
	if err := w.validate.Struct(in); err != nil {
		return booking.Booking{}, err
	}
	events, err := w.cachedEvents(ctx)
	if err != nil {
		return booking.Booking{}, err
	}
	start, end, err := w.interval(events, in.EventTypeID, in.Date, in.Start)
	if err != nil {
		return booking.Booking{}, err
	}
	return w.bookings.CreateBooking(ctx, calcom.CreateBookingRequest{
		EventTypeID: in.EventTypeID,
		Title:       in.Title,
		Description: in.Description,
		Start:       start,
		End:         end,
		Responses:   calcom.Responses{Name: in.Name, Email: in.Email},
	})
}

// Reschedule moves an existing booking to a new date and slot. The event
// length comes from the booking's event type, so the interval invariant is
// preserved across the move.
func (w *Workflow) Reschedule(ctx context.Context, in RescheduleInput) error {
	if err := w.validate.Struct(in); err != nil {
		return err
	}
	target := findBooking(w.bookings.Snapshot(), in.BookingID)
	if target == nil {
		// The collection may not have been loaded this session yet.
		if err := w.bookings.FetchBookings(ctx); err != nil {
			return err
		}
		if target = findBooking(w.bookings.Snapshot(), in.BookingID); target == nil {
			return fmt.Errorf("%w: id=%d", ErrBookingNotFound, in.BookingID)
		}
	}
	events, err := w.cachedEvents(ctx)
	if err != nil {
		return err
	}
	start, end, err := w.interval(events, target.EventTypeID, in.Date, in.Start)
	if err != nil {
		return err
	}
	return w.bookings.RescheduleBooking(ctx, in.BookingID, start, end)
}

// interval turns (event type, date, "HH:MM") into absolute timestamps,
// rejecting ineligible dates and slot boundaries the generator would not
// have offered.
func (w *Workflow) interval(events []booking.Event, eventTypeID int64, date time.Time, startClock string) (time.Time, time.Time, error) {
	if !booking.DateSelectable(date, w.now().In(w.loc)) {
		return time.Time{}, time.Time{}, ErrDateNotSelectable
	}
	slots, err := booking.GenerateSlots(events, eventTypeID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	var chosen *booking.TimeSlot
	for i := range slots {
		if slots[i].Start == startClock {
			chosen = &slots[i]
			break
		}
	}
	if chosen == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start=%s", ErrInvalidSlot, startClock)
	}

	startMin, err := booking.ParseClock(chosen.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endMin, err := booking.ParseClock(chosen.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, w.loc)
	return day.Add(time.Duration(startMin) * time.Minute), day.Add(time.Duration(endMin) * time.Minute), nil
}

func findBooking(bookings []booking.Booking, id int64) *booking.Booking {
	for i := range bookings {
		if bookings[i].ID == id {
			return &bookings[i]
		}
	}
	return nil
}

func (w *Workflow) cachedEvents(ctx context.Context) ([]booking.Event, error) {
	if events := w.events.Snapshot(); len(events) > 0 {
		return events, nil
	}
	if err := w.events.FetchEvents(ctx); err != nil {
		return nil, err
	}
	return w.events.Snapshot(), nil
}
