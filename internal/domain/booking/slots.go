package booking

import (
	"errors"
	"fmt"
	"time"
)

// Working window for bookable slots, in minutes since midnight (09:00-17:00).
const (
	windowStartMin = 9 * 60
	windowEndMin   = 17 * 60
)

var ErrEventNotFound = errors.New("event type not found")

// GenerateSlots tiles the 09:00-17:00 window with back-to-back slots of the
// selected event's length. The tiling is contiguous and non-overlapping; a
// trailing remainder shorter than the event length is never emitted.
//
// Existing bookings are not subtracted: the result is every slot the window
// can hold, not an availability query. Two operators picking the same slot
// will double-book, and the remote API is left to arbitrate.
func GenerateSlots(events []Event, eventTypeID int64) ([]TimeSlot, error) {
	var selected *Event
	for i := range events {
		if events[i].ID == eventTypeID {
			selected = &events[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("%w: id=%d", ErrEventNotFound, eventTypeID)
	}

	length := selected.Length
	if length <= 0 || length > windowEndMin-windowStartMin {
		return []TimeSlot{}, nil
	}

	var slots []TimeSlot
	for cur := windowStartMin; cur+length <= windowEndMin; cur += length {
		slots = append(slots, TimeSlot{
			Start: minutesToClock(cur),
			End:   minutesToClock(cur + length),
		})
	}
	return slots, nil
}

func minutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseClock converts a "HH:MM" slot boundary back to minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// DateSelectable reports whether date may be offered in the booking
// calendar: weekdays only, and never a calendar day before now's.
// The comparison is on calendar dates, each in its own location, so a form
// date parsed at UTC midnight and a clock in another zone agree on "today".
func DateSelectable(date, now time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	dy, dm, dd := date.Date()
	ny, nm, nd := now.Date()
	if dy != ny {
		return dy > ny
	}
	if dm != nm {
		return dm > nm
	}
	return dd >= nd
}
