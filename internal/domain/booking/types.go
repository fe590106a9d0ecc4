package booking

import "time"

// Status is the remote API's booking status. Values are the wire values.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCancelled:
		return true
	}
	return false
}

// Event is a remote event type. Read-only from this console's perspective.
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	// Length is the event duration in minutes.
	Length int  `json:"length"`
	Hidden bool `json:"hidden"`
}

type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
	Locale   string `json:"locale"`
}

type Booking struct {
	ID          int64          `json:"id"`
	EventTypeID int64          `json:"eventTypeId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     time.Time      `json:"endTime"`
	Status      Status         `json:"status"`
	Attendees   []Attendee     `json:"attendees"`
	Metadata    map[string]any `json:"metadata"`
}

// TimeSlot is a bookable interval within a single day, both ends formatted
// as zero-padded 24-hour "HH:MM". Slots are derived, never persisted.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
