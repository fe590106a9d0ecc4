package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/example/cal-admin/internal/domain/booking"
)

// Client is a minimal Cal v1 API client. Authentication is an apiKey query
// parameter on every call; there is no retry, and each call carries the
// request context plus the client's own timeout.
type Client struct {
	hc      *http.Client
	baseURL string
	apiKey  string

	// Defaults merged under caller fields on booking creation.
	defaultLanguage string
	defaultTimeZone string
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

func WithDefaults(language, timeZone string) Option {
	return func(c *Client) {
		c.defaultLanguage = language
		c.defaultTimeZone = timeZone
	}
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		hc:              &http.Client{Timeout: 10 * time.Second},
		baseURL:         baseURL,
		apiKey:          apiKey,
		defaultLanguage: "en",
		defaultTimeZone: "Asia/Colombo",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateBookingRequest is the POST /bookings payload. Responses carries the
// primary attendee captured by the booking form.
type CreateBookingRequest struct {
	EventTypeID int64          `json:"eventTypeId"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Status      booking.Status `json:"status"`
	Language    string         `json:"language"`
	TimeZone    string         `json:"timeZone"`
	Metadata    map[string]any `json:"metadata"`
	Responses   Responses      `json:"responses"`
}

type Responses struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Client) ListBookings(ctx context.Context) ([]booking.Booking, error) {
	var env struct {
		Bookings []booking.Booking `json:"bookings"`
	}
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, &env); err != nil {
		return nil, err
	}
	return env.Bookings, nil
}

func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (booking.Booking, error) {
	if req.Status == "" {
		req.Status = booking.StatusPending
	}
	if req.Language == "" {
		req.Language = c.defaultLanguage
	}
	if req.TimeZone == "" {
		req.TimeZone = c.defaultTimeZone
	}
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}

	var env struct {
		Booking booking.Booking `json:"booking"`
	}
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &env); err != nil {
		return booking.Booking{}, err
	}
	return env.Booking, nil
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id int64, status booking.Status) (booking.Booking, error) {
	body := struct {
		Status booking.Status `json:"status"`
	}{Status: status}

	var env struct {
		Booking booking.Booking `json:"booking"`
	}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/bookings/%d", id), body, &env); err != nil {
		return booking.Booking{}, err
	}
	return env.Booking, nil
}

func (c *Client) RescheduleBooking(ctx context.Context, id int64, start, end time.Time) (booking.Booking, error) {
	body := struct {
		StartTime time.Time `json:"startTime"`
		EndTime   time.Time `json:"endTime"`
	}{StartTime: start, EndTime: end}

	var env struct {
		Booking booking.Booking `json:"booking"`
	}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/bookings/%d", id), body, &env); err != nil {
		return booking.Booking{}, err
	}
	return env.Booking, nil
}

func (c *Client) ListEventTypes(ctx context.Context) ([]booking.Event, error) {
	var env struct {
		EventTypes []booking.Event `json:"event_types"`
	}
	if err := c.do(ctx, http.MethodGet, "/event-types", nil, &env); err != nil {
		return nil, err
	}
	return env.EventTypes, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		jb, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jb)
	}

	u := c.baseURL + path + "?apiKey=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return networkErr(err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return networkErr(err)
	}

	if res.StatusCode >= 400 {
		// The API reports a message field on most failures.
		var r struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(b, &r)
		return statusErr(res.StatusCode, r.Message)
	}

	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
