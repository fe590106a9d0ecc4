// Package web serves the operator console: HTML pages for bookings and
// event types, the JSON auth API, and the slots endpoint backing the
// booking forms. Freshness is pull-based: every page load re-fetches from
// the remote API and falls back to the stores' stale snapshots on failure.
package web

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"

	"github.com/example/cal-admin/internal/auth"
	"github.com/example/cal-admin/internal/domain/booking"
	"github.com/example/cal-admin/internal/store"
	"github.com/example/cal-admin/internal/workflow"
)

const pageSize = 10

type Server struct {
	log      *slog.Logger
	auth     *auth.Store
	bookings *store.BookingStore
	events   *store.EventStore
	flow     *workflow.Workflow
	metrics  *Metrics
	tmpl     *template.Template
}

func NewServer(log *slog.Logger, authStore *auth.Store, bookings *store.BookingStore, events *store.EventStore, flow *workflow.Workflow, metrics *Metrics) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		log:      log,
		auth:     authStore,
		bookings: bookings,
		events:   events,
		flow:     flow,
		metrics:  metrics,
		tmpl:     tmpl,
	}, nil
}

func (s *Server) Routes() http.Handler {
	router := httprouter.New()

	router.Handler(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	if s.metrics != nil {
		router.Handler(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	router.Handler(http.MethodGet, "/login", http.HandlerFunc(s.handleLoginPage))
	router.Handler(http.MethodPost, "/login", http.HandlerFunc(s.handleLoginSubmit))
	router.Handler(http.MethodGet, "/logout", http.HandlerFunc(s.handleLogout))

	authed := func(h http.HandlerFunc) http.Handler { return s.auth.RequireAuth(h) }
	router.Handler(http.MethodGet, "/", authed(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/bookings", http.StatusFound)
	}))
	router.Handler(http.MethodGet, "/bookings", authed(s.handleBookings))
	router.Handler(http.MethodGet, "/bookings/new", authed(s.handleNewBooking))
	router.Handler(http.MethodPost, "/bookings", authed(s.handleCreateBooking))
	router.Handler(http.MethodPost, "/bookings/id/:id/accept", authed(s.handleAccept))
	router.Handler(http.MethodPost, "/bookings/id/:id/cancel", authed(s.handleCancel))
	router.Handler(http.MethodGet, "/bookings/id/:id/reschedule", authed(s.handleReschedulePage))
	router.Handler(http.MethodPost, "/bookings/id/:id/reschedule", authed(s.handleRescheduleSubmit))
	router.Handler(http.MethodGet, "/events", authed(s.handleEvents))

	router.Handler(http.MethodGet, "/api/v1/slots", s.requireAuthJSON(s.handleSlotsAPI))
	router.Handler(http.MethodPost, "/api/v1/auth/login", http.HandlerFunc(s.handleAPILogin))
	router.Handler(http.MethodPost, "/api/v1/auth/create-user", http.HandlerFunc(s.handleAPICreateUser))
	router.Handler(http.MethodGet, "/api/v1/auth/check-auth", http.HandlerFunc(s.handleAPICheckAuth))

	return s.instrument(router)
}

// Start runs the server until ctx is cancelled, then drains for 5 seconds.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// --- template data ---

type bookingRow struct {
	booking.Booking
	Busy bool
}

type tmplData struct {
	Title string
	Email string
	Flash string
	Error string

	Bookings   []bookingRow
	Status     string
	Page       int
	TotalPages int
	PrevPage   int
	NextPage   int

	Events  []booking.Event
	Slots   []booking.TimeSlot
	Booking *booking.Booking

	EventTypeID int64
	Date        string
	Form        map[string]string
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("render", slog.String("template", name), slog.Any("err", err))
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// --- session pages ---

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.auth.GetSession(r); ok {
		http.Redirect(w, r, "/bookings", http.StatusFound)
		return
	}
	s.render(w, "login.html", tmplData{Title: "Login"})
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	u, err := s.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		s.render(w, "login.html", tmplData{Title: "Login", Flash: "Invalid email or password"})
		return
	}
	if err := s.auth.SetSession(w, r, u); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/bookings", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// --- bookings pages ---

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	if err := s.bookings.FetchBookings(r.Context()); err != nil {
		// Stale data stays on screen; the banner reports the failure.
		s.log.Warn("fetch bookings", slog.Any("err", err))
	}

	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	all := s.bookings.Snapshot()
	filtered := all[:0:0]
	for _, b := range all {
		if status == "" || string(b.Status) == status {
			filtered = append(filtered, b)
		}
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	lo := (page - 1) * pageSize
	hi := lo + pageSize
	if hi > len(filtered) {
		hi = len(filtered)
	}

	busyID, busy := s.bookings.UpdatingID()
	rows := make([]bookingRow, 0, hi-lo)
	for _, b := range filtered[lo:hi] {
		rows = append(rows, bookingRow{Booking: b, Busy: busy && b.ID == busyID})
	}

	// Mutations report their failures via the redirect query; the fetch
	// above has already overwritten the store's last error by now.
	errMsg := r.URL.Query().Get("error")
	if errMsg == "" {
		errMsg = errBanner(s.bookings.Err())
	}

	s.render(w, "bookings.html", tmplData{
		Title:      "Bookings",
		Email:      sess.Email,
		Error:      errMsg,
		Flash:      r.URL.Query().Get("flash"),
		Bookings:   rows,
		Status:     status,
		Page:       page,
		TotalPages: totalPages,
		PrevPage:   page - 1,
		NextPage:   page + 1,
	})
}

func (s *Server) handleNewBooking(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	if err := s.events.FetchEvents(r.Context()); err != nil {
		s.log.Warn("fetch events", slog.Any("err", err))
	}

	data := tmplData{
		Title:  "New Booking",
		Email:  sess.Email,
		Error:  errBanner(s.events.Err()),
		Events: s.events.Snapshot(),
		Date:   r.URL.Query().Get("date"),
		Form:   map[string]string{},
	}

	// Event type and date chosen: offer the generated slots.
	if idStr := r.URL.Query().Get("eventTypeId"); idStr != "" && data.Date != "" {
		id, date, err := parseSlotQuery(idStr, data.Date)
		if err == nil {
			data.EventTypeID = id
			slots, serr := s.flow.SlotsFor(r.Context(), id, date)
			if serr != nil {
				data.Error = errBanner(serr)
			} else {
				data.Slots = slots
			}
		} else {
			data.Error = errBanner(err)
		}
	}

	s.render(w, "new_booking.html", data)
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	eventTypeID, _ := strconv.ParseInt(r.FormValue("eventTypeId"), 10, 64)
	date, dateErr := time.Parse("2006-01-02", r.FormValue("date"))

	in := workflow.CreateInput{
		EventTypeID: eventTypeID,
		Date:        date,
		Start:       r.FormValue("start"),
		Name:        strings.TrimSpace(r.FormValue("name")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	renderErr := func(msg string) {
		sess, _ := auth.SessionFromContext(r.Context())
		s.render(w, "new_booking.html", tmplData{
			Title:       "New Booking",
			Email:       sess.Email,
			Error:       msg,
			Events:      s.events.Snapshot(),
			EventTypeID: eventTypeID,
			Date:        r.FormValue("date"),
			Form: map[string]string{
				"name": in.Name, "email": in.Email,
				"title": in.Title, "description": in.Description,
			},
		})
	}

	if dateErr != nil {
		renderErr("Invalid date")
		return
	}
	if _, err := s.flow.Create(r.Context(), in); err != nil {
		renderErr(errBanner(err))
		return
	}
	http.Redirect(w, r, "/bookings?flash=Booking+created", http.StatusFound)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	s.mutateStatus(w, r, s.bookings.AcceptBooking, "Booking+accepted")
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mutateStatus(w, r, s.bookings.CancelBooking, "Booking+cancelled")
}

func (s *Server) mutateStatus(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) error, flash string) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}
	if err := op(r.Context(), id); err != nil {
		s.log.Warn("status update", slog.Int64("id", id), slog.Any("err", err))
		http.Redirect(w, r, "/bookings?error=Failed+to+update+booking", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/bookings?flash="+flash, http.StatusFound)
}

func (s *Server) handleReschedulePage(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}
	target := s.findBooking(r.Context(), id)
	if target == nil {
		http.NotFound(w, r)
		return
	}

	data := tmplData{
		Title:   "Reschedule Booking",
		Email:   sess.Email,
		Booking: target,
		Date:    r.URL.Query().Get("date"),
	}
	if data.Date != "" {
		date, derr := time.Parse("2006-01-02", data.Date)
		if derr != nil {
			data.Error = "Invalid date"
		} else if slots, serr := s.flow.SlotsFor(r.Context(), target.EventTypeID, date); serr != nil {
			data.Error = errBanner(serr)
		} else {
			data.Slots = slots
		}
	}
	s.render(w, "reschedule.html", data)
}

func (s *Server) handleRescheduleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, derr := time.Parse("2006-01-02", r.FormValue("date"))
	if derr != nil {
		http.Redirect(w, r, "/bookings?error=Invalid+date", http.StatusFound)
		return
	}
	in := workflow.RescheduleInput{BookingID: id, Date: date, Start: r.FormValue("start")}
	if err := s.flow.Reschedule(r.Context(), in); err != nil {
		s.log.Warn("reschedule", slog.Int64("id", id), slog.Any("err", err))
		http.Redirect(w, r, "/bookings?error=Failed+to+reschedule+booking", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/bookings?flash=Booking+rescheduled", http.StatusFound)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())

	if err := s.events.FetchEvents(r.Context()); err != nil {
		s.log.Warn("fetch events", slog.Any("err", err))
	}
	s.render(w, "events.html", tmplData{
		Title:  "Event Types",
		Email:  sess.Email,
		Error:  errBanner(s.events.Err()),
		Events: s.events.Snapshot(),
	})
}

// --- helpers ---

func pathID(r *http.Request) (int64, error) {
	raw := httprouter.ParamsFromContext(r.Context()).ByName("id")
	return strconv.ParseInt(raw, 10, 64)
}

func parseSlotQuery(idStr, dateStr string) (int64, time.Time, error) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, errors.New("invalid event type id")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return 0, time.Time{}, errors.New("invalid date")
	}
	return id, date, nil
}

// findBooking looks up a booking in the local collection, fetching once if
// the session has not loaded the list yet.
func (s *Server) findBooking(ctx context.Context, id int64) *booking.Booking {
	snapshot := s.bookings.Snapshot()
	if len(snapshot) == 0 {
		if err := s.bookings.FetchBookings(ctx); err != nil {
			return nil
		}
		snapshot = s.bookings.Snapshot()
	}
	for i := range snapshot {
		if snapshot[i].ID == id {
			return &snapshot[i]
		}
	}
	return nil
}

// errBanner flattens any failure into the banner message shown on a page.
// Validation errors list the offending fields rather than the struct dump.
func errBanner(err error) string {
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return "Invalid input: " + strings.Join(fields, ", ")
	}
	return err.Error()
}
