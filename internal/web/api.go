package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/cal-admin/internal/auth"
	"github.com/example/cal-admin/internal/calcom"
	"github.com/example/cal-admin/internal/domain/booking"
	"github.com/example/cal-admin/internal/workflow"
)

// apiEnvelope is the JSON shell on every API response.
type apiEnvelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiEnvelope{Message: message, Data: data}); err != nil {
		s.log.Error("write json", slog.Any("err", err))
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeJSON(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	u, err := s.auth.Authenticate(r.Context(), creds.Email, creds.Password)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		s.writeJSON(w, http.StatusNotFound, "User with email doesn't exist", nil)
		return
	case errors.Is(err, auth.ErrInvalidPassword):
		s.writeJSON(w, http.StatusUnauthorized, "Incorrect password", nil)
		return
	case err != nil:
		s.log.Error("login", slog.Any("err", err))
		s.writeJSON(w, http.StatusInternalServerError, "Error signing in user", nil)
		return
	}

	if err := s.auth.SetSession(w, r, u); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, "Error signing in user", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, "User signed in successfully", u)
}

func (s *Server) handleAPICreateUser(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		s.writeJSON(w, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	u, err := s.auth.CreateUser(r.Context(), creds.Email, creds.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		s.writeJSON(w, http.StatusBadRequest, "User with email already exists", nil)
		return
	case err != nil:
		s.log.Error("create user", slog.Any("err", err))
		s.writeJSON(w, http.StatusInternalServerError, "Error creating user", nil)
		return
	}

	if err := s.auth.SetSession(w, r, u); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, "Error creating user", nil)
		return
	}
	s.writeJSON(w, http.StatusCreated, "User created successfully", u)
}

func (s *Server) handleAPICheckAuth(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie("accessToken"); err != nil {
		s.writeJSON(w, http.StatusUnauthorized, "No token provided", nil)
		return
	}
	sess, ok := s.auth.GetSession(r)
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, "Invalid token", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, "User authenticated", sess)
}

// requireAuthJSON guards API routes: pages redirect to /login, API callers
// get the 401 envelope instead.
func (s *Server) requireAuthJSON(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.auth.GetSession(r); !ok {
			s.writeJSON(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		next(w, r)
	})
}

// handleSlotsAPI serves the booking forms: the bookable slots for one event
// type on one day.
func (s *Server) handleSlotsAPI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, date, err := parseSlotQuery(q.Get("eventTypeId"), q.Get("date"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	slots, err := s.flow.SlotsFor(r.Context(), id, date)
	switch {
	case errors.Is(err, workflow.ErrDateNotSelectable):
		s.writeJSON(w, http.StatusBadRequest, "Date is not selectable", nil)
		return
	case errors.Is(err, booking.ErrEventNotFound):
		s.writeJSON(w, http.StatusNotFound, "Event type not found", nil)
		return
	case err != nil:
		s.writeJSON(w, gatewayStatus(err), "Failed to load event types", nil)
		return
	}

	s.writeJSON(w, http.StatusOK, "Slots generated", struct {
		Date  string             `json:"date"`
		Slots []booking.TimeSlot `json:"slots"`
	}{Date: date.Format("2006-01-02"), Slots: slots})
}

// gatewayStatus maps a remote failure kind to the status this console
// reports for it.
func gatewayStatus(err error) int {
	if calcom.KindOf(err) == calcom.KindNetwork {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
