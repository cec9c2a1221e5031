package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/activity24/pkg/activity"
	"github.com/platinummonkey/activity24/pkg/httputil"
)

// UsersResponse is the body of GET /api/v1/activity/users
type UsersResponse struct {
	UsersTotal int                   `json:"users_total"`
	Users      []activity.DisplayRow `json:"users"`
}

// GuestsResponse is the body of GET /api/v1/activity/guests
type GuestsResponse struct {
	Guests int64 `json:"guests"`
}

// getActivity handles GET /api/v1/activity
func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	payload, err := s.aggregates.Snapshot(r.Context())
	if err != nil {
		s.writeAggregateError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, payload)
}

// getActiveUsers handles GET /api/v1/activity/users
func (s *Server) getActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.aggregates.GetActiveUsers(r.Context(), s.clock.Now())
	if err != nil {
		s.writeAggregateError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, UsersResponse{
		UsersTotal: len(users),
		Users:      activity.DisplayRows(users, s.format),
	})
}

// getSummary handles GET /api/v1/activity/summary
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.aggregates.GetActivitySummary(r.Context(), s.clock.Now())
	if err != nil {
		s.writeAggregateError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, summary)
}

// getGuests handles GET /api/v1/activity/guests
func (s *Server) getGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := s.aggregates.GetGuestCount(r.Context(), s.clock.Now())
	if err != nil {
		s.writeAggregateError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, GuestsResponse{Guests: guests})
}

// refresh handles POST /api/v1/activity/refresh
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.aggregates.Refresh(r.Context()); err != nil {
		s.writeAggregateError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) writeAggregateError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	s.logger.WithError(err).WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": httputil.GetRequestID(r.Context()),
	}).Warn("Activity aggregate unavailable")

	httputil.WriteJSON(w, status, httputil.ErrorResponse{
		Error:     http.StatusText(status),
		RequestID: httputil.GetRequestID(r.Context()),
	})
}

// StatusForError maps an aggregate error to an HTTP status code
func StatusForError(err error) int {
	switch {
	case errors.Is(err, activity.ErrDataSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, activity.ErrDataSourceMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
