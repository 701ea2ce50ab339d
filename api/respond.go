package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/gorilla/mux"

	"github.com/garnizeh/timesheet/internal/report"
	"github.com/garnizeh/timesheet/internal/timesheet"
	"github.com/garnizeh/timesheet/pkg/repository"
)

type errorResponse struct {
	Error     string `json:"error"`
	LastError string `json:"last_error,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, errorResponse{Error: msg}, status)
}

// writeServiceError maps domain errors to HTTP statuses. Anything unknown is
// logged and reported as a 500 without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var failed *timesheet.ExportFailedError
	switch {
	case errors.Is(err, timesheet.ErrInvalidShift),
		errors.Is(err, timesheet.ErrInvalidJob),
		errors.Is(err, timesheet.ErrInvalidMonth):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, timesheet.ErrNotFound):
		writeError(w, "not found", http.StatusNotFound)
	case errors.As(err, &failed):
		writeJSON(w, errorResponse{Error: "export failed", LastError: failed.Reason}, http.StatusUnprocessableEntity)
	case errors.Is(err, timesheet.ErrNotReady):
		writeError(w, "export is not ready yet", http.StatusConflict)
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, "already exists", http.StatusConflict)
	case errors.Is(err, report.ErrNoData):
		writeError(w, "no shifts to include in the report for this period", http.StatusUnprocessableEntity)
	case errors.Is(err, report.ErrJobMismatch):
		writeError(w, "shifts belong to different jobs", http.StatusUnprocessableEntity)
	case errors.Is(err, report.ErrCannotGenerate):
		writeError(w, "the report cannot be generated", http.StatusUnprocessableEntity)
	case errors.Is(err, timesheet.ErrTasksUnavailable):
		writeError(w, "exports are unavailable", http.StatusServiceUnavailable)
	default:
		logger.Error("request failed",
			slog.Any("err", err),
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestIDFromContext(r.Context())),
		)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// currentUser writes a 401 and returns false when the request carries no user.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func monthParam(w http.ResponseWriter, r *http.Request) (timesheet.Month, bool) {
	s := r.URL.Query().Get("month")
	if s == "" {
		now := time.Now()
		return timesheet.Month{Year: now.Year(), Month: now.Month()}, true
	}
	m, err := timesheet.ParseMonth(s)
	if err != nil {
		writeError(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
		return timesheet.Month{}, false
	}
	return m, true
}

// jobIDParam reads an optional ?job_id=N.
func jobIDParam(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	s := r.URL.Query().Get("job_id")
	if s == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "invalid job_id", http.StatusBadRequest)
		return nil, false
	}
	return &id, true
}
