package api

import (
	"net/http"

	"github.com/garnizeh/timesheet/internal/timesheet"
)

type ShiftsHandler struct {
	svc *timesheet.Service
}

func NewShiftsHandler(svc *timesheet.Service) *ShiftsHandler {
	return &ShiftsHandler{svc: svc}
}

// Month serves the month screen: ?month=YYYY-MM&job_id=N.
func (h *ShiftsHandler) Month(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	m, ok := monthParam(w, r)
	if !ok {
		return
	}
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.svc.MonthView(r.Context(), userID, m, jobID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, view, http.StatusOK)
}

func (h *ShiftsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	m, ok := monthParam(w, r)
	if !ok {
		return
	}
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	cal, err := h.svc.Calendar(r.Context(), userID, m, jobID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cal, http.StatusOK)
}

func (h *ShiftsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in timesheet.ShiftInput
	if !decodeValid(w, r, "shift", &in) {
		return
	}
	sh, err := h.svc.CreateShift(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sh, http.StatusCreated)
}

func (h *ShiftsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sh, err := h.svc.GetShift(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sh, http.StatusOK)
}

func (h *ShiftsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in timesheet.ShiftInput
	if !decodeValid(w, r, "shift", &in) {
		return
	}
	sh, err := h.svc.UpdateShift(r.Context(), userID, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sh, http.StatusOK)
}

func (h *ShiftsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteShift(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
