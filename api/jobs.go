package api

import (
	"net/http"

	"github.com/garnizeh/timesheet/internal/timesheet"
	"github.com/garnizeh/timesheet/pkg/repository"
)

type JobsHandler struct {
	svc *timesheet.Service
}

func NewJobsHandler(svc *timesheet.Service) *JobsHandler {
	return &JobsHandler{svc: svc}
}

type jobRequest struct {
	Name string `json:"name"`
}

// List accepts ?order=name (default) or ?order=created.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	order := repository.JobsByName
	switch r.URL.Query().Get("order") {
	case "", "name":
	case "created":
		order = repository.JobsNewestFirst
	default:
		writeError(w, "invalid order, expected name or created", http.StatusBadRequest)
		return
	}

	jobs, err := h.svc.ListJobs(r.Context(), userID, order)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, jobs, http.StatusOK)
}

func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req jobRequest
	if !decodeValid(w, r, "job", &req) {
		return
	}
	job, err := h.svc.CreateJob(r.Context(), userID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, job, http.StatusCreated)
}

func (h *JobsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req jobRequest
	if !decodeValid(w, r, "job", &req) {
		return
	}
	job, err := h.svc.RenameJob(r.Context(), userID, id, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, job, http.StatusOK)
}

// Delete removes the job together with its shifts.
func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteJob(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
