package api

import (
	"net/http"

	"github.com/garnizeh/timesheet/internal/timesheet"
)

type ProfileHandler struct {
	svc *timesheet.Service
}

func NewProfileHandler(svc *timesheet.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

type profileRequest struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeValid(w, r, "profile", &req) {
		return
	}
	p, err := h.svc.SaveProfile(r.Context(), userID, req.GivenName, req.FamilyName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}
