package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/garnizeh/timesheet/internal/report"
	"github.com/garnizeh/timesheet/internal/timesheet"
)

type ReportsHandler struct {
	svc *timesheet.Service
}

func NewReportsHandler(svc *timesheet.Service) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

type exportRequest struct {
	JobID int64  `json:"job_id"`
	Month string `json:"month"`
}

func attachment(w http.ResponseWriter, name string, size int) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.Itoa(size))
	}
}

// Get serves ?job_id=N&month=YYYY-MM&format=json|pdf. The PDF is rendered
// into memory first so that a failed report still gets a JSON error.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	if jobID == nil {
		writeError(w, "job_id is required", http.StatusBadRequest)
		return
	}
	m, ok := monthParam(w, r)
	if !ok {
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		doc, err := h.svc.BuildReport(r.Context(), userID, *jobID, m)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, doc, http.StatusOK)
	case "pdf":
		var buf bytes.Buffer
		doc, err := h.svc.RenderReport(r.Context(), userID, *jobID, m, &buf)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		attachment(w, report.FileName(doc), buf.Len())
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Warn("write report", slog.Any("err", err))
		}
	default:
		writeError(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
	}
}

func (h *ReportsHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req exportRequest
	if !decodeValid(w, r, "export", &req) {
		return
	}
	m, err := timesheet.ParseMonth(req.Month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	e, err := h.svc.RequestExport(r.Context(), userID, req.JobID, m)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/reports/exports/%d", e.ID))
	writeJSON(w, e, http.StatusAccepted)
}

func (h *ReportsHandler) ExportStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.ExportStatus(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, e, http.StatusOK)
}

func (h *ReportsHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, name, err := h.svc.OpenExport(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	size := -1
	if st, err := f.Stat(); err == nil {
		size = int(st.Size())
	}
	attachment(w, name, size)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		logger.Warn("write export", slog.Int64("task_id", id), slog.Any("err", err))
	}
}
