package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kozaktomas/roll-call/internal/attendance"
)

// ReportsHandler serves the dashboard, reports, export and gallery audit.
type ReportsHandler struct {
	svc    *attendance.Service
	logger *slog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(svc *attendance.Service, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{svc: svc, logger: logger}
}

// Dashboard returns percentages, today's statuses and the student count.
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.svc.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

// Reports returns percentages and recent records. ?limit= overrides the record count.
func (h *ReportsHandler) Reports(w http.ResponseWriter, r *http.Request) {
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		data, err := h.svc.CalculateAttendancePercentage(r.Context())
		if err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
		recent, err := h.svc.RecentRecords(r.Context(), limit)
		if err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, attendance.Report{AttendanceData: data, RecentRecords: recent})
		return
	}

	rep, err := h.svc.Report(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// Export writes a CSV file into the export directory and returns its path.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	path, err := h.svc.ExportToCSV(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"file": path})
}

// Download streams the ledger as a CSV attachment.
func (h *ReportsHandler) Download(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.svc.WriteCSV(r.Context(), &buf); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Audit lists enrolled students who are easy to confuse with each other.
func (h *ReportsHandler) Audit(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.svc.AuditGallery(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"threshold": h.svc.Matcher().Threshold,
		"margin":    h.svc.Matcher().Margin,
		"pairs":     pairs,
	})
}
