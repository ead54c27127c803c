package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kozaktomas/roll-call/internal/attendance"
)

// AttendanceHandler serves marking and recognition endpoints.
type AttendanceHandler struct {
	svc      *attendance.Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(svc *attendance.Service, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		svc:      svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// markRequest identifies the subject by name, id or a base64 encoded snapshot.
type markRequest struct {
	Name  string `json:"name" validate:"required_without_all=ID Image"`
	ID    int64  `json:"id" validate:"omitempty,gt=0"`
	Image []byte `json:"image"`
}

type markMultipleRequest struct {
	Names []string `json:"names" validate:"required,min=1,max=500,dive,required"`
}

// MarkResponse is returned by Mark for name and id requests.
type MarkResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	attendance.MarkResult
}

func markMessage(res attendance.MarkResult) string {
	switch {
	case res.Created:
		return "Attendance marked"
	case res.Marked:
		return "Already marked present today"
	default:
		return "Failed to mark attendance"
	}
}

// List returns the full ledger joined with student names.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListAttendance(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// Mark marks attendance from a name, an id or a snapshot. Unresolved
// identities are reported with success=false and a reason, not as errors.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		image, err := readImage(w, r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.markSnapshot(w, r, image)
		return
	}

	var req markRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "one of name, id or image is required")
		return
	}
	if len(req.Image) > 0 {
		h.markSnapshot(w, r, req.Image)
		return
	}

	var (
		res attendance.MarkResult
		err error
	)
	if req.ID > 0 {
		res, err = h.svc.MarkByID(r.Context(), req.ID)
	} else {
		res, err = h.svc.MarkByName(r.Context(), req.Name)
	}
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if !res.Marked {
		h.logger.Info("attendance not marked", "query", sanitizeForLog(req.Name), "id", req.ID, "reason", res.Reason)
	}
	respondJSON(w, http.StatusOK, MarkResponse{Success: res.Marked, Message: markMessage(res), MarkResult: res})
}

func (h *AttendanceHandler) markSnapshot(w http.ResponseWriter, r *http.Request, image []byte) {
	res, err := h.svc.MarkFromSnapshot(r.Context(), image)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// MarkMultiple marks a list of names. Each name gets its own result.
func (h *AttendanceHandler) MarkMultiple(w http.ResponseWriter, r *http.Request) {
	var req markMultipleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "names must be a non-empty list of names")
		return
	}

	results, err := h.svc.MarkMany(r.Context(), req.Names)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	marked := 0
	for _, res := range results {
		if res.Marked {
			marked++
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"marked":  marked,
		"total":   len(results),
		"results": results,
	})
}

// Recognize reports who is in a snapshot without marking anyone.
func (h *AttendanceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.Recognize(r.Context(), image)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
