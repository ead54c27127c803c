package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/constants"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// imageField is the multipart field carrying snapshots and enrollment photos.
const imageField = "image"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForKind maps engine error kinds to HTTP status codes.
func statusForKind(kind attendance.Kind) int {
	switch kind {
	case attendance.KindInvalidInput:
		return http.StatusBadRequest
	case attendance.KindNotFound:
		return http.StatusNotFound
	case attendance.KindDuplicateRoll:
		return http.StatusConflict
	case attendance.KindNoFaceDetected, attendance.KindNoMatch:
		return http.StatusUnprocessableEntity
	case attendance.KindStorage:
		return http.StatusServiceUnavailable
	case attendance.KindExport:
		return http.StatusInternalServerError
	default:
		// Untagged errors come from the face encoder.
		return http.StatusBadGateway
	}
}

// respondServiceError translates an engine error into a JSON error response.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := attendance.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", string(kind), "error", err)
	}

	message := err.Error()
	var tagged *attendance.Error
	if errors.As(err, &tagged) && tagged.Message != "" {
		message = tagged.Message
	}
	if kind == "" {
		kind = "encoder_unavailable"
	}
	respondJSON(w, status, map[string]string{"error": message, "kind": string(kind)})
}

// decodeJSON decodes a size-limited JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	return json.NewDecoder(r.Body).Decode(v)
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readImage returns the uploaded image from the multipart form.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	file, _, err := r.FormFile(imageField)
	if err != nil {
		return nil, fmt.Errorf("missing %q file", imageField)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}
	return data, nil
}

// parseID reads the numeric {id} URL parameter.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
