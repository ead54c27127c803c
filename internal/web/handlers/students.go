package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kozaktomas/roll-call/internal/attendance"
)

// StudentsHandler serves the enrolled subject gallery.
type StudentsHandler struct {
	svc    *attendance.Service
	logger *slog.Logger
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(svc *attendance.Service, logger *slog.Logger) *StudentsHandler {
	return &StudentsHandler{svc: svc, logger: logger}
}

type createStudentRequest struct {
	RollNumber string `json:"roll_number"`
	Name       string `json:"name"`
}

// List returns all students ordered by id.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.svc.ListSubjects(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, subjects)
}

// Get returns a single student.
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	subj, err := h.svc.GetSubject(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, subj)
}

// Create adds a student. A JSON body creates it without an encoding; a
// multipart form with roll_number, name and image enrolls it at once.
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in attendance.NewSubject
	if isMultipart(r) {
		image, err := readImage(w, r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		in = attendance.NewSubject{
			RollNumber: r.FormValue("roll_number"),
			Name:       r.FormValue("name"),
			Image:      image,
		}
	} else {
		var req createStudentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		in = attendance.NewSubject{RollNumber: req.RollNumber, Name: req.Name}
	}

	subj, err := h.svc.AddSubject(r.Context(), in)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, subj)
}

// Update changes roll number and/or name.
func (h *StudentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var upd attendance.SubjectUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	subj, err := h.svc.UpdateSubject(r.Context(), id, upd)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, subj)
}

// Delete removes a student and their attendance records.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.RemoveSubject(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Enroll replaces a student's face encoding from an uploaded image.
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	image, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	subj, err := h.svc.Enroll(r.Context(), id, image)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, subj)
}
