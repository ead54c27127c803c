package attendance

import (
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/facematch"
)

// Subject is an enrolled person as seen by callers of the engine.
type Subject struct {
	ID          int64     `json:"id"`
	RollNumber  string    `json:"roll_number"`
	Name        string    `json:"name"`
	HasEncoding bool      `json:"has_encoding"`
	ImagePath   string    `json:"image_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func subjectFromStored(s database.StoredSubject) Subject {
	return Subject{
		ID:          s.ID,
		RollNumber:  s.RollNumber,
		Name:        s.Name,
		HasEncoding: s.HasEncoding(),
		ImagePath:   s.ImagePath,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// NewSubject is the input of AddSubject. Image is optional.
type NewSubject struct {
	RollNumber string `json:"roll_number" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=255"`
	Image      []byte `json:"-"`
}

// SubjectUpdate changes roll number and/or name. Nil fields are left unchanged.
type SubjectUpdate struct {
	RollNumber *string `json:"roll_number,omitempty" validate:"omitempty,min=1,max=64"`
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
}

// Record is an attendance record joined with its subject.
type Record struct {
	ID         int64           `json:"id"`
	SubjectID  int64           `json:"subject_id"`
	RollNumber string          `json:"roll_number"`
	Name       string          `json:"name"`
	Date       string          `json:"date"`
	Time       string          `json:"time"`
	Status     database.Status `json:"status"`
}

func recordFromView(v database.RecordView) Record {
	return Record{
		ID:         v.ID,
		SubjectID:  v.SubjectID,
		RollNumber: v.RollNumber,
		Name:       v.Name,
		Date:       v.Date,
		Time:       v.Time,
		Status:     v.Status,
	}
}

// Reasons reported when a mark attempt does not resolve to a subject.
const (
	ReasonNotFound       = "not_found"
	ReasonAmbiguousName  = "ambiguous_name"
	ReasonNoFaceDetected = "no_face_detected"
	ReasonNoMatch        = "no_match"
)

// MarkResult is the outcome of marking one subject.
type MarkResult struct {
	Marked  bool     `json:"marked"`  // subject is Present today after the call
	Created bool     `json:"created"` // this call wrote the record
	Subject *Subject `json:"subject,omitempty"`
	Record  *Record  `json:"record,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Query   string   `json:"query,omitempty"` // name passed to MarkByName or MarkMany
}

// FaceOutcome is the recognition (and optional marking) result for one detected face.
type FaceOutcome struct {
	Index    int                `json:"face_index"`
	BBox     []float64          `json:"bbox"`
	Decision facematch.Decision `json:"decision"`
	Distance *float64           `json:"distance,omitempty"`
	Subject  *Subject           `json:"subject,omitempty"`
	Marked   bool               `json:"marked"`
	Created  bool               `json:"created"`
}

// SnapshotResult is the outcome of MarkFromSnapshot or Recognize.
type SnapshotResult struct {
	// Marked is true when at least one face resolved to a subject that is now Present.
	Marked bool          `json:"marked"`
	Reason string        `json:"reason,omitempty"`
	Faces  []FaceOutcome `json:"faces"`
}

// SubjectPercentage is one row of CalculateAttendancePercentage.
type SubjectPercentage struct {
	SubjectID   int64   `json:"subject_id"`
	RollNumber  string  `json:"roll_number"`
	Name        string  `json:"name"`
	PresentDays int     `json:"present_days"`
	SessionDays int     `json:"session_days"`
	Percentage  float64 `json:"percentage"`
}

// TodayStatus is a subject's effective status for the current day.
type TodayStatus struct {
	SubjectID  int64           `json:"id"`
	RollNumber string          `json:"roll_number"`
	Name       string          `json:"name"`
	Status     database.Status `json:"status"`
}

// Dashboard aggregates percentages and today's statuses.
type Dashboard struct {
	Date            string              `json:"date"`
	AttendanceData  []SubjectPercentage `json:"attendance_data"`
	TodayAttendance []TodayStatus       `json:"today_attendance"`
	TotalSubjects   int                 `json:"total_students"`
}

// Report aggregates percentages and the most recent records.
type Report struct {
	AttendanceData []SubjectPercentage `json:"attendance_data"`
	RecentRecords  []Record            `json:"recent_records"`
}

// ConfusablePair is two enrolled subjects whose encodings are close enough to be mixed up.
type ConfusablePair struct {
	A        Subject `json:"a"`
	B        Subject `json:"b"`
	Distance float64 `json:"distance"`
}
