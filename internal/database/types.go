package database

import (
	"time"
)

// Status is the attendance state recorded for a subject on a date
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Layouts used for the date and time columns of attendance records
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// StoredSubject represents an enrolled subject stored in the database
type StoredSubject struct {
	ID         int64
	RollNumber string
	Name       string
	Encoding   []float32 // nil until a face has been enrolled
	ImagePath  string    // enrollment image on disk (empty without enrollment)
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasEncoding reports whether the subject can be matched
func (s StoredSubject) HasEncoding() bool {
	return len(s.Encoding) > 0
}

// StoredRecord represents a single attendance ledger row
type StoredRecord struct {
	ID        int64
	SubjectID int64
	Date      string // YYYY-MM-DD
	Time      string // HH:MM:SS
	Status    Status
}

// RecordView is a ledger row joined with the subject's roll number and name
type RecordView struct {
	StoredRecord
	RollNumber string
	Name       string
}

// MarkResult describes the outcome of a dedup write
type MarkResult struct {
	Record  StoredRecord
	Created bool // false when the subject was already Present on the date
}
