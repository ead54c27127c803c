package database

import (
	"context"
)

// SubjectReader provides read-only access to enrolled subjects
type SubjectReader interface {
	// GetSubject retrieves a subject by ID, returns ErrNotFound if it does not exist
	GetSubject(ctx context.Context, id int64) (*StoredSubject, error)
	// ListSubjects returns all subjects ordered by ID ascending
	ListSubjects(ctx context.Context) ([]StoredSubject, error)
	// CountSubjects returns the number of enrolled subjects
	CountSubjects(ctx context.Context) (int, error)
	// Encodings returns the encoding of every subject that has one, keyed by subject ID.
	// Always reads committed state; implementations must not cache.
	Encodings(ctx context.Context) (map[int64][]float32, error)
}

// SubjectWriter provides write access to enrolled subjects
type SubjectWriter interface {
	SubjectReader

	// CreateSubject inserts a subject and fills in its ID and timestamps.
	// Returns ErrDuplicate when the roll number is already taken.
	CreateSubject(ctx context.Context, s *StoredSubject) error

	// UpdateSubject changes roll number and/or name; nil fields are left untouched.
	// The encoding is never modified by this path.
	UpdateSubject(ctx context.Context, id int64, rollNumber, name *string) (*StoredSubject, error)

	// SetEncoding replaces the subject's encoding and enrollment image path
	SetEncoding(ctx context.Context, id int64, encoding []float32, imagePath string) error

	// DeleteSubject removes the subject and all of its attendance records in one transaction
	DeleteSubject(ctx context.Context, id int64) error
}

// LedgerReader provides read-only access to attendance records
type LedgerReader interface {
	// EffectiveStatus returns the status of the most recent record for (subject, date).
	// ok is false when the pair has no record.
	EffectiveStatus(ctx context.Context, subjectID int64, date string) (status Status, ok bool, err error)
	// EffectiveStatuses returns the effective status of every subject with a record on date
	EffectiveStatuses(ctx context.Context, date string) (map[int64]Status, error)
	// ListRecords returns records joined with subjects, ordered by date desc, time desc, id desc.
	// limit <= 0 returns all records.
	ListRecords(ctx context.Context, limit int) ([]RecordView, error)
	// CountRecords returns the total number of attendance records
	CountRecords(ctx context.Context) (int, error)
	// SessionDays returns the number of distinct dates with any record
	SessionDays(ctx context.Context) (int, error)
	// PresentDays returns, per subject, the number of distinct dates with a Present record
	PresentDays(ctx context.Context) (map[int64]int, error)
}

// LedgerWriter provides write access to attendance records
type LedgerWriter interface {
	LedgerReader

	// MarkPresent records the subject as Present on date unless it already is.
	// The check and the insert run in a single transaction; a unique-index
	// conflict is reported as Created == false.
	MarkPresent(ctx context.Context, subjectID int64, date, clock string) (MarkResult, error)
}

// Store is a storage backend holding both subjects and the attendance ledger
type Store interface {
	SubjectWriter
	LedgerWriter

	// Migrate creates or upgrades the schema; safe to call on every start
	Migrate(ctx context.Context) error
	// Close releases the underlying connection pool
	Close() error
}
