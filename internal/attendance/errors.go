package attendance

import (
	"errors"
	"strings"

	"github.com/kozaktomas/roll-call/internal/database"
)

// Kind classifies engine errors for callers and transports.
type Kind string

const (
	KindDuplicateRoll  Kind = "duplicate_roll"
	KindNotFound       Kind = "not_found"
	KindNoFaceDetected Kind = "no_face_detected"
	KindNoMatch        Kind = "no_match"
	KindExport         Kind = "export_failed"
	KindStorage        Kind = "storage"
	KindInvalidInput   Kind = "invalid_input"
)

// Error is the tagged error returned by Service methods.
type Error struct {
	Kind    Kind
	Op      string // Service method, e.g. "AddSubject"
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrDuplicateRoll  = &Error{Kind: KindDuplicateRoll, Message: "roll number already exists"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "subject not found"}
	ErrNoFaceDetected = &Error{Kind: KindNoFaceDetected, Message: "no face detected"}
	ErrNoMatch        = &Error{Kind: KindNoMatch, Message: "no acceptable match"}
	ErrExport         = &Error{Kind: KindExport, Message: "export failed"}
	ErrStorage        = &Error{Kind: KindStorage, Message: "storage unavailable"}
	ErrInvalidInput   = &Error{Kind: KindInvalidInput, Message: "invalid input"}
)

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// storageError tags a backend error, keeping NotFound and DuplicateRoll distinct.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	switch {
	case errors.Is(err, database.ErrNotFound):
		return newError(KindNotFound, op, "subject not found", err)
	case errors.Is(err, database.ErrDuplicate):
		return newError(KindDuplicateRoll, op, "roll number already exists", err)
	default:
		return newError(KindStorage, op, "storage error", err)
	}
}
