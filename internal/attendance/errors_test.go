package attendance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kozaktomas/roll-call/internal/database"
)

func TestStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", database.ErrNotFound, KindNotFound},
		{"wrapped not found", fmt.Errorf("get subject 7: %w", database.ErrNotFound), KindNotFound},
		{"duplicate", database.ErrDuplicate, KindDuplicateRoll},
		{"transient", database.ErrTransient, KindStorage},
		{"other", errors.New("disk full"), KindStorage},
		{"already tagged", newError(KindExport, "ExportToCSV", "write csv", nil), KindExport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storageError("Op", tt.err)
			if KindOf(got) != tt.want {
				t.Errorf("KindOf() = %q, want %q", KindOf(got), tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("storageError() lost the cause %v", tt.err)
			}
		})
	}

	if storageError("Op", nil) != nil {
		t.Error("storageError(nil) should be nil")
	}
}

func TestErrorMessage(t *testing.T) {
	err := newError(KindStorage, "MarkByID", "storage error", errors.New("database is locked"))
	if got, want := err.Error(), "MarkByID: storage error: database is locked"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &Error{Kind: KindNoMatch}
	if got := bare.Error(); got != "no_match" {
		t.Errorf("Error() = %q, want %q", got, "no_match")
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("handler: %w", newError(KindDuplicateRoll, "AddSubject", "", nil))
	if !errors.Is(err, ErrDuplicateRoll) {
		t.Error("expected errors.Is to match ErrDuplicateRoll")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect errors.Is to match ErrNotFound")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf of an untagged error should be empty")
	}
}
