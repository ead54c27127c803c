package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
)

const subjectColumns = `id, roll_number, name, encoding, image_path, created_at, updated_at`

func scanSubject(scanner interface{ Scan(...any) error }) (database.StoredSubject, error) {
	var s database.StoredSubject
	var blob []byte
	if err := scanner.Scan(&s.ID, &s.RollNumber, &s.Name, &blob, &s.ImagePath, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return s, err
	}
	enc, err := decodeVector(blob)
	if err != nil {
		return s, fmt.Errorf("subject %d: %w", s.ID, err)
	}
	s.Encoding = enc
	return s, nil
}

// GetSubject retrieves a subject by ID.
func (s *Store) GetSubject(ctx context.Context, id int64) (*database.StoredSubject, error) {
	return s.getSubject(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getSubject(ctx context.Context, q queryRower, id int64) (*database.StoredSubject, error) {
	subj, err := scanSubject(q.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subject %d: %w", id, classify(err))
	}
	return &subj, nil
}

// ListSubjects returns all subjects ordered by ID.
func (s *Store) ListSubjects(ctx context.Context) ([]database.StoredSubject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", classify(err))
	}
	defer rows.Close()

	var subjects []database.StoredSubject
	for rows.Next() {
		subj, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", classify(err))
	}
	return subjects, nil
}

// CountSubjects returns the number of subjects.
func (s *Store) CountSubjects(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subjects").Scan(&count); err != nil {
		return 0, fmt.Errorf("count subjects: %w", classify(err))
	}
	return count, nil
}

// Encodings returns the encodings of all enrolled subjects.
func (s *Store) Encodings(ctx context.Context) (map[int64][]float32, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, encoding FROM subjects WHERE encoding IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("query encodings: %w", classify(err))
	}
	defer rows.Close()

	result := make(map[int64][]float32)
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan encoding: %w", err)
		}
		enc, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("subject %d: %w", id, err)
		}
		if len(enc) > 0 {
			result[id] = enc
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate encodings: %w", classify(err))
	}
	return result, nil
}

// CreateSubject inserts a subject.
func (s *Store) CreateSubject(ctx context.Context, subj *database.StoredSubject) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO subjects (roll_number, name, encoding, image_path) VALUES (?, ?, ?, ?)`,
			subj.RollNumber, subj.Name, encodeVector(subj.Encoding), subj.ImagePath)
		if err != nil {
			return fmt.Errorf("insert subject: %w", classify(err))
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert subject: %w", err)
		}
		stored, err := s.getSubject(ctx, tx, id)
		if err != nil {
			return err
		}
		subj.ID = stored.ID
		subj.CreatedAt = stored.CreatedAt
		subj.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// UpdateSubject changes roll number and/or name.
func (s *Store) UpdateSubject(ctx context.Context, id int64, rollNumber, name *string) (*database.StoredSubject, error) {
	var updated *database.StoredSubject
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE subjects
			SET roll_number = COALESCE(?, roll_number),
			    name = COALESCE(?, name),
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, nullString(rollNumber), nullString(name), id)
		if err != nil {
			return fmt.Errorf("update subject %d: %w", id, classify(err))
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}
		updated, err = s.getSubject(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetEncoding replaces the subject's encoding and enrollment image.
func (s *Store) SetEncoding(ctx context.Context, id int64, encoding []float32, imagePath string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE subjects SET encoding = ?, image_path = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		encodeVector(encoding), imagePath, id)
	if err != nil {
		return fmt.Errorf("set encoding for subject %d: %w", id, classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteSubject removes attendance records first, then the subject.
func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE subject_id = ?", id); err != nil {
			return fmt.Errorf("delete attendance for subject %d: %w", id, classify(err))
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM subjects WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete subject %d: %w", id, classify(err))
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}
