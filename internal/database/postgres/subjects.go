package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/pgvector/pgvector-go"
)

const subjectColumns = `id, roll_number, name, encoding, image_path, created_at, updated_at`

func scanSubject(scanner interface{ Scan(...any) error }) (database.StoredSubject, error) {
	var s database.StoredSubject
	var vec sql.Null[pgvector.Vector]
	if err := scanner.Scan(&s.ID, &s.RollNumber, &s.Name, &vec, &s.ImagePath, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return s, err
	}
	if vec.Valid {
		s.Encoding = vec.V.Slice()
	}
	return s, nil
}

// GetSubject retrieves a subject by ID.
func (p *Pool) GetSubject(ctx context.Context, id int64) (*database.StoredSubject, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
	s, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subject %d: %w", id, classify(err))
	}
	return &s, nil
}

// ListSubjects returns all subjects ordered by ID.
func (p *Pool) ListSubjects(ctx context.Context) ([]database.StoredSubject, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", classify(err))
	}
	defer rows.Close()

	var subjects []database.StoredSubject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", classify(err))
	}
	return subjects, nil
}

// CountSubjects returns the number of subjects.
func (p *Pool) CountSubjects(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subjects").Scan(&count); err != nil {
		return 0, fmt.Errorf("count subjects: %w", classify(err))
	}
	return count, nil
}

// Encodings returns the encodings of all enrolled subjects.
func (p *Pool) Encodings(ctx context.Context) (map[int64][]float32, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT id, encoding FROM subjects WHERE encoding IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("query encodings: %w", classify(err))
	}
	defer rows.Close()

	result := make(map[int64][]float32)
	for rows.Next() {
		var id int64
		var vec pgvector.Vector
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, fmt.Errorf("scan encoding: %w", err)
		}
		result[id] = vec.Slice()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate encodings: %w", classify(err))
	}
	return result, nil
}

func nullVector(encoding []float32) any {
	if len(encoding) == 0 {
		return nil
	}
	return pgvector.NewVector(encoding)
}

// CreateSubject inserts a subject.
func (p *Pool) CreateSubject(ctx context.Context, s *database.StoredSubject) error {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO subjects (roll_number, name, encoding, image_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, s.RollNumber, s.Name, nullVector(s.Encoding), s.ImagePath).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subject: %w", classify(err))
	}
	return nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// UpdateSubject changes roll number and/or name.
func (p *Pool) UpdateSubject(ctx context.Context, id int64, rollNumber, name *string) (*database.StoredSubject, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE subjects
		SET roll_number = COALESCE($2, roll_number),
		    name = COALESCE($3, name),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+subjectColumns, id, nullString(rollNumber), nullString(name))
	s, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update subject %d: %w", id, classify(err))
	}
	return &s, nil
}

// SetEncoding replaces the subject's encoding and enrollment image.
func (p *Pool) SetEncoding(ctx context.Context, id int64, encoding []float32, imagePath string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE subjects SET encoding = $2, image_path = $3, updated_at = NOW() WHERE id = $1
	`, id, nullVector(encoding), imagePath)
	if err != nil {
		return fmt.Errorf("set encoding for subject %d: %w", id, classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteSubject removes attendance records first, then the subject.
func (p *Pool) DeleteSubject(ctx context.Context, id int64) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE subject_id = $1", id); err != nil {
			return fmt.Errorf("delete attendance for subject %d: %w", id, classify(err))
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM subjects WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete subject %d: %w", id, classify(err))
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}
