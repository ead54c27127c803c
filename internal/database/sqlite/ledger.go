package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
)

// EffectiveStatus returns the status of the latest record for (subject, date).
func (s *Store) EffectiveStatus(ctx context.Context, subjectID int64, date string) (database.Status, bool, error) {
	var status database.Status
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM attendance
		WHERE subject_id = ? AND date = ?
		ORDER BY id DESC
		LIMIT 1
	`, subjectID, date).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query effective status: %w", classify(err))
	}
	return status, true, nil
}

// EffectiveStatuses returns the latest status per subject on date.
func (s *Store) EffectiveStatuses(ctx context.Context, date string) (map[int64]database.Status, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.subject_id, a.status
		FROM attendance a
		WHERE a.date = ?
		  AND a.id = (SELECT MAX(b.id) FROM attendance b WHERE b.subject_id = a.subject_id AND b.date = a.date)
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query effective statuses: %w", classify(err))
	}
	defer rows.Close()

	result := make(map[int64]database.Status)
	for rows.Next() {
		var id int64
		var status database.Status
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		result[id] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", classify(err))
	}
	return result, nil
}

// ListRecords returns records joined with subjects, newest first.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]database.RecordView, error) {
	query := `
		SELECT a.id, a.subject_id, a.date, a.time, a.status,
		       COALESCE(s.roll_number, ''), COALESCE(s.name, '')
		FROM attendance a
		LEFT JOIN subjects s ON s.id = a.subject_id
		ORDER BY a.date DESC, a.time DESC, a.id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", classify(err))
	}
	defer rows.Close()

	var views []database.RecordView
	for rows.Next() {
		var v database.RecordView
		if err := rows.Scan(&v.ID, &v.SubjectID, &v.Date, &v.Time, &v.Status, &v.RollNumber, &v.Name); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", classify(err))
	}
	return views, nil
}

// CountRecords returns the number of attendance records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance").Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", classify(err))
	}
	return count, nil
}

// SessionDays returns the number of distinct dates with any record.
func (s *Store) SessionDays(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT date) FROM attendance").Scan(&count); err != nil {
		return 0, fmt.Errorf("count session days: %w", classify(err))
	}
	return count, nil
}

// PresentDays returns the number of distinct Present dates per subject.
func (s *Store) PresentDays(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_id, COUNT(DISTINCT date)
		FROM attendance
		WHERE status = 'Present'
		GROUP BY subject_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query present days: %w", classify(err))
	}
	defer rows.Close()

	result := make(map[int64]int)
	for rows.Next() {
		var id int64
		var days int
		if err := rows.Scan(&id, &days); err != nil {
			return nil, fmt.Errorf("scan present days: %w", err)
		}
		result[id] = days
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate present days: %w", classify(err))
	}
	return result, nil
}

func findPresent(ctx context.Context, tx *sql.Tx, subjectID int64, date string) (database.StoredRecord, bool, error) {
	rec := database.StoredRecord{SubjectID: subjectID, Date: date, Status: database.StatusPresent}
	err := tx.QueryRowContext(ctx, `
		SELECT id, time FROM attendance
		WHERE subject_id = ? AND date = ? AND status = 'Present'
	`, subjectID, date).Scan(&rec.ID, &rec.Time)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("query present record: %w", classify(err))
	}
	return rec, true, nil
}

// MarkPresent inserts a Present record unless one exists for (subject, date).
func (s *Store) MarkPresent(ctx context.Context, subjectID int64, date, clock string) (database.MarkResult, error) {
	var result database.MarkResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, found, err := findPresent(ctx, tx, subjectID, date)
		if err != nil {
			return err
		}
		if found {
			result = database.MarkResult{Record: existing}
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (subject_id, date, time, status)
			VALUES (?, ?, ?, 'Present')
			ON CONFLICT DO NOTHING
		`, subjectID, date, clock)
		if err != nil {
			return fmt.Errorf("insert attendance: %w", classify(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			existing, _, err := findPresent(ctx, tx, subjectID, date)
			if err != nil {
				return err
			}
			result = database.MarkResult{Record: existing}
			return nil
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert attendance: %w", err)
		}
		result = database.MarkResult{
			Record:  database.StoredRecord{ID: id, SubjectID: subjectID, Date: date, Time: clock, Status: database.StatusPresent},
			Created: true,
		}
		return nil
	})
	if err != nil {
		return database.MarkResult{}, err
	}
	return result, nil
}

var _ database.Store = (*Store)(nil)
