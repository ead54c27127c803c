package attendance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/metrics"
)

// Mark sources used for metrics and logs.
const (
	sourceName     = "name"
	sourceID       = "id"
	sourceSnapshot = "snapshot"
)

// markSubject is the single dedup path: Present today is a no-op, otherwise a
// Present record is inserted. Calls for the same subject and day are serialized.
func (s *Service) markSubject(ctx context.Context, op, source string, subj database.StoredSubject) (MarkResult, error) {
	date, clock := s.today()

	unlock := s.locks.Lock(strconv.FormatInt(subj.ID, 10) + "|" + date)
	defer unlock()

	res, err := retryValue(ctx, s, "mark_present", func() (database.MarkResult, error) {
		return s.store.MarkPresent(ctx, subj.ID, date, clock)
	})
	if err != nil {
		s.metrics.RecordMark(source, metrics.OutcomeError)
		return MarkResult{}, storageError(op, err)
	}

	outcome := metrics.OutcomeDuplicate
	if res.Created {
		outcome = metrics.OutcomeCreated
		s.logger.Info("attendance marked", "subject_id", subj.ID, "roll_number", subj.RollNumber, "date", date, "time", clock, "source", source)
	} else {
		s.logger.Debug("already present", "subject_id", subj.ID, "date", date, "source", source)
	}
	s.metrics.RecordMark(source, outcome)

	subject := subjectFromStored(subj)
	record := Record{
		ID:         res.Record.ID,
		SubjectID:  subj.ID,
		RollNumber: subj.RollNumber,
		Name:       subj.Name,
		Date:       res.Record.Date,
		Time:       res.Record.Time,
		Status:     res.Record.Status,
	}
	return MarkResult{Marked: true, Created: res.Created, Subject: &subject, Record: &record}, nil
}

func (s *Service) unresolved(source, reason, query string) MarkResult {
	s.metrics.RecordMark(source, metrics.OutcomeUnresolved)
	s.logger.Debug("mark unresolved", "source", source, "reason", reason, "query", query)
	return MarkResult{Reason: reason, Query: query}
}

// MarkByID marks the subject with the given id. Unknown ids are unresolved, not errors.
func (s *Service) MarkByID(ctx context.Context, id int64) (MarkResult, error) {
	const op = "MarkByID"
	stored, err := retryValue(ctx, s, "get_subject", func() (*database.StoredSubject, error) {
		return s.store.GetSubject(ctx, id)
	})
	if err != nil {
		if KindOf(storageError(op, err)) == KindNotFound {
			return s.unresolved(sourceID, ReasonNotFound, strconv.FormatInt(id, 10)), nil
		}
		return MarkResult{}, storageError(op, err)
	}
	return s.markSubject(ctx, op, sourceID, *stored)
}

// resolveName finds the subject a name refers to: exact name first, then the
// folded name (case, accents and separators ignored), then roll number.
// A name shared by several subjects is ambiguous and resolves to nothing.
func resolveName(subjects []database.StoredSubject, query string) (database.StoredSubject, string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return database.StoredSubject{}, ReasonNotFound
	}

	pick := func(match func(database.StoredSubject) bool) (database.StoredSubject, int) {
		var found database.StoredSubject
		n := 0
		for _, st := range subjects {
			if match(st) {
				if n == 0 {
					found = st
				}
				n++
			}
		}
		return found, n
	}

	if st, n := pick(func(st database.StoredSubject) bool { return st.Name == query }); n == 1 {
		return st, ""
	} else if n > 1 {
		return database.StoredSubject{}, ReasonAmbiguousName
	}

	normalized := foldName(query)
	if st, n := pick(func(st database.StoredSubject) bool {
		return foldName(st.Name) == normalized
	}); n == 1 {
		return st, ""
	} else if n > 1 {
		return database.StoredSubject{}, ReasonAmbiguousName
	}

	if st, n := pick(func(st database.StoredSubject) bool { return st.RollNumber == query }); n == 1 {
		return st, ""
	}
	return database.StoredSubject{}, ReasonNotFound
}

// MarkByName marks the subject identified by name (or roll number).
func (s *Service) MarkByName(ctx context.Context, name string) (MarkResult, error) {
	const op = "MarkByName"
	subjects, err := retryValue(ctx, s, "list_subjects", func() ([]database.StoredSubject, error) {
		return s.store.ListSubjects(ctx)
	})
	if err != nil {
		return MarkResult{}, storageError(op, err)
	}
	return s.markByName(ctx, op, subjects, name)
}

func (s *Service) markByName(ctx context.Context, op string, subjects []database.StoredSubject, name string) (MarkResult, error) {
	st, reason := resolveName(subjects, name)
	if reason != "" {
		return s.unresolved(sourceName, reason, name), nil
	}
	res, err := s.markSubject(ctx, op, sourceName, st)
	res.Query = name
	return res, err
}

// MarkMany marks several names in order. Each result corresponds to one name.
func (s *Service) MarkMany(ctx context.Context, names []string) ([]MarkResult, error) {
	const op = "MarkMany"
	subjects, err := retryValue(ctx, s, "list_subjects", func() ([]database.StoredSubject, error) {
		return s.store.ListSubjects(ctx)
	})
	if err != nil {
		return nil, storageError(op, err)
	}

	results := make([]MarkResult, 0, len(names))
	for _, name := range names {
		res, err := s.markByName(ctx, op, subjects, name)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// MarkFromSnapshot detects every face in image, matches each one against the
// gallery and marks the accepted subjects. The snapshot counts as marked when
// at least one face resolved.
func (s *Service) MarkFromSnapshot(ctx context.Context, image []byte) (*SnapshotResult, error) {
	const op = "MarkFromSnapshot"
	defer s.metrics.ObserveOperation("mark_from_snapshot", time.Now())
	faces, err := s.detect(ctx, op, image)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		s.metrics.RecordMark(sourceSnapshot, metrics.OutcomeUnresolved)
		return &SnapshotResult{Reason: ReasonNoFaceDetected, Faces: []FaceOutcome{}}, nil
	}

	outcomes, idx, err := s.recognizeFaces(ctx, op, faces)
	if err != nil {
		return nil, err
	}

	result := &SnapshotResult{Faces: outcomes}
	for i := range result.Faces {
		out := &result.Faces[i]
		if out.Subject == nil {
			s.metrics.RecordMark(sourceSnapshot, metrics.OutcomeUnresolved)
			continue
		}
		res, err := s.markSubject(ctx, op, sourceSnapshot, idx[out.Subject.ID])
		if err != nil {
			return result, err
		}
		out.Marked = res.Marked
		out.Created = res.Created
		result.Marked = result.Marked || res.Marked
	}
	if !result.Marked {
		result.Reason = ReasonNoMatch
	}
	return result, nil
}
