package attendance

import (
	"context"
	"math"
	"time"

	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/database"
)

// roundPercentage rounds to constants.PercentagePrecision decimals.
func roundPercentage(v float64) float64 {
	scale := math.Pow(10, constants.PercentagePrecision)
	return math.Round(v*scale) / scale
}

// percentage is present/session days expressed in [0, 100]; 0 without sessions.
func percentage(present, sessions int) float64 {
	if sessions <= 0 || present <= 0 {
		return 0
	}
	return roundPercentage(math.Min(100, float64(present)/float64(sessions)*100))
}

// CalculateAttendancePercentage returns, for every subject in id order, the
// share of session days (dates with any record in the ledger) on which the
// subject was Present.
func (s *Service) CalculateAttendancePercentage(ctx context.Context) ([]SubjectPercentage, error) {
	const op = "CalculateAttendancePercentage"
	subjects, err := retryValue(ctx, s, "list_subjects", func() ([]database.StoredSubject, error) {
		return s.store.ListSubjects(ctx)
	})
	if err != nil {
		return nil, storageError(op, err)
	}
	return s.percentages(ctx, op, subjects)
}

func (s *Service) percentages(ctx context.Context, op string, subjects []database.StoredSubject) ([]SubjectPercentage, error) {
	sessions, err := retryValue(ctx, s, "session_days", func() (int, error) {
		return s.store.SessionDays(ctx)
	})
	if err != nil {
		return nil, storageError(op, err)
	}
	present, err := retryValue(ctx, s, "present_days", func() (map[int64]int, error) {
		return s.store.PresentDays(ctx)
	})
	if err != nil {
		return nil, storageError(op, err)
	}

	rows := make([]SubjectPercentage, 0, len(subjects))
	for _, st := range subjects {
		days := present[st.ID]
		rows = append(rows, SubjectPercentage{
			SubjectID:   st.ID,
			RollNumber:  st.RollNumber,
			Name:        st.Name,
			PresentDays: days,
			SessionDays: sessions,
			Percentage:  percentage(days, sessions),
		})
	}
	return rows, nil
}

func (s *Service) records(ctx context.Context, op string, limit int) ([]Record, error) {
	views, err := retryValue(ctx, s, "list_records", func() ([]database.RecordView, error) {
		return s.store.ListRecords(ctx, limit)
	})
	if err != nil {
		return nil, storageError(op, err)
	}
	records := make([]Record, 0, len(views))
	for _, v := range views {
		records = append(records, recordFromView(v))
	}
	return records, nil
}

// ListAttendance returns every record joined with its subject, newest first.
func (s *Service) ListAttendance(ctx context.Context) ([]Record, error) {
	return s.records(ctx, "ListAttendance", 0)
}

// RecentRecords returns the newest limit records. limit <= 0 uses the default of 50.
func (s *Service) RecentRecords(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = constants.DefaultRecentLimit
	}
	return s.records(ctx, "RecentRecords", limit)
}

// Dashboard returns percentages, today's effective status per subject
// (Absent without a record) and the subject count.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	const op = "Dashboard"
	defer s.metrics.ObserveOperation("dashboard", time.Now())
	subjects, err := retryValue(ctx, s, "list_subjects", func() ([]database.StoredSubject, error) {
		return s.store.ListSubjects(ctx)
	})
	if err != nil {
		return nil, storageError(op, err)
	}
	data, err := s.percentages(ctx, op, subjects)
	if err != nil {
		return nil, err
	}

	date, _ := s.today()
	statuses, err := retryValue(ctx, s, "effective_statuses", func() (map[int64]database.Status, error) {
		return s.store.EffectiveStatuses(ctx, date)
	})
	if err != nil {
		return nil, storageError(op, err)
	}

	today := make([]TodayStatus, 0, len(subjects))
	for _, st := range subjects {
		status, ok := statuses[st.ID]
		if !ok {
			status = database.StatusAbsent
		}
		today = append(today, TodayStatus{SubjectID: st.ID, RollNumber: st.RollNumber, Name: st.Name, Status: status})
	}

	return &Dashboard{
		Date:            date,
		AttendanceData:  data,
		TodayAttendance: today,
		TotalSubjects:   len(subjects),
	}, nil
}

// Report returns percentages and the most recent records.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	defer s.metrics.ObserveOperation("report", time.Now())
	data, err := s.CalculateAttendancePercentage(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.RecentRecords(ctx, constants.DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	return &Report{AttendanceData: data, RecentRecords: recent}, nil
}

// AuditGallery lists enrolled subject pairs close enough to be confused by the matcher.
func (s *Service) AuditGallery(ctx context.Context) ([]ConfusablePair, error) {
	const op = "AuditGallery"
	defer s.metrics.ObserveOperation("audit_gallery", time.Now())
	gallery, err := s.EncodingsSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	pairs := s.matcher.AuditGallery(gallery)
	if len(pairs) == 0 {
		return []ConfusablePair{}, nil
	}

	idx, err := s.subjectIndex(ctx)
	if err != nil {
		return nil, storageError(op, err)
	}
	result := make([]ConfusablePair, 0, len(pairs))
	for _, p := range pairs {
		a, okA := idx[p.SubjectA]
		b, okB := idx[p.SubjectB]
		if !okA || !okB {
			continue
		}
		result = append(result, ConfusablePair{A: subjectFromStored(a), B: subjectFromStored(b), Distance: p.Distance})
	}
	return result, nil
}
