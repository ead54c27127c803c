// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// MockStore is an in-memory implementation of database.Store
type MockStore struct {
	mu       sync.RWMutex
	subjects map[int64]*database.StoredSubject
	records  []database.StoredRecord
	nextSubj int64
	nextRec  int64
	now      func() time.Time

	// Error injection
	GetError        error
	ListError       error
	EncodingsError  error
	CreateError     error
	UpdateError     error
	SetEncodingErr  error
	DeleteError     error
	StatusError     error
	ListRecordsErr  error
	AggregateError  error
	MarkError       error
	MigrateError    error
	// MarkFailures makes the next N MarkPresent calls fail with database.ErrTransient
	MarkFailures int

	// Call counters
	MarkCalls      int
	EncodingsCalls int
	MigrateCalls   int
}

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		subjects: make(map[int64]*database.StoredSubject),
		nextSubj: 1,
		nextRec:  1,
		now:      time.Now,
	}
}

func copySubject(s *database.StoredSubject) *database.StoredSubject {
	c := *s
	if s.Encoding != nil {
		c.Encoding = slices.Clone(s.Encoding)
	}
	return &c
}

// AddRecord appends a raw record, bypassing dedup (used to seed Absent rows)
func (m *MockStore) AddRecord(rec database.StoredRecord) database.StoredRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextRec
	m.nextRec++
	m.records = append(m.records, rec)
	return rec
}

// Records returns a copy of all records in insertion order
func (m *MockStore) Records() []database.StoredRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

// GetSubject retrieves a subject by ID
func (m *MockStore) GetSubject(ctx context.Context, id int64) (*database.StoredSubject, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return copySubject(s), nil
}

// ListSubjects returns all subjects ordered by ID
func (m *MockStore) ListSubjects(ctx context.Context) ([]database.StoredSubject, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredSubject, 0, len(m.subjects))
	for _, s := range m.subjects {
		result = append(result, *copySubject(s))
	}
	slices.SortFunc(result, func(a, b database.StoredSubject) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

// CountSubjects returns the number of subjects
func (m *MockStore) CountSubjects(ctx context.Context) (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subjects), nil
}

// Encodings returns the encodings of subjects that have one
func (m *MockStore) Encodings(ctx context.Context) (map[int64][]float32, error) {
	m.mu.Lock()
	m.EncodingsCalls++
	m.mu.Unlock()
	if m.EncodingsError != nil {
		return nil, m.EncodingsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[int64][]float32)
	for id, s := range m.subjects {
		if s.HasEncoding() {
			result[id] = slices.Clone(s.Encoding)
		}
	}
	return result, nil
}

func (m *MockStore) rollTaken(roll string, except int64) bool {
	for id, s := range m.subjects {
		if id != except && s.RollNumber == roll {
			return true
		}
	}
	return false
}

// CreateSubject inserts a subject
func (m *MockStore) CreateSubject(ctx context.Context, s *database.StoredSubject) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rollTaken(s.RollNumber, 0) {
		return database.ErrDuplicate
	}
	now := m.now()
	s.ID = m.nextSubj
	s.CreatedAt = now
	s.UpdatedAt = now
	m.nextSubj++
	m.subjects[s.ID] = copySubject(s)
	return nil
}

// UpdateSubject changes roll number and/or name
func (m *MockStore) UpdateSubject(ctx context.Context, id int64, rollNumber, name *string) (*database.StoredSubject, error) {
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if rollNumber != nil {
		if m.rollTaken(*rollNumber, id) {
			return nil, database.ErrDuplicate
		}
		s.RollNumber = *rollNumber
	}
	if name != nil {
		s.Name = *name
	}
	s.UpdatedAt = m.now()
	return copySubject(s), nil
}

// SetEncoding replaces a subject's encoding and image path
func (m *MockStore) SetEncoding(ctx context.Context, id int64, encoding []float32, imagePath string) error {
	if m.SetEncodingErr != nil {
		return m.SetEncodingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return database.ErrNotFound
	}
	s.Encoding = slices.Clone(encoding)
	s.ImagePath = imagePath
	s.UpdatedAt = m.now()
	return nil
}

// DeleteSubject removes a subject and its records
func (m *MockStore) DeleteSubject(ctx context.Context, id int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[id]; !ok {
		return database.ErrNotFound
	}
	m.records = slices.DeleteFunc(m.records, func(r database.StoredRecord) bool { return r.SubjectID == id })
	delete(m.subjects, id)
	return nil
}

func (m *MockStore) effective(subjectID int64, date string) (database.Status, bool) {
	var best *database.StoredRecord
	for i := range m.records {
		r := &m.records[i]
		if r.SubjectID == subjectID && r.Date == date && (best == nil || r.ID > best.ID) {
			best = r
		}
	}
	if best == nil {
		return "", false
	}
	return best.Status, true
}

// EffectiveStatus returns the most recent status for (subject, date)
func (m *MockStore) EffectiveStatus(ctx context.Context, subjectID int64, date string) (database.Status, bool, error) {
	if m.StatusError != nil {
		return "", false, m.StatusError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.effective(subjectID, date)
	return status, ok, nil
}

// EffectiveStatuses returns the effective status of every subject with a record on date
func (m *MockStore) EffectiveStatuses(ctx context.Context, date string) (map[int64]database.Status, error) {
	if m.StatusError != nil {
		return nil, m.StatusError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[int64]database.Status)
	for _, r := range m.records {
		if r.Date == date {
			status, _ := m.effective(r.SubjectID, date)
			result[r.SubjectID] = status
		}
	}
	return result, nil
}

// ListRecords returns joined records ordered by date, time and id descending
func (m *MockStore) ListRecords(ctx context.Context, limit int) ([]database.RecordView, error) {
	if m.ListRecordsErr != nil {
		return nil, m.ListRecordsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	views := make([]database.RecordView, 0, len(m.records))
	for _, r := range m.records {
		v := database.RecordView{StoredRecord: r}
		if s, ok := m.subjects[r.SubjectID]; ok {
			v.RollNumber = s.RollNumber
			v.Name = s.Name
		}
		views = append(views, v)
	}
	slices.SortFunc(views, func(a, b database.RecordView) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Time, a.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// CountRecords returns the number of records
func (m *MockStore) CountRecords(ctx context.Context) (int, error) {
	if m.AggregateError != nil {
		return 0, m.AggregateError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// SessionDays returns the number of distinct dates in the ledger
func (m *MockStore) SessionDays(ctx context.Context) (int, error) {
	if m.AggregateError != nil {
		return 0, m.AggregateError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	days := make(map[string]struct{})
	for _, r := range m.records {
		days[r.Date] = struct{}{}
	}
	return len(days), nil
}

// PresentDays returns the number of distinct Present dates per subject
func (m *MockStore) PresentDays(ctx context.Context) (map[int64]int, error) {
	if m.AggregateError != nil {
		return nil, m.AggregateError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	type day struct {
		subject int64
		date    string
	}
	seen := make(map[day]struct{})
	result := make(map[int64]int)
	for _, r := range m.records {
		if r.Status != database.StatusPresent {
			continue
		}
		key := day{r.SubjectID, r.Date}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result[r.SubjectID]++
	}
	return result, nil
}

// MarkPresent records the subject as Present unless it already is
func (m *MockStore) MarkPresent(ctx context.Context, subjectID int64, date, clock string) (database.MarkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkCalls++
	if m.MarkFailures > 0 {
		m.MarkFailures--
		return database.MarkResult{}, fmt.Errorf("mark present: %w", database.ErrTransient)
	}
	if m.MarkError != nil {
		return database.MarkResult{}, m.MarkError
	}
	if _, ok := m.subjects[subjectID]; !ok {
		return database.MarkResult{}, database.ErrNotFound
	}
	for _, r := range m.records {
		if r.SubjectID == subjectID && r.Date == date && r.Status == database.StatusPresent {
			return database.MarkResult{Record: r}, nil
		}
	}
	rec := database.StoredRecord{
		ID:        m.nextRec,
		SubjectID: subjectID,
		Date:      date,
		Time:      clock,
		Status:    database.StatusPresent,
	}
	m.nextRec++
	m.records = append(m.records, rec)
	return database.MarkResult{Record: rec, Created: true}, nil
}

// Migrate records the call
func (m *MockStore) Migrate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MigrateCalls++
	return m.MigrateError
}

// Close is a no-op
func (m *MockStore) Close() error {
	return nil
}

var _ database.Store = (*MockStore)(nil)
