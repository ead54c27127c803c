// Package storetest holds behaviour tests shared by every database.Store backend.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/roll-call/internal/database"
)

// Factory returns an empty, migrated store. Cleanup is registered on t.
type Factory func(t *testing.T) database.Store

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Subjects", func(t *testing.T) { testSubjects(t, newStore(t)) })
	t.Run("DuplicateRoll", func(t *testing.T) { testDuplicateRoll(t, newStore(t)) })
	t.Run("Encodings", func(t *testing.T) { testEncodings(t, newStore(t)) })
	t.Run("MarkPresentIdempotent", func(t *testing.T) { testMarkPresentIdempotent(t, newStore(t)) })
	t.Run("MarkPresentConcurrent", func(t *testing.T) { testMarkPresentConcurrent(t, newStore(t)) })
	t.Run("MarkPresentUnknownSubject", func(t *testing.T) { testMarkUnknown(t, newStore(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("ListRecordsOrder", func(t *testing.T) { testListRecordsOrder(t, newStore(t)) })
	t.Run("Aggregates", func(t *testing.T) { testAggregates(t, newStore(t)) })
	t.Run("MigrateTwice", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Migrate(context.Background()))
	})
}

func create(t *testing.T, s database.Store, roll, name string, enc []float32) *database.StoredSubject {
	t.Helper()
	subj := &database.StoredSubject{RollNumber: roll, Name: name, Encoding: enc}
	require.NoError(t, s.CreateSubject(context.Background(), subj))
	require.NotZero(t, subj.ID)
	return subj
}

func strPtr(s string) *string { return &s }

func testSubjects(t *testing.T, s database.Store) {
	ctx := context.Background()
	a := create(t, s, "CS101", "Asha", nil)
	b := create(t, s, "CS102", "Bilal", []float32{0.1, 0.2})

	got, err := s.GetSubject(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS101", got.RollNumber)
	assert.Equal(t, "Asha", got.Name)
	assert.False(t, got.HasEncoding())
	assert.False(t, got.CreatedAt.IsZero())

	list, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	count, err := s.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	updated, err := s.UpdateSubject(ctx, b.ID, nil, strPtr("Bilal Khan"))
	require.NoError(t, err)
	assert.Equal(t, "CS102", updated.RollNumber)
	assert.Equal(t, "Bilal Khan", updated.Name)
	assert.Equal(t, []float32{0.1, 0.2}, updated.Encoding, "update must not touch the encoding")

	_, err = s.UpdateSubject(ctx, 9999, strPtr("X"), nil)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = s.UpdateSubject(ctx, b.ID, strPtr("CS101"), nil)
	assert.ErrorIs(t, err, database.ErrDuplicate)

	_, err = s.GetSubject(ctx, 9999)
	assert.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, s.SetEncoding(ctx, a.ID, []float32{1, 2, 3}, "images/a.jpg"))
	got, err = s.GetSubject(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got.Encoding)
	assert.Equal(t, "images/a.jpg", got.ImagePath)

	assert.ErrorIs(t, s.SetEncoding(ctx, 9999, []float32{1}, ""), database.ErrNotFound)
}

func testDuplicateRoll(t *testing.T, s database.Store) {
	ctx := context.Background()
	create(t, s, "CS101", "Asha", nil)

	err := s.CreateSubject(ctx, &database.StoredSubject{RollNumber: "CS101", Name: "Someone Else"})
	require.ErrorIs(t, err, database.ErrDuplicate)

	count, err := s.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testEncodings(t *testing.T, s database.Store) {
	ctx := context.Background()
	a := create(t, s, "R1", "With", []float32{0.5, -0.25, 1})
	create(t, s, "R2", "Without", nil)

	encs, err := s.Encodings(ctx)
	require.NoError(t, err)
	require.Len(t, encs, 1)
	assert.Equal(t, []float32{0.5, -0.25, 1}, encs[a.ID])

	// Snapshot reflects writes committed after the previous call.
	require.NoError(t, s.SetEncoding(ctx, a.ID, []float32{9, 9, 9}, ""))
	encs, err = s.Encodings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9, 9}, encs[a.ID])
}

func testMarkPresentIdempotent(t *testing.T, s database.Store) {
	ctx := context.Background()
	a := create(t, s, "CS101", "Asha", nil)

	first, err := s.MarkPresent(ctx, a.ID, "2024-01-10", "09:00:00")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, database.StatusPresent, first.Record.Status)

	second, err := s.MarkPresent(ctx, a.ID, "2024-01-10", "09:05:00")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, "09:00:00", second.Record.Time)

	status, ok, err := s.EffectiveStatus(ctx, a.ID, "2024-01-10")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, database.StatusPresent, status)

	_, ok, err = s.EffectiveStatus(ctx, a.ID, "2024-01-11")
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := s.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testMarkPresentConcurrent(t *testing.T, s database.Store) {
	ctx := context.Background()
	a := create(t, s, "CS101", "Asha", nil)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]database.MarkResult, workers)
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.MarkPresent(ctx, a.ID, "2024-01-10", "10:00:00")
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range workers {
		if database.IsTransient(errs[i]) {
			continue
		}
		require.NoError(t, errs[i])
		if results[i].Created {
			created++
		}
	}
	assert.Equal(t, 1, created)

	count, err := s.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testMarkUnknown(t *testing.T, s database.Store) {
	_, err := s.MarkPresent(context.Background(), 4242, "2024-01-10", "10:00:00")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testDeleteCascades(t *testing.T, s database.Store) {
	ctx := context.Background()
	a := create(t, s, "CS101", "Asha", nil)
	b := create(t, s, "CS102", "Bilal", nil)

	for _, day := range []string{"2024-01-10", "2024-01-11"} {
		_, err := s.MarkPresent(ctx, a.ID, day, "09:00:00")
		require.NoError(t, err)
		_, err = s.MarkPresent(ctx, b.ID, day, "09:01:00")
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteSubject(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteSubject(ctx, a.ID), database.ErrNotFound)

	records, err := s.ListRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, b.ID, r.SubjectID)
	}
}

func testListRecordsOrder(t *testing.T, s database.Store) {
	ctx := context.Background()
	a := create(t, s, "CS101", "Asha", nil)
	b := create(t, s, "CS102", "Bilal", nil)

	mark := func(id int64, date, clock string) {
		_, err := s.MarkPresent(ctx, id, date, clock)
		require.NoError(t, err)
	}
	mark(a.ID, "2024-01-09", "08:00:00")
	mark(a.ID, "2024-01-10", "09:30:00")
	mark(b.ID, "2024-01-10", "09:30:00")
	mark(b.ID, "2024-01-09", "11:00:00")

	records, err := s.ListRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 4)

	// date desc, time desc, id desc
	assert.Equal(t, "2024-01-10", records[0].Date)
	assert.Equal(t, "Bilal", records[0].Name)
	assert.Equal(t, "Asha", records[1].Name)
	assert.Equal(t, "2024-01-09", records[2].Date)
	assert.Equal(t, "11:00:00", records[2].Time)
	assert.Equal(t, "CS101", records[3].RollNumber)

	limited, err := s.ListRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, records[:2], limited)
}

func testAggregates(t *testing.T, s database.Store) {
	ctx := context.Background()

	days, err := s.SessionDays(ctx)
	require.NoError(t, err)
	assert.Zero(t, days)

	a := create(t, s, "CS101", "Asha", nil)
	b := create(t, s, "CS102", "Bilal", nil)
	create(t, s, "CS103", "Chen", nil)

	for _, day := range []string{"2024-01-08", "2024-01-09", "2024-01-10"} {
		_, err := s.MarkPresent(ctx, a.ID, day, "09:00:00")
		require.NoError(t, err)
	}
	_, err = s.MarkPresent(ctx, b.ID, "2024-01-10", "09:00:00")
	require.NoError(t, err)

	days, err = s.SessionDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, days)

	present, err := s.PresentDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{a.ID: 3, b.ID: 1}, present)

	statuses, err := s.EffectiveStatuses(ctx, "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, map[int64]database.Status{a.ID: database.StatusPresent, b.ID: database.StatusPresent}, statuses)

	statuses, err = s.EffectiveStatuses(ctx, "2024-01-09")
	require.NoError(t, err)
	assert.Equal(t, map[int64]database.Status{a.ID: database.StatusPresent}, statuses)
}
