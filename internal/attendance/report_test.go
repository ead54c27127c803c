package attendance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/roll-call/internal/database"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		present, sessions int
		want              float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 5, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
		{4, 3, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.present, tt.sessions), func(t *testing.T) {
			assert.InDelta(t, tt.want, percentage(tt.present, tt.sessions), 1e-9)
		})
	}
}

func TestPercentagesEmptyLedger(t *testing.T) {
	env := newTestEnv(t)
	env.addSubject(t, "CS101", "Asha", ashaEncoding)
	env.addSubject(t, "CS102", "Ravi", nil)

	pcts, err := env.svc.CalculateAttendancePercentage(context.Background())
	require.NoError(t, err)
	require.Len(t, pcts, 2)
	for _, p := range pcts {
		assert.Zero(t, p.Percentage)
		assert.Zero(t, p.SessionDays)
	}
}

func TestPercentagesUseSessionDays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asha := env.addSubject(t, "CS101", "Asha", ashaEncoding)
	ravi := env.addSubject(t, "CS102", "Ravi", raviEncoding)
	mina := env.addSubject(t, "CS103", "Mina", nil)

	// Three session days; Asha present on all, Ravi on one, Mina never.
	for _, day := range []string{"2024-01-08", "2024-01-09"} {
		env.store.AddRecord(database.StoredRecord{SubjectID: asha.ID, Date: day, Time: "09:00:00", Status: database.StatusPresent})
	}
	env.store.AddRecord(database.StoredRecord{SubjectID: ravi.ID, Date: "2024-01-09", Time: "09:05:00", Status: database.StatusAbsent})
	_, err := env.svc.MarkByID(ctx, asha.ID)
	require.NoError(t, err)
	_, err = env.svc.MarkByID(ctx, ravi.ID)
	require.NoError(t, err)

	pcts, err := env.svc.CalculateAttendancePercentage(ctx)
	require.NoError(t, err)
	require.Len(t, pcts, 3)

	byID := make(map[int64]SubjectPercentage)
	for _, p := range pcts {
		assert.GreaterOrEqual(t, p.Percentage, 0.0)
		assert.LessOrEqual(t, p.Percentage, 100.0)
		assert.Equal(t, 3, p.SessionDays)
		byID[p.SubjectID] = p
	}
	assert.InDelta(t, 100.0, byID[asha.ID].Percentage, 1e-9)
	assert.InDelta(t, 33.33, byID[ravi.ID].Percentage, 1e-9)
	assert.Zero(t, byID[mina.ID].Percentage)
}

func TestListAttendanceOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asha := env.addSubject(t, "CS101", "Asha", ashaEncoding)
	ravi := env.addSubject(t, "CS102", "Ravi", raviEncoding)

	env.store.AddRecord(database.StoredRecord{SubjectID: ravi.ID, Date: "2024-01-09", Time: "10:00:00", Status: database.StatusPresent})
	env.store.AddRecord(database.StoredRecord{SubjectID: asha.ID, Date: "2024-01-09", Time: "08:00:00", Status: database.StatusPresent})
	_, err := env.svc.MarkByID(ctx, asha.ID)
	require.NoError(t, err)

	records, err := env.svc.ListAttendance(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-01-10", records[0].Date)
	assert.Equal(t, "Asha", records[0].Name)
	assert.Equal(t, "10:00:00", records[1].Time)
	assert.Equal(t, "Ravi", records[1].Name)
	assert.Equal(t, "08:00:00", records[2].Time)

	recent, err := env.svc.RecentRecords(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, records[:2], recent)

	all, err := env.svc.RecentRecords(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asha := env.addSubject(t, "CS101", "Asha", ashaEncoding)
	ravi := env.addSubject(t, "CS102", "Ravi", raviEncoding)
	env.store.AddRecord(database.StoredRecord{SubjectID: ravi.ID, Date: "2024-01-09", Time: "09:00:00", Status: database.StatusPresent})

	_, err := env.svc.MarkByID(ctx, asha.ID)
	require.NoError(t, err)

	dash, err := env.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", dash.Date)
	assert.Equal(t, 2, dash.TotalSubjects)
	require.Len(t, dash.TodayAttendance, 2)
	assert.Equal(t, TodayStatus{SubjectID: asha.ID, RollNumber: "CS101", Name: "Asha", Status: database.StatusPresent}, dash.TodayAttendance[0])
	assert.Equal(t, database.StatusAbsent, dash.TodayAttendance[1].Status, "no record today reads as Absent")
	require.Len(t, dash.AttendanceData, 2)
	assert.InDelta(t, 50.0, dash.AttendanceData[0].Percentage, 1e-9)
}

func TestReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asha := env.addSubject(t, "CS101", "Asha", ashaEncoding)
	for i := range 60 {
		env.store.AddRecord(database.StoredRecord{
			SubjectID: asha.ID,
			Date:      fmt.Sprintf("2023-%02d-%02d", i/28+1, i%28+1),
			Time:      "09:00:00",
			Status:    database.StatusPresent,
		})
	}

	rep, err := env.svc.Report(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.RecentRecords, 50)
	require.Len(t, rep.AttendanceData, 1)
	assert.InDelta(t, 100.0, rep.AttendanceData[0].Percentage, 1e-9)
}

func TestReportStorageError(t *testing.T) {
	env := newTestEnv(t)
	env.store.AggregateError = errors.New("database is locked")

	_, err := env.svc.Report(context.Background())
	assert.True(t, errors.Is(err, ErrStorage))

	_, err = env.svc.Dashboard(context.Background())
	assert.True(t, errors.Is(err, ErrStorage))
}

func TestAuditGallery(t *testing.T) {
	env := newTestEnv(t)
	asha := env.addSubject(t, "CS101", "Asha", ashaEncoding)
	twin := env.addSubject(t, "CS102", "Asha's twin", []float32{0.9, 0.2, 0, 0})
	env.addSubject(t, "CS103", "Ravi", raviEncoding)

	pairs, err := env.svc.AuditGallery(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, asha.ID, pairs[0].A.ID)
	assert.Equal(t, twin.ID, pairs[0].B.ID)
	assert.Less(t, pairs[0].Distance, 0.65)

	empty := newTestEnv(t)
	pairs, err = empty.svc.AuditGallery(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
