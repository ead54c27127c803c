package attendance

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/roll-call/internal/database"
)

// seedExportLedger builds two subjects with records on two days.
func seedExportLedger(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	asha := env.addSubject(t, "CS101", "Asha", ashaEncoding)
	ravi := env.addSubject(t, "CS102", "Ravi, Kumar", raviEncoding)

	env.store.AddRecord(database.StoredRecord{SubjectID: asha.ID, Date: "2024-01-09", Time: "08:55:00", Status: database.StatusPresent})
	env.store.AddRecord(database.StoredRecord{SubjectID: ravi.ID, Date: "2024-01-09", Time: "09:01:30", Status: database.StatusAbsent})
	_, err := env.svc.MarkByID(ctx, asha.ID)
	require.NoError(t, err)
	_, err = env.svc.MarkByID(ctx, ravi.ID)
	require.NoError(t, err)
}

func TestWriteCSVGolden(t *testing.T) {
	env := newTestEnv(t)
	seedExportLedger(t, env)

	var buf bytes.Buffer
	n, err := env.svc.WriteCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "export", buf.Bytes())
}

func TestExportToCSVRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedExportLedger(t, env)

	path, err := env.svc.ExportToCSV(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.svc.exportDir, "attendance_20240110_091500.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	parsed, err := ReadCSV(f)
	require.NoError(t, err)

	ledger, err := env.svc.ListAttendance(ctx)
	require.NoError(t, err)
	require.Len(t, parsed, len(env.store.Records()))
	for i := range ledger {
		want := ledger[i]
		want.ID, want.SubjectID = 0, 0
		assert.Equal(t, want, parsed[i])
	}
}

func TestExportToCSVDoesNotClobber(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedExportLedger(t, env)

	first, err := env.svc.ExportToCSV(ctx)
	require.NoError(t, err)
	second, err := env.svc.ExportToCSV(ctx)
	require.NoError(t, err)
	third, err := env.svc.ExportToCSV(ctx)
	require.NoError(t, err)

	assert.Equal(t, "attendance_20240110_091500.csv", filepath.Base(first))
	assert.Equal(t, "attendance_20240110_091500_1.csv", filepath.Base(second))
	assert.Equal(t, "attendance_20240110_091500_2.csv", filepath.Base(third))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(third)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExportToCSVEmptyLedger(t *testing.T) {
	env := newTestEnv(t)

	path, err := env.svc.ExportToCSV(context.Background())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,time,roll_number,name,status\n", string(data))
}

func TestExportToCSVFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	env := newTestEnv(t, func(o *Options) { o.ExportDir = filepath.Join(blocker, "exports") })
	_, err := env.svc.ExportToCSV(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExport))

	env = newTestEnv(t)
	env.store.ListRecordsErr = errors.New("no such table: attendance")
	_, err = env.svc.ExportToCSV(context.Background())
	assert.True(t, errors.Is(err, ErrStorage))
	entries, _ := os.ReadDir(env.svc.exportDir)
	assert.Empty(t, entries)
}

func TestReadCSVRejectsBadHeader(t *testing.T) {
	_, err := ReadCSV(bytes.NewBufferString("a,b,c,d,e\n"))
	assert.Error(t, err)

	_, err = ReadCSV(bytes.NewBufferString(""))
	assert.Error(t, err)
}
