package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/database"
)

func seedLedger(t *testing.T, env *testEnv) (*attendance.Subject, *attendance.Subject) {
	t.Helper()
	asha := env.addStudent(t, "CS101", "Asha", "asha.jpg")
	ravi := env.addStudent(t, "CS102", "Ravi", "ravi.jpg")
	env.store.AddRecord(database.StoredRecord{SubjectID: ravi.ID, Date: "2024-01-09", Time: "09:00:00", Status: database.StatusPresent})
	if _, err := env.svc.MarkByID(context.Background(), asha.ID); err != nil {
		t.Fatalf("MarkByID: %v", err)
	}
	return asha, ravi
}

func TestReportsHandler_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	handler := NewReportsHandler(env.svc, env.logger)
	seedLedger(t, env)

	recorder := httptest.NewRecorder()
	handler.Dashboard(recorder, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var dash attendance.Dashboard
	parseJSONResponse(t, recorder, &dash)
	if dash.TotalSubjects != 2 {
		t.Errorf("expected 2 students, got %d", dash.TotalSubjects)
	}
	if dash.TodayAttendance[0].Status != database.StatusPresent || dash.TodayAttendance[1].Status != database.StatusAbsent {
		t.Errorf("unexpected today attendance %+v", dash.TodayAttendance)
	}
	for _, p := range dash.AttendanceData {
		if p.Percentage != 50 {
			t.Errorf("expected 50%% for %s, got %v", p.Name, p.Percentage)
		}
	}
}

func TestReportsHandler_Reports(t *testing.T) {
	env := newTestEnv(t)
	handler := NewReportsHandler(env.svc, env.logger)
	seedLedger(t, env)

	recorder := httptest.NewRecorder()
	handler.Reports(recorder, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	var rep attendance.Report
	parseJSONResponse(t, recorder, &rep)
	if len(rep.RecentRecords) != 2 || len(rep.AttendanceData) != 2 {
		t.Errorf("unexpected report %+v", rep)
	}

	recorder = httptest.NewRecorder()
	handler.Reports(recorder, httptest.NewRequest(http.MethodGet, "/api/reports?limit=1", nil))
	parseJSONResponse(t, recorder, &rep)
	if len(rep.RecentRecords) != 1 || rep.RecentRecords[0].Date != "2024-01-10" {
		t.Errorf("expected only the newest record, got %+v", rep.RecentRecords)
	}

	recorder = httptest.NewRecorder()
	handler.Reports(recorder, httptest.NewRequest(http.MethodGet, "/api/reports?limit=abc", nil))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestReportsHandler_Export(t *testing.T) {
	env := newTestEnv(t)
	handler := NewReportsHandler(env.svc, env.logger)
	seedLedger(t, env)

	recorder := httptest.NewRecorder()
	handler.Export(recorder, httptest.NewRequest(http.MethodGet, "/api/export_csv", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var body map[string]string
	parseJSONResponse(t, recorder, &body)
	if !strings.HasSuffix(body["file"], "attendance_20240110_091500.csv") {
		t.Errorf("unexpected file %q", body["file"])
	}
	data, err := os.ReadFile(body["file"])
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 3 {
		t.Errorf("expected header plus 2 rows, got %d lines", lines)
	}
}

func TestReportsHandler_Download(t *testing.T) {
	env := newTestEnv(t)
	handler := NewReportsHandler(env.svc, env.logger)
	seedLedger(t, env)

	recorder := httptest.NewRecorder()
	handler.Download(recorder, httptest.NewRequest(http.MethodGet, "/api/export_csv/download", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "text/csv; charset=utf-8")

	want := "date,time,roll_number,name,status\n" +
		"2024-01-10,09:15:00,CS101,Asha,Present\n" +
		"2024-01-09,09:00:00,CS102,Ravi,Present\n"
	if got := recorder.Body.String(); got != want {
		t.Errorf("unexpected CSV:\n%s", got)
	}
}

func TestReportsHandler_StorageError(t *testing.T) {
	env := newTestEnv(t)
	handler := NewReportsHandler(env.svc, env.logger)
	env.store.ListRecordsErr = database.ErrTransient

	recorder := httptest.NewRecorder()
	handler.Download(recorder, httptest.NewRequest(http.MethodGet, "/api/export_csv/download", nil))
	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertErrorKind(t, recorder, attendance.KindStorage)
}

func TestReportsHandler_Audit(t *testing.T) {
	env := newTestEnv(t)
	handler := NewReportsHandler(env.svc, env.logger)
	env.addStudent(t, "CS101", "Asha", "asha.jpg")
	env.addStudent(t, "CS102", "Ravi", "ravi.jpg")

	recorder := httptest.NewRecorder()
	handler.Audit(recorder, httptest.NewRequest(http.MethodGet, "/api/gallery/audit", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var body struct {
		Threshold float64                     `json:"threshold"`
		Pairs     []attendance.ConfusablePair `json:"pairs"`
	}
	parseJSONResponse(t, recorder, &body)
	if body.Threshold != 0.6 {
		t.Errorf("expected threshold 0.6, got %v", body.Threshold)
	}
	if len(body.Pairs) != 0 {
		t.Errorf("expected no confusable pairs, got %+v", body.Pairs)
	}
}
