package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/database/mock"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
)

var (
	ashaEncoding = []float32{1, 0, 0, 0}
	raviEncoding = []float32{0, 1, 0, 0}
)

// stubEncoder returns canned faces keyed by the uploaded bytes.
type stubEncoder struct {
	faces map[string][]fingerprint.Face
	err   error
}

func (s *stubEncoder) DetectAndEncode(_ context.Context, image []byte) ([]fingerprint.Face, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.faces[string(image)], nil
}

func stubFace(emb []float32) fingerprint.Face {
	return fingerprint.Face{BBox: []float64{0, 0, 100, 100}, DetScore: 0.9, Embedding: emb}
}

type testEnv struct {
	svc     *attendance.Service
	store   *mock.MockStore
	encoder *stubEncoder
	logger  *slog.Logger
}

// newTestEnv creates an engine over the in-memory store with a fixed clock.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: mock.NewMockStore(),
		encoder: &stubEncoder{faces: map[string][]fingerprint.Face{
			"asha.jpg":    {stubFace(ashaEncoding)},
			"ravi.jpg":    {stubFace(raviEncoding)},
			"class.jpg":   {stubFace(ashaEncoding), stubFace(raviEncoding)},
			"nobody.jpg":  nil,
			"visitor.jpg": {stubFace([]float32{0, 0, 0, 1})},
		}},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	svc, err := attendance.New(attendance.Options{
		Store:     env.store,
		Encoder:   env.encoder,
		Matcher:   facematch.NewMatcher(facematch.MetricEuclidean, 0.6, 0.05),
		ExportDir: t.TempDir(),
		ImagesDir: t.TempDir(),
		Location:  time.UTC,
		Now:       func() time.Time { return time.Date(2024, 1, 10, 9, 15, 0, 0, time.UTC) },
		Logger:    env.logger,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	env.svc = svc
	return env
}

// addStudent creates a student directly through the engine.
func (e *testEnv) addStudent(t *testing.T, roll, name, image string) *attendance.Subject {
	t.Helper()
	in := attendance.NewSubject{RollNumber: roll, Name: name}
	if image != "" {
		in.Image = []byte(image)
	}
	subj, err := e.svc.AddSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("failed to add student: %v", err)
	}
	return subj
}

// jsonRequest creates a request with a JSON encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a request with an image file and optional form fields
func multipartRequest(t *testing.T, path string, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if image != nil {
		part, err := w.CreateFormFile(imageField, "snapshot.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(image)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// assertErrorKind checks the "kind" field of a JSON error response
func assertErrorKind(t *testing.T, recorder *httptest.ResponseRecorder, expected attendance.Kind) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["kind"] != string(expected) {
		t.Errorf("expected kind '%s', got '%s'", expected, result["kind"])
	}
}
