package attendance

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/roll-call/internal/database/mock"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/metrics"
)

// classDay is the fixed "now" of every test service.
var classDay = time.Date(2024, 1, 10, 9, 15, 0, 0, time.UTC)

var (
	ashaEncoding = []float32{1, 0, 0, 0}
	raviEncoding = []float32{0, 1, 0, 0}
	// ashaSample is within the default threshold of ashaEncoding only.
	ashaSample = []float32{0.98, 0.1, 0, 0}
	raviSample = []float32{0.05, 0.97, 0.1, 0}
	stranger  = []float32{0, 0, 0, 1}
)

// fakeEncoder returns canned faces keyed by the image bytes.
type fakeEncoder struct {
	faces map[string][]fingerprint.Face
	err   error
}

func (f *fakeEncoder) DetectAndEncode(_ context.Context, image []byte) ([]fingerprint.Face, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.faces[string(image)], nil
}

func face(idx int, size float64, emb []float32) fingerprint.Face {
	return fingerprint.Face{Index: idx, BBox: []float64{0, 0, size, size}, DetScore: 0.9, Embedding: emb}
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{faces: map[string][]fingerprint.Face{
		"asha.jpg":    {face(0, 120, ashaEncoding)},
		"asha-2.jpg":  {face(0, 120, ashaSample)},
		"ravi.jpg":    {face(0, 110, raviEncoding)},
		"empty.jpg":   nil,
		"group.jpg":   {face(0, 20, stranger), face(1, 200, ashaEncoding)},
		"class.jpg":   {face(0, 90, ashaSample), face(1, 80, raviSample), face(2, 70, stranger)},
		"visitor.jpg": {face(0, 90, stranger)},
	}}
}

type testEnv struct {
	svc     *Service
	store   *mock.MockStore
	encoder *fakeEncoder
	now     time.Time
}

type envOption func(*Options)

func withMatcher(m facematch.Matcher) envOption {
	return func(o *Options) { o.Matcher = m }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   mock.NewMockStore(),
		encoder: newFakeEncoder(),
		now:     classDay,
	}
	m, err := metrics.NewAttendanceMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	o := Options{
		Store:     env.store,
		Encoder:   env.encoder,
		Matcher:   facematch.NewMatcher(facematch.MetricEuclidean, 0.6, 0.05),
		ExportDir: t.TempDir(),
		ImagesDir: t.TempDir(),
		Location:  time.UTC,
		Now:       func() time.Time { return env.now },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   m,
	}
	for _, opt := range opts {
		opt(&o)
	}
	env.svc, err = New(o)
	require.NoError(t, err)
	require.NoError(t, env.svc.Init(context.Background()))
	return env
}

// addSubject enrolls a subject with a fixed encoding, bypassing the encoder.
func (e *testEnv) addSubject(t *testing.T, roll, name string, enc []float32) *Subject {
	t.Helper()
	ctx := context.Background()
	subj, err := e.svc.AddSubject(ctx, NewSubject{RollNumber: roll, Name: name})
	require.NoError(t, err)
	if enc != nil {
		require.NoError(t, e.store.SetEncoding(ctx, subj.ID, enc, ""))
		subj.HasEncoding = true
	}
	return subj
}
