// Package attendance is the attendance engine: it manages the gallery of
// enrolled subjects, decides who is in a snapshot, records at most one
// Present record per subject and day, and derives reports from the ledger.
package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/metrics"
)

// Encoder detects faces in an image and returns one embedding per face.
// Zero faces is a valid result.
type Encoder interface {
	DetectAndEncode(ctx context.Context, image []byte) ([]fingerprint.Face, error)
}

// Options configures a Service. Store is required.
type Options struct {
	Store     database.Store
	Encoder   Encoder // nil disables image operations
	Matcher   facematch.Matcher
	Dim       int // expected encoding length, 0 accepts any
	ExportDir string
	ImagesDir string
	Location  *time.Location   // zone deciding "today", defaults to time.Local
	Now       func() time.Time // defaults to time.Now
	Logger    *slog.Logger
	Metrics   *metrics.AttendanceMetrics
}

// Service is the attendance engine.
type Service struct {
	store     database.Store
	encoder   Encoder
	matcher   facematch.Matcher
	dim       int
	exportDir string
	imagesDir string
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.AttendanceMetrics
	validate  *validator.Validate
	locks     *keyedMutex
}

// New creates a Service from opts.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("attendance: store is required")
	}
	m := opts.Matcher
	switch {
	case m == facematch.Matcher{}:
		m = facematch.NewMatcher(facematch.MetricEuclidean, 0, constants.DefaultAmbiguityMargin)
	case m.Threshold <= 0:
		m = facematch.NewMatcher(m.Metric, 0, m.Margin)
	}
	s := &Service{
		store:     opts.Store,
		encoder:   opts.Encoder,
		matcher:   m,
		dim:       opts.Dim,
		exportDir: opts.ExportDir,
		imagesDir: opts.ImagesDir,
		loc:       opts.Location,
		now:       opts.Now,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		locks:     newKeyedMutex(),
	}
	if s.exportDir == "" {
		s.exportDir = "exports"
	}
	if s.imagesDir == "" {
		s.imagesDir = "images"
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "attendance")
	return s, nil
}

// Matcher returns the matcher configuration in use.
func (s *Service) Matcher() facematch.Matcher {
	return s.matcher
}

// Init creates or upgrades the schema. Safe to call on every start.
func (s *Service) Init(ctx context.Context) error {
	const op = "Init"
	err := s.retryOnce(ctx, "migrate", func() error { return s.store.Migrate(ctx) })
	if err != nil {
		return storageError(op, err)
	}
	s.logger.Info("schema ready", "metric", string(s.matcher.Metric), "threshold", s.matcher.Threshold, "margin", s.matcher.Margin)
	return nil
}

// today returns the current date and wall-clock time in the configured zone.
func (s *Service) today() (date, clock string) {
	now := s.now().In(s.loc)
	return now.Format(database.DateLayout), now.Format(database.TimeLayout)
}

// retryOnce runs fn and repeats it a single time when it fails with a transient storage error.
func (s *Service) retryOnce(ctx context.Context, operation string, fn func() error) error {
	err := fn()
	if err == nil || !database.IsTransient(err) || ctx.Err() != nil {
		return err
	}
	s.metrics.RecordRetry(operation)
	s.logger.Warn("retrying after transient storage error", "operation", operation, "error", err)
	return fn()
}

// retryValue is retryOnce for calls returning a value.
func retryValue[T any](ctx context.Context, s *Service, operation string, fn func() (T, error)) (T, error) {
	var v T
	err := s.retryOnce(ctx, operation, func() error {
		var err error
		v, err = fn()
		return err
	})
	return v, err
}
