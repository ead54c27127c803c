package attendance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
)

// validationError converts validator output into an invalid_input error.
func validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return newError(KindInvalidInput, op, strings.Join(parts, ", "), nil)
	}
	return newError(KindInvalidInput, op, "invalid input", err)
}

// encodeEnrollment extracts the encoding of the largest face in image.
func (s *Service) encodeEnrollment(ctx context.Context, op string, image []byte) ([]float32, error) {
	faces, err := s.detect(ctx, op, image)
	if err != nil {
		return nil, err
	}
	face, ok := fingerprint.LargestFace(faces)
	if !ok {
		return nil, newError(KindNoFaceDetected, op, "no face detected in enrollment image", nil)
	}
	if s.dim > 0 && len(face.Embedding) != s.dim {
		return nil, newError(KindInvalidInput, op,
			fmt.Sprintf("encoding has %d dimensions, expected %d", len(face.Embedding), s.dim), nil)
	}
	if len(faces) > 1 {
		s.logger.Warn("enrollment image has several faces, using the largest", "faces", len(faces))
	}
	return face.Embedding, nil
}

// detect runs the encoder with metrics.
func (s *Service) detect(ctx context.Context, op string, image []byte) ([]fingerprint.Face, error) {
	if s.encoder == nil {
		return nil, newError(KindInvalidInput, op, "face encoder is not configured", nil)
	}
	if len(image) == 0 {
		return nil, newError(KindInvalidInput, op, "image is empty", nil)
	}
	start := time.Now()
	faces, err := s.encoder.DetectAndEncode(ctx, image)
	s.metrics.RecordEncode(time.Since(start), len(faces), err)
	if err != nil {
		if errors.Is(err, fingerprint.ErrInvalidImage) {
			return nil, newError(KindInvalidInput, op, "image could not be decoded", err)
		}
		return nil, fmt.Errorf("%s: encode image: %w", op, err)
	}
	return faces, nil
}

// saveImage writes an enrollment image under the images directory.
func (s *Service) saveImage(image []byte) (string, error) {
	if err := os.MkdirAll(s.imagesDir, 0o755); err != nil {
		return "", fmt.Errorf("create images directory: %w", err)
	}
	path := filepath.Join(s.imagesDir, uuid.NewString()+fingerprint.ImageExtension(image))
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("write enrollment image: %w", err)
	}
	return path, nil
}

func (s *Service) removeImage(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove enrollment image", "path", path, "error", err)
	}
}

// AddSubject enrolls a subject. With an image, the largest face's encoding is
// stored; zero faces fails with ErrNoFaceDetected and nothing is written.
func (s *Service) AddSubject(ctx context.Context, in NewSubject) (*Subject, error) {
	const op = "AddSubject"
	in.RollNumber = strings.TrimSpace(in.RollNumber)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(op, err)
	}

	stored := &database.StoredSubject{RollNumber: in.RollNumber, Name: in.Name}
	if len(in.Image) > 0 {
		enc, err := s.encodeEnrollment(ctx, op, in.Image)
		if err != nil {
			return nil, err
		}
		path, err := s.saveImage(in.Image)
		if err != nil {
			return nil, newError(KindStorage, op, "could not store enrollment image", err)
		}
		stored.Encoding = enc
		stored.ImagePath = path
	}

	err := s.retryOnce(ctx, "create_subject", func() error { return s.store.CreateSubject(ctx, stored) })
	if err != nil {
		s.removeImage(stored.ImagePath)
		return nil, storageError(op, err)
	}

	s.logger.Info("subject added", "subject_id", stored.ID, "roll_number", stored.RollNumber, "enrolled", stored.HasEncoding())
	subj := subjectFromStored(*stored)
	return &subj, nil
}

// ListSubjects returns all subjects ordered by id.
func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	stored, err := retryValue(ctx, s, "list_subjects", func() ([]database.StoredSubject, error) {
		return s.store.ListSubjects(ctx)
	})
	if err != nil {
		return nil, storageError("ListSubjects", err)
	}
	subjects := make([]Subject, 0, len(stored))
	for _, st := range stored {
		subjects = append(subjects, subjectFromStored(st))
	}
	return subjects, nil
}

// GetSubject returns a single subject.
func (s *Service) GetSubject(ctx context.Context, id int64) (*Subject, error) {
	stored, err := retryValue(ctx, s, "get_subject", func() (*database.StoredSubject, error) {
		return s.store.GetSubject(ctx, id)
	})
	if err != nil {
		return nil, storageError("GetSubject", err)
	}
	subj := subjectFromStored(*stored)
	return &subj, nil
}

// UpdateSubject changes roll number and/or name. The encoding is not touched.
func (s *Service) UpdateSubject(ctx context.Context, id int64, upd SubjectUpdate) (*Subject, error) {
	const op = "UpdateSubject"
	if upd.RollNumber != nil {
		v := strings.TrimSpace(*upd.RollNumber)
		upd.RollNumber = &v
	}
	if upd.Name != nil {
		v := strings.TrimSpace(*upd.Name)
		upd.Name = &v
	}
	if upd.RollNumber == nil && upd.Name == nil {
		return nil, newError(KindInvalidInput, op, "nothing to update", nil)
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, validationError(op, err)
	}

	stored, err := retryValue(ctx, s, "update_subject", func() (*database.StoredSubject, error) {
		return s.store.UpdateSubject(ctx, id, upd.RollNumber, upd.Name)
	})
	if err != nil {
		return nil, storageError(op, err)
	}
	s.logger.Info("subject updated", "subject_id", id)
	subj := subjectFromStored(*stored)
	return &subj, nil
}

// RemoveSubject deletes a subject together with all of its attendance records.
func (s *Service) RemoveSubject(ctx context.Context, id int64) error {
	const op = "RemoveSubject"
	stored, err := retryValue(ctx, s, "get_subject", func() (*database.StoredSubject, error) {
		return s.store.GetSubject(ctx, id)
	})
	if err != nil {
		return storageError(op, err)
	}

	if err := s.retryOnce(ctx, "delete_subject", func() error { return s.store.DeleteSubject(ctx, id) }); err != nil {
		return storageError(op, err)
	}
	s.removeImage(stored.ImagePath)
	s.logger.Info("subject removed", "subject_id", id, "roll_number", stored.RollNumber)
	return nil
}

// Enroll replaces a subject's encoding with the one computed from image.
func (s *Service) Enroll(ctx context.Context, id int64, image []byte) (*Subject, error) {
	const op = "Enroll"
	stored, err := retryValue(ctx, s, "get_subject", func() (*database.StoredSubject, error) {
		return s.store.GetSubject(ctx, id)
	})
	if err != nil {
		return nil, storageError(op, err)
	}

	enc, err := s.encodeEnrollment(ctx, op, image)
	if err != nil {
		return nil, err
	}
	path, err := s.saveImage(image)
	if err != nil {
		return nil, newError(KindStorage, op, "could not store enrollment image", err)
	}

	err = s.retryOnce(ctx, "set_encoding", func() error { return s.store.SetEncoding(ctx, id, enc, path) })
	if err != nil {
		s.removeImage(path)
		return nil, storageError(op, err)
	}
	s.removeImage(stored.ImagePath)

	stored.Encoding = enc
	stored.ImagePath = path
	s.logger.Info("subject enrolled", "subject_id", id, "dim", len(enc))
	subj := subjectFromStored(*stored)
	return &subj, nil
}

// EncodingsSnapshot returns the current gallery keyed by subject id.
// Encodings whose length differs from the configured dimension are left out.
func (s *Service) EncodingsSnapshot(ctx context.Context) (map[int64][]float32, error) {
	gallery, err := retryValue(ctx, s, "encodings", func() (map[int64][]float32, error) {
		return s.store.Encodings(ctx)
	})
	if err != nil {
		return nil, storageError("EncodingsSnapshot", err)
	}
	if s.dim > 0 {
		for id, enc := range gallery {
			if len(enc) != s.dim {
				s.logger.Warn("skipping encoding with unexpected dimension", "subject_id", id, "dim", len(enc), "expected", s.dim)
				delete(gallery, id)
			}
		}
	}
	s.metrics.SetGallerySize(len(gallery))
	return gallery, nil
}
