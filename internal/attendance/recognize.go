package attendance

import (
	"context"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
)

// match scores one query against the gallery and records the decision.
func (s *Service) match(query []float32, gallery map[int64][]float32) facematch.Result {
	res := s.matcher.Match(query, gallery)
	if res.Best != nil {
		s.metrics.RecordMatch(string(res.Decision), res.Best.Distance, true)
		s.logger.Debug("match decision",
			"decision", res.Decision,
			"best_subject", res.Best.SubjectID,
			"best_distance", res.Best.Distance,
			"gallery", len(gallery))
	} else {
		s.metrics.RecordMatch(string(res.Decision), 0, false)
	}
	return res
}

// Identify resolves a single embedding to an enrolled subject.
// It fails with ErrNoMatch when the matcher does not accept any candidate.
func (s *Service) Identify(ctx context.Context, query []float32) (*Subject, facematch.Result, error) {
	const op = "Identify"
	gallery, err := s.EncodingsSnapshot(ctx)
	if err != nil {
		return nil, facematch.Result{}, err
	}
	res := s.match(query, gallery)
	if !res.Accepted() {
		return nil, res, newError(KindNoMatch, op, string(res.Decision), nil)
	}
	subj, err := s.GetSubject(ctx, res.Best.SubjectID)
	if err != nil {
		return nil, res, err
	}
	return subj, res, nil
}

// subjectIndex loads subjects keyed by id for labelling recognition results.
func (s *Service) subjectIndex(ctx context.Context) (map[int64]database.StoredSubject, error) {
	stored, err := retryValue(ctx, s, "list_subjects", func() ([]database.StoredSubject, error) {
		return s.store.ListSubjects(ctx)
	})
	if err != nil {
		return nil, err
	}
	idx := make(map[int64]database.StoredSubject, len(stored))
	for _, st := range stored {
		idx[st.ID] = st
	}
	return idx, nil
}

// recognizeFaces matches every face against one gallery snapshot.
func (s *Service) recognizeFaces(ctx context.Context, op string, faces []fingerprint.Face) ([]FaceOutcome, map[int64]database.StoredSubject, error) {
	gallery, err := s.EncodingsSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	outcomes := make([]FaceOutcome, 0, len(faces))
	var idx map[int64]database.StoredSubject
	for _, face := range faces {
		res := s.match(face.Embedding, gallery)
		out := FaceOutcome{Index: face.Index, BBox: face.BBox, Decision: res.Decision}
		if res.Best != nil {
			d := res.Best.Distance
			out.Distance = &d
		}
		if res.Accepted() {
			if idx == nil {
				if idx, err = s.subjectIndex(ctx); err != nil {
					return nil, nil, storageError(op, err)
				}
			}
			if st, ok := idx[res.Best.SubjectID]; ok {
				subj := subjectFromStored(st)
				out.Subject = &subj
			} else {
				// Removed between the snapshot and the lookup.
				out.Decision = facematch.DecisionNoCandidate
			}
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, idx, nil
}

// Recognize detects every face in image and reports who each one is, without marking.
func (s *Service) Recognize(ctx context.Context, image []byte) (*SnapshotResult, error) {
	const op = "Recognize"
	faces, err := s.detect(ctx, op, image)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return &SnapshotResult{Reason: ReasonNoFaceDetected, Faces: []FaceOutcome{}}, nil
	}
	outcomes, _, err := s.recognizeFaces(ctx, op, faces)
	if err != nil {
		return nil, err
	}
	return &SnapshotResult{Faces: outcomes}, nil
}
