package facematch

import (
	"math"
	"testing"
)

func vec(values ...float32) []float32 {
	return values
}

func TestMatch_ExactEncodingReturnsSubject(t *testing.T) {
	m := NewMatcher(MetricEuclidean, 0.6, 0.05)
	gallery := map[int64][]float32{
		1: vec(1, 0, 0),
		2: vec(0, 1, 0),
		3: vec(0, 0, 1),
	}

	result := m.Match(vec(0, 1, 0), gallery)

	if !result.Accepted() {
		t.Fatalf("expected accepted match, got %s", result.Decision)
	}
	if result.Best.SubjectID != 2 {
		t.Errorf("expected subject 2, got %d", result.Best.SubjectID)
	}
	if result.Best.Distance != 0 {
		t.Errorf("expected distance 0, got %v", result.Best.Distance)
	}
}

func TestMatch_AboveThreshold(t *testing.T) {
	m := NewMatcher(MetricEuclidean, 0.6, 0.05)
	gallery := map[int64][]float32{
		1: vec(1, 0),
	}

	// distance 1.0 from the only subject
	result := m.Match(vec(0, 1), gallery)

	if result.Accepted() {
		t.Fatal("expected rejection above threshold")
	}
	if result.Decision != DecisionAboveThreshold {
		t.Errorf("expected %s, got %s", DecisionAboveThreshold, result.Decision)
	}
	if result.Best == nil || result.Best.SubjectID != 1 {
		t.Error("expected best candidate to be reported even when rejected")
	}
}

func TestMatch_ThresholdIsStrict(t *testing.T) {
	// orthogonal unit vectors are exactly sqrt(2) apart
	m := NewMatcher(MetricEuclidean, math.Sqrt2, 0)
	gallery := map[int64][]float32{
		1: vec(1, 0),
	}

	result := m.Match(vec(0, 1), gallery)

	if result.Decision != DecisionAboveThreshold {
		t.Errorf("distance equal to threshold must be rejected, got %s", result.Decision)
	}
}

func TestMatch_EmptyGallery(t *testing.T) {
	m := NewMatcher(MetricEuclidean, 0.6, 0.05)

	result := m.Match(vec(1, 0), map[int64][]float32{})

	if result.Decision != DecisionNoCandidate {
		t.Errorf("expected %s, got %s", DecisionNoCandidate, result.Decision)
	}
	if result.Best != nil {
		t.Error("expected no best candidate for empty gallery")
	}
}

func TestMatch_DimensionMismatchIgnored(t *testing.T) {
	m := NewMatcher(MetricEuclidean, 0.6, 0.05)
	gallery := map[int64][]float32{
		1: vec(1, 0, 0, 0),
	}

	result := m.Match(vec(1, 0), gallery)

	if result.Decision != DecisionNoCandidate {
		t.Errorf("expected %s, got %s", DecisionNoCandidate, result.Decision)
	}
}

func TestMatch_AmbiguousNearTie(t *testing.T) {
	m := NewMatcher(MetricEuclidean, 0.6, 0.05)
	gallery := map[int64][]float32{
		1: vec(1, 0.2),
		2: vec(1, -0.21),
	}

	result := m.Match(vec(1, 0), gallery)

	if result.Decision != DecisionAmbiguous {
		t.Fatalf("expected %s, got %s", DecisionAmbiguous, result.Decision)
	}
	if result.Best.SubjectID != 1 || result.RunnerUp.SubjectID != 2 {
		t.Errorf("unexpected candidates: best=%d runner-up=%d", result.Best.SubjectID, result.RunnerUp.SubjectID)
	}
}

func TestMatch_ClearWinnerWithRunnerUp(t *testing.T) {
	m := NewMatcher(MetricEuclidean, 0.6, 0.05)
	gallery := map[int64][]float32{
		1: vec(1, 0.1),
		2: vec(1, 0.5),
	}

	result := m.Match(vec(1, 0), gallery)

	if !result.Accepted() {
		t.Fatalf("expected accepted, got %s", result.Decision)
	}
	if result.Best.SubjectID != 1 {
		t.Errorf("expected subject 1, got %d", result.Best.SubjectID)
	}
}

func TestMatch_ExactTieWithoutMarginPicksLowestID(t *testing.T) {
	m := NewMatcher(MetricEuclidean, 0.6, 0)
	gallery := map[int64][]float32{
		9: vec(1, 0.1, 0),
		4: vec(1, -0.1, 0),
		7: vec(1, 0, 0.1),
	}

	for range 10 {
		result := m.Match(vec(1, 0, 0), gallery)
		if !result.Accepted() {
			t.Fatalf("expected accepted, got %s", result.Decision)
		}
		if result.Best.SubjectID != 4 {
			t.Fatalf("expected lowest id 4 on exact tie, got %d", result.Best.SubjectID)
		}
	}
}

func TestMatch_EuclideanIgnoresMagnitude(t *testing.T) {
	m := NewMatcher(MetricEuclidean, 0.6, 0.05)
	gallery := map[int64][]float32{
		1: vec(20, 0, 0, 0),
		2: vec(0, 20, 0, 0),
	}

	// raw distance to subject 1 is about 2.04, the normalized one about 0.10
	result := m.Match(vec(19.6, 2, 0, 0), gallery)

	if !result.Accepted() {
		t.Fatalf("expected accepted match, got %s", result.Decision)
	}
	if result.Best.SubjectID != 1 {
		t.Errorf("expected subject 1, got %d", result.Best.SubjectID)
	}
	if result.Best.Distance > 0.11 {
		t.Errorf("expected normalized distance near 0.10, got %v", result.Best.Distance)
	}

	scaled := m.Match(vec(0.98, 0.1, 0, 0), gallery)
	if !scaled.Accepted() || math.Abs(scaled.Best.Distance-result.Best.Distance) > 1e-6 {
		t.Errorf("distance should not depend on query magnitude: %v vs %v", scaled.Best.Distance, result.Best.Distance)
	}
}

func TestMatch_Cosine(t *testing.T) {
	m := NewMatcher(MetricCosine, 0, 0.03)
	if m.Threshold != 0.5 {
		t.Fatalf("expected cosine default threshold 0.5, got %v", m.Threshold)
	}
	gallery := map[int64][]float32{
		1: vec(1, 0),
		2: vec(0, 1),
	}

	// same direction, different magnitude
	result := m.Match(vec(3, 0.1), gallery)

	if !result.Accepted() || result.Best.SubjectID != 1 {
		t.Errorf("expected subject 1 accepted, got %+v", result)
	}
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		input   string
		want    Metric
		wantErr bool
	}{
		{"", MetricEuclidean, false},
		{"euclidean", MetricEuclidean, false},
		{"cosine", MetricCosine, false},
		{"manhattan", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMetric(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMetric(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMetric(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDistances(t *testing.T) {
	if d := EuclideanDistance(vec(0, 0), vec(3, 4)); d != 5 {
		t.Errorf("EuclideanDistance = %v, want 5", d)
	}
	if d := EuclideanDistance(vec(1), vec(1, 2)); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %v", d)
	}
	if d := CosineDistance(vec(1, 0), vec(0, 1)); math.Abs(d-1) > 1e-9 {
		t.Errorf("CosineDistance of orthogonal vectors = %v, want 1", d)
	}
	if d := CosineDistance(vec(0, 0), vec(0, 1)); d != 2 {
		t.Errorf("CosineDistance with zero vector = %v, want 2", d)
	}
}

func TestNormalize(t *testing.T) {
	n := Normalize(vec(3, 4))
	if math.Abs(float64(n[0])-0.6) > 1e-6 || math.Abs(float64(n[1])-0.8) > 1e-6 {
		t.Errorf("Normalize(3,4) = %v, want [0.6 0.8]", n)
	}

	z := Normalize(vec(0, 0))
	if z[0] != 0 || z[1] != 0 {
		t.Errorf("Normalize(0,0) = %v, want zeros", z)
	}
}
