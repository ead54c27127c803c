// Package facematch decides which enrolled subject a query face embedding belongs to.
// The decision is a pure function of the query and the gallery snapshot.
package facematch

import (
	"math"
	"slices"

	"github.com/kozaktomas/roll-call/internal/constants"
)

// Decision describes the outcome of matching one query against a gallery.
type Decision string

const (
	DecisionAccepted       Decision = "accepted"        // best candidate below threshold and unambiguous
	DecisionNoCandidate    Decision = "no_candidate"    // gallery empty or no comparable embedding
	DecisionAboveThreshold Decision = "above_threshold" // nearest subject too far away
	DecisionAmbiguous      Decision = "ambiguous"       // another subject within the ambiguity margin
)

// Candidate is a gallery subject scored against a query.
type Candidate struct {
	SubjectID int64   `json:"subject_id"`
	Distance  float64 `json:"distance"`
}

// Result is the outcome of Matcher.Match.
type Result struct {
	Decision Decision   `json:"decision"`
	Best     *Candidate `json:"best,omitempty"`
	RunnerUp *Candidate `json:"runner_up,omitempty"`
}

// Accepted reports whether the best candidate may be treated as the query's identity.
func (r Result) Accepted() bool {
	return r.Decision == DecisionAccepted && r.Best != nil
}

// Matcher scores a query embedding against every gallery embedding.
//
// The nearest subject wins when its distance is strictly below Threshold and
// no other subject is within Margin of it. Euclidean distances are taken
// between L2-normalized embeddings, so Threshold does not depend on the
// magnitude the encoder happens to emit. Gallery entries are visited in
// ascending subject id order, so with Margin == 0 an exact tie resolves to the
// lowest id.
type Matcher struct {
	Metric    Metric
	Threshold float64
	Margin    float64
}

// NewMatcher creates a matcher, filling zero values from the metric defaults.
func NewMatcher(metric Metric, threshold, margin float64) Matcher {
	if metric == "" {
		metric = MetricEuclidean
	}
	if threshold <= 0 {
		threshold = DefaultThreshold(metric)
	}
	return Matcher{Metric: metric, Threshold: threshold, Margin: margin}
}

// DefaultThreshold returns the conventional acceptance threshold for a metric.
func DefaultThreshold(metric Metric) float64 {
	if metric == MetricCosine {
		return constants.DefaultCosineThreshold
	}
	return constants.DefaultEuclideanThreshold
}

// Match finds the gallery subject nearest to query.
func (m Matcher) Match(query []float32, gallery map[int64][]float32) Result {
	if len(gallery) == 0 || len(query) == 0 {
		return Result{Decision: DecisionNoCandidate}
	}

	ids := make([]int64, 0, len(gallery))
	for id := range gallery {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	query = m.prepare(query)
	var best, runnerUp *Candidate
	for _, id := range ids {
		d := m.Metric.Distance(query, m.prepare(gallery[id]))
		if math.IsInf(d, 1) || math.IsNaN(d) {
			continue
		}
		c := &Candidate{SubjectID: id, Distance: d}
		switch {
		case best == nil || d < best.Distance:
			runnerUp = best
			best = c
		case runnerUp == nil || d < runnerUp.Distance:
			runnerUp = c
		}
	}

	if best == nil {
		return Result{Decision: DecisionNoCandidate}
	}

	result := Result{Best: best, RunnerUp: runnerUp}
	switch {
	case best.Distance >= m.Threshold:
		result.Decision = DecisionAboveThreshold
	case runnerUp != nil && m.Margin > 0 && runnerUp.Distance-best.Distance < m.Margin:
		result.Decision = DecisionAmbiguous
	default:
		result.Decision = DecisionAccepted
	}
	return result
}

// prepare puts an embedding into the space the metric's threshold is defined in.
// Cosine distance ignores magnitude already.
func (m Matcher) prepare(v []float32) []float32 {
	if m.Metric == MetricCosine {
		return v
	}
	return Normalize(v)
}
