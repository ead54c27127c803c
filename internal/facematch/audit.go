package facematch

import (
	"cmp"
	"slices"

	"github.com/coder/hnsw"
)

// HNSW parameters for small classroom galleries.
const (
	auditMaxNeighbors = 16
	// auditNeighbors is how many nearest subjects are inspected per enrolled subject.
	auditNeighbors = 5
)

// ConfusablePair is two enrolled subjects whose encodings are close enough that
// a query near one of them may be rejected as ambiguous or misidentified.
type ConfusablePair struct {
	SubjectA int64   `json:"subject_a"`
	SubjectB int64   `json:"subject_b"`
	Distance float64 `json:"distance"`
}

// AuditGallery lists pairs of subjects closer than Threshold + Margin.
// Neighbors are found with an in-memory HNSW graph and re-scored exactly with
// the matcher metric, on the same normalized embeddings Match compares. Pairs are sorted by distance ascending.
func (m Matcher) AuditGallery(gallery map[int64][]float32) []ConfusablePair {
	if len(gallery) < 2 {
		return nil
	}

	ids := make([]int64, 0, len(gallery))
	for id, enc := range gallery {
		if len(enc) > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil
	}
	slices.Sort(ids)

	// The graph needs a single dimension; subjects enrolled with another model are skipped.
	dim := len(gallery[ids[0]])
	ids = slices.DeleteFunc(ids, func(id int64) bool { return len(gallery[id]) != dim })
	if len(ids) < 2 {
		return nil
	}

	prepared := make(map[int64][]float32, len(ids))
	for _, id := range ids {
		prepared[id] = m.prepare(gallery[id])
	}

	g := hnsw.NewGraph[int64]()
	g.M = auditMaxNeighbors
	g.Ml = 1.0 / float64(auditMaxNeighbors) // Standard HNSW formula
	if m.Metric == MetricCosine {
		g.Distance = hnsw.CosineDistance
	} else {
		g.Distance = hnsw.EuclideanDistance
	}
	for _, id := range ids {
		g.Add(hnsw.MakeNode(id, prepared[id]))
	}

	limit := m.Threshold + m.Margin
	k := min(auditNeighbors+1, len(ids))
	seen := make(map[[2]int64]struct{})
	var pairs []ConfusablePair

	for _, id := range ids {
		for _, n := range g.Search(prepared[id], k) {
			if n.Key == id {
				continue
			}
			a, b := min(id, n.Key), max(id, n.Key)
			key := [2]int64{a, b}
			if _, ok := seen[key]; ok {
				continue
			}
			d := m.Metric.Distance(prepared[a], prepared[b])
			if d >= limit {
				continue
			}
			seen[key] = struct{}{}
			pairs = append(pairs, ConfusablePair{SubjectA: a, SubjectB: b, Distance: d})
		}
	}

	slices.SortFunc(pairs, func(x, y ConfusablePair) int {
		if c := cmp.Compare(x.Distance, y.Distance); c != 0 {
			return c
		}
		if c := cmp.Compare(x.SubjectA, y.SubjectA); c != 0 {
			return c
		}
		return cmp.Compare(x.SubjectB, y.SubjectB)
	})
	return pairs
}
