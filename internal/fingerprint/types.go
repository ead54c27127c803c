// Package fingerprint turns camera snapshots into face embeddings using the
// face embedding server (InsightFace behind a small HTTP API).
package fingerprint

// Face is a single detected face with its embedding
type Face struct {
	Index     int       `json:"face_index"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels of the submitted image
	DetScore  float64   `json:"det_score"`
	Embedding []float32 `json:"embedding"`
}

// Area returns the bounding box area in square pixels (0 for malformed boxes)
func (f Face) Area() float64 {
	if len(f.BBox) != 4 {
		return 0
	}
	w := f.BBox[2] - f.BBox[0]
	h := f.BBox[3] - f.BBox[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// FaceDetection represents a single detected face as returned by the server
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// LargestFace returns the face with the biggest bounding box, preferring the
// higher detection score on equal areas. ok is false for an empty slice.
func LargestFace(faces []Face) (Face, bool) {
	if len(faces) == 0 {
		return Face{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		a, b := f.Area(), best.Area()
		if a > b || (a == b && f.DetScore > best.DetScore) {
			best = f
		}
	}
	return best, true
}
