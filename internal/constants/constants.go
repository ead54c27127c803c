// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultEuclideanThreshold is the acceptance threshold for Euclidean distance
	// between normalized face embeddings. Lower values = stricter matching
	DefaultEuclideanThreshold = 0.6

	// DefaultCosineThreshold is the acceptance threshold for cosine distance
	DefaultCosineThreshold = 0.5

	// DefaultAmbiguityMargin is the minimum gap between the best and the
	// runner-up subject before a match is accepted
	DefaultAmbiguityMargin = 0.05

	// DefaultFaceEmbeddingDim is the fixed dimension of face embeddings (512 for buffalo_l/ResNet100)
	DefaultFaceEmbeddingDim = 512
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) for image processing
	MaxImageSize = 1920

	// DefaultEnrollConcurrency is the default number of parallel workers for bulk enrollment
	DefaultEnrollConcurrency = 4
)

// Reporting constants
const (
	// DefaultRecentLimit is the number of records shown in recent-activity views
	DefaultRecentLimit = 50

	// PercentagePrecision is the number of decimal places kept in attendance percentages
	PercentagePrecision = 2
)
