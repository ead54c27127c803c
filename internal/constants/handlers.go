// Package constants provides shared constants used across the codebase.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum request body size in bytes for snapshot uploads (20MB)
	MaxUploadSize = 20 << 20
)
