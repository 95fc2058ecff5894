package catalog

import "errors"

// Sentinel errors for the catalog package.
var (
	// ErrInvalidFilename is returned when a filename is empty, a dot entry,
	// or would resolve outside the catalog root.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrNotFound is returned when no file exists for a resolved filename.
	ErrNotFound = errors.New("file not found")
)
