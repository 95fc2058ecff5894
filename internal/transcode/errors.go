package transcode

import "errors"

// Sentinel errors for the transcode package.
var (
	// ErrInputNotFound is returned when the raw input file does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrTranscode is returned when the transcoding tool fails.
	ErrTranscode = errors.New("transcode failed")
)
