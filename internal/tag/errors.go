package tag

import "errors"

// Sentinel errors for the tag package.
var (
	// ErrTag is returned when writing tags to the audio file fails.
	ErrTag = errors.New("tag write failed")

	// ErrUnsafeURL is returned for artwork URLs pointing at loopback,
	// link-local, private, or otherwise disallowed addresses.
	ErrUnsafeURL = errors.New("unsafe artwork url")

	// ErrArtworkTooLarge is returned when the artwork payload exceeds the
	// size cap.
	ErrArtworkTooLarge = errors.New("artwork exceeds size limit")
)
