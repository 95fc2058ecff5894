package resolver

import "errors"

// Sentinel errors for the resolver package. Callers surface these to users
// as a single opaque "failed to download track" condition; the detail stays
// in the server log.
var (
	// ErrResolve is returned when metadata or audio retrieval fails.
	ErrResolve = errors.New("failed to download track")

	// ErrFileNotFound is returned when no file matching the track title is
	// found in the downloads directory after retrieval.
	ErrFileNotFound = errors.New("downloaded file not found")

	// ErrPlaylistResolve is returned when the playlist info retrieval itself
	// fails, before any member is attempted.
	ErrPlaylistResolve = errors.New("failed to download playlist")
)
