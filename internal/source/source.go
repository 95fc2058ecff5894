// Package source validates and classifies submitted SoundCloud URLs.
package source

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when a URL fails protocol or host validation.
// Validation happens before any network call.
var ErrInvalidURL = errors.New("invalid soundcloud url")

// Kind classifies a reference as a single track or a playlist.
type Kind string

const (
	KindTrack    Kind = "track"
	KindPlaylist Kind = "playlist"
)

// playlistMarker is the path segment SoundCloud uses for playlists.
const playlistMarker = "/sets/"

// allowedHosts is the fixed allow-list of SoundCloud domains.
var allowedHosts = map[string]bool{
	"soundcloud.com":     true,
	"www.soundcloud.com": true,
	"m.soundcloud.com":   true,
}

// Reference is a validated, classified input URL.
type Reference struct {
	URL  string
	Kind Kind
}

// Parse validates raw as an absolute http(s) SoundCloud URL and classifies
// it as a track or playlist reference.
func Parse(raw string) (Reference, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Reference{}, ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Reference{}, ErrInvalidURL
	}
	if !allowedHosts[u.Hostname()] {
		return Reference{}, ErrInvalidURL
	}

	kind := KindTrack
	if strings.Contains(u.Path, playlistMarker) {
		kind = KindPlaylist
	}
	return Reference{URL: raw, Kind: kind}, nil
}

// IsHTTP reports whether raw parses as an absolute http(s) URL. Playlist
// members are re-validated with this before resolution.
func IsHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
