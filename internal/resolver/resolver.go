// Package resolver turns SoundCloud URLs into local raw audio files with
// metadata, using an external retrieval tool behind small capability
// interfaces.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/PragmaticsGhost/scripper/internal/catalog"
	"github.com/PragmaticsGhost/scripper/internal/source"
)

// prefixLen is how many sanitized characters participate in the relaxed
// directory match.
const prefixLen = 50

// similarityThreshold gates the fuzzy fallback match. High on purpose: the
// fallback exists to absorb small formatting differences introduced by the
// retrieval tool, not to guess.
const similarityThreshold = 0.92

// TrackInfo is the metadata the source site reports for one track.
type TrackInfo struct {
	Title      string
	Uploader   string
	Channel    string
	Thumbnail  string
	Thumbnails []Thumbnail
}

// Thumbnail is one artwork candidate, ordered worst to best.
type Thumbnail struct {
	URL string
}

// PlaylistEntry is one member reference of a playlist.
type PlaylistEntry struct {
	URL string
	ID  string
}

// MetadataFetcher retrieves track and playlist metadata from the source site.
type MetadataFetcher interface {
	TrackInfo(ctx context.Context, url string) (*TrackInfo, error)
	PlaylistInfo(ctx context.Context, url string) ([]PlaylistEntry, error)
}

// AudioRetriever downloads the best available audio-only stream for url into
// the templated output path.
type AudioRetriever interface {
	Fetch(ctx context.Context, url, outputTemplate string) error
}

// Track describes one resolved-but-not-yet-finished track.
type Track struct {
	Title      string
	Artist     string
	ArtworkURL string
	RawPath    string
	FinalPath  string
}

// Resolver materializes tracks into the downloads directory.
type Resolver struct {
	meta  MetadataFetcher
	audio AudioRetriever
	dir   string
	log   *slog.Logger
}

// New creates a Resolver writing into dir.
func New(meta MetadataFetcher, audio AudioRetriever, dir string, log *slog.Logger) *Resolver {
	return &Resolver{meta: meta, audio: audio, dir: dir, log: log}
}

// ResolveTrack fetches metadata and raw audio for one track URL and returns
// its descriptor. Retrieval failures collapse into ErrResolve; a post-
// retrieval match miss returns ErrFileNotFound.
func (r *Resolver) ResolveTrack(ctx context.Context, rawURL string) (*Track, error) {
	if !source.IsHTTP(rawURL) {
		return nil, fmt.Errorf("%w: invalid url protocol", ErrResolve)
	}

	info, err := r.meta.TrackInfo(ctx, rawURL)
	if err != nil {
		r.log.Error("metadata fetch failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("%w: metadata: %v", ErrResolve, err)
	}

	title := info.Title
	if title == "" {
		title = "Unknown"
	}
	artist := info.Uploader
	if artist == "" {
		artist = info.Channel
	}
	if artist == "" {
		artist = "Unknown"
	}
	artwork := info.Thumbnail
	if artwork == "" && len(info.Thumbnails) > 0 {
		artwork = info.Thumbnails[len(info.Thumbnails)-1].URL
	}

	template := filepath.Join(r.dir, "%(title)s.%(ext)s")
	if err := r.audio.Fetch(ctx, rawURL, template); err != nil {
		r.log.Error("audio retrieval failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("%w: retrieval: %v", ErrResolve, err)
	}

	sanitized := catalog.SanitizeFilename(title)
	rawName, err := r.locate(sanitized)
	if err != nil {
		r.log.Error("downloaded file not located", "title", title, "sanitized", sanitized)
		return nil, err
	}

	return &Track{
		Title:      title,
		Artist:     artist,
		ArtworkURL: artwork,
		RawPath:    filepath.Join(r.dir, rawName),
		FinalPath:  filepath.Join(r.dir, sanitized+".mp3"),
	}, nil
}

// PlaylistItem is the resolution outcome for one playlist member. Exactly
// one of Track and Err is set.
type PlaylistItem struct {
	Track *Track
	Err   error
}

// ResolvePlaylist enumerates the playlist members and resolves each in
// order. A member failure is logged and recorded in its item so callers can
// report it at the right position; it never aborts the remaining members.
// Members that are not http(s) references are dropped entirely. Only a
// failure of the playlist info retrieval itself aborts with
// ErrPlaylistResolve.
func (r *Resolver) ResolvePlaylist(ctx context.Context, rawURL string) ([]PlaylistItem, error) {
	if !source.IsHTTP(rawURL) {
		return nil, fmt.Errorf("%w: invalid url protocol", ErrPlaylistResolve)
	}

	entries, err := r.meta.PlaylistInfo(ctx, rawURL)
	if err != nil {
		r.log.Error("playlist info fetch failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPlaylistResolve, err)
	}

	items := make([]PlaylistItem, 0, len(entries))
	for _, entry := range entries {
		member := entry.URL
		if member == "" {
			member = entry.ID
		}
		if !source.IsHTTP(member) {
			r.log.Warn("skipping playlist member with non-http reference", "member", member)
			continue
		}

		track, err := r.ResolveTrack(ctx, member)
		if err != nil {
			r.log.Error("playlist member failed", "member", member, "error", err)
			items = append(items, PlaylistItem{Err: err})
			continue
		}
		items = append(items, PlaylistItem{Track: track})
	}
	return items, nil
}

// locate scans the downloads directory for the file the retrieval tool just
// wrote. The tool derives the name from the track title itself, so the scan
// matches the sanitized title exactly (without extension), then by the first
// 50 sanitized characters, then by a threshold-gated similarity fallback for
// formatting differences the first two rules cannot absorb.
func (r *Resolver) locate(sanitized string) (string, error) {
	dirents, err := os.ReadDir(r.dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}

	prefix := sanitized
	if runes := []rune(prefix); len(runes) > prefixLen {
		prefix = string(runes[:prefixLen])
	}

	var names []string
	for _, d := range dirents {
		if !d.IsDir() {
			names = append(names, d.Name())
		}
	}

	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if stem == sanitized || strings.Contains(name, prefix) {
			return name, nil
		}
	}

	// Similarity fallback.
	best := ""
	var bestScore float32
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		score := edlib.JaroWinklerSimilarity(stem, sanitized)
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if best != "" && bestScore >= similarityThreshold {
		r.log.Debug("located download via similarity fallback", "file", best, "score", bestScore)
		return best, nil
	}

	return "", ErrFileNotFound
}
