// Package pipeline sequences resolve, transcode, and tag for every track in
// a batch, isolating per-track failures.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/PragmaticsGhost/scripper/internal/resolver"
	"github.com/PragmaticsGhost/scripper/internal/source"
)

// failedMessage is the only error text a per-track failure exposes to
// clients. Detail goes to the server log.
const failedMessage = "Failed to process track"

// TrackResolver resolves source URLs into local raw audio files.
type TrackResolver interface {
	ResolveTrack(ctx context.Context, url string) (*resolver.Track, error)
	ResolvePlaylist(ctx context.Context, url string) ([]resolver.PlaylistItem, error)
}

// Transcoder converts a raw audio file into the final MP3.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// Tagger embeds metadata into the finished MP3.
type Tagger interface {
	Tag(ctx context.Context, path, title, artist, artworkURL string) error
}

// TrackResult is the outcome for one track of a batch. Immutable once
// produced.
type TrackResult struct {
	Success  bool   `json:"success"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchResult aggregates the ordered per-track outcomes of one submitted
// reference.
type BatchResult struct {
	Total   int           `json:"total"`
	Results []TrackResult `json:"results"`
}

// Pipeline is the batch orchestrator.
type Pipeline struct {
	resolver  TrackResolver
	transcode Transcoder
	tagger    Tagger
	log       *slog.Logger
}

// New creates a Pipeline.
func New(res TrackResolver, tc Transcoder, tg Tagger, log *slog.Logger) *Pipeline {
	return &Pipeline{resolver: res, transcode: tc, tagger: tg, log: log}
}

// Process resolves ref into one or more tracks and runs each through
// transcode and tag, strictly in resolution order. A track's failure is
// recorded in its result entry and never aborts the siblings.
func (p *Pipeline) Process(ctx context.Context, ref source.Reference) (*BatchResult, error) {
	var items []resolver.PlaylistItem

	switch ref.Kind {
	case source.KindPlaylist:
		resolved, err := p.resolver.ResolvePlaylist(ctx, ref.URL)
		if err != nil {
			return nil, err
		}
		items = resolved
	default:
		track, err := p.resolver.ResolveTrack(ctx, ref.URL)
		if err != nil {
			return nil, err
		}
		items = []resolver.PlaylistItem{{Track: track}}
	}

	results := make([]TrackResult, 0, len(items))
	for _, item := range items {
		if item.Err != nil {
			results = append(results, TrackResult{Title: "Unknown", Error: failedMessage})
			continue
		}
		results = append(results, p.processTrack(ctx, item.Track))
	}

	return &BatchResult{Total: len(items), Results: results}, nil
}

func (p *Pipeline) processTrack(ctx context.Context, track *resolver.Track) TrackResult {
	title := track.Title
	if title == "" {
		title = "Unknown"
	}

	if err := p.transcode.Transcode(ctx, track.RawPath, track.FinalPath); err != nil {
		p.log.Error("transcode failed", "title", title, "error", err)
		return TrackResult{Title: title, Error: failedMessage}
	}

	if err := p.tagger.Tag(ctx, track.FinalPath, track.Title, track.Artist, track.ArtworkURL); err != nil {
		p.log.Error("tagging failed", "title", title, "error", err)
		return TrackResult{Title: title, Error: failedMessage}
	}

	return TrackResult{
		Success:  true,
		Title:    title,
		Artist:   track.Artist,
		Filename: filepath.Base(track.FinalPath),
	}
}
