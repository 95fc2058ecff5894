package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// YTDLP implements MetadataFetcher and AudioRetriever by shelling out to the
// yt-dlp binary.
type YTDLP struct {
	bin     string
	timeout time.Duration
	log     *slog.Logger
}

// NewYTDLP creates a client that invokes yt-dlp from PATH. A timeout of zero
// disables the per-invocation deadline.
func NewYTDLP(timeout time.Duration, log *slog.Logger) *YTDLP {
	return &YTDLP{bin: "yt-dlp", timeout: timeout, log: log}
}

type ytdlpThumbnail struct {
	URL string `json:"url"`
}

type ytdlpEntry struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

type ytdlpInfo struct {
	Title      string           `json:"title"`
	Uploader   string           `json:"uploader"`
	Channel    string           `json:"channel"`
	Thumbnail  string           `json:"thumbnail"`
	Thumbnails []ytdlpThumbnail `json:"thumbnails"`
	Entries    []ytdlpEntry     `json:"entries"`
}

// TrackInfo fetches metadata for one track without downloading media.
func (y *YTDLP) TrackInfo(ctx context.Context, url string) (*TrackInfo, error) {
	out, err := y.run(ctx, "-J", "--no-warnings", "--skip-download", "--no-playlist", url)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse track info: %w", err)
	}

	thumbs := make([]Thumbnail, len(info.Thumbnails))
	for i, th := range info.Thumbnails {
		thumbs[i] = Thumbnail{URL: th.URL}
	}
	return &TrackInfo{
		Title:      info.Title,
		Uploader:   info.Uploader,
		Channel:    info.Channel,
		Thumbnail:  info.Thumbnail,
		Thumbnails: thumbs,
	}, nil
}

// PlaylistInfo enumerates playlist members without downloading media.
func (y *YTDLP) PlaylistInfo(ctx context.Context, url string) ([]PlaylistEntry, error) {
	out, err := y.run(ctx, "-J", "--flat-playlist", "--no-warnings", url)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse playlist info: %w", err)
	}

	entries := make([]PlaylistEntry, len(info.Entries))
	for i, e := range info.Entries {
		entries[i] = PlaylistEntry{URL: e.URL, ID: e.ID}
	}
	return entries, nil
}

// Fetch downloads the best available audio-only stream into outputTemplate.
func (y *YTDLP) Fetch(ctx context.Context, url, outputTemplate string) error {
	_, err := y.run(ctx,
		url,
		"--format", "bestaudio/best",
		"--output", outputTemplate,
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--extract-audio",
		"--audio-quality", "0",
	)
	return err
}

func (y *YTDLP) run(ctx context.Context, args ...string) ([]byte, error) {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, y.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
