// Package tag embeds ID3v2 metadata (title, artist, album, cover art) into
// finished MP3 files.
package tag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bogem/id3v2"
)

const (
	// albumName is the fixed album tag applied to every file.
	albumName = "SoundCloud"

	artworkTimeout = 10 * time.Second
	maxRedirects   = 3
	maxArtworkSize = 10 << 20 // 10 MiB
)

// Tagger writes ID3v2 tags and fetches remote cover art under strict safety
// constraints.
type Tagger struct {
	client *http.Client
	log    *slog.Logger

	// safe guards artwork URLs; swapped out in tests.
	safe func(string) bool
}

// NewTagger creates a Tagger. The artwork HTTP client enforces the fetch
// timeout, the redirect cap, and re-validates the target host on every
// redirect hop.
func NewTagger(log *slog.Logger) *Tagger {
	t := &Tagger{log: log, safe: IsSafeURL}
	t.client = &http.Client{
		Timeout: artworkTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if !t.safe(req.URL.String()) {
				return ErrUnsafeURL
			}
			return nil
		},
	}
	return t
}

// Tag writes title, artist, and the fixed album into the MP3 at path, and
// embeds artworkURL as the front cover when it can be fetched safely. A
// missing or failed artwork fetch is logged and never fails the operation;
// only the tag write itself returns ErrTag.
func (t *Tagger) Tag(ctx context.Context, path, title, artist, artworkURL string) error {
	var artwork []byte
	var mime string

	if artworkURL != "" {
		var err error
		artwork, mime, err = t.fetchArtwork(ctx, artworkURL)
		if err != nil {
			t.log.Warn("artwork fetch failed", "url", artworkURL, "error", err)
		}
	}

	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: open: %v", ErrTag, err)
	}
	defer id3.Close()

	id3.SetVersion(3)
	id3.SetTitle(orUnknown(title))
	id3.SetArtist(orUnknown(artist))
	id3.SetAlbum(albumName)

	if artwork != nil {
		id3.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mime,
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     artwork,
		})
	}

	if err := id3.Save(); err != nil {
		return fmt.Errorf("%w: save: %v", ErrTag, err)
	}
	return nil
}

// fetchArtwork retrieves the artwork payload, refusing unsafe hosts and
// bounding the response size.
func (t *Tagger) fetchArtwork(ctx context.Context, rawURL string) ([]byte, string, error) {
	if !t.safe(rawURL) {
		return nil, "", ErrUnsafeURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxArtworkSize {
		return nil, "", ErrArtworkTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtworkSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxArtworkSize {
		return nil, "", ErrArtworkTooLarge
	}

	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
