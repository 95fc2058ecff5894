// Package transcode converts raw audio files to constant-bitrate MP3 by
// shelling out to ffmpeg.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// bitrate is the fixed output bitrate.
const bitrate = "320k"

// FFmpeg transcodes audio files using the ffmpeg binary.
type FFmpeg struct {
	bin     string
	timeout time.Duration
	log     *slog.Logger
}

// NewFFmpeg creates a transcoder that invokes ffmpeg from PATH. A timeout of
// zero disables the per-invocation deadline.
func NewFFmpeg(timeout time.Duration, log *slog.Logger) *FFmpeg {
	return &FFmpeg{bin: "ffmpeg", timeout: timeout, log: log}
}

// Transcode converts inputPath to a 320 kbps MP3 at outputPath. An existing
// file at outputPath is removed first. After a successful conversion the
// input file is deleted when it differs from the output; deletion failure is
// logged, not propagated. On failure the partial output is removed
// best-effort and ErrTranscode wraps the tool's stderr.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
		}
		return fmt.Errorf("stat input: %w", err)
	}

	// Best-effort removal of a stale target. The input must survive until
	// the tool reports success, so it is never the removal target.
	if outputPath != inputPath {
		if _, err := os.Stat(outputPath); err == nil {
			if err := os.Remove(outputPath); err != nil {
				f.log.Warn("failed to remove existing output", "path", outputPath, "error", err)
			}
		}
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	args := []string{
		"-y",
		"-loglevel", "error",
		"-nostdin",
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", bitrate,
		"-f", "mp3",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Partial output is useless to the catalog, drop it.
		if outputPath != inputPath {
			_ = os.Remove(outputPath)
		}
		return fmt.Errorf("%w: %v: %s", ErrTranscode, err, strings.TrimSpace(stderr.String()))
	}

	if inputPath != outputPath {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			f.log.Warn("failed to delete raw input", "path", inputPath, "error", err)
		}
	}
	return nil
}
