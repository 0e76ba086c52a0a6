package ytdlp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// FormatLadder is the fallback chain of format selectors tried in order
// across download attempts. The first entry matches the quality
// the render pipeline expects; the last accepts anything playable.
var FormatLadder = []string{
	"best[height<=1080]/best",
	"best",
}

// Download fetches the media for url into destDir under a stable name:
//
//	<destDir>/<sourceID>.<ext>
//
// sourceID is the caller-chosen cache key so repeated downloads of the same
// URL land on the same file. The chosen format selector is passed through.
func (c *Client) Download(ctx context.Context, url, destDir, sourceID, format string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(destDir) == "" {
		return fmt.Errorf("ytdlp: destDir is required")
	}
	if strings.TrimSpace(sourceID) == "" {
		return fmt.Errorf("ytdlp: sourceID is required")
	}
	if format == "" {
		format = FormatLadder[0]
	}

	tmpl := filepath.Join(destDir, sourceID+".%(ext)s")

	args := []string{
		"-o", tmpl,
		"--remux-video", "mp4",
		"--fixup", "force",
		"--progress",
		"--progress-delta", "5",
		"--newline",
		"--no-colors",
		"--no-playlist",
		"--format", format,
	}
	args = append(args, url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return nil
}
