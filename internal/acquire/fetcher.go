// Package acquire resolves a public video URL to a local media file. Results
// are cached per URL in a JSON index so two jobs for the same source share
// one download.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"thirdcoast.systems/clipforge/pkg/ytdlp"
)

// Source is a fetched media file.
type Source struct {
	LocalPath string `json:"local_path"`
	Title     string `json:"title"`
	SourceID  string `json:"source_id"`
}

// Fetch failure classes that fetchers report. The retry loop retries them
// like any other error and keeps them wrapped, so callers can test for them
// with errors.Is.
var (
	ErrNotAvailable = errors.New("source not available")
	ErrBlocked      = errors.New("source blocked")
)

// Fetcher downloads a URL into the workspace. Implementations may be called
// repeatedly for the same URL; attempt carries the 0-based retry count so the
// fetcher can degrade its format selection.
type Fetcher interface {
	Fetch(ctx context.Context, url string, attempt int) (Source, error)
}

// YTDLP fetches through the yt-dlp CLI. The format ladder degrades across
// retries: later attempts accept whatever the extractor will serve.
type YTDLP struct {
	Client *ytdlp.Client
	Dir    string
}

// Fetch implements Fetcher.
func (y *YTDLP) Fetch(ctx context.Context, url string, attempt int) (Source, error) {
	info, err := y.Client.GetInfo(ctx, url)
	if err != nil {
		return Source{}, classifyFetchErr(err)
	}

	sourceID := info.Extractor + "_" + info.ID
	format := ytdlp.FormatLadder[min(attempt, len(ytdlp.FormatLadder)-1)]
	if err := y.Client.Download(ctx, url, y.Dir, sourceID, format); err != nil {
		return Source{}, classifyFetchErr(err)
	}

	path, err := findDownloadedFile(y.Dir, sourceID)
	if err != nil {
		return Source{}, err
	}

	return Source{
		LocalPath: path,
		Title:     normalizeTitle(info.Title),
		SourceID:  sourceID,
	}, nil
}

func classifyFetchErr(err error) error {
	var execErr *ytdlp.ExecError
	if errors.As(err, &execErr) {
		stderr := strings.ToLower(execErr.Stderr)
		switch {
		case strings.Contains(stderr, "sign in") || strings.Contains(stderr, "blocked") ||
			strings.Contains(stderr, "429"):
			return fmt.Errorf("%w: %v", ErrBlocked, err)
		case strings.Contains(stderr, "unavailable") || strings.Contains(stderr, "private") ||
			strings.Contains(stderr, "removed"):
			return fmt.Errorf("%w: %v", ErrNotAvailable, err)
		}
	}
	return err
}

func findDownloadedFile(dir, sourceID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, sourceID+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		// Skip sidecars yt-dlp may have written.
		switch filepath.Ext(m) {
		case ".json", ".part", ".ytdl":
			continue
		}
		if st, err := os.Stat(m); err == nil && st.Size() > 0 {
			return m, nil
		}
	}
	return "", fmt.Errorf("acquire: downloaded file for %s not found in %s", sourceID, dir)
}

// normalizeTitle NFC-normalizes the fetched title and strips control
// characters so it is safe for logs and slugs.
func normalizeTitle(title string) string {
	title = norm.NFC.String(title)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
}
