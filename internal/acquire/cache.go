package acquire

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// cacheFileName is the URL→file index inside the downloads directory.
const cacheFileName = "video_cache.json"

type cacheEntry struct {
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// cacheKey is a short hash of the URL.
func cacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:12]
}

func (a *Acquirer) cachePath() string {
	return filepath.Join(a.dir, cacheFileName)
}

// loadIndex reads the cache index from disk. A missing file is an empty
// index; a corrupt one is discarded.
func (a *Acquirer) loadIndex() map[string]cacheEntry {
	data, err := os.ReadFile(a.cachePath())
	if err != nil {
		return map[string]cacheEntry{}
	}
	index := map[string]cacheEntry{}
	if err := json.Unmarshal(data, &index); err != nil {
		return map[string]cacheEntry{}
	}
	return index
}

// saveIndex writes the index with replace-on-rename so a crash mid-write
// never corrupts the cache.
func (a *Acquirer) saveIndex(index map[string]cacheEntry) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	tmp := a.cachePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("acquire: write cache index: %w", err)
	}
	if err := os.Rename(tmp, a.cachePath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("acquire: replace cache index: %w", err)
	}
	return nil
}
