package acquire

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
	failWith error
	dir      string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ int) (Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return Source{}, f.failWith
	}
	path := filepath.Join(f.dir, "yt_abc.mp4")
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		return Source{}, err
	}
	return Source{LocalPath: path, Title: "A Talk", SourceID: "yt_abc"}, nil
}

func newTestAcquirer(t *testing.T, f Fetcher) *Acquirer {
	t.Helper()
	a, err := New(f, t.TempDir())
	require.NoError(t, err)
	a.sleep = func(context.Context, time.Duration) error { return nil }
	return a
}

func TestAcquireCachesPerURL(t *testing.T) {
	f := &fakeFetcher{dir: t.TempDir()}
	a := newTestAcquirer(t, f)

	src1, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	src2, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)

	assert.Equal(t, src1, src2)
	assert.Equal(t, 1, f.calls)
}

func TestAcquireEvictsStaleEntries(t *testing.T) {
	f := &fakeFetcher{dir: t.TempDir()}
	a := newTestAcquirer(t, f)

	src, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)

	// Delete the cached file; the next acquire must re-fetch.
	require.NoError(t, os.Remove(src.LocalPath))

	_, err = a.Acquire(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestAcquireRetriesBlockedFetches(t *testing.T) {
	f := &fakeFetcher{dir: t.TempDir(), failures: 2, failWith: ErrBlocked}
	a := newTestAcquirer(t, f)

	src, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, "yt_abc", src.SourceID)
}

func TestAcquireExhaustsRetries(t *testing.T) {
	f := &fakeFetcher{dir: t.TempDir(), failures: 1000, failWith: ErrNotAvailable}
	a := newTestAcquirer(t, f)

	_, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, maxAttempts, f.calls)
}

func TestAcquireSurvivesCorruptIndex(t *testing.T) {
	f := &fakeFetcher{dir: t.TempDir()}
	a := newTestAcquirer(t, f)

	require.NoError(t, os.WriteFile(a.cachePath(), []byte("{not json"), 0o644))

	_, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
}

func TestCacheKeyIsStable(t *testing.T) {
	assert.Equal(t, cacheKey("https://youtu.be/x"), cacheKey("https://youtu.be/x"))
	assert.NotEqual(t, cacheKey("https://youtu.be/x"), cacheKey("https://youtu.be/y"))
	assert.Len(t, cacheKey("anything"), 12)
}
