package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/clipforge/internal/speakers"
)

type fakeMedia struct {
	mu       sync.Mutex
	extracts []string
	concats  [][]string
	burns    []string
	failOn   string
}

func (f *fakeMedia) Extract(_ context.Context, _ string, _, _ float64, _ speakers.CropZone, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "extract" {
		return errors.New("extract boom")
	}
	f.extracts = append(f.extracts, out)
	return os.WriteFile(out, []byte("frag"), 0o644)
}

func (f *fakeMedia) Concat(_ context.Context, parts []string, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "concat" {
		return errors.New("concat boom")
	}
	f.concats = append(f.concats, parts)
	return os.WriteFile(out, []byte("master"), 0o644)
}

func (f *fakeMedia) Burn(_ context.Context, in, _ string, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "burn" {
		return errors.New("burn boom")
	}
	f.burns = append(f.burns, out)
	data, _ := os.ReadFile(in)
	return os.WriteFile(out, append(data, []byte("+subs")...), 0o644)
}

func testCuts(n int) []speakers.Cut {
	cuts := make([]speakers.Cut, n)
	offset := 300.0
	for i := range cuts {
		cuts[i] = speakers.Cut{SourceOffset: offset, Duration: 3.5, SpeakerID: i % 2}
		offset += 3.5
	}
	return cuts
}

func testZones() map[int]speakers.CropZone {
	return map[int]speakers.CropZone{
		0: {X: 0, Y: 0, W: 1080, H: 1920},
		1: {X: 600, Y: 0, W: 1080, H: 1920},
	}
}

func TestRenderMasterMultiCut(t *testing.T) {
	media := &fakeMedia{}
	p := NewPipeline(media)
	master := filepath.Join(t.TempDir(), "job_master.mp4")

	require.NoError(t, p.RenderMaster(context.Background(), "src.mp4", testCuts(3), testZones(), master))

	assert.Len(t, media.extracts, 3)
	require.Len(t, media.concats, 1)
	assert.Len(t, media.concats[0], 3)

	// Fragments are removed after a successful concat.
	for _, f := range media.concats[0] {
		_, err := os.Stat(f)
		assert.True(t, os.IsNotExist(err), "fragment %s should be removed", f)
	}
	_, err := os.Stat(master)
	assert.NoError(t, err)
}

func TestRenderMasterSingleCut(t *testing.T) {
	media := &fakeMedia{}
	p := NewPipeline(media)
	master := filepath.Join(t.TempDir(), "job_master.mp4")

	require.NoError(t, p.RenderMaster(context.Background(), "src.mp4", testCuts(1), testZones(), master))

	assert.Len(t, media.extracts, 1)
	assert.Empty(t, media.concats)
	assert.Equal(t, master, media.extracts[0])
}

func TestRenderMasterEmptySchedule(t *testing.T) {
	p := NewPipeline(&fakeMedia{})
	err := p.RenderMaster(context.Background(), "src.mp4", nil, testZones(), "out.mp4")
	assert.Error(t, err)
}

func TestRenderMasterExtractFailure(t *testing.T) {
	media := &fakeMedia{failOn: "extract"}
	p := NewPipeline(media)
	master := filepath.Join(t.TempDir(), "job_master.mp4")

	err := p.RenderMaster(context.Background(), "src.mp4", testCuts(3), testZones(), master)
	require.Error(t, err)
	assert.Empty(t, media.concats)
}

func TestPreserveMasterAndSidecarPath(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "clip_abc.mp4")
	require.NoError(t, os.WriteFile(master, []byte("master-bytes"), 0o644))

	sidecar := SidecarPath(master)
	assert.Equal(t, filepath.Join(dir, "clip_abc_no_captions.mp4"), sidecar)

	require.NoError(t, PreserveMaster(master, sidecar))
	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Equal(t, "master-bytes", string(data))
}
