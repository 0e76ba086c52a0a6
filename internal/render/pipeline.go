package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"thirdcoast.systems/clipforge/internal/speakers"
)

// maxParallelExtracts bounds concurrent ffmpeg processes during segment
// extraction.
const maxParallelExtracts = 2

// Pipeline drives the render stages for one clip.
type Pipeline struct {
	Media Media
}

// NewPipeline wraps a Media capability.
func NewPipeline(media Media) *Pipeline {
	return &Pipeline{Media: media}
}

// RenderMaster produces the caption-free master at masterPath. With two or
// more schedule entries it extracts one fragment per cut using that
// speaker's crop zone and concatenates them; a single entry renders
// directly. Fragment files are removed on success and left for debugging on
// failure.
func (p *Pipeline) RenderMaster(ctx context.Context, source string, cuts []speakers.Cut, zones map[int]speakers.CropZone, masterPath string) error {
	if len(cuts) == 0 {
		return fmt.Errorf("render: empty cut schedule")
	}

	if len(cuts) == 1 {
		c := cuts[0]
		return p.Media.Extract(ctx, source, c.SourceOffset, c.Duration, zones[c.SpeakerID], masterPath)
	}

	fragments := make([]string, len(cuts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelExtracts)

	for i, c := range cuts {
		fragments[i] = fragmentPath(masterPath, i)
		g.Go(func() error {
			if err := p.Media.Extract(gctx, source, c.SourceOffset, c.Duration, zones[c.SpeakerID], fragments[i]); err != nil {
				return fmt.Errorf("render: extract segment %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := p.Media.Concat(ctx, fragments, masterPath); err != nil {
		return fmt.Errorf("render: concat segments: %w", err)
	}

	for _, f := range fragments {
		if err := os.Remove(f); err != nil {
			slog.Warn("failed to remove fragment", "path", f, "error", err)
		}
	}
	return nil
}

// Burn rasterizes the subtitle document onto in, writing out.
func (p *Pipeline) Burn(ctx context.Context, in, subtitlePath, out string) error {
	if err := p.Media.Burn(ctx, in, subtitlePath, out); err != nil {
		return fmt.Errorf("render: burn subtitles: %w", err)
	}
	return nil
}

// PreserveMaster copies the freshly rendered master to its sidecar path so
// later regenerations can burn onto a pristine copy. Runs before any burn.
func PreserveMaster(masterPath, sidecarPath string) error {
	src, err := os.Open(masterPath)
	if err != nil {
		return fmt.Errorf("render: open master: %w", err)
	}
	defer src.Close()

	tmp := sidecarPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("render: create master sidecar: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("render: copy master: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, sidecarPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("render: place master sidecar: %w", err)
	}
	return nil
}

// SidecarPath derives the no-captions master path for a final clip path:
// clips/<slug>.mp4 → clips/<slug>_no_captions.mp4.
func SidecarPath(finalPath string) string {
	ext := filepath.Ext(finalPath)
	return strings.TrimSuffix(finalPath, ext) + "_no_captions" + ext
}

func fragmentPath(masterPath string, i int) string {
	ext := filepath.Ext(masterPath)
	return strings.TrimSuffix(masterPath, ext) + fmt.Sprintf("_seg%02d", i) + ext
}
