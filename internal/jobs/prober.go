package jobs

import (
	"context"

	"thirdcoast.systems/clipforge/pkg/ffmpeg"
)

// FFprobe is the production Prober backed by ffprobe.
type FFprobe struct{}

// Probe implements Prober.
func (FFprobe) Probe(ctx context.Context, path string) (float64, int, int, error) {
	res, err := ffmpeg.Probe(ctx, path)
	if err != nil {
		return 0, 0, 0, err
	}
	return res.Duration, res.Width, res.Height, nil
}
