// Package render composes the three media primitives — extract, concat,
// burn — into the clip-production paths, and provides the ffmpeg-backed
// production adapter.
package render

import (
	"context"
	"time"

	"thirdcoast.systems/clipforge/internal/speakers"
	"thirdcoast.systems/clipforge/pkg/ffmpeg"
)

// Media is the muxing capability the pipeline depends on. All operations are
// synchronous.
type Media interface {
	// Extract re-encodes a source span to a 1080×1920 fragment cropped at
	// the given zone.
	Extract(ctx context.Context, in string, offset, duration float64, crop speakers.CropZone, out string) error
	// Concat joins fragments with stream copy.
	Concat(ctx context.Context, parts []string, out string) error
	// Burn rasterizes a subtitle document into the image stream.
	Burn(ctx context.Context, in, subtitlePath, out string) error
}

// Encoding parameters for vertical fragments. Bitrate is fixed so concat
// segments always match.
const (
	videoBitrate = "6M"
	audioBitrate = "192k"
)

// FFmpeg is the production Media adapter.
type FFmpeg struct{}

// Extract implements Media.
func (FFmpeg) Extract(ctx context.Context, in string, offset, duration float64, crop speakers.CropZone, out string) error {
	return ffmpeg.Run(ctx, in, out,
		ffmpeg.Seek(time.Duration(offset*float64(time.Second))),
		ffmpeg.Duration(time.Duration(duration*float64(time.Second))),
		ffmpeg.VerticalCrop(crop.W, crop.H, crop.X),
		ffmpeg.VideoCodec("libx264"),
		ffmpeg.VideoBitrate(videoBitrate),
		ffmpeg.Preset("fast"),
		ffmpeg.PixelFormat("yuv420p"),
		ffmpeg.AudioCodec("aac"),
		ffmpeg.AudioBitrate(audioBitrate),
	)
}

// Concat implements Media.
func (FFmpeg) Concat(ctx context.Context, parts []string, out string) error {
	return ffmpeg.Concat(ctx, parts, out)
}

// Burn implements Media.
func (FFmpeg) Burn(ctx context.Context, in, subtitlePath, out string) error {
	return ffmpeg.Run(ctx, in, out,
		ffmpeg.Subtitles(subtitlePath),
		ffmpeg.VideoCodec("libx264"),
		ffmpeg.VideoBitrate(videoBitrate),
		ffmpeg.Preset("fast"),
		ffmpeg.PixelFormat("yuv420p"),
		ffmpeg.AudioCodec("copy"),
	)
}
