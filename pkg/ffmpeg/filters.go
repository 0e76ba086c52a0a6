package ffmpeg

import (
	"fmt"
	"strings"
)

// CropPixels adds a crop filter with pixel coordinates.
func CropPixels(w, h, x, y int) Option {
	return Filter(fmt.Sprintf("crop=%d:%d:%d:%d", w, h, x, y))
}

// ScaleForceAspect scales with force_original_aspect_ratio.
// mode can be "increase", "decrease", or "disable".
func ScaleForceAspect(width, height int, mode string) Option {
	return Filter(fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=%s", width, height, mode))
}

// VerticalCrop scales the source up to cover a width×height portrait frame
// and crops a window at cropX. This is the 9:16 extraction path: the source
// is scaled so its height matches the target, then the speaker's lateral
// window is cut out.
func VerticalCrop(width, height, cropX int) Option {
	return OptionFunc(func(cmd *Command) {
		ScaleForceAspect(width, height, "increase").Apply(cmd)
		CropPixels(width, height, cropX, 0).Apply(cmd)
	})
}

// Subtitles burns a subtitle file into the video stream. The path is escaped
// for ffmpeg's filter-argument syntax (colons, quotes, brackets).
func Subtitles(path string) Option {
	return Filter("subtitles=" + escapeFilterPath(path))
}

// escapeFilterPath quotes a filename for use inside a filter argument.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
	)
	return "'" + r.Replace(path) + "'"
}
