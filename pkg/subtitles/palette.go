package subtitles

// Canonical speaker palette. Every speaker label outside the table renders
// white.
var speakerPalette = map[string]Color{
	"Speaker 1": {R: 0xFF, G: 0x45, B: 0x00}, // fire red/orange
	"Speaker 2": {R: 0x00, G: 0xBF, B: 0xFF}, // electric blue
	"Speaker 3": {R: 0x00, G: 0xFF, B: 0x88}, // neon green
}

// SpeakerColor returns the canonical color for a speaker label.
func SpeakerColor(label string) Color {
	if c, ok := speakerPalette[label]; ok {
		return c
	}
	return Color{R: 0xFF, G: 0xFF, B: 0xFF}
}

// DefaultStyle builds the standard burned-caption style row for a speaker.
func DefaultStyle(label string) Style {
	return Style{
		Name:      label,
		Font:      "Arial Black",
		Size:      22,
		Primary:   SpeakerColor(label),
		Outline:   3,
		Shadow:    1,
		Alignment: 2,
	}
}
