package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTime parses a caption timestamp into seconds. Both wire formats are
// accepted: the styled variant's H:MM:SS.CC (centiseconds) and the simple
// variant's HH:MM:SS,mmm (milliseconds). A missing hour field (MM:SS.CC) is
// tolerated because some clients drop it.
func ParseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("subtitles: empty timestamp")
	}

	sep := "."
	if strings.Contains(s, ",") {
		sep = ","
	}

	parts := strings.Split(s, ":")
	var hours, minutes int
	var secPart string
	var err error

	switch len(parts) {
	case 3:
		hours, err = strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return 0, fmt.Errorf("subtitles: bad hours in %q: %w", s, err)
		}
		minutes, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("subtitles: bad minutes in %q: %w", s, err)
		}
		secPart = parts[2]
	case 2:
		minutes, err = strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return 0, fmt.Errorf("subtitles: bad minutes in %q: %w", s, err)
		}
		secPart = parts[1]
	default:
		return 0, fmt.Errorf("subtitles: malformed timestamp %q", s)
	}

	if hours < 0 || minutes < 0 {
		return 0, fmt.Errorf("subtitles: negative field in timestamp %q", s)
	}

	secs := 0
	frac := 0.0
	if idx := strings.Index(secPart, sep); idx >= 0 {
		secs, err = strconv.Atoi(secPart[:idx])
		if err != nil {
			return 0, fmt.Errorf("subtitles: bad seconds in %q: %w", s, err)
		}
		fracDigits := secPart[idx+1:]
		fracVal, err := strconv.Atoi(fracDigits)
		if err != nil {
			return 0, fmt.Errorf("subtitles: bad fraction in %q: %w", s, err)
		}
		switch len(fracDigits) {
		case 2: // centiseconds
			frac = float64(fracVal) / 100
		case 3: // milliseconds
			frac = float64(fracVal) / 1000
		default:
			return 0, fmt.Errorf("subtitles: unsupported fraction precision in %q", s)
		}
	} else {
		secs, err = strconv.Atoi(strings.TrimSpace(secPart))
		if err != nil {
			return 0, fmt.Errorf("subtitles: bad seconds in %q: %w", s, err)
		}
	}

	if secs < 0 || frac < 0 {
		return 0, fmt.Errorf("subtitles: negative field in timestamp %q", s)
	}

	return float64(hours)*3600 + float64(minutes)*60 + float64(secs) + frac, nil
}

// FormatStyledTime renders seconds as H:MM:SS.CC for the styled variant.
func FormatStyledTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	// Round to centiseconds first so 1.999 doesn't render as 1:59.99+1cs carry bugs.
	cs := int64(seconds*100 + 0.5)
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// FormatSimpleTime renders seconds as HH:MM:SS,mmm for the simple variant.
func FormatSimpleTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
