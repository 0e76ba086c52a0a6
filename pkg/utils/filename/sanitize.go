// Package filename turns fetched video titles into safe clip artifact names.
package filename

import (
	"regexp"
	"strings"
)

// unsafeChars matches whitespace plus characters not safe for filenames on
// any major OS.
var unsafeChars = regexp.MustCompile(`[\s<>:"/\\|?*\x00-\x1f]`)

// multiDash collapses runs of dashes/underscores.
var multiDash = regexp.MustCompile(`[-_]{2,}`)

// Sanitize converts an arbitrary string into a filename-safe slug: whitespace
// and characters unsafe in filenames on major OSes become dashes, and runs of
// dashes/underscores collapse to a single dash. Other characters, including
// non-ASCII letters and punctuation such as '!', are kept. Leading/trailing dashes
// and dots are stripped (hidden files, trailing dots on Windows). The output
// is truncated to maxLen bytes; 0 defaults to 80, sized so a title slug plus
// job id plus the _no_captions / _captions sidecar suffixes stays well under
// common path limits.
func Sanitize(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 80
	}

	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}

	s = unsafeChars.ReplaceAllString(s, "-")
	s = multiDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")

	if len(s) > maxLen {
		s = s[:maxLen]
		// Clean up a trailing partial dash/dot from the truncation.
		s = strings.TrimRight(s, "-.")
	}

	return s
}
