package phrases

import "strings"

// EmphasisLexicon is the canonical set of terms that get emphasized styling
// in burned captions. Single source of truth; the caption engine matches
// against this same list.
var EmphasisLexicon = []string{
	"fucking", "shit", "damn", "crazy", "insane", "ridiculous",
	"amazing", "incredible", "awesome", "epic", "legendary",
}

// aggressiveWords bias a segment toward speaker 0 during heuristic
// attribution.
var aggressiveWords = []string{
	"fucking", "shit", "damn", "crazy", "insane", "ridiculous", "what the hell",
}

// questionStarts are leading words that mark a segment as a question.
var questionStarts = []string{"what", "why", "how", "is", "was", "did"}

// breakTokens end a phrase mid-segment when at least two words have
// accumulated.
var breakTokens = map[string]bool{
	"and": true, "but": true, "or": true, "so": true,
	"then": true, "well": true, "yeah": true, "ok": true,
}

// HasEmphasis reports whether text contains any lexicon term,
// case-insensitively.
func HasEmphasis(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range EmphasisLexicon {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
