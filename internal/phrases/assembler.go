// Package phrases turns word-timed transcript segments into short,
// speaker-attributed phrases sized for burned-in captions.
package phrases

import (
	"strings"

	"thirdcoast.systems/clipforge/internal/transcribe"
	"thirdcoast.systems/clipforge/pkg/subtitles"
)

// Phrase is a 2–4 word caption unit with speaker attribution.
type Phrase struct {
	Text         string
	Start        float64
	End          float64
	SpeakerID    int
	SpeakerLabel string
	SpeakerColor subtitles.Color
	IsEmphasized bool
}

// Speaker pairs an id with its display label for attribution.
type Speaker struct {
	ID    int
	Label string
}

// maxPhraseWords caps a phrase before a forced break.
const maxPhraseWords = 4

// Assemble converts transcript segments into phrases. When the transcript
// carries no diarization, speakers are assigned per input segment by content
// heuristics (English cue words; behavior for other languages is undefined).
// speakers must be non-empty; a single speaker gets every phrase.
func Assemble(segments []transcribe.Segment, speakers []Speaker) []Phrase {
	if len(speakers) == 0 {
		speakers = []Speaker{{ID: 0, Label: "Speaker 1"}}
	}

	var out []Phrase
	for segIdx, seg := range segments {
		speaker := pickSpeaker(seg.Text, segIdx, len(segments), speakers)
		for _, p := range splitSegment(seg) {
			out = append(out, Phrase{
				Text:         p.text,
				Start:        p.start,
				End:          p.end,
				SpeakerID:    speaker.ID,
				SpeakerLabel: speaker.Label,
				SpeakerColor: subtitles.SpeakerColor(speaker.Label),
				IsEmphasized: HasEmphasis(p.text),
			})
		}
	}
	return out
}

type rawPhrase struct {
	text       string
	start, end float64
}

func splitSegment(seg transcribe.Segment) []rawPhrase {
	if len(seg.Words) == 0 {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			return nil
		}
		return []rawPhrase{{text: text, start: seg.Start, end: seg.End}}
	}

	var phrases []rawPhrase
	var words []transcribe.Word
	for i, w := range seg.Words {
		words = append(words, w)

		shouldBreak := len(words) >= maxPhraseWords ||
			(len(words) >= 2 && isNaturalBreak(w.Word)) ||
			i == len(seg.Words)-1

		if !shouldBreak {
			continue
		}

		var b strings.Builder
		for _, pw := range words {
			b.WriteString(pw.Word)
		}
		text := strings.TrimSpace(b.String())
		if text != "" {
			phrases = append(phrases, rawPhrase{
				text:  text,
				start: words[0].Start,
				end:   words[len(words)-1].End,
			})
		}
		words = nil
	}
	return phrases
}

func isNaturalBreak(word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	switch word[len(word)-1] {
	case ',', '.', '!', '?', ':':
		return true
	}
	return breakTokens[strings.ToLower(word)]
}

// pickSpeaker attributes a whole input segment to one speaker. Rules, in
// order: aggressive language and questions go to speaker 0; long segments to
// speaker 1; otherwise the first half of segments to speaker 1 and the rest
// to speaker 0.
func pickSpeaker(text string, segIdx, totalSegs int, speakers []Speaker) Speaker {
	if len(speakers) == 1 {
		return speakers[0]
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range aggressiveWords {
		if strings.Contains(lower, w) {
			return speakers[0]
		}
	}

	if strings.Contains(text, "?") {
		return speakers[0]
	}
	for _, start := range questionStarts {
		if strings.HasPrefix(lower, start) {
			return speakers[0]
		}
	}

	if len(strings.Fields(text)) > 8 {
		return speakers[1]
	}

	if float64(segIdx) < float64(totalSegs)/2 {
		return speakers[1]
	}
	return speakers[0]
}
