package captions

import (
	"thirdcoast.systems/clipforge/internal/phrases"
	"thirdcoast.systems/clipforge/pkg/subtitles"
)

// FromPhrases authors the initial subtitle document from assembled phrases.
// Phrase timings come straight from the transcript and are preserved; only
// overlap and minimum-duration invariants are enforced before styling.
func FromPhrases(ps []phrases.Phrase) *subtitles.Document {
	doc := subtitles.NewDocument("Clipforge Captions")

	events := make([]subtitles.Event, 0, len(ps))
	for i, p := range ps {
		events = append(events, subtitles.Event{
			Index:   i,
			Speaker: p.SpeakerLabel,
			Start:   p.Start,
			End:     p.End,
			Text:    p.Text,
		})
	}

	eliminateOverlaps(events, modeMinimal)
	for i := range events {
		materializeStyle(doc, &events[i])
	}
	doc.Events = events
	doc.Reindex()
	return doc
}
