// Package captions rebuilds the styled subtitle document from user edits and
// re-burns it onto the preserved caption-free master.
package captions

import (
	"fmt"
	"sort"

	"thirdcoast.systems/clipforge/pkg/subtitles"
)

// Edit is the caption edit wire shape: ordered entries with styled-variant
// time strings.
type Edit struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Speaker   string `json:"speaker_label"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// eventsFromEdits parses edits into events, sorted by index. Unparseable
// times are a caller error, not something to repair.
func eventsFromEdits(edits []Edit) ([]subtitles.Event, error) {
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	events := make([]subtitles.Event, 0, len(sorted))
	for _, e := range sorted {
		start, err := subtitles.ParseTime(e.StartTime)
		if err != nil {
			return nil, fmt.Errorf("caption %d: %w", e.Index, err)
		}
		end, err := subtitles.ParseTime(e.EndTime)
		if err != nil {
			return nil, fmt.Errorf("caption %d: %w", e.Index, err)
		}
		speaker := e.Speaker
		if speaker == "" {
			speaker = "Speaker 1"
		}
		events = append(events, subtitles.Event{
			Index:   e.Index,
			Speaker: speaker,
			Start:   start,
			End:     end,
			Text:    e.Text,
		})
	}
	return events, nil
}
