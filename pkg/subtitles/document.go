// Package subtitles models the styled caption document authored by the clip
// pipeline: an ordered list of speaker-attributed events plus a style table,
// readable and writable in two wire formats (the styled [Script Info] variant
// and the simple numbered-block variant).
package subtitles

import (
	"regexp"
	"sort"
	"strings"
)

// Format tags the wire format of a subtitle document on disk.
type Format string

const (
	FormatStyled Format = "styled" // [Script Info]/[V4+ Styles]/[Events] sections
	FormatSimple Format = "simple" // numbered index/start --> end/text blocks
)

// Ext returns the file extension used for documents of this format.
func (f Format) Ext() string {
	if f == FormatSimple {
		return ".srt"
	}
	return ".ass"
}

// Style is one row of the document's style table, keyed by speaker label.
type Style struct {
	Name      string
	Font      string
	Size      int
	Primary   Color
	Outline   int
	Shadow    int
	Alignment int
}

// Event is one caption: a time interval, a speaker label referencing the
// style table, the caption text, and an optional formatting overlay emitted
// verbatim ahead of the text in the styled variant.
type Event struct {
	Index   int
	Speaker string
	Start   float64 // seconds
	End     float64 // seconds
	Text    string  // may contain inline {\...} override groups
	Overlay string  // leading override group, e.g. {\fad(150,100)...}
}

var overrideGroups = regexp.MustCompile(`\{[^}]*\}`)

// PlainText returns the event text with every inline override group stripped.
// This is the projection clients see and edit.
func (e Event) PlainText() string {
	return strings.TrimSpace(overrideGroups.ReplaceAllString(e.Text, ""))
}

// Duration returns the event length in seconds.
func (e Event) Duration() float64 {
	return e.End - e.Start
}

// Document is the in-memory caption document.
type Document struct {
	Title  string
	Styles map[string]Style
	Events []Event
}

// NewDocument returns an empty document with an initialized style table.
func NewDocument(title string) *Document {
	return &Document{
		Title:  title,
		Styles: make(map[string]Style),
	}
}

// AddStyle inserts or replaces the style row for its speaker label.
func (d *Document) AddStyle(s Style) {
	if d.Styles == nil {
		d.Styles = make(map[string]Style)
	}
	d.Styles[s.Name] = s
}

// StyleNames returns the style table keys in stable sorted order, so writers
// emit deterministic output.
func (d *Document) StyleNames() []string {
	names := make([]string, 0, len(d.Styles))
	for name := range d.Styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reindex renumbers events 0..n-1 in slice order.
func (d *Document) Reindex() {
	for i := range d.Events {
		d.Events[i].Index = i
	}
}

// Span returns the start of the first event and the end of the last.
// Zero values are returned for an empty document.
func (d *Document) Span() (first, last float64) {
	if len(d.Events) == 0 {
		return 0, 0
	}
	return d.Events[0].Start, d.Events[len(d.Events)-1].End
}

// Caption is the client-facing projection of an event: plain text, wire-format
// timestamps, and the speaker's display color.
type Caption struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Speaker   string `json:"speaker"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Color     string `json:"color"`
}

// Captions projects the document's events into the client caption list.
func (d *Document) Captions() []Caption {
	out := make([]Caption, 0, len(d.Events))
	for _, ev := range d.Events {
		color := "#FFFFFF"
		if st, ok := d.Styles[ev.Speaker]; ok {
			color = st.Primary.Hex()
		}
		out = append(out, Caption{
			Index:     ev.Index,
			Text:      ev.PlainText(),
			Speaker:   ev.Speaker,
			StartTime: FormatStyledTime(ev.Start),
			EndTime:   FormatStyledTime(ev.End),
			Color:     color,
		})
	}
	return out
}
