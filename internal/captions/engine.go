package captions

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"thirdcoast.systems/clipforge/internal/phrases"
	"thirdcoast.systems/clipforge/pkg/subtitles"
)

// Timing constants. The gap is wider in redistribute modes because computed
// timings can land arbitrarily close together; minimal-fix mode preserves
// authored gaps as far as possible.
const (
	minDuration     = 0.3  // seconds, hard floor for any event
	gapMinimal      = 0.05 // seconds between events, minimal-fix mode
	gapRedistribute = 0.1  // seconds between events, redistribute modes
	shortExpandTo   = 0.8  // seconds, expansion target for sub-floor events

	// Redistribution without original timings places events inside this
	// fraction band of the clip.
	bandStart = 0.05
	bandEnd   = 0.90

	coverageThreshold = 0.6
)

// timingMode records which reconciliation path ran, which decides the
// inter-event gap.
type timingMode int

const (
	modeMinimal timingMode = iota
	modeRedistribute
)

// Burner re-rasterizes captions onto a media file.
type Burner interface {
	Burn(ctx context.Context, in, subtitlePath, out string) error
}

// Engine rebuilds subtitle documents from edits.
type Engine struct {
	burner Burner
}

// NewEngine wraps a Burner.
func NewEngine(burner Burner) *Engine {
	return &Engine{burner: burner}
}

// Rebuild produces the new subtitle document from user edits. originalDoc is
// the authored document on disk (nil when unavailable) and clipDuration the
// clip length in seconds. The returned document has exactly as many events
// as the normalized edit list.
func (e *Engine) Rebuild(originalDoc *subtitles.Document, edits []Edit, clipDuration float64) (*subtitles.Document, error) {
	events, err := eventsFromEdits(edits)
	if err != nil {
		return nil, err
	}

	events = subtitles.NormalizeFragments(events)

	mode := reconcileTimings(events, originalDoc, clipDuration)
	eliminateOverlaps(events, mode)

	doc := subtitles.NewDocument("Clipforge Captions")
	for i := range events {
		materializeStyle(doc, &events[i])
	}
	doc.Events = events
	doc.Reindex()
	return doc, nil
}

// Regenerate runs the full edit cycle: rebuild the document, serialize it,
// burn it onto the preserved master, and atomically replace the final clip.
// On any failure the previous final file is left untouched.
func (e *Engine) Regenerate(ctx context.Context, docPath string, edits []Edit, clipDuration float64, masterPath, finalPath string) (*subtitles.Document, error) {
	var original *subtitles.Document
	if f, err := os.Open(docPath); err == nil {
		original, err = subtitles.ReadStyled(f)
		f.Close()
		if err != nil {
			slog.Warn("original subtitle document unreadable, regenerating without it", "path", docPath, "error", err)
			original = nil
		}
	}

	doc, err := e.Rebuild(original, edits, clipDuration)
	if err != nil {
		return nil, err
	}

	// Serialize with replace-on-rename so a failed write never clobbers the
	// authoritative timing source.
	tmpDoc := docPath + ".tmp"
	f, err := os.Create(tmpDoc)
	if err != nil {
		return nil, fmt.Errorf("captions: create document: %w", err)
	}
	if err := subtitles.WriteStyled(f, doc); err != nil {
		f.Close()
		os.Remove(tmpDoc)
		return nil, fmt.Errorf("captions: write document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpDoc)
		return nil, err
	}
	if err := os.Rename(tmpDoc, docPath); err != nil {
		os.Remove(tmpDoc)
		return nil, fmt.Errorf("captions: replace document: %w", err)
	}

	tmpFinal := finalPath + ".regen.tmp" + ext(finalPath)
	if err := e.burner.Burn(ctx, masterPath, docPath, tmpFinal); err != nil {
		os.Remove(tmpFinal)
		return nil, fmt.Errorf("captions: burn: %w", err)
	}
	if err := os.Rename(tmpFinal, finalPath); err != nil {
		os.Remove(tmpFinal)
		return nil, fmt.Errorf("captions: swap final: %w", err)
	}

	return doc, nil
}

func ext(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

// reconcileTimings decides the timing of every event in place and returns
// the mode used. The original document's timings are authoritative: they
// carry the actual speech alignment.
func reconcileTimings(events []subtitles.Event, original *subtitles.Document, clipDuration float64) timingMode {
	if len(events) == 0 {
		return modeMinimal
	}

	if original != nil && len(original.Events) > 0 {
		orig := original.Events
		switch {
		case len(events) <= len(orig):
			// Copy timings one-to-one; edits beyond the original count do
			// not exist in this branch.
			for i := range events {
				events[i].Start = orig[i].Start
				events[i].End = orig[i].End
			}
			return modeMinimal
		default:
			// More edits than speech intervals: spread them across the
			// original speech span with equal stride.
			first, last := original.Span()
			span := last - first
			stride := span / float64(len(events))
			duration := span / float64(len(events)) * 0.7
			if duration > 2.0 {
				duration = 2.0
			}
			for i := range events {
				events[i].Start = first + float64(i)*stride
				events[i].End = events[i].Start + duration
				if events[i].End > last {
					events[i].End = last
				}
			}
			return modeRedistribute
		}
	}

	// No original document. Detect "compression": if the provided timings
	// cover too little of the clip the client likely collapsed them, so
	// respread; otherwise keep what was provided and only expand events too
	// short to read.
	first := events[0].Start
	last := events[len(events)-1].End
	coverage := (last - first) / clipDuration
	if coverage >= coverageThreshold {
		for i := range events {
			if events[i].Duration() < minDuration {
				events[i].End = events[i].Start + shortExpandTo
			}
		}
		return modeMinimal
	}

	lo := bandStart * clipDuration
	hi := bandEnd * clipDuration
	n := float64(len(events))
	stride := (hi - lo) / n
	if stride < 0.3 {
		stride = 0.3
	}
	if stride > 2.0 {
		stride = 2.0
	}
	// The floored stride must not march events past the band: compress the
	// spacing back to fit rather than overrun the clip.
	if lo+(n-1)*stride > hi {
		stride = (hi - lo) / n
	}
	for i := range events {
		events[i].Start = lo + float64(i)*stride
		events[i].End = events[i].Start + 1.5
		if events[i].End > hi {
			events[i].End = hi
		}
	}
	return modeRedistribute
}

// eliminateOverlaps sweeps events in index order, pulling each end back
// behind the next start minus the mode's gap, then enforces the minimum
// duration as a hard floor.
func eliminateOverlaps(events []subtitles.Event, mode timingMode) {
	gap := gapMinimal
	if mode == modeRedistribute {
		gap = gapRedistribute
	}

	for i := 0; i < len(events)-1; i++ {
		if events[i].End > events[i+1].Start-gap {
			events[i].End = events[i+1].Start - gap
		}
	}
	for i := range events {
		if events[i].Duration() < minDuration {
			events[i].End = events[i].Start + minDuration
			if i < len(events)-1 && events[i].End > events[i+1].Start-gap {
				slog.Warn("caption floor duration eats into next event",
					"index", i, "end", events[i].End, "next_start", events[i+1].Start)
			}
		}
	}
}

// Overlay applied to every event: fade in, scale pop, speaker color.
const overlayTemplate = `{\fad(150,100)\t(0,300,\fscx110\fscy110)\t(300,400,\fscx100\fscy100)\c%s}`

// materializeStyle ensures the document has a style row for the event's
// speaker, regenerates the event overlay, and wraps emphasized lexicon terms
// in an inline override.
func materializeStyle(doc *subtitles.Document, ev *subtitles.Event) {
	if _, ok := doc.Styles[ev.Speaker]; !ok {
		doc.AddStyle(subtitles.DefaultStyle(ev.Speaker))
	}
	style := doc.Styles[ev.Speaker]

	ev.Overlay = fmt.Sprintf(overlayTemplate, style.Primary.Styled())
	ev.Text = emphasizeTerms(ev.PlainText(), style)
}

var emphasisPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases.EmphasisLexicon))
	for _, term := range phrases.EmphasisLexicon {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return out
}()

// emphasizeTerms uppercases and bolds lexicon terms at size+2 in the
// speaker's color.
func emphasizeTerms(text string, style subtitles.Style) string {
	for _, re := range emphasisPatterns {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return fmt.Sprintf(`{\c%s\fs%d\b1}%s{\r}`, style.Primary.Styled(), style.Size+2, strings.ToUpper(m))
		})
	}
	return text
}
