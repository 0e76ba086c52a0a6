package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ReadSimple parses a simple-variant (numbered block) document. An optional
// leading "[Speaker N] " prefix on the text carries the speaker label; events
// without one default to Speaker 1. Malformed blocks are skipped with a
// logged warning.
func ReadSimple(r io.Reader) (*Document, error) {
	doc := NewDocument("")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lines []string
	flush := func() {
		if len(lines) == 0 {
			return
		}
		block := lines
		lines = nil
		ev, err := parseSimpleBlock(block)
		if err != nil {
			slog.Warn("skipping malformed caption block", "block", strings.Join(block, " / "), "error", err)
			return
		}
		ev.Index = len(doc.Events)
		doc.Events = append(doc.Events, ev)
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("subtitles: read simple document: %w", err)
	}
	flush()

	for _, ev := range doc.Events {
		if _, ok := doc.Styles[ev.Speaker]; !ok {
			doc.AddStyle(DefaultStyle(ev.Speaker))
		}
	}
	return doc, nil
}

func parseSimpleBlock(block []string) (Event, error) {
	// index line, timing line, one or more text lines
	if len(block) < 2 {
		return Event{}, fmt.Errorf("want at least 2 lines, got %d", len(block))
	}
	timingIdx := 0
	if !strings.Contains(block[0], "-->") {
		timingIdx = 1
	}
	if timingIdx >= len(block) || !strings.Contains(block[timingIdx], "-->") {
		return Event{}, fmt.Errorf("no timing line")
	}

	times := strings.SplitN(block[timingIdx], "-->", 2)
	start, err := ParseTime(times[0])
	if err != nil {
		return Event{}, err
	}
	end, err := ParseTime(times[1])
	if err != nil {
		return Event{}, err
	}
	if end <= start {
		return Event{}, fmt.Errorf("event end %.3f not after start %.3f", end, start)
	}

	text := strings.TrimSpace(strings.Join(block[timingIdx+1:], " "))
	if text == "" {
		return Event{}, fmt.Errorf("empty text")
	}

	speaker := "Speaker 1"
	if strings.HasPrefix(text, "[") {
		if idx := strings.Index(text, "]"); idx > 1 {
			speaker = text[1:idx]
			text = strings.TrimSpace(text[idx+1:])
		}
	}

	return Event{
		Speaker: speaker,
		Start:   start,
		End:     end,
		Text:    text,
	}, nil
}

// WriteSimple serializes the document in the simple numbered-block variant.
// Styling information beyond the speaker label prefix is not representable and
// is dropped.
func WriteSimple(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	n := 0
	for _, ev := range doc.Events {
		text := ev.PlainText()
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(bw, "%d\n%s --> %s\n[%s] %s\n\n",
			n, FormatSimpleTime(ev.Start), FormatSimpleTime(ev.End), ev.Speaker, text)
	}
	return bw.Flush()
}
