package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// The styled variant's fixed section headers. The style and event format rows
// are written exactly as the render engine expects them; readers tolerate
// reordered fields only insofar as the leading field count holds.
const (
	styleFormatLine = "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding"
	eventFormatLine = "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"
)

// ReadStyled parses a styled-variant document. Malformed dialogue rows are
// skipped with a logged warning; a document yielding no sections at all is a
// parse error.
func ReadStyled(r io.Reader) (*Document, error) {
	doc := NewDocument("")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	section := ""
	sawSection := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.Trim(line, "[]"))
			sawSection = true
			continue
		}

		switch {
		case section == "script info":
			if v, ok := strings.CutPrefix(line, "Title:"); ok {
				doc.Title = strings.TrimSpace(v)
			}
		case strings.HasSuffix(section, "styles"):
			if v, ok := strings.CutPrefix(line, "Style:"); ok {
				style, err := parseStyleRow(v)
				if err != nil {
					slog.Warn("skipping malformed style row", "line", line, "error", err)
					continue
				}
				doc.AddStyle(style)
			}
		case section == "events":
			if v, ok := strings.CutPrefix(line, "Dialogue:"); ok {
				ev, err := parseDialogueRow(v)
				if err != nil {
					slog.Warn("skipping malformed dialogue row", "line", line, "error", err)
					continue
				}
				ev.Index = len(doc.Events)
				doc.Events = append(doc.Events, ev)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("subtitles: read styled document: %w", err)
	}
	if !sawSection {
		return nil, fmt.Errorf("subtitles: not a styled document: no sections found")
	}
	return doc, nil
}

func parseStyleRow(v string) (Style, error) {
	fields := strings.Split(v, ",")
	if len(fields) < 4 {
		return Style{}, fmt.Errorf("want at least 4 fields, got %d", len(fields))
	}
	size, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Style{}, fmt.Errorf("bad font size: %w", err)
	}
	primary, err := ParseStyledColor(fields[3])
	if err != nil {
		return Style{}, err
	}

	style := Style{
		Name:    strings.TrimSpace(fields[0]),
		Font:    strings.TrimSpace(fields[1]),
		Size:    size,
		Primary: primary,
		// Defaults for documents written by older tools that trimmed fields.
		Outline:   3,
		Shadow:    1,
		Alignment: 2,
	}
	if len(fields) >= 19 {
		if n, err := strconv.Atoi(strings.TrimSpace(fields[16])); err == nil {
			style.Outline = n
		}
		if n, err := strconv.Atoi(strings.TrimSpace(fields[17])); err == nil {
			style.Shadow = n
		}
		if n, err := strconv.Atoi(strings.TrimSpace(fields[18])); err == nil {
			style.Alignment = n
		}
	}
	return style, nil
}

func parseDialogueRow(v string) (Event, error) {
	// Nine leading fields, then free-form text that may itself contain commas.
	parts := strings.SplitN(v, ",", 10)
	if len(parts) < 10 {
		return Event{}, fmt.Errorf("want 10 fields, got %d", len(parts))
	}
	start, err := ParseTime(parts[1])
	if err != nil {
		return Event{}, err
	}
	end, err := ParseTime(parts[2])
	if err != nil {
		return Event{}, err
	}
	if end <= start {
		return Event{}, fmt.Errorf("event end %.2f not after start %.2f", end, start)
	}

	raw := parts[9]
	overlay := ""
	if strings.HasPrefix(raw, "{") {
		if idx := strings.Index(raw, "}"); idx >= 0 {
			overlay = raw[:idx+1]
			raw = raw[idx+1:]
		}
	}
	return Event{
		Speaker: strings.TrimSpace(parts[3]),
		Start:   start,
		End:     end,
		Text:    raw,
		Overlay: overlay,
	}, nil
}

// WriteStyled serializes the document in the styled variant. Output is
// deterministic: styles are emitted in sorted label order and events in slice
// order, so read→write→read is a fixed point.
func WriteStyled(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)

	title := doc.Title
	if title == "" {
		title = "Clipforge Captions"
	}
	fmt.Fprintf(bw, "[Script Info]\nTitle: %s\nScriptType: v4.00+\n\n", title)

	fmt.Fprintf(bw, "[V4+ Styles]\n%s\n", styleFormatLine)
	for _, name := range doc.StyleNames() {
		st := doc.Styles[name]
		font := st.Font
		if font == "" {
			font = "Arial Black"
		}
		size := st.Size
		if size == 0 {
			size = 22
		}
		fmt.Fprintf(bw, "Style: %s,%s,%d,%s,&H000000FF,&H00000000,&H80000000,1,0,0,0,100,100,0,0,1,%d,%d,%d,30,30,50,1\n",
			st.Name, font, size, st.Primary.Styled(), st.Outline, st.Shadow, st.Alignment)
	}

	fmt.Fprintf(bw, "\n[Events]\n%s\n", eventFormatLine)
	for _, ev := range doc.Events {
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(bw, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s%s\n",
			FormatStyledTime(ev.Start), FormatStyledTime(ev.End), ev.Speaker, ev.Overlay, text)
	}

	return bw.Flush()
}
