package subtitles

import "strings"

// Fragment-merge thresholds. Some clients post captions a letter or two at a
// time; merging only kicks in when the batch as a whole looks fragmented so a
// legitimately terse caption set is left alone.
const (
	fragMeanLength  = 5
	fragShortLength = 3
	fragCommaLength = 8
)

// NormalizeFragments merges runs of same-speaker caption fragments into whole
// events. The pass is idempotent: every run of adjacent same-speaker
// fragments is merged in one go, so a second application finds no two
// adjacent same-speaker fragments left to merge.
func NormalizeFragments(events []Event) []Event {
	nonEmpty := make([]Event, 0, len(events))
	total := 0
	for _, ev := range events {
		text := strings.TrimSpace(ev.PlainText())
		if text == "" {
			continue
		}
		ev.Text = text
		nonEmpty = append(nonEmpty, ev)
		total += len(text)
	}
	if len(nonEmpty) == 0 {
		return nonEmpty
	}

	mean := float64(total) / float64(len(nonEmpty))
	if mean >= fragMeanLength {
		out := append([]Event(nil), nonEmpty...)
		reindex(out)
		return out
	}

	var out []Event
	var run []Event
	flush := func() {
		if len(run) == 0 {
			return
		}
		out = append(out, mergeRun(run))
		run = nil
	}

	for _, ev := range nonEmpty {
		if len(run) > 0 && (run[0].Speaker != ev.Speaker || !isFragment(ev.Text)) {
			flush()
		}
		if isFragment(ev.Text) {
			run = append(run, ev)
			continue
		}
		out = append(out, ev)
	}
	flush()

	reindex(out)
	return out
}

func isFragment(text string) bool {
	if len(text) <= fragShortLength {
		return true
	}
	return len(text) <= fragCommaLength && strings.HasSuffix(text, ",")
}

func mergeRun(run []Event) Event {
	if len(run) == 1 {
		return run[0]
	}
	var b strings.Builder
	for _, ev := range run {
		text := strings.TrimSpace(ev.Text)
		if b.Len() > 0 && !startsWithPunct(text) {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	merged := run[0]
	merged.Text = b.String()
	merged.End = run[len(run)-1].End
	return merged
}

func startsWithPunct(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case ',', '.', '!', '?', ':', ';':
		return true
	}
	return false
}

func reindex(events []Event) {
	for i := range events {
		events[i].Index = i
	}
}
