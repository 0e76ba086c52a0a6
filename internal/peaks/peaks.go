// Package peaks picks the start offset for a clip when the caller does not
// pin one. The strategy is position-heuristic only and fully deterministic:
// candidate offsets depend on the source's duration class, and each candidate
// is scored by class affinity minus a penalty for sitting too close to either
// end of the source.
package peaks

import "log/slog"

// Duration class boundaries in seconds.
const (
	longFormMin   = 1800
	mediumFormMin = 600
	shortFormMin  = 180
)

// PinnedConfidence is reported when the caller supplied the start offset and
// the selector was bypassed.
const PinnedConfidence = 0.5

// Selection is a chosen start offset with its heuristic confidence.
type Selection struct {
	Offset     float64
	Confidence float64
	Reason     string
}

// Selector scores candidate start offsets.
type Selector struct{}

// New returns a Selector.
func New() *Selector {
	return &Selector{}
}

type candidate struct {
	offset float64
	score  float64
	reason string
}

// Pick chooses a start offset for a clip of clipDuration seconds inside a
// source of sourceDuration seconds. Confidence is in [0,1]. Ties between
// equally scored candidates resolve to the lower offset.
func (s *Selector) Pick(sourceDuration, clipDuration float64) Selection {
	if sourceDuration <= 0 {
		return Selection{Offset: 0, Confidence: 0, Reason: "empty source"}
	}
	if clipDuration >= sourceDuration {
		return Selection{Offset: 0, Confidence: 0.2, Reason: "clip covers whole source"}
	}

	var cands []candidate
	switch {
	case sourceDuration >= longFormMin:
		cands = longFormCandidates(sourceDuration, 1.0)
	case sourceDuration >= mediumFormMin:
		// Same shape as long form with the opening-hook band scaled down.
		cands = longFormCandidates(sourceDuration, sourceDuration/longFormMin)
	case sourceDuration >= shortFormMin:
		for _, frac := range []float64{0.4, 0.5, 0.6} {
			cands = append(cands, candidate{
				offset: sourceDuration * frac,
				score:  0.8 - abs(0.5-frac),
				reason: "short-form mid-engagement",
			})
		}
	default:
		for _, frac := range []float64{0.15, 0.35, 0.55, 0.75} {
			cands = append(cands, candidate{
				offset: sourceDuration * frac,
				score:  0.5,
				reason: "generic position",
			})
		}
	}

	best := candidate{offset: 0, score: -1}
	for _, c := range cands {
		c.score -= endpointPenalty(c.offset, sourceDuration, clipDuration)
		if c.score > best.score || (c.score == best.score && c.offset < best.offset) {
			best = c
		}
	}
	if best.score < 0 {
		best = candidate{offset: 0, score: 0, reason: "fallback to source start"}
	}

	conf := clamp01(best.score)
	slog.Debug("selected clip start", "offset", best.offset, "confidence", conf, "reason", best.reason)
	return Selection{Offset: best.offset, Confidence: conf, Reason: best.reason}
}

// longFormCandidates emits the opening-hook band plus mid-conversation
// positions. hookScale compresses the fixed hook offsets for medium-form
// sources so they stay inside the opening stretch.
func longFormCandidates(duration, hookScale float64) []candidate {
	var cands []candidate
	for _, hook := range []float64{120, 180, 300, 420} {
		offset := hook * hookScale
		if offset >= duration {
			continue
		}
		cands = append(cands, candidate{
			offset: offset,
			score:  0.7 - (offset/duration)*0.2,
			reason: "opening hook",
		})
	}
	for _, frac := range []float64{0.25, 0.4, 0.6} {
		cands = append(cands, candidate{
			offset: duration * frac,
			score:  0.6,
			reason: "mid-conversation",
		})
	}
	return cands
}

// endpointPenalty discourages starts whose clip would run off the end of the
// source or sit in the opening seconds.
func endpointPenalty(offset, sourceDuration, clipDuration float64) float64 {
	penalty := 0.0
	if offset+clipDuration > sourceDuration {
		penalty += 0.5
	}
	if offset < clipDuration {
		penalty += 0.1
	}
	return penalty
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
