package subtitles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragment(i int, speaker, text string, start, end float64) Event {
	return Event{Index: i, Speaker: speaker, Text: text, Start: start, End: end}
}

func TestNormalizeFragmentsMergesLetterSpam(t *testing.T) {
	events := []Event{
		fragment(0, "Speaker 1", "s", 1.0, 1.2),
		fragment(1, "Speaker 1", "o", 1.2, 1.4),
		fragment(2, "Speaker 1", "I", 1.4, 1.6),
		fragment(3, "Speaker 1", "was", 1.6, 1.8),
		fragment(4, "Speaker 1", "th", 1.8, 2.0),
	}

	got := NormalizeFragments(events)
	require.Len(t, got, 1)
	assert.Equal(t, "s o I was th", got[0].Text)
	assert.InDelta(t, 1.0, got[0].Start, 0.001)
	assert.InDelta(t, 2.0, got[0].End, 0.001)
	assert.Equal(t, 0, got[0].Index)
}

func TestNormalizeFragmentsNeverMergesAcrossSpeakers(t *testing.T) {
	events := []Event{
		fragment(0, "Speaker 1", "a", 0, 0.5),
		fragment(1, "Speaker 1", "b", 0.5, 1.0),
		fragment(2, "Speaker 2", "c", 1.0, 1.5),
		fragment(3, "Speaker 2", "d", 1.5, 2.0),
	}

	got := NormalizeFragments(events)
	require.Len(t, got, 2)
	assert.Equal(t, "Speaker 1", got[0].Speaker)
	assert.Equal(t, "a b", got[0].Text)
	assert.Equal(t, "Speaker 2", got[1].Speaker)
	assert.Equal(t, "c d", got[1].Text)
	assert.Equal(t, []int{0, 1}, []int{got[0].Index, got[1].Index})
}

func TestNormalizeFragmentsNoSpaceBeforePunctuation(t *testing.T) {
	events := []Event{
		fragment(0, "Speaker 1", "so", 0, 0.5),
		fragment(1, "Speaker 1", ",", 0.5, 1.0),
		fragment(2, "Speaker 1", "ok", 1.0, 1.5),
	}

	got := NormalizeFragments(events)
	require.Len(t, got, 1)
	assert.Equal(t, "so, ok", got[0].Text)
}

func TestNormalizeFragmentsLeavesHealthyBatchesAlone(t *testing.T) {
	events := []Event{
		fragment(0, "Speaker 1", "hello there friend", 0, 2),
		fragment(1, "Speaker 2", "what is going on", 2, 4),
	}

	got := NormalizeFragments(events)
	require.Len(t, got, 2)
	assert.Equal(t, events[0].Text, got[0].Text)
	assert.Equal(t, events[1].Text, got[1].Text)
}

func TestNormalizeFragmentsDropsEmptyEvents(t *testing.T) {
	events := []Event{
		fragment(0, "Speaker 1", "  ", 0, 1),
		fragment(1, "Speaker 1", "hello there friend", 1, 2),
	}

	got := NormalizeFragments(events)
	require.Len(t, got, 1)
	assert.Equal(t, "hello there friend", got[0].Text)
	assert.Equal(t, 0, got[0].Index)
}

func TestNormalizeFragmentsIdempotent(t *testing.T) {
	batches := [][]Event{
		{
			fragment(0, "Speaker 1", "a", 0, 0.5),
			fragment(1, "Speaker 1", "b,", 0.5, 1.0),
			fragment(2, "Speaker 2", "c", 1.0, 1.5),
		},
		{
			fragment(0, "Speaker 1", "hello there", 0, 1),
			fragment(1, "Speaker 1", "ok", 1, 2),
		},
	}

	for _, events := range batches {
		once := NormalizeFragments(events)
		twice := NormalizeFragments(once)
		assert.Equal(t, once, twice)
	}
}
