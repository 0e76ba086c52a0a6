package speakers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterSpeakersLeftRight(t *testing.T) {
	faces := []Box{
		{X: 300, Y: 400, W: 120, H: 120},  // left
		{X: 320, Y: 420, W: 110, H: 110},  // left
		{X: 1400, Y: 380, W: 130, H: 130}, // right
	}

	got := clusterSpeakers(faces, 1920, 1080)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].ID)
	assert.Equal(t, "Speaker 1", got[0].Label)
	assert.Less(t, got[0].CenterX, 960)
	assert.Equal(t, 1, got[1].ID)
	assert.Greater(t, got[1].CenterX, 960)

	// Every crop zone is a full vertical output frame.
	for _, s := range got {
		assert.Equal(t, FrameWidth, s.CropZone.W)
		assert.Equal(t, FrameHeight, s.CropZone.H)
	}
}

func TestClusterSpeakersSingleSide(t *testing.T) {
	faces := []Box{{X: 200, Y: 300, W: 100, H: 100}}
	got := clusterSpeakers(faces, 1920, 1080)
	require.Len(t, got, 1)
	assert.Equal(t, "Speaker 1", got[0].Label)
}

func TestDefaultSpeakers(t *testing.T) {
	got := defaultSpeakers(1920, 1080)
	require.Len(t, got, 2)
	assert.Equal(t, 480, got[0].CenterX)
	assert.Equal(t, 540, got[0].CenterY)
	assert.Equal(t, 1440, got[1].CenterX)
	assert.Equal(t, "#FF4500", got[0].Color.Hex())
	assert.Equal(t, "#00BFFF", got[1].Color.Hex())
}

func TestCropZoneStaysInsideScaledFrame(t *testing.T) {
	for _, faceX := range []int{0, 100, 960, 1800, 1920} {
		for _, side := range []string{"left", "right", "center"} {
			z := cropZone(faceX, 1920, 1080, side)
			scaledWidth := 1920 * FrameHeight / 1080
			assert.GreaterOrEqual(t, z.X, 0)
			assert.LessOrEqual(t, z.X+z.W, scaledWidth)
			assert.Equal(t, FrameWidth, z.W)
			assert.Equal(t, FrameHeight, z.H)
		}
	}
}

func TestCropZoneNarrowSource(t *testing.T) {
	// A source narrower than 9:16 after scaling gets no lateral crop room.
	z := cropZone(200, 500, 1080, "left")
	assert.Equal(t, 0, z.X)
}

func TestCutScheduleNominal(t *testing.T) {
	p := NewPlanner(nil, t.TempDir())
	speakers := defaultSpeakers(1920, 1080)

	cuts := p.CutSchedule(300, 20, speakers)
	require.Len(t, cuts, 6)

	// 5 segments of 3.5s plus a 2.5s remainder.
	for i := 0; i < 5; i++ {
		assert.InDelta(t, 3.5, cuts[i].Duration, 0.0001)
	}
	assert.InDelta(t, 2.5, cuts[5].Duration, 0.0001)

	// Strict alternation starting at speaker 0.
	for i, c := range cuts {
		assert.Equal(t, i%2, c.SpeakerID)
	}

	// Offsets are contiguous from the clip start.
	assert.InDelta(t, 300, cuts[0].SourceOffset, 0.0001)
	assert.InDelta(t, 317.5, cuts[5].SourceOffset, 0.0001)
}

func TestCutScheduleSmallRemainderFoldsIn(t *testing.T) {
	p := NewPlanner(nil, t.TempDir())
	speakers := defaultSpeakers(1920, 1080)

	// 14.2s: 4 nominal segments leave 0.2s, folded into 4 equal cuts.
	cuts := p.CutSchedule(0, 14.2, speakers)
	require.Len(t, cuts, 4)
	for _, c := range cuts {
		assert.InDelta(t, 3.55, c.Duration, 0.0001)
	}
}

func TestCutScheduleSumsToTarget(t *testing.T) {
	p := NewPlanner(nil, t.TempDir())
	speakers := defaultSpeakers(1920, 1080)

	for _, target := range []float64{1.0, 3.5, 14.2, 20, 30, 59.9} {
		total := 0.0
		for _, c := range p.CutSchedule(0, target, speakers) {
			total += c.Duration
		}
		assert.InDelta(t, target, total, 0.001, "target %f", target)
	}
}

func TestCutScheduleShortTarget(t *testing.T) {
	p := NewPlanner(nil, t.TempDir())
	cuts := p.CutSchedule(10, 2, defaultSpeakers(1920, 1080))
	require.Len(t, cuts, 1)
	assert.InDelta(t, 2.0, cuts[0].Duration, 0.0001)
	assert.Equal(t, 0, cuts[0].SpeakerID)
}
