package subtitles

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStyled = `[Script Info]
Title: Test Captions
ScriptType: v4.00+

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Speaker 1,Arial Black,22,&H000045FF,&H000000FF,&H00000000,&H80000000,1,0,0,0,100,100,0,0,1,3,1,2,30,30,50,1
Style: Speaker 2,Arial Black,22,&H00FFBF00,&H000000FF,&H00000000,&H80000000,1,0,0,0,100,100,0,0,1,3,1,2,30,30,50,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Dialogue: 0,0:00:05.20,0:00:07.30,Speaker 1,,0,0,0,,{\fad(150,100)\c&H000045FF}hello there, friend
Dialogue: 0,0:00:18.45,0:00:19.80,Speaker 2,,0,0,0,,what is going on
Dialogue: 0,0:00:28.10,0:00:29.50,Speaker 1,,0,0,0,,that was {\b1}CRAZY{\r} man
`

func TestReadStyled(t *testing.T) {
	doc, err := ReadStyled(strings.NewReader(sampleStyled))
	require.NoError(t, err)

	assert.Equal(t, "Test Captions", doc.Title)
	require.Len(t, doc.Styles, 2)
	assert.Equal(t, "#FF4500", doc.Styles["Speaker 1"].Primary.Hex())
	assert.Equal(t, "#00BFFF", doc.Styles["Speaker 2"].Primary.Hex())

	require.Len(t, doc.Events, 3)
	first := doc.Events[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "Speaker 1", first.Speaker)
	assert.InDelta(t, 5.20, first.Start, 0.001)
	assert.InDelta(t, 7.30, first.End, 0.001)
	assert.Equal(t, `{\fad(150,100)\c&H000045FF}`, first.Overlay)
	assert.Equal(t, "hello there, friend", first.Text)

	// Inline overrides inside text stay in Text, are stripped by PlainText.
	third := doc.Events[2]
	assert.Equal(t, `that was {\b1}CRAZY{\r} man`, third.Text)
	assert.Equal(t, "that was CRAZY man", third.PlainText())
}

func TestReadStyledSkipsMalformedRows(t *testing.T) {
	input := sampleStyled + "Dialogue: 0,not-a-time,0:00:31.00,Speaker 1,,0,0,0,,broken\n"
	doc, err := ReadStyled(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, doc.Events, 3)
}

func TestReadStyledRejectsNonDocument(t *testing.T) {
	_, err := ReadStyled(strings.NewReader("this is not a subtitle file\n"))
	assert.Error(t, err)
}

func TestStyledWriteIsFixedPoint(t *testing.T) {
	doc, err := ReadStyled(strings.NewReader(sampleStyled))
	require.NoError(t, err)

	var first bytes.Buffer
	require.NoError(t, WriteStyled(&first, doc))

	reread, err := ReadStyled(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)

	var second bytes.Buffer
	require.NoError(t, WriteStyled(&second, reread))

	assert.Equal(t, first.String(), second.String())
}

func TestCaptionsProjection(t *testing.T) {
	doc, err := ReadStyled(strings.NewReader(sampleStyled))
	require.NoError(t, err)

	caps := doc.Captions()
	require.Len(t, caps, 3)
	assert.Equal(t, "hello there, friend", caps[0].Text)
	assert.Equal(t, "0:00:05.20", caps[0].StartTime)
	assert.Equal(t, "#FF4500", caps[0].Color)
	assert.Equal(t, "that was CRAZY man", caps[2].Text)
}
