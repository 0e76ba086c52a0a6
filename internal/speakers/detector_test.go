package speakers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandDetectorParsesBoxes(t *testing.T) {
	d := &CommandDetector{
		Cmd:  "sh",
		Args: []string{"-c", `echo '[{"x":100,"y":200,"w":50,"h":60}]'`},
	}

	boxes, err := d.DetectFaces(context.Background(), "/tmp/frame.jpg")
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, Box{X: 100, Y: 200, W: 50, H: 60}, boxes[0])
}

func TestCommandDetectorRejectsGarbage(t *testing.T) {
	d := &CommandDetector{
		Cmd:  "sh",
		Args: []string{"-c", "echo not-json"},
	}
	_, err := d.DetectFaces(context.Background(), "/tmp/frame.jpg")
	assert.Error(t, err)
}

func TestCommandDetectorUnconfigured(t *testing.T) {
	d := &CommandDetector{}
	_, err := d.DetectFaces(context.Background(), "/tmp/frame.jpg")
	assert.Error(t, err)
}
