// Package speakers detects who is on screen and plans the 9:16 crop windows
// and speaker-switching cut schedule for a clip.
package speakers

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Box is a detected face rectangle in source-frame pixels.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detector finds faces in a still image.
type Detector interface {
	DetectFaces(ctx context.Context, imagePath string) ([]Box, error)
}

// CommandDetector shells out to an external detector binary that prints a
// JSON array of boxes for the image passed as its argument.
type CommandDetector struct {
	// Cmd is the detector executable.
	Cmd string
	// Args are prepended before the image path.
	Args []string
}

// DetectFaces implements Detector.
func (d *CommandDetector) DetectFaces(ctx context.Context, imagePath string) ([]Box, error) {
	if d.Cmd == "" {
		return nil, fmt.Errorf("speakers: no face detector configured")
	}
	args := append(append([]string(nil), d.Args...), imagePath)
	out, err := exec.CommandContext(ctx, d.Cmd, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("speakers: face detector failed: %w", err)
	}
	var boxes []Box
	if err := json.Unmarshal(out, &boxes); err != nil {
		return nil, fmt.Errorf("speakers: parse detector output: %w", err)
	}
	return boxes, nil
}
