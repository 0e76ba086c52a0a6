package speakers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"thirdcoast.systems/clipforge/pkg/ffmpeg"
	"thirdcoast.systems/clipforge/pkg/subtitles"
)

// Output frame geometry for vertical clips.
const (
	FrameWidth  = 1080
	FrameHeight = 1920
)

// Frame sampling limits for the preview window.
const (
	maxSampleFrames  = 5
	maxPreviewWindow = 10.0 // seconds
)

// DefaultSegmentLength is the nominal cut length in seconds. Tunable; the
// value matches the pacing short-form viewers expect.
const DefaultSegmentLength = 3.5

// Speaker is one on-screen participant with its crop window. Profiles are
// built once per job and immutable afterwards.
type Speaker struct {
	ID       int
	Label    string
	Color    subtitles.Color
	CenterX  int
	CenterY  int
	FaceBox  Box
	CropZone CropZone
}

// CropZone is the 9:16 window in scaled-frame coordinates.
type CropZone struct {
	X, Y, W, H int
}

// Cut is one entry of the speaker-switching schedule. SourceOffset is
// absolute within the source media.
type Cut struct {
	SourceOffset float64
	Duration     float64
	SpeakerID    int
}

// Planner samples frames, clusters detections into speaker profiles, and
// generates cut schedules.
type Planner struct {
	Detector      Detector
	WorkDir       string
	SegmentLength float64
}

// NewPlanner returns a Planner with the default segment length.
func NewPlanner(detector Detector, workDir string) *Planner {
	return &Planner{
		Detector:      detector,
		WorkDir:       workDir,
		SegmentLength: DefaultSegmentLength,
	}
}

// DetectSpeakers samples up to five evenly spaced frames from the preview
// window at start and clusters face detections by x-axis midpoint into at
// most two speakers (left, right). With no detections it synthesizes two
// default speakers so the crop path always has a profile to work with.
func (p *Planner) DetectSpeakers(ctx context.Context, videoPath string, start, clipDuration float64, srcWidth, srcHeight int) ([]Speaker, error) {
	window := clipDuration
	if window > maxPreviewWindow {
		window = maxPreviewWindow
	}

	var all []Box
	if p.Detector != nil {
		for i := 0; i < maxSampleFrames; i++ {
			offset := start + window*float64(i)/float64(maxSampleFrames)
			framePath := filepath.Join(p.WorkDir, fmt.Sprintf("speaker_frame_%d.jpg", i))

			err := ffmpeg.Run(ctx, videoPath, framePath,
				ffmpeg.Seek(time.Duration(offset*float64(time.Second))),
				ffmpeg.ExtraArgs("-frames:v", "1", "-q:v", "4"),
			)
			if err != nil {
				slog.Warn("frame sample failed", "offset", offset, "error", err)
				continue
			}

			boxes, err := p.Detector.DetectFaces(ctx, framePath)
			os.Remove(framePath)
			if err != nil {
				slog.Warn("face detection failed", "offset", offset, "error", err)
				continue
			}
			all = append(all, boxes...)
		}
	}

	if len(all) == 0 {
		slog.Info("no faces detected, synthesizing default speakers")
		return defaultSpeakers(srcWidth, srcHeight), nil
	}
	return clusterSpeakers(all, srcWidth, srcHeight), nil
}

// clusterSpeakers splits detections into left and right groups at the frame
// midline and averages each group's face centers.
func clusterSpeakers(faces []Box, width, height int) []Speaker {
	var left, right []Box
	for _, f := range faces {
		if f.X+f.W/2 < width/2 {
			left = append(left, f)
		} else {
			right = append(right, f)
		}
	}

	var speakers []Speaker
	if len(left) > 0 {
		speakers = append(speakers, buildSpeaker(len(speakers), left, width, height, "left"))
	}
	if len(right) > 0 {
		speakers = append(speakers, buildSpeaker(len(speakers), right, width, height, "right"))
	}
	if len(speakers) == 0 {
		return defaultSpeakers(width, height)
	}
	return speakers
}

func buildSpeaker(id int, group []Box, width, height int, side string) Speaker {
	var sumX, sumY int
	for _, f := range group {
		sumX += f.X + f.W/2
		sumY += f.Y + f.H/2
	}
	cx := sumX / len(group)
	cy := sumY / len(group)
	label := fmt.Sprintf("Speaker %d", id+1)

	return Speaker{
		ID:       id,
		Label:    label,
		Color:    subtitles.SpeakerColor(label),
		CenterX:  cx,
		CenterY:  cy,
		FaceBox:  Box{X: cx - 100, Y: cy - 100, W: 200, H: 200},
		CropZone: cropZone(cx, width, height, side),
	}
}

// cropZone anchors the 9:16 window so the face lands in the lateral third
// matching its side of the frame. Coordinates are in the scaled frame whose
// height equals FrameHeight.
func cropZone(faceX, srcWidth, srcHeight int, side string) CropZone {
	scale := float64(FrameHeight) / float64(srcHeight)
	scaledWidth := int(float64(srcWidth) * scale)

	cropX := 0
	if scaledWidth > FrameWidth {
		scaledFaceX := int(float64(faceX) * scale)
		switch side {
		case "left":
			cropX = scaledFaceX - FrameWidth/3
		case "right":
			cropX = scaledFaceX - 2*FrameWidth/3
		default:
			cropX = (scaledWidth - FrameWidth) / 2
		}
		if cropX < 0 {
			cropX = 0
		}
		if cropX > scaledWidth-FrameWidth {
			cropX = scaledWidth - FrameWidth
		}
	}

	return CropZone{X: cropX, Y: 0, W: FrameWidth, H: FrameHeight}
}

func defaultSpeakers(width, height int) []Speaker {
	return []Speaker{
		{
			ID:       0,
			Label:    "Speaker 1",
			Color:    subtitles.SpeakerColor("Speaker 1"),
			CenterX:  width / 4,
			CenterY:  height / 2,
			FaceBox:  Box{X: width/4 - 100, Y: height/2 - 100, W: 200, H: 200},
			CropZone: cropZone(width/4, width, height, "left"),
		},
		{
			ID:       1,
			Label:    "Speaker 2",
			Color:    subtitles.SpeakerColor("Speaker 2"),
			CenterX:  3 * width / 4,
			CenterY:  height / 2,
			FaceBox:  Box{X: 3*width/4 - 100, Y: height/2 - 100, W: 200, H: 200},
			CropZone: cropZone(3*width/4, width, height, "right"),
		},
	}
}

// CutSchedule partitions target seconds starting at clipStart into
// alternating-speaker segments of nominal SegmentLength. A remainder of half
// a second or less is folded into equal segments instead of dangling.
func (p *Planner) CutSchedule(clipStart, target float64, speakers []Speaker) []Cut {
	if target <= 0 || len(speakers) == 0 {
		return nil
	}

	nominal := p.SegmentLength
	if nominal <= 0 {
		nominal = DefaultSegmentLength
	}

	var durations []float64
	n := int(target / nominal)
	remainder := target - float64(n)*nominal

	switch {
	case n == 0:
		durations = []float64{target}
	case remainder <= 0.5:
		each := target / float64(n)
		for i := 0; i < n; i++ {
			durations = append(durations, each)
		}
	default:
		for i := 0; i < n; i++ {
			durations = append(durations, nominal)
		}
		durations = append(durations, remainder)
	}

	cuts := make([]Cut, 0, len(durations))
	offset := clipStart
	for i, d := range durations {
		cuts = append(cuts, Cut{
			SourceOffset: offset,
			Duration:     d,
			SpeakerID:    speakers[i%len(speakers)].ID,
		})
		offset += d
	}
	return cuts
}
