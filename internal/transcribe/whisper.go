package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"thirdcoast.systems/clipforge/pkg/ffmpeg"
)

// Whisper transcribes by extracting a mono 16 kHz WAV for the requested span
// and running the whisper CLI on it with JSON output.
type Whisper struct {
	// Cmd is the whisper executable. Defaults to "whisper" (PATH lookup).
	Cmd string
	// Model is the whisper model name. Defaults to "base".
	Model string
	// Device is the inference device ("cpu", "cuda"). Defaults to "cpu".
	Device string
	// Language pins the transcription language; empty autodetects.
	Language string
	// WorkDir holds temporary audio extracts and whisper output.
	WorkDir string
}

// NewWhisper builds a Whisper adapter from environment-style settings,
// falling back to defaults for anything unset.
func NewWhisper(cmd, model, device, workDir string) *Whisper {
	w := &Whisper{Cmd: cmd, Model: model, Device: device, WorkDir: workDir}
	if strings.TrimSpace(w.Cmd) == "" {
		w.Cmd = "whisper"
	}
	if strings.TrimSpace(w.Model) == "" {
		w.Model = "base"
	}
	if strings.TrimSpace(w.Device) == "" {
		w.Device = "cpu"
	}
	return w
}

// whisperOutput matches the whisper CLI's --output_format json document.
type whisperOutput struct {
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words,omitempty"`
	} `json:"segments"`
}

// Segments implements Transcriber.
func (w *Whisper) Segments(ctx context.Context, req Request) ([]Segment, error) {
	if _, err := exec.LookPath(w.Cmd); err != nil {
		return nil, fmt.Errorf("transcribe: whisper command not found: %w", err)
	}

	audioPath := filepath.Join(w.WorkDir, fmt.Sprintf("transcribe_%ds_%ds.wav", int(req.Offset), int(req.Duration)))
	defer os.Remove(audioPath)

	err := ffmpeg.Run(ctx, req.MediaPath, audioPath,
		ffmpeg.Seek(time.Duration(req.Offset*float64(time.Second))),
		ffmpeg.Duration(time.Duration(req.Duration*float64(time.Second))),
		ffmpeg.AudioCodec("pcm_s16le"),
		ffmpeg.AudioChannels(1),
		ffmpeg.AudioSampleRate(16000),
		ffmpeg.ExtraArgs("-vn"),
	)
	if err != nil {
		return nil, fmt.Errorf("transcribe: extract audio: %w", err)
	}

	args := []string{
		audioPath,
		"--model", w.Model,
		"--device", w.Device,
		"--output_format", "json",
		"--output_dir", w.WorkDir,
	}
	if req.WantWords {
		args = append(args, "--word_timestamps", "True")
	}
	if w.Language != "" {
		args = append(args, "--language", w.Language)
	}

	slog.Info("running whisper", "cmd", w.Cmd, "model", w.Model, "device", w.Device, "audio", audioPath)
	cmd := exec.CommandContext(ctx, w.Cmd, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("transcribe: whisper failed: %w: %s", err, lastLines(string(out), 3))
	}

	jsonPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".json"
	defer os.Remove(jsonPath)

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read whisper output: %w", err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("transcribe: parse whisper output: %w", err)
	}

	segments := make([]Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		seg := Segment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start,
			End:   s.End,
		}
		for _, wd := range s.Words {
			seg.Words = append(seg.Words, Word(wd))
		}
		segments = append(segments, seg)
	}

	slog.Info("whisper transcription complete", "segments", len(segments))
	return segments, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
