package jobs

import (
	"time"

	"thirdcoast.systems/clipforge/pkg/subtitles"
)

// State is a job's pipeline stage.
type State string

const (
	StatePending      State = "pending"
	StateDownloading  State = "downloading"
	StatePlanning     State = "planning"
	StateRendering    State = "rendering"
	StateTranscribing State = "transcribing"
	StateBurning      State = "burning"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Terminal reports whether no further stage transitions happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// RegenStatus is the regeneration substate of a completed job.
type RegenStatus string

const (
	RegenIdle         RegenStatus = "idle"
	RegenRegenerating RegenStatus = "regenerating"
	RegenFailed       RegenStatus = "regen_failed"
)

// Request is the immutable clip request a job was created with.
type Request struct {
	URL      string
	Duration float64  // target clip seconds
	Start    *float64 // pinned start offset, nil to auto-select
	End      *float64 // explicit end offset, nil to derive from Duration
}

// Job is one clip-production workflow. Owned exclusively by the
// orchestrator; the bound worker is the only writer of its fields.
type Job struct {
	ID      string
	Owner   Identity
	Request Request

	State       State
	RegenStatus RegenStatus
	Progress    int
	Message     string
	Error       string

	FinalPath      string
	MasterPath     string
	SubtitlePath   string
	SubtitleFormat subtitles.Format

	ClipStart    float64 // chosen start offset in the source
	ClipDuration float64 // actual clip seconds after clamping
	Confidence   float64 // peak-selector confidence
	Title        string

	Captions []subtitles.Caption

	CreatedAt time.Time
}

// Snapshot is the consistent copy handed to readers.
type Snapshot struct {
	ID             string              `json:"job_id"`
	State          State               `json:"state"`
	RegenStatus    RegenStatus         `json:"regeneration_status,omitempty"`
	Progress       int                 `json:"progress"`
	Message        string              `json:"message"`
	Error          string              `json:"error,omitempty"`
	Anonymous      bool                `json:"anonymous"`
	Title          string              `json:"title,omitempty"`
	FinalPath      string              `json:"final_path,omitempty"`
	SubtitlePath   string              `json:"subtitle_path,omitempty"`
	SubtitleFormat subtitles.Format    `json:"subtitle_format,omitempty"`
	ClipStart      float64             `json:"clip_start"`
	ClipDuration   float64             `json:"clip_duration"`
	Confidence     float64             `json:"confidence"`
	Captions       []subtitles.Caption `json:"captions,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// snapshot copies the job. Caller holds the orchestrator lock.
func (j *Job) snapshot() Snapshot {
	caps := make([]subtitles.Caption, len(j.Captions))
	copy(caps, j.Captions)
	return Snapshot{
		ID:             j.ID,
		State:          j.State,
		RegenStatus:    j.RegenStatus,
		Progress:       j.Progress,
		Message:        j.Message,
		Error:          j.Error,
		Anonymous:      j.Owner.Anonymous(),
		Title:          j.Title,
		FinalPath:      j.FinalPath,
		SubtitlePath:   j.SubtitlePath,
		SubtitleFormat: j.SubtitleFormat,
		ClipStart:      j.ClipStart,
		ClipDuration:   j.ClipDuration,
		Confidence:     j.Confidence,
		Captions:       caps,
		CreatedAt:      j.CreatedAt,
	}
}
