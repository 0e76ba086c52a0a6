package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"thirdcoast.systems/clipforge/internal/acquire"
	"thirdcoast.systems/clipforge/internal/captions"
	"thirdcoast.systems/clipforge/internal/metrics"
	"thirdcoast.systems/clipforge/internal/peaks"
	"thirdcoast.systems/clipforge/internal/phrases"
	"thirdcoast.systems/clipforge/internal/pubsub"
	"thirdcoast.systems/clipforge/internal/render"
	"thirdcoast.systems/clipforge/internal/speakers"
	"thirdcoast.systems/clipforge/internal/transcribe"
	"thirdcoast.systems/clipforge/pkg/subtitles"
	"thirdcoast.systems/clipforge/pkg/utils/filename"
)

// Per-stage timeouts. External media work is slow; database work is not.
const (
	fetchTimeout      = 30 * time.Minute
	planTimeout       = 5 * time.Minute
	renderTimeout     = 30 * time.Minute
	transcribeTimeout = 30 * time.Minute
	burnTimeout       = 30 * time.Minute
)

// runJob drives one job through the stage sequence. It is the only writer
// of this job's fields.
func (o *Orchestrator) runJob(ctx context.Context, jobID string) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	if !ok {
		o.mu.Unlock()
		return
	}
	req := job.Request
	o.mu.Unlock()

	fail := func(stage State, kind ErrorKind, err error) {
		slog.Error("job stage failed", "job_id", jobID, "stage", stage, "kind", kind, "error", err)
		metrics.JobsFailed.WithLabelValues(string(stage)).Inc()
		msg := fmt.Sprintf("%s failed", stage)
		o.update(jobID, func(j *Job) {
			j.State = StateFailed
			j.Error = (&Error{Kind: kind, Err: err}).Error()
			j.Message = msg
		})
		o.publish(jobID, pubsub.KindError, 0, msg, StateFailed)
		o.persist(ctx, jobID)
	}

	// Stage: downloading.
	o.setStage(jobID, StateDownloading, 10, "Downloading video…")
	src, dur, width, height, err := o.stageDownload(ctx, req.URL)
	if err != nil {
		fail(StateDownloading, KindFetchError, err)
		return
	}
	o.update(jobID, func(j *Job) { j.Title = src.Title })

	// Stage: planning.
	o.setStage(jobID, StatePlanning, 30, "Analyzing for optimal clip start…")
	pl, err := o.stagePlan(ctx, src, req, dur, width, height)
	if err != nil {
		fail(StatePlanning, KindRenderError, err)
		return
	}
	o.update(jobID, func(j *Job) {
		j.ClipStart = pl.start
		j.ClipDuration = pl.duration
		j.Confidence = pl.confidence
	})
	o.publish(jobID, pubsub.KindProgress, 40, "Detecting speakers…", StatePlanning)

	// Stage: rendering the caption-free master.
	o.setStage(jobID, StateRendering, 50, "Rendering vertical clip…")
	paths := o.clipPaths(jobID, src.Title)
	if err := o.stageRender(ctx, src.LocalPath, pl, paths); err != nil {
		fail(StateRendering, KindRenderError, err)
		return
	}
	o.update(jobID, func(j *Job) {
		j.FinalPath = paths.final
		j.MasterPath = paths.master
	})

	// Stage: transcribing.
	o.setStage(jobID, StateTranscribing, 70, "Generating captions…")
	doc, err := o.stageTranscribe(ctx, src.LocalPath, pl)
	if err != nil {
		fail(StateTranscribing, KindTranscribeError, err)
		return
	}

	// Stage: burning.
	o.setStage(jobID, StateBurning, 90, "Burning captions…")
	if err := o.stageBurn(ctx, doc, paths); err != nil {
		fail(StateBurning, KindRenderError, err)
		return
	}

	o.update(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Progress = 100
		j.Message = "Clip ready"
		j.SubtitlePath = paths.subtitle
		j.SubtitleFormat = subtitles.FormatStyled
		j.Captions = doc.Captions()
	})
	metrics.JobsCompleted.Inc()
	o.publish(jobID, pubsub.KindComplete, 100, "Clip ready", StateCompleted)
	o.persist(ctx, jobID)
	slog.Info("job completed", "job_id", jobID, "final", paths.final, "captions", len(doc.Events))
}

func (o *Orchestrator) setStage(jobID string, state State, progress int, message string) {
	o.update(jobID, func(j *Job) {
		j.State = state
		j.Progress = progress
		j.Message = message
	})
	o.publish(jobID, pubsub.KindProgress, progress, message, state)
}

type clipPaths struct {
	final    string
	master   string
	subtitle string
}

func (o *Orchestrator) clipPaths(jobID, title string) clipPaths {
	slug := filename.Sanitize(title, 40)
	if slug == "" {
		slug = "clip"
	}
	slug += "_" + jobID[:8]
	final := filepath.Join(o.cfg.ClipsDir, slug+".mp4")
	return clipPaths{
		final:    final,
		master:   render.SidecarPath(final),
		subtitle: filepath.Join(o.cfg.ClipsDir, slug+"_captions"+subtitles.FormatStyled.Ext()),
	}
}

func (o *Orchestrator) stageDownload(ctx context.Context, url string) (acquire.Source, float64, int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	started := time.Now()
	src, err := o.caps.Acquirer.Acquire(ctx, url)
	if err != nil {
		return acquire.Source{}, 0, 0, 0, err
	}
	metrics.StageDuration.WithLabelValues(string(StateDownloading)).Observe(time.Since(started).Seconds())

	dur, width, height, err := o.caps.Prober.Probe(ctx, src.LocalPath)
	if err != nil {
		return acquire.Source{}, 0, 0, 0, fmt.Errorf("probe source: %w", err)
	}

	if st, err := os.Stat(src.LocalPath); err == nil {
		slog.Info("source ready", "path", src.LocalPath, "size", humanize.Bytes(uint64(st.Size())), "duration", dur)
	}
	return src, dur, width, height, nil
}

// plan carries everything the render and caption stages need.
type plan struct {
	start      float64
	duration   float64
	confidence float64
	speakers   []speakers.Speaker
	cuts       []speakers.Cut
	zones      map[int]speakers.CropZone
}

func (o *Orchestrator) stagePlan(ctx context.Context, src acquire.Source, req Request, sourceDur float64, width, height int) (plan, error) {
	ctx, cancel := context.WithTimeout(ctx, planTimeout)
	defer cancel()
	started := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(StatePlanning)).Observe(time.Since(started).Seconds())
	}()

	target := req.Duration
	if req.Start != nil && req.End != nil {
		target = *req.End - *req.Start
	}
	// A source shorter than the request clamps the clip to the source.
	if target > sourceDur {
		target = sourceDur
	}

	var start, confidence float64
	if req.Start != nil {
		start = *req.Start
		confidence = peaks.PinnedConfidence
		if start >= sourceDur {
			return plan{}, fmt.Errorf("start offset %.1fs beyond source end %.1fs", start, sourceDur)
		}
		if start+target > sourceDur {
			target = sourceDur - start
		}
	} else {
		sel := o.caps.Peaks.Pick(sourceDur, target)
		start, confidence = sel.Offset, sel.Confidence
	}

	profile, err := o.caps.Planner.DetectSpeakers(ctx, src.LocalPath, start, target, width, height)
	if err != nil {
		return plan{}, fmt.Errorf("detect speakers: %w", err)
	}

	zones := make(map[int]speakers.CropZone, len(profile))
	for _, s := range profile {
		zones[s.ID] = s.CropZone
	}

	var cuts []speakers.Cut
	if len(profile) >= 2 {
		cuts = o.caps.Planner.CutSchedule(start, target, profile)
	} else {
		cuts = []speakers.Cut{{SourceOffset: start, Duration: target, SpeakerID: profile[0].ID}}
	}

	return plan{
		start:      start,
		duration:   target,
		confidence: confidence,
		speakers:   profile,
		cuts:       cuts,
		zones:      zones,
	}, nil
}

func (o *Orchestrator) stageRender(ctx context.Context, sourcePath string, p plan, paths clipPaths) error {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	started := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(StateRendering)).Observe(time.Since(started).Seconds())
	}()

	if err := o.caps.Render.RenderMaster(ctx, sourcePath, p.cuts, p.zones, paths.final); err != nil {
		return err
	}
	// Preserve the pristine master before any burn touches the final path.
	if err := render.PreserveMaster(paths.final, paths.master); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) stageTranscribe(ctx context.Context, sourcePath string, p plan) (*subtitles.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()
	started := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(StateTranscribing)).Observe(time.Since(started).Seconds())
	}()

	segments, err := o.caps.Transcriber.Segments(ctx, transcribe.Request{
		MediaPath: sourcePath,
		Offset:    p.start,
		Duration:  p.duration,
		WantWords: true,
	})
	if err != nil {
		return nil, err
	}

	speakerList := make([]phrases.Speaker, 0, len(p.speakers))
	for _, s := range p.speakers {
		speakerList = append(speakerList, phrases.Speaker{ID: s.ID, Label: s.Label})
	}

	assembled := phrases.Assemble(segments, speakerList)
	return captions.FromPhrases(assembled), nil
}

func (o *Orchestrator) stageBurn(ctx context.Context, doc *subtitles.Document, paths clipPaths) error {
	ctx, cancel := context.WithTimeout(ctx, burnTimeout)
	defer cancel()
	started := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(StateBurning)).Observe(time.Since(started).Seconds())
	}()

	f, err := os.Create(paths.subtitle)
	if err != nil {
		return fmt.Errorf("create subtitle document: %w", err)
	}
	if err := subtitles.WriteStyled(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("write subtitle document: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	tmp := paths.final + ".burn.tmp.mp4"
	if err := o.caps.Render.Burn(ctx, paths.master, paths.subtitle, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, paths.final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("swap final clip: %w", err)
	}
	return nil
}

// runRegeneration applies caption edits to a completed job. At most one runs
// per job; the orchestrator flips RegenStatus before launching.
func (o *Orchestrator) runRegeneration(ctx context.Context, jobID, docPath, masterPath, finalPath string, clipDuration float64, edits []captions.Edit) {
	o.publish(jobID, pubsub.KindRegenUpdate, 50, "Re-burning captions…", "")

	doc, err := o.caps.Engine.Regenerate(ctx, docPath, edits, clipDuration, masterPath, finalPath)
	if err != nil {
		slog.Error("caption regeneration failed", "job_id", jobID, "error", err)
		metrics.Regenerations.WithLabelValues("error").Inc()
		o.update(jobID, func(j *Job) { j.RegenStatus = RegenFailed })
		o.publish(jobID, pubsub.KindRegenError, 0, "Caption update failed", "")
		return
	}

	metrics.Regenerations.WithLabelValues("ok").Inc()
	o.update(jobID, func(j *Job) {
		j.RegenStatus = RegenIdle
		j.Captions = doc.Captions()
	})
	o.publish(jobID, pubsub.KindRegenDone, 100, "Captions updated", "")
	o.persist(ctx, jobID)
}
