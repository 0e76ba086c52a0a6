// Package jobs owns the in-memory job map and drives each clip-production
// workflow with one worker goroutine. The orchestrator is the single actor
// allowed to mutate job state; readers get struct-copy snapshots taken under
// a short lock.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"thirdcoast.systems/clipforge/internal/acquire"
	"thirdcoast.systems/clipforge/internal/captions"
	"thirdcoast.systems/clipforge/internal/db"
	"thirdcoast.systems/clipforge/internal/metrics"
	"thirdcoast.systems/clipforge/internal/peaks"
	"thirdcoast.systems/clipforge/internal/pubsub"
	"thirdcoast.systems/clipforge/internal/render"
	"thirdcoast.systems/clipforge/internal/speakers"
	"thirdcoast.systems/clipforge/internal/transcribe"
)

// Acquirer resolves a URL to a local media file.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (acquire.Source, error)
}

// Prober reads media metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (duration float64, width, height int, err error)
}

// Registry is the durable clip mirror.
type Registry interface {
	SaveClip(ctx context.Context, row db.ClipRow) error
	LoadClip(ctx context.Context, jobID string) (*db.ClipRow, error)
	PromoteSession(ctx context.Context, sessionID, userID string) (int64, error)
	SweepExpired(ctx context.Context, now time.Time) ([]db.ClipRow, error)
}

// Capabilities are the collaborators injected at construction. No hidden
// process state: everything the workers touch goes through these.
type Capabilities struct {
	Acquirer    Acquirer
	Prober      Prober
	Peaks       *peaks.Selector
	Planner     *speakers.Planner
	Transcriber transcribe.Transcriber
	Render      *render.Pipeline
	Engine      *captions.Engine
	Registry    Registry
	Publisher   pubsub.Publisher
}

// Config tunes the orchestrator.
type Config struct {
	ClipsDir     string
	AnonymousTTL time.Duration
	// DefaultDuration applies when a create request omits the duration.
	DefaultDuration float64
}

// Orchestrator accepts commands and owns every Job.
type Orchestrator struct {
	caps Capabilities
	cfg  Config

	mu   sync.Mutex
	jobs map[string]*Job
}

// New constructs an orchestrator.
func New(caps Capabilities, cfg Config) *Orchestrator {
	if cfg.AnonymousTTL <= 0 {
		cfg.AnonymousTTL = db.AnonymousTTL
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 30
	}
	return &Orchestrator{
		caps: caps,
		cfg:  cfg,
		jobs: make(map[string]*Job),
	}
}

// allowedHosts the create command accepts.
var allowedHosts = map[string]bool{
	"youtube.com": true,
	"youtu.be":    true,
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("unparseable url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	if !allowedHosts[host] {
		return fmt.Errorf("unsupported host %q", u.Hostname())
	}
	return nil
}

// Create accepts a clip request, registers the job, and starts its worker.
func (o *Orchestrator) Create(ctx context.Context, caller Identity, req Request) (string, error) {
	if !caller.Valid() {
		return "", errKindf(KindInvalidInput, "caller identity required")
	}
	if err := validateURL(req.URL); err != nil {
		return "", errKind(KindInvalidInput, err)
	}
	if req.Duration <= 0 {
		req.Duration = o.cfg.DefaultDuration
	}
	if req.Start != nil && *req.Start < 0 {
		return "", errKindf(KindInvalidInput, "negative start offset")
	}
	if req.End != nil {
		if req.Start == nil {
			return "", errKindf(KindInvalidInput, "end offset requires a start offset")
		}
		if *req.End <= *req.Start {
			return "", errKindf(KindInvalidInput, "end offset must be after start")
		}
	}

	job := &Job{
		ID:          uuid.NewString(),
		Owner:       caller,
		Request:     req,
		State:       StatePending,
		RegenStatus: RegenIdle,
		Message:     "Queued",
		CreatedAt:   time.Now().UTC(),
	}

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.mu.Unlock()

	metrics.JobsCreated.Inc()
	o.persist(ctx, job.ID)
	o.publish(job.ID, pubsub.KindProgress, 0, "Queued", StatePending)

	go o.runJob(context.WithoutCancel(ctx), job.ID)

	slog.Info("job created", "job_id", job.ID, "url", req.URL, "anonymous", caller.Anonymous())
	return job.ID, nil
}

// Query returns a snapshot of a job the caller owns. Jobs absent from memory
// fall back to the durable mirror for recovered visibility.
func (o *Orchestrator) Query(ctx context.Context, caller Identity, jobID string) (Snapshot, error) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	if ok {
		if job.Owner != caller {
			o.mu.Unlock()
			return Snapshot{}, errKindf(KindUnauthorized, "job %s not owned by caller", jobID)
		}
		snap := job.snapshot()
		o.mu.Unlock()
		return snap, nil
	}
	o.mu.Unlock()

	row, err := o.caps.Registry.LoadClip(ctx, jobID)
	if err != nil {
		if errors.Is(err, db.ErrClipNotFound) {
			return Snapshot{}, errKindf(KindNotFound, "job %s", jobID)
		}
		return Snapshot{}, errKind(KindIOError, err)
	}
	if row.Owner != caller.Owner() || row.Anonymous != caller.Anonymous() {
		return Snapshot{}, errKindf(KindUnauthorized, "job %s not owned by caller", jobID)
	}

	var snap Snapshot
	if err := json.Unmarshal(row.SerializedState, &snap); err != nil || snap.ID == "" {
		// A mirror row without a usable snapshot still proves existence.
		snap = Snapshot{ID: row.JobID, State: StateFailed, Message: "state not recovered"}
	}
	return snap, nil
}

// UpdateCaptions starts one regeneration for a completed job. A second
// update while one is running is rejected with busy.
func (o *Orchestrator) UpdateCaptions(ctx context.Context, caller Identity, jobID string, edits []captions.Edit) error {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	if !ok {
		o.mu.Unlock()
		return errKindf(KindNotFound, "job %s", jobID)
	}
	if job.Owner != caller {
		o.mu.Unlock()
		return errKindf(KindUnauthorized, "job %s not owned by caller", jobID)
	}
	if job.State != StateCompleted {
		o.mu.Unlock()
		return errKindf(KindInvalidInput, "job %s is %s, not completed", jobID, job.State)
	}
	if job.RegenStatus == RegenRegenerating {
		o.mu.Unlock()
		return errKindf(KindBusy, "regeneration already running for %s", jobID)
	}
	job.RegenStatus = RegenRegenerating
	docPath, master, final, dur := job.SubtitlePath, job.MasterPath, job.FinalPath, job.ClipDuration
	o.mu.Unlock()

	o.publish(jobID, pubsub.KindRegenUpdate, 10, "Rebuilding captions", "")

	go o.runRegeneration(context.WithoutCancel(ctx), jobID, docPath, master, final, dur, edits)
	return nil
}

// Refresh returns the current snapshot plus a cache-busting token for the
// final file URL, so players re-fetch after a regeneration swap.
func (o *Orchestrator) Refresh(ctx context.Context, caller Identity, jobID string) (Snapshot, string, error) {
	snap, err := o.Query(ctx, caller, jobID)
	if err != nil {
		return Snapshot{}, "", err
	}
	buster := fmt.Sprintf("%d", time.Now().UnixMilli())
	return snap, buster, nil
}

// Promote rewrites every job owned by session S to user U, in memory and
// durably. Idempotent.
func (o *Orchestrator) Promote(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" || userID == "" {
		return errKindf(KindInvalidInput, "session and user ids required")
	}

	o.mu.Lock()
	for _, job := range o.jobs {
		if job.Owner.SessionID == sessionID {
			job.Owner = UserIdentity(userID)
		}
	}
	o.mu.Unlock()

	moved, err := o.caps.Registry.PromoteSession(ctx, sessionID, userID)
	if err != nil {
		return errKind(KindIOError, err)
	}
	if moved > 0 {
		slog.Info("promoted anonymous clips", "session_id", sessionID, "user_id", userID, "moved", moved)
	}
	return nil
}

// PruneExpired drops anonymous jobs past the TTL from the in-memory map.
func (o *Orchestrator) PruneExpired(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	pruned := 0
	for id, job := range o.jobs {
		if job.Owner.Anonymous() && now.Sub(job.CreatedAt) > o.cfg.AnonymousTTL && job.State.Terminal() {
			delete(o.jobs, id)
			pruned++
		}
	}
	return pruned
}

// Sweep removes expired anonymous rows and their artifacts.
func (o *Orchestrator) Sweep(ctx context.Context, now time.Time) error {
	swept, err := o.caps.Registry.SweepExpired(ctx, now)
	if err != nil {
		return errKind(KindIOError, err)
	}
	for _, row := range swept {
		metrics.AnonymousSweeps.Inc()
		for _, path := range []string{row.FinalPath, row.SubtitlePath} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove swept artifact", "path", path, "error", err)
			}
		}
		if row.FinalPath != "" {
			sidecar := render.SidecarPath(row.FinalPath)
			if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove swept master", "path", sidecar, "error", err)
			}
		}
	}
	if len(swept) > 0 {
		slog.Info("swept expired anonymous clips", "count", len(swept))
	}
	return nil
}

// RunMaintenance loops the prune and sweep tasks until ctx is done.
func (o *Orchestrator) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			o.PruneExpired(now)
			if err := o.Sweep(ctx, now); err != nil {
				slog.Warn("sweep failed", "error", err)
			}
		}
	}
}

// --- internal helpers ---

// update mutates a job under the lock and returns its fresh snapshot.
func (o *Orchestrator) update(jobID string, fn func(*Job)) (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok {
		return Snapshot{}, false
	}
	fn(job)
	return job.snapshot(), true
}

// publish emits a progress event to the job's room. Never called under the
// lock.
func (o *Orchestrator) publish(jobID string, kind pubsub.Kind, progress int, message string, state State) {
	o.caps.Publisher.Publish(context.Background(), jobID, pubsub.Event{
		JobID:    jobID,
		Kind:     kind,
		Progress: progress,
		Message:  message,
		State:    string(state),
	})
}

// persist mirrors the job's current snapshot to the registry, best effort.
func (o *Orchestrator) persist(ctx context.Context, jobID string) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	if !ok {
		o.mu.Unlock()
		return
	}
	snap := job.snapshot()
	row := db.ClipRow{
		JobID:        job.ID,
		Owner:        job.Owner.Owner(),
		SourceURL:    job.Request.URL,
		FinalPath:    job.FinalPath,
		SubtitlePath: job.SubtitlePath,
		Anonymous:    job.Owner.Anonymous(),
	}
	o.mu.Unlock()

	state, err := json.Marshal(snap)
	if err == nil {
		row.SerializedState = state
	}
	if err := o.caps.Registry.SaveClip(ctx, row); err != nil {
		slog.Warn("failed to persist clip row", "job_id", jobID, "error", err)
	}
}
