package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/clipforge/internal/acquire"
	"thirdcoast.systems/clipforge/internal/captions"
	"thirdcoast.systems/clipforge/internal/db"
	"thirdcoast.systems/clipforge/internal/peaks"
	"thirdcoast.systems/clipforge/internal/pubsub"
	"thirdcoast.systems/clipforge/internal/render"
	"thirdcoast.systems/clipforge/internal/speakers"
	"thirdcoast.systems/clipforge/internal/transcribe"
)

// --- fakes ---

type fakeAcquirer struct {
	mu       sync.Mutex
	dir      string
	failures int
	failWith error
	calls    int
}

func (f *fakeAcquirer) Acquire(_ context.Context, _ string) (acquire.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return acquire.Source{}, f.failWith
	}
	path := filepath.Join(f.dir, "yt_src.mp4")
	if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
		return acquire.Source{}, err
	}
	return acquire.Source{LocalPath: path, Title: "A Podcast", SourceID: "yt_src"}, nil
}

type fakeProber struct {
	duration float64
}

func (f fakeProber) Probe(context.Context, string) (float64, int, int, error) {
	return f.duration, 1920, 1080, nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Segments(_ context.Context, req transcribe.Request) ([]transcribe.Segment, error) {
	return []transcribe.Segment{
		{
			Text: " hello there friend", Start: 0.5, End: 2.0,
			Words: []transcribe.Word{
				{Word: " hello", Start: 0.5, End: 1.0},
				{Word: " there", Start: 1.0, End: 1.5},
				{Word: " friend", Start: 1.5, End: 2.0},
			},
		},
		{Text: " that was crazy", Start: 3.0, End: 5.0},
	}, nil
}

type failingTranscriber struct{}

func (failingTranscriber) Segments(context.Context, transcribe.Request) ([]transcribe.Segment, error) {
	return nil, errors.New("whisper exploded")
}

type memRegistry struct {
	mu   sync.Mutex
	rows map[string]db.ClipRow
}

func newMemRegistry() *memRegistry {
	return &memRegistry{rows: make(map[string]db.ClipRow)}
}

func (m *memRegistry) SaveClip(_ context.Context, row db.ClipRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.Anonymous && row.ExpiresAt == nil {
		t := time.Now().Add(db.AnonymousTTL)
		row.ExpiresAt = &t
	}
	m.rows[row.JobID] = row
	return nil
}

func (m *memRegistry) LoadClip(_ context.Context, jobID string) (*db.ClipRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[jobID]
	if !ok {
		return nil, db.ErrClipNotFound
	}
	return &row, nil
}

func (m *memRegistry) PromoteSession(_ context.Context, sessionID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var moved int64
	for id, row := range m.rows {
		if row.Anonymous && row.Owner == sessionID {
			row.Anonymous = false
			row.Owner = userID
			row.ExpiresAt = nil
			m.rows[id] = row
			moved++
		}
	}
	return moved, nil
}

func (m *memRegistry) SweepExpired(_ context.Context, now time.Time) ([]db.ClipRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var swept []db.ClipRow
	for id, row := range m.rows {
		if row.Anonymous && row.ExpiresAt != nil && row.ExpiresAt.Before(now) {
			swept = append(swept, row)
			delete(m.rows, id)
		}
	}
	return swept, nil
}

// fakeMedia mirrors the render test double.
type fakeMedia struct {
	mu    sync.Mutex
	burns int
}

func (f *fakeMedia) Extract(_ context.Context, _ string, _, _ float64, _ speakers.CropZone, out string) error {
	return os.WriteFile(out, []byte("frag"), 0o644)
}

func (f *fakeMedia) Concat(_ context.Context, parts []string, out string) error {
	return os.WriteFile(out, []byte("master"), 0o644)
}

func (f *fakeMedia) Burn(_ context.Context, in, _ string, out string) error {
	f.mu.Lock()
	f.burns++
	f.mu.Unlock()
	return os.WriteFile(out, []byte("final"), 0o644)
}

type testEnv struct {
	orch     *Orchestrator
	hub      *pubsub.Hub
	registry *memRegistry
	media    *fakeMedia
	acq      *fakeAcquirer
}

func newTestEnv(t *testing.T, opts ...func(*Capabilities)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	media := &fakeMedia{}
	pipeline := render.NewPipeline(media)
	hub := pubsub.NewHub()
	registry := newMemRegistry()
	acq := &fakeAcquirer{dir: dir}

	caps := Capabilities{
		Acquirer:    acq,
		Prober:      fakeProber{duration: 3600},
		Peaks:       peaks.New(),
		Planner:     speakers.NewPlanner(nil, dir),
		Transcriber: fakeTranscriber{},
		Render:      pipeline,
		Engine:      captions.NewEngine(pipeline),
		Registry:    registry,
		Publisher:   hub,
	}
	for _, opt := range opts {
		opt(&caps)
	}

	orch := New(caps, Config{ClipsDir: dir, AnonymousTTL: time.Hour})
	return &testEnv{orch: orch, hub: hub, registry: registry, media: media, acq: acq}
}

func waitForTerminal(t *testing.T, orch *Orchestrator, caller Identity, jobID string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := orch.Query(context.Background(), caller, jobID)
		require.NoError(t, err)
		if snap.State.Terminal() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return Snapshot{}
}

func waitForRegenIdle(t *testing.T, orch *Orchestrator, caller Identity, jobID string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := orch.Query(context.Background(), caller, jobID)
		require.NoError(t, err)
		if snap.RegenStatus != RegenRegenerating {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("regeneration never finished")
	return Snapshot{}
}

func pinned(v float64) *float64 { return &v }

// --- tests ---

func TestCreateRunsPipelineToCompleted(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{
		URL: "https://youtu.be/X", Duration: 20, Start: pinned(300),
	})
	require.NoError(t, err)

	snap := waitForTerminal(t, env.orch, caller, jobID)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 100, snap.Progress)
	assert.True(t, snap.Anonymous)
	assert.InDelta(t, 300, snap.ClipStart, 0.001)
	assert.InDelta(t, 20, snap.ClipDuration, 0.001)
	assert.InDelta(t, peaks.PinnedConfidence, snap.Confidence, 0.001)
	assert.GreaterOrEqual(t, len(snap.Captions), 1)

	// Final clip, master sidecar and subtitle document all exist.
	for _, p := range []string{snap.FinalPath, render.SidecarPath(snap.FinalPath), snap.SubtitlePath} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	// Durable mirror updated.
	row, err := env.registry.LoadClip(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, "a1", row.Owner)
	assert.True(t, row.Anonymous)
}

func TestCreateValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	_, err := env.orch.Create(context.Background(), caller, Request{URL: "https://vimeo.com/1"})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = env.orch.Create(context.Background(), caller, Request{URL: "://bad"})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = env.orch.Create(context.Background(), Identity{}, Request{URL: "https://youtu.be/X"})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Start: pinned(10), End: pinned(5)})
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestQueryAuthorization(t *testing.T) {
	env := newTestEnv(t)
	owner := SessionIdentity("S")

	jobID, err := env.orch.Create(context.Background(), owner, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	waitForTerminal(t, env.orch, owner, jobID)

	_, err = env.orch.Query(context.Background(), SessionIdentity("T"), jobID)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = env.orch.Query(context.Background(), owner, "no-such-job")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPromotionMovesOwnershipIdempotently(t *testing.T) {
	env := newTestEnv(t)
	session := SessionIdentity("S")
	user := UserIdentity("U")

	jobID, err := env.orch.Create(context.Background(), session, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	waitForTerminal(t, env.orch, session, jobID)

	require.NoError(t, env.orch.Promote(context.Background(), "S", "U"))
	require.NoError(t, env.orch.Promote(context.Background(), "S", "U")) // idempotent

	// Visible to the user, not to the old session.
	snap, err := env.orch.Query(context.Background(), user, jobID)
	require.NoError(t, err)
	assert.False(t, snap.Anonymous)

	_, err = env.orch.Query(context.Background(), session, jobID)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	// Durable row moved too.
	row, err := env.registry.LoadClip(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, "U", row.Owner)
	assert.False(t, row.Anonymous)
}

// blockedTwiceFetcher fails with blocked twice before serving, exercising the
// real acquirer's retry ladder end to end.
type blockedTwiceFetcher struct {
	mu    sync.Mutex
	dir   string
	calls int
}

func (f *blockedTwiceFetcher) Fetch(_ context.Context, _ string, _ int) (acquire.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= 2 {
		return acquire.Source{}, acquire.ErrBlocked
	}
	path := filepath.Join(f.dir, "yt_src.mp4")
	if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
		return acquire.Source{}, err
	}
	return acquire.Source{LocalPath: path, Title: "A Podcast", SourceID: "yt_src"}, nil
}

func TestFetchRetryStillCompletes(t *testing.T) {
	fetcher := &blockedTwiceFetcher{dir: t.TempDir()}
	env := newTestEnv(t, func(c *Capabilities) {
		a, err := acquire.New(fetcher, t.TempDir())
		require.NoError(t, err)
		c.Acquirer = a
	})

	caller := SessionIdentity("a1")
	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	snap := waitForTerminal(t, env.orch, caller, jobID)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 3, fetcher.calls)
}

func TestTranscribeFailureFailsJob(t *testing.T) {
	env := newTestEnv(t, func(c *Capabilities) { c.Transcriber = failingTranscriber{} })
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)

	snap := waitForTerminal(t, env.orch, caller, jobID)
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Error, "transcribe_error")
}

func TestFetchFailureFailsJob(t *testing.T) {
	env := newTestEnv(t)
	env.acq.failures = 1000
	env.acq.failWith = errors.New("fetch boom")

	caller := SessionIdentity("a1")
	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)

	snap := waitForTerminal(t, env.orch, caller, jobID)
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.Error, "fetch_error")
}

func TestShortSourceClampsDuration(t *testing.T) {
	env := newTestEnv(t, func(c *Capabilities) { c.Prober = fakeProber{duration: 15} })
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 30})
	require.NoError(t, err)

	snap := waitForTerminal(t, env.orch, caller, jobID)
	assert.Equal(t, StateCompleted, snap.State)
	assert.LessOrEqual(t, snap.ClipDuration, 15.0)
}

func TestUpdateCaptionsRegenerates(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 20, Start: pinned(300)})
	require.NoError(t, err)
	snap := waitForTerminal(t, env.orch, caller, jobID)
	require.Equal(t, StateCompleted, snap.State)

	edits := make([]captions.Edit, 0, len(snap.Captions))
	for _, c := range snap.Captions {
		edits = append(edits, captions.Edit{
			Index: c.Index, Text: "edited " + c.Text, Speaker: c.Speaker,
			StartTime: c.StartTime, EndTime: c.EndTime,
		})
	}

	require.NoError(t, env.orch.UpdateCaptions(context.Background(), caller, jobID, edits))
	final := waitForRegenIdle(t, env.orch, caller, jobID)
	assert.Equal(t, RegenIdle, final.RegenStatus)
	require.NotEmpty(t, final.Captions)
	assert.Contains(t, final.Captions[0].Text, "edited ")
}

func TestUpdateCaptionsBusy(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	waitForTerminal(t, env.orch, caller, jobID)

	// Force the busy state directly; the worker is async.
	env.orch.update(jobID, func(j *Job) { j.RegenStatus = RegenRegenerating })

	err = env.orch.UpdateCaptions(context.Background(), caller, jobID, nil)
	assert.Equal(t, KindBusy, KindOf(err))

	env.orch.update(jobID, func(j *Job) { j.RegenStatus = RegenIdle })
}

func TestUpdateCaptionsAuthorization(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	waitForTerminal(t, env.orch, caller, jobID)

	err = env.orch.UpdateCaptions(context.Background(), SessionIdentity("other"), jobID, nil)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestProgressEventsAreMonotonic(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	// The room is the job id, which is only known once Create returns, so the
	// subscription starts after Create. Events published before it (at least
	// the Queued event Create publishes) are missed; the check covers the
	// events that do arrive.
	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	ch, cancel := env.hub.Subscribe(jobID)
	defer cancel()

	waitForTerminal(t, env.orch, caller, jobID)

	last := -1
	for {
		select {
		case ev := <-ch:
			assert.GreaterOrEqual(t, ev.Progress, last)
			last = ev.Progress
			if ev.Kind == pubsub.KindComplete {
				assert.Equal(t, 100, ev.Progress)
				return
			}
		case <-time.After(2 * time.Second):
			// Worker may have finished before we subscribed; the terminal
			// state check above already proves completion.
			return
		}
	}
}

func TestPruneExpiredDropsOldAnonymousJobs(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	waitForTerminal(t, env.orch, caller, jobID)

	assert.Equal(t, 0, env.orch.PruneExpired(time.Now()))
	assert.Equal(t, 1, env.orch.PruneExpired(time.Now().Add(2*time.Hour)))

	// Still queryable through the durable mirror.
	snap, err := env.orch.Query(context.Background(), caller, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, snap.ID)
}

func TestSweepRemovesExpiredArtifacts(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	snap := waitForTerminal(t, env.orch, caller, jobID)

	// Expire the row manually.
	env.registry.mu.Lock()
	row := env.registry.rows[jobID]
	past := time.Now().Add(-time.Minute)
	row.ExpiresAt = &past
	env.registry.rows[jobID] = row
	env.registry.mu.Unlock()

	require.NoError(t, env.orch.Sweep(context.Background(), time.Now()))

	_, err = os.Stat(snap.FinalPath)
	assert.True(t, os.IsNotExist(err))
	_, err = env.registry.LoadClip(context.Background(), jobID)
	assert.ErrorIs(t, err, db.ErrClipNotFound)
}

func TestRefreshReturnsCacheBuster(t *testing.T) {
	env := newTestEnv(t)
	caller := SessionIdentity("a1")

	jobID, err := env.orch.Create(context.Background(), caller, Request{URL: "https://youtu.be/X", Duration: 10, Start: pinned(60)})
	require.NoError(t, err)
	waitForTerminal(t, env.orch, caller, jobID)

	snap, buster, err := env.orch.Refresh(context.Background(), caller, jobID)
	require.NoError(t, err)
	assert.NotEmpty(t, buster)
	assert.Equal(t, jobID, snap.ID)
}
