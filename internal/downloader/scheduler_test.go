package downloader

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/downlinkhq/downlink/internal/db"
	"github.com/downlinkhq/downlink/internal/event"
	"github.com/downlinkhq/downlink/internal/logging"
	"github.com/downlinkhq/downlink/internal/model"
	"github.com/downlinkhq/downlink/internal/ytdlp"
)

type fakeHandle struct {
	done chan Outcome
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan Outcome, 1)}
}

func (h *fakeHandle) Done() <-chan Outcome { return h.done }
func (h *fakeHandle) Stop()                { h.done <- Outcome{Stopped: true} }
func (h *fakeHandle) Cancel()              { h.done <- Outcome{Canceled: true} }

// complete ends the fake process with an arbitrary outcome.
func (h *fakeHandle) complete(o Outcome) { h.done <- o }

type fakeExecutor struct {
	mu       sync.Mutex
	launches []LaunchSpec
	handles  []*fakeHandle
}

func (e *fakeExecutor) Launch(ctx context.Context, spec LaunchSpec) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := newFakeHandle()
	e.launches = append(e.launches, spec)
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeExecutor) launchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.launches)
}

func (e *fakeExecutor) handle(i int) *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[i]
}

func (e *fakeExecutor) launchURL(i int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	args := e.launches[i].Args
	return args[len(args)-1]
}

type fakeMeta struct {
	entries []ytdlp.PlaylistEntry
	enumErr error
}

func (m *fakeMeta) FetchMetadata(ctx context.Context, url string) (*ytdlp.Metadata, error) {
	return nil, fmt.Errorf("no metadata in tests")
}

func (m *fakeMeta) EnumeratePlaylist(ctx context.Context, url string) ([]ytdlp.PlaylistEntry, error) {
	if m.enumErr != nil {
		return nil, m.enumErr
	}
	return m.entries, nil
}

func newTestScheduler(t *testing.T, cfg Config, meta MetadataClient) (*Scheduler, *fakeExecutor, db.Repository) {
	t.Helper()
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := db.NewSQLiteRepository(database)
	bus := event.NewBus()
	t.Cleanup(bus.Close)

	exec := &fakeExecutor{}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = t.TempDir()
	}
	s := New(repo, bus, exec, meta, cfg, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s, exec, repo
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestScheduler_FIFOUnderConcurrencyLimit(t *testing.T) {
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 2}, &fakeMeta{})

	urls := []string{
		"https://example.com/watch?v=a",
		"https://example.com/watch?v=b",
		"https://example.com/watch?v=c",
	}
	var ids []uuid.UUID
	for _, u := range urls {
		d, err := s.Add(context.Background(), u, "", model.Toggles{})
		if err != nil {
			t.Fatalf("Add(%s) error = %v", u, err)
		}
		ids = append(ids, d.ID)
	}

	if got := exec.launchCount(); got != 2 {
		t.Fatalf("launches = %d, want 2 (limit)", got)
	}
	if exec.launchURL(0) != urls[0] || exec.launchURL(1) != urls[1] {
		t.Error("admission order is not FIFO")
	}
	if d, _ := s.Get(ids[2]); d.Status != model.StatusQueued {
		t.Errorf("third download status = %q, want queued", d.Status)
	}

	// Finishing the first admits the third.
	exec.handle(0).complete(Outcome{FinalPath: "/tmp/a.mp4"})
	waitFor(t, func() bool { return exec.launchCount() == 3 }, "third launch")

	if exec.launchURL(2) != urls[2] {
		t.Errorf("third launch url = %q, want %q", exec.launchURL(2), urls[2])
	}
	waitFor(t, func() bool {
		d, _ := s.Get(ids[0])
		return d.Status == model.StatusDone
	}, "first download done")

	d, _ := s.Get(ids[0])
	if d.FinalPath != "/tmp/a.mp4" {
		t.Errorf("FinalPath = %q, want /tmp/a.mp4", d.FinalPath)
	}
	if d.Progress.Percent != 100 {
		t.Errorf("Percent = %v, want 100 on completion", d.Progress.Percent)
	}
}

func TestScheduler_SetMaxConcurrentAdmitsImmediately(t *testing.T) {
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 1}, &fakeMeta{})

	s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})
	s.Add(context.Background(), "https://example.com/watch?v=b", "", model.Toggles{})

	if got := exec.launchCount(); got != 1 {
		t.Fatalf("launches = %d, want 1", got)
	}

	s.SetMaxConcurrent(2)
	if got := exec.launchCount(); got != 2 {
		t.Errorf("launches after raise = %d, want 2", got)
	}

	// Lowering the limit never interrupts running jobs.
	s.SetMaxConcurrent(1)
	waitFor(t, func() bool {
		running := 0
		for _, d := range s.List() {
			if d.Status == model.StatusDownloading {
				running++
			}
		}
		return running == 2
	}, "both still running")
}

func TestScheduler_StopRetainsProgressAndResumes(t *testing.T) {
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 1, ProgressEventsPerSecond: 1000}, &fakeMeta{})

	d, _ := s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})

	// Feed progress through the watcher path.
	spec := func() LaunchSpec {
		exec.mu.Lock()
		defer exec.mu.Unlock()
		return exec.launches[0]
	}()
	spec.OnUpdate(ytdlp.Update{
		Progress:   model.Progress{Percent: 37, BytesDownloaded: 370, BytesTotal: 1000, SpeedBps: 100, ETASeconds: 7},
		Phase:      model.PhaseDownloading,
		HasNumbers: true,
	})

	if err := s.Stop(d.ID); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitFor(t, func() bool {
		got, _ := s.Get(d.ID)
		return got.Status == model.StatusStopped
	}, "stopped status")

	got, _ := s.Get(d.ID)
	if got.Progress.Percent != 37 {
		t.Errorf("Percent after stop = %v, want retained 37", got.Progress.Percent)
	}

	if err := s.Resume(d.ID); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	waitFor(t, func() bool { return exec.launchCount() == 2 }, "relaunch after resume")

	got, _ = s.Get(d.ID)
	if got.Status != model.StatusDownloading {
		t.Errorf("status after resume = %q, want downloading", got.Status)
	}
}

func TestScheduler_StopAllAndResumeAll(t *testing.T) {
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 2}, &fakeMeta{})

	var ids []uuid.UUID
	for _, u := range []string{"https://example.com/watch?v=a", "https://example.com/watch?v=b"} {
		d, err := s.Add(context.Background(), u, "", model.Toggles{})
		if err != nil {
			t.Fatalf("Add(%q) error = %v", u, err)
		}
		ids = append(ids, d.ID)
	}
	waitFor(t, func() bool { return exec.launchCount() == 2 }, "both launches")

	s.StopAll()
	waitFor(t, func() bool {
		for _, id := range ids {
			if got, _ := s.Get(id); got.Status != model.StatusStopped {
				return false
			}
		}
		return true
	}, "all active downloads stopped")

	s.ResumeAll()
	waitFor(t, func() bool { return exec.launchCount() == 4 }, "relaunches after resume-all")
	for _, id := range ids {
		if got, _ := s.Get(id); got.Status != model.StatusDownloading {
			t.Errorf("status after resume-all = %q, want downloading", got.Status)
		}
	}
}

func TestScheduler_CloseReturnsAfterStopAll(t *testing.T) {
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 1}, &fakeMeta{})

	d, err := s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	waitFor(t, func() bool { return exec.launchCount() == 1 }, "launch")

	// With a process in flight, Close blocks on its watcher; StopAll ends
	// the process so the wait can finish.
	s.StopAll()
	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close() did not return after StopAll()")
	}

	got, _ := s.Get(d.ID)
	if got.Status != model.StatusStopped {
		t.Errorf("status after shutdown = %q, want stopped", got.Status)
	}
}

func TestScheduler_StopQueuedRejected(t *testing.T) {
	s, _, _ := newTestScheduler(t, Config{MaxConcurrent: 1}, &fakeMeta{})

	s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})
	queued, _ := s.Add(context.Background(), "https://example.com/watch?v=b", "", model.Toggles{})

	if err := s.Stop(queued.ID); err == nil {
		t.Error("Stop(queued) error = nil, want rejection")
	}
}

func TestScheduler_CancelQueued(t *testing.T) {
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 1}, &fakeMeta{})

	s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})
	queued, _ := s.Add(context.Background(), "https://example.com/watch?v=b", "", model.Toggles{})

	if err := s.Cancel(queued.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	d, _ := s.Get(queued.ID)
	if d.Status != model.StatusCanceled {
		t.Errorf("status = %q, want canceled", d.Status)
	}

	// The canceled job never launches even when a slot frees.
	exec.handle(0).complete(Outcome{FinalPath: "/tmp/a.mp4"})
	time.Sleep(50 * time.Millisecond)
	if got := exec.launchCount(); got != 1 {
		t.Errorf("launches = %d, want 1", got)
	}
}

func TestScheduler_CancelActiveResetsProgress(t *testing.T) {
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 1, ProgressEventsPerSecond: 1000}, &fakeMeta{})

	d, _ := s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})

	spec := func() LaunchSpec {
		exec.mu.Lock()
		defer exec.mu.Unlock()
		return exec.launches[0]
	}()
	spec.OnUpdate(ytdlp.Update{
		Progress:   model.Progress{Percent: 60, BytesDownloaded: 600, BytesTotal: 1000, SpeedBps: -1, ETASeconds: -1},
		Phase:      model.PhaseDownloading,
		HasNumbers: true,
	})

	if err := s.Cancel(d.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	waitFor(t, func() bool {
		got, _ := s.Get(d.ID)
		return got.Status == model.StatusCanceled
	}, "canceled status")

	got, _ := s.Get(d.ID)
	if got.Progress.Percent != -1 {
		t.Errorf("Percent after cancel = %v, want -1", got.Progress.Percent)
	}
}

func TestScheduler_FailureClassifiedAndRetry(t *testing.T) {
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 1}, &fakeMeta{})

	d, _ := s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})

	exec.handle(0).complete(Outcome{Err: model.NewUserFacingError(model.ErrNetwork, "Network problem")})
	waitFor(t, func() bool {
		got, _ := s.Get(d.ID)
		return got.Status == model.StatusFailed
	}, "failed status")

	got, _ := s.Get(d.ID)
	if got.LastError == nil || got.LastError.Code != model.ErrNetwork {
		t.Fatalf("LastError = %v, want network_error", got.LastError)
	}

	if err := s.Retry(d.ID); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	waitFor(t, func() bool { return exec.launchCount() == 2 }, "relaunch after retry")

	got, _ = s.Get(d.ID)
	if got.LastError != nil {
		t.Errorf("LastError after retry = %v, want nil", got.LastError)
	}
}

func TestScheduler_RetryNonFailedRejected(t *testing.T) {
	s, _, _ := newTestScheduler(t, Config{MaxConcurrent: 1}, &fakeMeta{})

	d, _ := s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})
	if err := s.Retry(d.ID); err == nil {
		t.Error("Retry(downloading) error = nil, want rejection")
	}
}

func TestScheduler_PlaylistExpansion(t *testing.T) {
	meta := &fakeMeta{entries: []ytdlp.PlaylistEntry{
		{ID: "v1", URL: "https://example.com/watch?v=v1", Title: "First"},
		{ID: "v2", URL: "https://example.com/watch?v=v2", Title: "[Private video]", Unavailable: true},
		{ID: "v3", URL: "https://example.com/watch?v=v3", Title: "Third"},
	}}
	s, exec, _ := newTestScheduler(t, Config{MaxConcurrent: 10}, meta)

	parent, err := s.Add(context.Background(), "https://example.com/playlist?list=PL1", "", model.Toggles{})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if parent.SourceKind != model.SourcePlaylistParent {
		t.Fatalf("SourceKind = %q, want playlist_parent", parent.SourceKind)
	}

	waitFor(t, func() bool {
		got, _ := s.Get(parent.ID)
		return got.Status == model.StatusReady
	}, "parent expanded")

	children := s.Children(parent.ID)
	if len(children) != 3 {
		t.Fatalf("len(children) = %d, want 3", len(children))
	}
	if children[1].Status != model.StatusFailed {
		t.Errorf("unavailable child status = %q, want failed", children[1].Status)
	}
	if children[1].LastError == nil {
		t.Error("unavailable child LastError = nil, want set")
	}

	// Parents never occupy a slot: only the two available children launch.
	waitFor(t, func() bool { return exec.launchCount() == 2 }, "children launched")

	agg := s.AggregateFor(parent.ID)
	if agg.Total != 3 || agg.Failed != 1 {
		t.Errorf("aggregate = %+v, want total 3 failed 1", agg)
	}

	exec.handle(0).complete(Outcome{FinalPath: "/tmp/v1.mp4"})
	exec.handle(1).complete(Outcome{FinalPath: "/tmp/v3.mp4"})

	waitFor(t, func() bool {
		got, _ := s.Get(parent.ID)
		return got.Status == model.StatusDone
	}, "parent done")

	agg = s.AggregateFor(parent.ID)
	if agg.Completed != 2 {
		t.Errorf("aggregate completed = %d, want 2", agg.Completed)
	}
	wantPct := 100 * 2.0 / 3.0
	if agg.Percent < wantPct-0.01 || agg.Percent > wantPct+0.01 {
		t.Errorf("aggregate percent = %v, want %v", agg.Percent, wantPct)
	}
}

func TestScheduler_PlaylistExpansionIdempotent(t *testing.T) {
	meta := &fakeMeta{entries: []ytdlp.PlaylistEntry{
		{ID: "v1", URL: "https://example.com/watch?v=v1", Title: "First"},
	}}
	s, _, _ := newTestScheduler(t, Config{MaxConcurrent: 1}, meta)

	parent, _ := s.Add(context.Background(), "https://example.com/playlist?list=PL1", "", model.Toggles{})
	waitFor(t, func() bool {
		got, _ := s.Get(parent.ID)
		return got.Status == model.StatusReady
	}, "parent expanded")

	// Re-applying the same expansion must not duplicate children.
	s.mu.Lock()
	p := s.jobs[parent.ID]
	p.Status = model.StatusFetching
	s.applyExpansionLocked(parent.ID, meta.entries, nil)
	s.mu.Unlock()

	if children := s.Children(parent.ID); len(children) != 1 {
		t.Errorf("len(children) = %d, want 1 after re-expansion", len(children))
	}
}

func TestScheduler_PlaylistEnumerationFailure(t *testing.T) {
	meta := &fakeMeta{enumErr: fmt.Errorf("yt-dlp enumeration failed: exit status 1: ERROR: Unsupported URL")}
	s, _, _ := newTestScheduler(t, Config{MaxConcurrent: 1}, meta)

	parent, _ := s.Add(context.Background(), "https://example.com/playlist?list=PL1", "", model.Toggles{})
	waitFor(t, func() bool {
		got, _ := s.Get(parent.ID)
		return got.Status == model.StatusFailed
	}, "parent failed")

	got, _ := s.Get(parent.ID)
	if got.LastError == nil || got.LastError.Code != model.ErrExtractorOutdated {
		t.Errorf("LastError = %v, want extractor_outdated", got.LastError)
	}
}

func TestScheduler_ReconcileRequeuesActive(t *testing.T) {
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	repo := db.NewSQLiteRepository(database)

	// A row left downloading by a crashed run.
	stale := model.NewSingle("https://example.com/watch?v=a", "recommended_best", "/tmp")
	repo.CreateDownload(context.Background(), stale)
	repo.UpdateStatus(context.Background(), stale.ID, model.StatusDownloading, model.PhaseDownloading)

	bus := event.NewBus()
	t.Cleanup(bus.Close)
	exec := &fakeExecutor{}
	s := New(repo, bus, exec, &fakeMeta{}, Config{MaxConcurrent: 1, DownloadDir: t.TempDir()}, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Reconciliation requeued it and admission relaunched it.
	if got := exec.launchCount(); got != 1 {
		t.Fatalf("launches = %d, want 1 after reconcile", got)
	}
	d, _ := s.Get(stale.ID)
	if d.Status != model.StatusDownloading {
		t.Errorf("status = %q, want downloading after re-admission", d.Status)
	}
}

func TestScheduler_RestartDoesNotReexpandPlaylist(t *testing.T) {
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	repo := db.NewSQLiteRepository(database)
	dir := t.TempDir()

	// First run expands the playlist and starts its children.
	meta := &fakeMeta{entries: []ytdlp.PlaylistEntry{
		{URL: "https://example.com/watch?v=a", Title: "A"},
		{URL: "https://example.com/watch?v=b", Title: "B"},
	}}
	bus := event.NewBus()
	t.Cleanup(bus.Close)
	exec := &fakeExecutor{}
	s := New(repo, bus, exec, meta, Config{MaxConcurrent: 2, DownloadDir: dir}, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	parent, err := s.Add(context.Background(), "https://example.com/playlist?list=PL1", "", model.Toggles{})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	waitFor(t, func() bool {
		got, _ := s.Get(parent.ID)
		return got.Status == model.StatusReady
	}, "expanded parent")
	waitFor(t, func() bool { return exec.launchCount() == 2 }, "children launched")

	// Second run over the same repository; enumeration now fails. The
	// already-expanded parent must come back untouched, not failed.
	meta2 := &fakeMeta{enumErr: fmt.Errorf("ERROR: network timed out")}
	bus2 := event.NewBus()
	t.Cleanup(bus2.Close)
	exec2 := &fakeExecutor{}
	s2 := New(repo, bus2, exec2, meta2, Config{MaxConcurrent: 2, DownloadDir: dir}, logging.Discard())
	if err := s2.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	got, _ := s2.Get(parent.ID)
	if got.Status != model.StatusReady {
		t.Errorf("parent status after restart = %q, want ready", got.Status)
	}
	if got.LastError != nil {
		t.Errorf("parent error after restart = %v, want nil", got.LastError)
	}
	if children := s2.Children(parent.ID); len(children) != 2 {
		t.Errorf("children after restart = %d, want 2", len(children))
	}
	if got := exec2.launchCount(); got != 2 {
		t.Errorf("relaunches = %d, want 2", got)
	}
}

func TestScheduler_EventOrderPerJob(t *testing.T) {
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	repo := db.NewSQLiteRepository(database)

	bus := event.NewBus()
	t.Cleanup(bus.Close)
	ch, cancel := bus.Subscribe()
	defer cancel()

	exec := &fakeExecutor{}
	s := New(repo, bus, exec, &fakeMeta{}, Config{MaxConcurrent: 1, DownloadDir: t.TempDir()}, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	d, _ := s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})
	exec.handle(0).complete(Outcome{FinalPath: "/tmp/a.mp4"})

	want := []event.Kind{event.KindQueued, event.KindStarted, event.KindCompleted}
	for i, k := range want {
		select {
		case e := <-ch:
			if e.Kind() != k {
				t.Fatalf("event %d = %q, want %q", i, e.Kind(), k)
			}
			if e.Download() != d.ID {
				t.Fatalf("event %d download = %v, want %v", i, e.Download(), d.ID)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for event %d (%q)", i, k)
		}
	}
}

func TestScheduler_ProgressThrottle(t *testing.T) {
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	repo := db.NewSQLiteRepository(database)

	bus := event.NewBus()
	t.Cleanup(bus.Close)
	ch, cancel := bus.Subscribe()
	defer cancel()

	exec := &fakeExecutor{}
	// One progress event per second at most.
	s := New(repo, bus, exec, &fakeMeta{}, Config{MaxConcurrent: 1, ProgressEventsPerSecond: 1, DownloadDir: t.TempDir()}, logging.Discard())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})

	spec := func() LaunchSpec {
		exec.mu.Lock()
		defer exec.mu.Unlock()
		return exec.launches[0]
	}()
	for i := 0; i < 20; i++ {
		spec.OnUpdate(ytdlp.Update{
			Progress:   model.Progress{Percent: float64(i), BytesDownloaded: -1, BytesTotal: -1, SpeedBps: -1, ETASeconds: -1},
			Phase:      model.PhaseDownloading,
			HasNumbers: true,
		})
	}

	progress := 0
	drain := true
	for drain {
		select {
		case e := <-ch:
			if e.Kind() == event.KindProgress {
				progress++
			}
		case <-time.After(200 * time.Millisecond):
			drain = false
		}
	}
	if progress != 1 {
		t.Errorf("progress events = %d, want 1 (throttled)", progress)
	}
}

func TestScheduler_RemoveTerminalOnly(t *testing.T) {
	s, exec, repo := newTestScheduler(t, Config{MaxConcurrent: 1}, &fakeMeta{})

	d, _ := s.Add(context.Background(), "https://example.com/watch?v=a", "", model.Toggles{})
	if err := s.Remove(context.Background(), d.ID); err == nil {
		t.Error("Remove(active) error = nil, want rejection")
	}

	exec.handle(0).complete(Outcome{FinalPath: "/tmp/a.mp4"})
	waitFor(t, func() bool {
		got, _ := s.Get(d.ID)
		return got.Status == model.StatusDone
	}, "done status")

	if err := s.Remove(context.Background(), d.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := s.Get(d.ID); ok {
		t.Error("download still known after Remove")
	}
	if row, _ := repo.GetDownload(context.Background(), d.ID); row != nil {
		t.Error("row still persisted after Remove")
	}
}
