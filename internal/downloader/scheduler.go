package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/downlinkhq/downlink/internal/db"
	"github.com/downlinkhq/downlink/internal/event"
	"github.com/downlinkhq/downlink/internal/model"
	"github.com/downlinkhq/downlink/internal/ytdlp"
)

// Config tunes the scheduler.
type Config struct {
	MaxConcurrent           int
	StopGrace               time.Duration
	RingSize                int
	ProgressEventsPerSecond int
	MetadataTimeout         time.Duration

	DownloadDir   string
	ProxyURL      string
	RateLimitMBps float64
	FfmpegPath    string
}

func (c *Config) fillDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.StopGrace <= 0 {
		c.StopGrace = 10 * time.Second
	}
	if c.RingSize <= 0 {
		c.RingSize = 2000
	}
	if c.ProgressEventsPerSecond <= 0 {
		c.ProgressEventsPerSecond = 5
	}
	if c.MetadataTimeout <= 0 {
		c.MetadataTimeout = 30 * time.Second
	}
}

// MetadataClient covers the short probe calls the scheduler needs. Satisfied
// by *ytdlp.Client; tests inject fakes.
type MetadataClient interface {
	FetchMetadata(ctx context.Context, url string) (*ytdlp.Metadata, error)
	EnumeratePlaylist(ctx context.Context, url string) ([]ytdlp.PlaylistEntry, error)
}

// Scheduler owns the job table: FIFO admission under the concurrency limit,
// state transitions, persistence, and event publication. One mutex guards
// every mutation; watcher goroutines re-enter through locked methods.
type Scheduler struct {
	mu   sync.Mutex
	cfg  Config
	repo db.Repository
	bus  *event.Bus
	exec Executor
	meta MetadataClient
	log  *slog.Logger

	queue   []uuid.UUID
	active  map[uuid.UUID]Handle
	jobs    map[uuid.UUID]*model.Download
	toggles map[uuid.UUID]model.Toggles

	lastProgress map[uuid.UUID]time.Time
	closed       bool
	wg           sync.WaitGroup
}

// New creates a scheduler. Call Start before submitting work.
func New(repo db.Repository, bus *event.Bus, exec Executor, meta MetadataClient, cfg Config, log *slog.Logger) *Scheduler {
	cfg.fillDefaults()
	return &Scheduler{
		cfg:          cfg,
		repo:         repo,
		bus:          bus,
		exec:         exec,
		meta:         meta,
		log:          log,
		active:       make(map[uuid.UUID]Handle),
		jobs:         make(map[uuid.UUID]*model.Download),
		toggles:      make(map[uuid.UUID]model.Toggles),
		lastProgress: make(map[uuid.UUID]time.Time),
	}
}

// Start reconciles persisted state from a previous run and begins admitting
// work. Downloads left active by a crash return to the waiting line.
func (s *Scheduler) Start(ctx context.Context) error {
	n, err := s.repo.ResetActiveToQueued(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile downloads: %w", err)
	}
	if n > 0 {
		s.log.Info("requeued downloads from previous run", "count", n)
	}

	rows, err := s.repo.ListDownloads(ctx, db.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to load downloads: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	for i := range rows {
		d := rows[i]
		s.jobs[d.ID] = &d
		if d.Status == model.StatusQueued && d.SourceKind != model.SourcePlaylistParent {
			s.queue = append(s.queue, d.ID)
		}
	}
	// Queued playlist parents re-run expansion instead of taking a slot.
	for i := range rows {
		d := s.jobs[rows[i].ID]
		if d.SourceKind == model.SourcePlaylistParent && d.Status == model.StatusQueued {
			s.transitionLocked(d, model.StatusFetching, model.PhaseFetching)
			s.spawnExpansion(d.ID, d.SourceURL)
		}
	}

	s.fillLocked()
	return nil
}

// looksLikePlaylist decides the source kind from the URL shape. Enumeration
// still validates; this only picks the initial path.
func looksLikePlaylist(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "list=") || strings.Contains(lower, "/playlist")
}

// Add submits a URL. Playlist URLs create a parent and expand asynchronously;
// everything else queues a single download.
func (s *Scheduler) Add(ctx context.Context, url, presetID string, toggles model.Toggles) (*model.Download, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	preset := model.PresetByID(presetID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("scheduler is shut down")
	}

	if looksLikePlaylist(url) {
		parent := model.NewPlaylistParent(url, preset.ID, s.cfg.DownloadDir)
		if err := s.repo.CreateDownload(ctx, parent); err != nil {
			return nil, err
		}
		s.jobs[parent.ID] = parent
		s.toggles[parent.ID] = toggles
		s.bus.Publish(event.NewQueued(parent.ID, url))
		s.spawnExpansion(parent.ID, url)
		return parent, nil
	}

	d := model.NewSingle(url, preset.ID, s.cfg.DownloadDir)
	if err := s.repo.CreateDownload(ctx, d); err != nil {
		return nil, err
	}
	s.jobs[d.ID] = d
	s.toggles[d.ID] = toggles
	s.queue = append(s.queue, d.ID)
	s.bus.Publish(event.NewQueued(d.ID, url))

	s.spawnMetadataProbe(d.ID, url)
	s.fillLocked()
	return d, nil
}

// Stop gracefully stops an active download; progress is retained.
func (s *Scheduler) Stop(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("download not found: %s", id)
	}
	handle, running := s.active[id]
	if !running || !d.Status.CanTransition(model.StatusStopped) {
		return fmt.Errorf("cannot stop download in state %q", d.Status)
	}
	// State changes when the process actually exits; the watcher maps the
	// exit to stopped via the intent flag.
	handle.Stop()
	return nil
}

// Resume re-queues a stopped download. Admission is FIFO like any other job;
// the transfer continues from the partial file when the engine supports it.
func (s *Scheduler) Resume(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("download not found: %s", id)
	}
	if d.Status != model.StatusStopped {
		return fmt.Errorf("cannot resume download in state %q", d.Status)
	}
	s.queue = append(s.queue, id)
	s.fillLocked()
	return nil
}

// StopAll gracefully stops every download that currently owns a process.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, handle := range s.active {
		handle.Stop()
	}
}

// ResumeAll re-queues all stopped downloads in creation order.
func (s *Scheduler) ResumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped := make([]*model.Download, 0)
	for _, d := range s.jobs {
		if d.Status == model.StatusStopped {
			stopped = append(stopped, d)
		}
	}
	sort.Slice(stopped, func(i, j int) bool {
		return stopped[i].CreatedAt.Before(stopped[j].CreatedAt)
	})
	for _, d := range stopped {
		s.queue = append(s.queue, d.ID)
	}
	s.fillLocked()
}

// Cancel terminates a download and removes partial files. Canceling a
// playlist parent cancels every non-terminal child.
func (s *Scheduler) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(id)
}

func (s *Scheduler) cancelLocked(id uuid.UUID) error {
	d, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("download not found: %s", id)
	}

	if d.SourceKind == model.SourcePlaylistParent {
		for _, child := range s.childrenLocked(id) {
			if !child.Status.IsTerminal() {
				_ = s.cancelLocked(child.ID)
			}
		}
	}

	if handle, running := s.active[id]; running {
		handle.Cancel()
		return nil
	}

	if !d.Status.CanTransition(model.StatusCanceled) {
		return fmt.Errorf("cannot cancel download in state %q", d.Status)
	}
	s.dequeueLocked(id)
	d.ResetProgress()
	s.transitionLocked(d, model.StatusCanceled, model.PhaseStopped)
	s.bus.Publish(event.NewCanceled(id))
	return nil
}

// Retry returns a failed download to the waiting line with its error cleared.
func (s *Scheduler) Retry(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("download not found: %s", id)
	}
	if d.Status != model.StatusFailed {
		return fmt.Errorf("cannot retry download in state %q", d.Status)
	}

	d.ClearError()
	d.ResetProgress()
	s.transitionLocked(d, model.StatusQueued, model.PhaseQueued)
	s.bus.Publish(event.NewQueued(id, d.SourceURL))

	if d.SourceKind == model.SourcePlaylistParent {
		s.transitionLocked(d, model.StatusFetching, model.PhaseFetching)
		s.spawnExpansion(id, d.SourceURL)
		return nil
	}
	s.queue = append(s.queue, id)
	s.fillLocked()
	return nil
}

// SetMaxConcurrent adjusts the concurrency limit at runtime. Raising it
// admits waiting jobs immediately; lowering it never interrupts running ones.
func (s *Scheduler) SetMaxConcurrent(n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.MaxConcurrent = n
	s.fillLocked()
}

// Get returns a copy of one download.
func (s *Scheduler) Get(id uuid.UUID) (model.Download, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.jobs[id]
	if !ok {
		return model.Download{}, false
	}
	return *d, true
}

// List returns copies of all known downloads, oldest first.
func (s *Scheduler) List() []model.Download {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Download, 0, len(s.jobs))
	for _, d := range s.jobs {
		out = append(out, *d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Children returns copies of a parent's items in insertion order.
func (s *Scheduler) Children(parentID uuid.UUID) []model.Download {
	s.mu.Lock()
	defer s.mu.Unlock()

	children := s.childrenLocked(parentID)
	out := make([]model.Download, len(children))
	for i, c := range children {
		out[i] = *c
	}
	return out
}

// AggregateFor computes a parent's displayed progress from its children.
func (s *Scheduler) AggregateFor(parentID uuid.UUID) model.PlaylistAggregate {
	return model.Aggregate(s.Children(parentID))
}

// Remove deletes a terminal download (and, for parents, its children) from
// history. Active or queued downloads must be canceled first.
func (s *Scheduler) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("download not found: %s", id)
	}
	if !d.Status.IsTerminal() && d.Status != model.StatusStopped {
		return fmt.Errorf("cannot remove download in state %q", d.Status)
	}
	for _, child := range s.childrenLocked(id) {
		if child.Status.IsActive() {
			return fmt.Errorf("cannot remove playlist with active items")
		}
	}

	if err := s.repo.DeleteDownload(ctx, id); err != nil {
		return err
	}
	for _, child := range s.childrenLocked(id) {
		s.dequeueLocked(child.ID)
		delete(s.jobs, child.ID)
		delete(s.toggles, child.ID)
	}
	s.dequeueLocked(id)
	delete(s.jobs, id)
	delete(s.toggles, id)
	return nil
}

// Logs returns the most recent persisted output lines for a download.
func (s *Scheduler) Logs(ctx context.Context, id uuid.UUID, limit int) ([]model.LogLine, error) {
	return s.repo.ListLogs(ctx, id, limit)
}

// Close stops admitting work and cancels nothing: active processes keep
// running until the caller decides otherwise.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// --- internals; every *Locked method requires s.mu held ---

func (s *Scheduler) childrenLocked(parentID uuid.UUID) []*model.Download {
	var children []*model.Download
	for _, d := range s.jobs {
		if d.ParentID != nil && *d.ParentID == parentID {
			children = append(children, d)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].CreatedAt.Equal(children[j].CreatedAt) {
			return children[i].ID.String() < children[j].ID.String()
		}
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})
	return children
}

func (s *Scheduler) dequeueLocked(id uuid.UUID) {
	for i, qid := range s.queue {
		if qid == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// transitionLocked applies a validated state change and persists it.
func (s *Scheduler) transitionLocked(d *model.Download, next model.Status, phase model.Phase) {
	if !d.Status.CanTransition(next) {
		s.log.Error("illegal state transition dropped",
			"id", d.ID, "from", d.Status, "to", next)
		return
	}
	d.SetStatus(next, phase)
	if err := s.repo.UpdateStatus(context.Background(), d.ID, next, phase); err != nil {
		s.log.Error("failed to persist status", "id", d.ID, "error", err)
	}
}

// fillLocked admits queued jobs FIFO while slots are free.
func (s *Scheduler) fillLocked() {
	if s.closed {
		return
	}
	for len(s.active) < s.cfg.MaxConcurrent && len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]

		d, ok := s.jobs[id]
		if !ok || !d.Status.CanTransition(model.StatusDownloading) {
			continue
		}
		s.launchLocked(d)
	}
}

func (s *Scheduler) launchLocked(d *model.Download) {
	toggles, ok := s.toggles[d.ID]
	if !ok && d.ParentID != nil {
		toggles = s.toggles[*d.ParentID]
	}

	spec := LaunchSpec{
		Args: ytdlp.BuildDownloadArgs(ytdlp.DownloadOptions{
			URL:           d.SourceURL,
			OutputDir:     d.OutputDir,
			Preset:        model.PresetByID(d.PresetID),
			Toggles:       toggles,
			ProxyURL:      s.cfg.ProxyURL,
			RateLimitMBps: s.cfg.RateLimitMBps,
			FfmpegPath:    s.cfg.FfmpegPath,
		}),
		OutputDir: d.OutputDir,
	}

	id := d.ID
	spec.OnLine = func(stream, text string) {
		if err := s.repo.AppendLog(context.Background(), id, stream, text); err != nil {
			s.log.Debug("failed to append log line", "id", id, "error", err)
		}
	}
	spec.OnUpdate = func(u ytdlp.Update) {
		s.onUpdate(id, u)
	}

	handle, err := s.exec.Launch(context.Background(), spec)
	if err != nil {
		ufe, ok := err.(*model.UserFacingError)
		if !ok {
			ufe = model.NewUserFacingError(model.ErrUnknown, "The download could not be started.")
		}
		d.SetError(ufe)
		if perr := s.repo.UpdateDownload(context.Background(), d); perr != nil {
			s.log.Error("failed to persist launch failure", "id", d.ID, "error", perr)
		}
		s.bus.Publish(event.NewFailed(d.ID, ufe))
		return
	}

	s.transitionLocked(d, model.StatusDownloading, model.PhaseDownloading)
	s.active[d.ID] = handle
	s.bus.Publish(event.NewStarted(d.ID, d.Title))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		outcome := <-handle.Done()
		s.finish(id, outcome)
	}()
}

// onUpdate handles one normalized progress update from a watcher. Progress
// events are rate limited per job; phase changes always go through.
func (s *Scheduler) onUpdate(id uuid.UUID, u ytdlp.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.jobs[id]
	if !ok || !d.Status.IsActive() {
		return
	}

	if !u.HasNumbers {
		// Postprocessor marker: the transfer is done, a tool phase began.
		if d.Status == model.StatusDownloading {
			s.transitionLocked(d, model.StatusPostProcessing, u.Phase)
		} else {
			d.Phase = u.Phase
			if err := s.repo.UpdateStatus(context.Background(), id, d.Status, u.Phase); err != nil {
				s.log.Debug("failed to persist phase", "id", id, "error", err)
			}
		}
		s.bus.Publish(event.NewPostProcessing(id, u.Phase))
		return
	}

	// Keep the best-known byte totals; a mid-transfer line may omit them.
	p := u.Progress
	if p.BytesTotal < 0 {
		p.BytesTotal = d.Progress.BytesTotal
	}
	if p.BytesDownloaded < 0 {
		p.BytesDownloaded = d.Progress.BytesDownloaded
	}
	d.Progress = p

	now := time.Now()
	minGap := time.Second / time.Duration(s.cfg.ProgressEventsPerSecond)
	if last, ok := s.lastProgress[id]; ok && now.Sub(last) < minGap {
		return
	}
	s.lastProgress[id] = now

	if err := s.repo.UpdateProgress(context.Background(), id, p); err != nil {
		s.log.Debug("failed to persist progress", "id", id, "error", err)
	}
	s.bus.Publish(event.NewProgress(id, p, d.Phase))
}

// finish maps a process outcome onto the state machine. Runs on the watcher
// goroutine once per job.
func (s *Scheduler) finish(id uuid.UUID, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, id)
	delete(s.lastProgress, id)

	d, ok := s.jobs[id]
	if !ok {
		s.fillLocked()
		return
	}

	switch {
	case outcome.Canceled:
		d.ResetProgress()
		s.transitionLocked(d, model.StatusCanceled, model.PhaseStopped)
		if err := s.repo.UpdateDownload(context.Background(), d); err != nil {
			s.log.Error("failed to persist cancel", "id", id, "error", err)
		}
		s.bus.Publish(event.NewCanceled(id))

	case outcome.Stopped:
		// Progress fields survive a stop so the UI does not regress.
		s.transitionLocked(d, model.StatusStopped, model.PhaseStopped)
		s.bus.Publish(event.NewStopped(id))

	case outcome.Err != nil:
		d.SetError(outcome.Err)
		if err := s.repo.UpdateDownload(context.Background(), d); err != nil {
			s.log.Error("failed to persist failure", "id", id, "error", err)
		}
		s.bus.Publish(event.NewFailed(id, outcome.Err))

	default:
		d.MarkDone(outcome.FinalPath)
		if err := s.repo.UpdateDownload(context.Background(), d); err != nil {
			s.log.Error("failed to persist completion", "id", id, "error", err)
		}
		s.bus.Publish(event.NewCompleted(id, outcome.FinalPath))
	}

	if d.ParentID != nil {
		s.completeParentLocked(*d.ParentID)
	}
	s.fillLocked()
}

// completeParentLocked finishes a playlist parent once every child is
// terminal. Failures do not fail the parent; the aggregate shows them.
func (s *Scheduler) completeParentLocked(parentID uuid.UUID) {
	parent, ok := s.jobs[parentID]
	if !ok || parent.Status != model.StatusReady {
		return
	}
	children := s.childrenLocked(parentID)
	if len(children) == 0 {
		return
	}
	for _, c := range children {
		if !c.Status.IsTerminal() {
			return
		}
	}

	agg := model.Aggregate(copyChildren(children))
	if agg.Completed == 0 && agg.Failed == agg.Total {
		ufe := model.NewUserFacingError(model.ErrUnknown, "Every entry in this playlist failed.")
		parent.SetError(ufe)
		if err := s.repo.UpdateDownload(context.Background(), parent); err != nil {
			s.log.Error("failed to persist parent failure", "id", parentID, "error", err)
		}
		s.bus.Publish(event.NewFailed(parentID, ufe))
		return
	}

	s.transitionLocked(parent, model.StatusDone, model.PhaseCompleted)
	s.bus.Publish(event.NewCompleted(parentID, ""))
}

func copyChildren(children []*model.Download) []model.Download {
	out := make([]model.Download, len(children))
	for i, c := range children {
		out[i] = *c
	}
	return out
}

// spawnMetadataProbe fills title/uploader in the background. Best effort; a
// failed probe never affects the download itself.
func (s *Scheduler) spawnMetadataProbe(id uuid.UUID, url string) {
	if s.meta == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.MetadataTimeout)
		defer cancel()
		meta, err := s.meta.FetchMetadata(ctx, url)
		if err != nil {
			s.log.Debug("metadata probe failed", "id", id, "error", err)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		d, ok := s.jobs[id]
		if !ok || d.Status.IsTerminal() {
			return
		}
		d.Title = meta.Title
		d.Uploader = meta.Uploader
		d.DurationSeconds = meta.DurationSeconds()
		if err := s.repo.UpdateDownload(context.Background(), d); err != nil {
			s.log.Debug("failed to persist metadata", "id", id, "error", err)
		}
		s.bus.Publish(event.NewMetadataUpdated(id, d.Title, d.Uploader, d.DurationSeconds))
	}()
}

// spawnExpansion enumerates a playlist and materializes children. Requires
// s.mu held by the caller; the goroutine re-locks when applying results.
func (s *Scheduler) spawnExpansion(parentID uuid.UUID, url string) {
	// A parent that already has children was expanded by an earlier run;
	// release it without enumerating again.
	if len(s.childrenLocked(parentID)) > 0 {
		if parent, ok := s.jobs[parentID]; ok {
			s.transitionLocked(parent, model.StatusReady, model.PhaseDownloading)
		}
		s.completeParentLocked(parentID)
		s.fillLocked()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 2*s.cfg.MetadataTimeout)
		defer cancel()
		entries, err := s.meta.EnumeratePlaylist(ctx, url)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.applyExpansionLocked(parentID, entries, err)
	}()
}

func (s *Scheduler) applyExpansionLocked(parentID uuid.UUID, entries []ytdlp.PlaylistEntry, enumErr error) {
	parent, ok := s.jobs[parentID]
	if !ok || parent.Status != model.StatusFetching {
		return
	}

	// Idempotency: once children exist the parent stays expanded, and a
	// failed or empty re-enumeration must not touch it.
	if len(s.childrenLocked(parentID)) > 0 {
		s.transitionLocked(parent, model.StatusReady, model.PhaseDownloading)
		s.completeParentLocked(parentID)
		s.fillLocked()
		return
	}

	if enumErr != nil {
		ufe := Classify([]Line{{Text: enumErr.Error()}})
		parent.SetError(ufe)
		if err := s.repo.UpdateDownload(context.Background(), parent); err != nil {
			s.log.Error("failed to persist expansion failure", "id", parentID, "error", err)
		}
		s.bus.Publish(event.NewFailed(parentID, ufe))
		return
	}
	if len(entries) == 0 {
		ufe := model.NewUserFacingError(model.ErrFormatUnavailable, "The playlist has no downloadable entries.")
		parent.SetError(ufe)
		if err := s.repo.UpdateDownload(context.Background(), parent); err != nil {
			s.log.Error("failed to persist expansion failure", "id", parentID, "error", err)
		}
		s.bus.Publish(event.NewFailed(parentID, ufe))
		return
	}

	itemIDs := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		child := model.NewPlaylistItem(parentID, entry.URL, entry.Title, parent.PresetID, parent.OutputDir)
		if entry.Unavailable {
			child.SetError(unavailableEntryError())
		}
		if err := s.repo.CreateDownload(context.Background(), child); err != nil {
			s.log.Error("failed to persist playlist item", "parent", parentID, "error", err)
			continue
		}
		s.jobs[child.ID] = child
		itemIDs = append(itemIDs, child.ID)

		if child.Status == model.StatusFailed {
			s.bus.Publish(event.NewFailed(child.ID, child.LastError))
			continue
		}
		s.queue = append(s.queue, child.ID)
		s.bus.Publish(event.NewQueued(child.ID, child.SourceURL))
	}

	s.transitionLocked(parent, model.StatusReady, model.PhaseDownloading)
	s.bus.Publish(event.NewPlaylistExpanded(parentID, itemIDs))

	// All entries unavailable: every child is already terminal.
	s.completeParentLocked(parentID)
	s.fillLocked()
}
