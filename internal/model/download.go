package model

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind classifies a download node in the queue
type SourceKind string

const (
	// SourceSingle is a standalone URL (video, short, etc.)
	SourceSingle SourceKind = "single"
	// SourcePlaylistParent is the logical parent of expanded playlist items.
	// A parent never owns a process or a concurrency slot.
	SourcePlaylistParent SourceKind = "playlist_parent"
	// SourcePlaylistItem is one entry expanded out of a playlist
	SourcePlaylistItem SourceKind = "playlist_item"
)

// ParseSourceKind converts a stored string to a SourceKind, defaulting to single.
func ParseSourceKind(s string) SourceKind {
	switch SourceKind(s) {
	case SourceSingle, SourcePlaylistParent, SourcePlaylistItem:
		return SourceKind(s)
	default:
		return SourceSingle
	}
}

// Download is the persisted unit of work: one row in the queue or history.
// The process handle for an active download lives in the scheduler, never here.
type Download struct {
	ID uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time

	SourceURL  string
	SourceKind SourceKind
	// ParentID is set only for playlist items and references the parent row.
	ParentID *uuid.UUID

	// Cached metadata for queue display
	Title           string
	Uploader        string
	DurationSeconds int64

	Status Status
	Phase  Phase

	Progress Progress

	PresetID  string
	OutputDir string
	// FinalPath is set if and only if Status is done.
	FinalPath string

	LastError *UserFacingError
}

// NewSingle creates a queued standalone download.
func NewSingle(url, presetID, outputDir string) *Download {
	now := time.Now().UTC()
	return &Download{
		ID:         uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
		SourceURL:  url,
		SourceKind: SourceSingle,
		Status:     StatusQueued,
		Phase:      PhaseQueued,
		Progress:   EmptyProgress(),
		PresetID:   presetID,
		OutputDir:  outputDir,
	}
}

// NewPlaylistParent creates the parent row for a playlist URL. It starts in
// fetching because expansion runs an enumeration pass before anything queues.
func NewPlaylistParent(url, presetID, outputDir string) *Download {
	now := time.Now().UTC()
	return &Download{
		ID:         uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
		SourceURL:  url,
		SourceKind: SourcePlaylistParent,
		Status:     StatusFetching,
		Phase:      PhaseFetching,
		Progress:   EmptyProgress(),
		PresetID:   presetID,
		OutputDir:  outputDir,
	}
}

// NewPlaylistItem creates a queued child inheriting the parent's preset and
// output directory.
func NewPlaylistItem(parentID uuid.UUID, url, titleHint, presetID, outputDir string) *Download {
	now := time.Now().UTC()
	pid := parentID
	return &Download{
		ID:         uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
		SourceURL:  url,
		SourceKind: SourcePlaylistItem,
		ParentID:   &pid,
		Title:      titleHint,
		Status:     StatusQueued,
		Phase:      PhaseQueued,
		Progress:   EmptyProgress(),
		PresetID:   presetID,
		OutputDir:  outputDir,
	}
}

// SetStatus moves the record to a new status and phase, stamping UpdatedAt.
// It does not validate the transition; that is the scheduler's job.
func (d *Download) SetStatus(status Status, phase Phase) {
	d.Status = status
	d.Phase = phase
	d.UpdatedAt = time.Now().UTC()
}

// SetError marks the download failed with a classified error.
func (d *Download) SetError(err *UserFacingError) {
	d.LastError = err
	d.Status = StatusFailed
	d.Phase = PhaseFailed
	d.UpdatedAt = time.Now().UTC()
}

// ClearError drops the prior classified error; used when a retry re-queues.
func (d *Download) ClearError() {
	d.LastError = nil
	d.UpdatedAt = time.Now().UTC()
}

// MarkDone finalizes a successful download.
func (d *Download) MarkDone(finalPath string) {
	d.FinalPath = finalPath
	d.Status = StatusDone
	d.Phase = PhaseCompleted
	d.Progress.Percent = 100
	d.UpdatedAt = time.Now().UTC()
}

// ResetProgress clears progress fields; used on cancel so the UI does not
// show stale percentages for a dead job.
func (d *Download) ResetProgress() {
	d.Progress = EmptyProgress()
	d.UpdatedAt = time.Now().UTC()
}

// PlaylistAggregate summarizes a parent's children. Percent is a pure
// function of child statuses and is recomputed on read, never stored.
type PlaylistAggregate struct {
	Total     int
	Completed int
	Failed    int
	Active    int
	Percent   float64
}

// Aggregate computes the displayed aggregate for a playlist parent from its
// children. With zero children percent is zero.
func Aggregate(children []Download) PlaylistAggregate {
	agg := PlaylistAggregate{Total: len(children)}
	for i := range children {
		switch children[i].Status {
		case StatusDone:
			agg.Completed++
		case StatusFailed:
			agg.Failed++
		default:
			if children[i].Status.IsActive() {
				agg.Active++
			}
		}
	}
	if agg.Total > 0 {
		agg.Percent = 100 * float64(agg.Completed) / float64(agg.Total)
	}
	return agg
}

// Remaining counts children that are neither completed nor failed. Failed
// children stay in history but are excluded from the remaining denominator.
func (a PlaylistAggregate) Remaining() int {
	return a.Total - a.Completed - a.Failed
}
