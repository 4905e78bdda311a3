package model

// Status represents the persisted lifecycle state of a download
type Status string

const (
	StatusQueued         Status = "queued"
	StatusFetching       Status = "fetching"
	StatusReady          Status = "ready"
	StatusDownloading    Status = "downloading"
	StatusPostProcessing Status = "postprocessing"
	// StatusStopped means "stopped but resumable": the partial file and the
	// last known progress are retained.
	StatusStopped  Status = "stopped"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// IsTerminal returns true for states a download cannot leave without an
// explicit external action (retry is explicit, so failed counts as terminal).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// IsActive returns true while the download owns a concurrency slot.
func (s Status) IsActive() bool {
	switch s {
	case StatusFetching, StatusReady, StatusDownloading, StatusPostProcessing:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal state
// machine transition. The scheduler rejects anything else.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusFetching || next == StatusDownloading || next == StatusCanceled || next == StatusFailed
	case StatusFetching:
		return next == StatusReady || next == StatusDownloading || next == StatusFailed || next == StatusCanceled
	case StatusReady:
		// ready -> done is the playlist parent path: a parent completes
		// when its last child reaches a terminal state.
		return next == StatusDownloading || next == StatusDone || next == StatusFailed || next == StatusCanceled
	case StatusDownloading:
		return next == StatusPostProcessing || next == StatusDone || next == StatusFailed ||
			next == StatusCanceled || next == StatusStopped
	case StatusPostProcessing:
		return next == StatusDone || next == StatusFailed || next == StatusCanceled || next == StatusStopped
	case StatusStopped:
		return next == StatusDownloading || next == StatusCanceled || next == StatusFailed
	case StatusFailed:
		return next == StatusQueued
	}
	return false
}

// ParseStatus converts a stored string to a Status, defaulting to failed for
// anything unrecognized so corrupt rows never look runnable.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusQueued, StatusFetching, StatusReady, StatusDownloading,
		StatusPostProcessing, StatusStopped, StatusDone, StatusFailed, StatusCanceled:
		return Status(s)
	default:
		return StatusFailed
	}
}
