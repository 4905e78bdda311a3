package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/downlinkhq/downlink/internal/model"
)

// Kind identifies the event variant on the wire.
type Kind string

const (
	KindQueued           Kind = "download_queued"
	KindStarted          Kind = "download_started"
	KindProgress         Kind = "download_progress"
	KindPostProcessing   Kind = "download_postprocessing"
	KindStopped          Kind = "download_stopped"
	KindCanceled         Kind = "download_canceled"
	KindCompleted        Kind = "download_completed"
	KindFailed           Kind = "download_failed"
	KindPlaylistExpanded Kind = "playlist_expanded"
	KindMetadataUpdated  Kind = "metadata_updated"
)

// Event is the union of engine notifications. Every variant names the
// download it concerns so consumers can route per job.
type Event interface {
	Kind() Kind
	Download() uuid.UUID
	At() time.Time
}

type base struct {
	ID   uuid.UUID `json:"id"`
	Time time.Time `json:"time"`
}

func (b base) Download() uuid.UUID { return b.ID }
func (b base) At() time.Time       { return b.Time }

func newBase(id uuid.UUID) base {
	return base{ID: id, Time: time.Now().UTC()}
}

// Queued fires when a download enters the waiting line.
type Queued struct {
	base
	URL string `json:"url"`
}

func (Queued) Kind() Kind { return KindQueued }

// Started fires when the engine process begins transferring bytes.
type Started struct {
	base
	Title string `json:"title"`
}

func (Started) Kind() Kind { return KindStarted }

// Progress carries a normalized progress snapshot. Unknown fields hold -1.
type Progress struct {
	base
	Progress model.Progress `json:"progress"`
	Phase    model.Phase    `json:"phase"`
}

func (Progress) Kind() Kind { return KindProgress }

// PostProcessing fires when the transfer is done and a tool phase begins.
type PostProcessing struct {
	base
	Phase model.Phase `json:"phase"`
}

func (PostProcessing) Kind() Kind { return KindPostProcessing }

// Stopped fires after a graceful stop lands. Progress is retained.
type Stopped struct {
	base
}

func (Stopped) Kind() Kind { return KindStopped }

// Canceled fires after a cancel lands and partial files are removed.
type Canceled struct {
	base
}

func (Canceled) Kind() Kind { return KindCanceled }

// Completed fires exactly once when a download reaches done.
type Completed struct {
	base
	FinalPath string `json:"final_path"`
}

func (Completed) Kind() Kind { return KindCompleted }

// Failed fires exactly once when a download fails, carrying the classified
// error and its remediation actions.
type Failed struct {
	base
	Code    model.ErrorCode `json:"error_code"`
	Message string          `json:"user_message"`
	Actions []model.Action  `json:"actions"`
}

func (Failed) Kind() Kind { return KindFailed }

// PlaylistExpanded fires once per parent after enumeration, listing the
// materialized children.
type PlaylistExpanded struct {
	base
	ItemIDs []uuid.UUID `json:"item_ids"`
	Count   int         `json:"count"`
}

func (PlaylistExpanded) Kind() Kind { return KindPlaylistExpanded }

// MetadataUpdated fires when title/uploader/duration become known.
type MetadataUpdated struct {
	base
	Title           string `json:"title"`
	Uploader        string `json:"uploader"`
	DurationSeconds int64  `json:"duration_seconds"`
}

func (MetadataUpdated) Kind() Kind { return KindMetadataUpdated }

// NewQueued and friends stamp the event with the current time.
func NewQueued(id uuid.UUID, url string) Queued { return Queued{base: newBase(id), URL: url} }

func NewStarted(id uuid.UUID, title string) Started { return Started{base: newBase(id), Title: title} }

func NewProgress(id uuid.UUID, p model.Progress, phase model.Phase) Progress {
	return Progress{base: newBase(id), Progress: p, Phase: phase}
}

func NewPostProcessing(id uuid.UUID, phase model.Phase) PostProcessing {
	return PostProcessing{base: newBase(id), Phase: phase}
}

func NewStopped(id uuid.UUID) Stopped   { return Stopped{base: newBase(id)} }
func NewCanceled(id uuid.UUID) Canceled { return Canceled{base: newBase(id)} }

func NewCompleted(id uuid.UUID, finalPath string) Completed {
	return Completed{base: newBase(id), FinalPath: finalPath}
}

func NewFailed(id uuid.UUID, ufe *model.UserFacingError) Failed {
	f := Failed{base: newBase(id)}
	if ufe != nil {
		f.Code = ufe.Code
		f.Message = ufe.Message
		f.Actions = ufe.Actions
	} else {
		f.Code = model.ErrUnknown
	}
	return f
}

func NewPlaylistExpanded(parentID uuid.UUID, itemIDs []uuid.UUID) PlaylistExpanded {
	return PlaylistExpanded{base: newBase(parentID), ItemIDs: itemIDs, Count: len(itemIDs)}
}

func NewMetadataUpdated(id uuid.UUID, title, uploader string, durationSeconds int64) MetadataUpdated {
	return MetadataUpdated{base: newBase(id), Title: title, Uploader: uploader, DurationSeconds: durationSeconds}
}

// Terminal reports whether the event ends its download's lifecycle.
func Terminal(e Event) bool {
	switch e.Kind() {
	case KindCompleted, KindFailed, KindCanceled:
		return true
	}
	return false
}
