package model

// Phase labels shown in the UI. The normalizer maps raw engine output onto
// this closed set; anything else stays on the previous phase.
type Phase string

const (
	PhaseQueued       Phase = "Queued"
	PhaseFetching     Phase = "Fetching metadata"
	PhaseDownloading  Phase = "Downloading"
	PhaseMerging      Phase = "Merging streams"
	PhaseEmbedSubs    Phase = "Embedding subtitles"
	PhaseEmbedMeta    Phase = "Embedding metadata"
	PhaseEmbedThumb   Phase = "Embedding thumbnail"
	PhaseSponsorBlock Phase = "Applying SponsorBlock"
	PhaseExtractAudio Phase = "Extracting audio"
	PhaseFinishing    Phase = "Finishing"
	PhaseStopped      Phase = "Stopped"
	PhaseFailed       Phase = "Failed"
	PhaseCompleted    Phase = "Completed"
)

// Progress is the normalized progress snapshot for a download. All fields are
// best-effort; -1 marks an unknown numeric value so zero stays meaningful.
type Progress struct {
	Percent         float64 // 0..100, or -1 when unknown
	BytesDownloaded int64   // -1 when unknown
	BytesTotal      int64   // -1 when unknown
	SpeedBps        int64   // -1 when unknown, transient
	ETASeconds      int64   // -1 when unknown, transient
}

// EmptyProgress returns a Progress with every field unknown.
func EmptyProgress() Progress {
	return Progress{
		Percent:         -1,
		BytesDownloaded: -1,
		BytesTotal:      -1,
		SpeedBps:        -1,
		ETASeconds:      -1,
	}
}

// KnownPercent returns the percent clamped to [0,100] and whether it is known.
func (p Progress) KnownPercent() (float64, bool) {
	if p.Percent < 0 {
		return 0, false
	}
	if p.Percent > 100 {
		return 100, true
	}
	return p.Percent, true
}

// Clamp normalizes out-of-range values in place: percent is clamped to
// [0,100] and negative byte/speed/eta values collapse to unknown.
func (p *Progress) Clamp() {
	if p.Percent > 100 {
		p.Percent = 100
	}
	if p.Percent < 0 {
		p.Percent = -1
	}
	if p.BytesDownloaded < 0 {
		p.BytesDownloaded = -1
	}
	if p.BytesTotal < 0 {
		p.BytesTotal = -1
	}
	if p.SpeedBps < 0 {
		p.SpeedBps = -1
	}
	if p.ETASeconds < 0 {
		p.ETASeconds = -1
	}
}
