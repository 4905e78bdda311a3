package ytdlp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/downlinkhq/downlink/internal/model"
)

// Update is the normalized result of parsing one engine output line.
type Update struct {
	Progress model.Progress
	Phase    model.Phase
	// HasNumbers is true when the line carried numeric progress, not just
	// a phase marker.
	HasNumbers bool
}

// templatePrefix marks lines produced by ProgressTemplate.
const templatePrefix = "[downlink]"

// fallbackRe matches yt-dlp's stock progress line when the template is not
// in effect, e.g. "[download]  42.5% of 10.57MiB at 1.25MiB/s ETA 00:35".
var fallbackRe = regexp.MustCompile(`\[download\]\s+([\d.]+)%\s+of\s+~?\s*([\d.]+\w+)(?:\s+at\s+([\d.]+\w+/s|Unknown speed))?(?:\s+ETA\s+([\d:]+|Unknown))?`)

// phaseMarkers maps postprocessor tags appearing at line start to phases.
// Order matters only for readability; tags are mutually exclusive per line.
var phaseMarkers = []struct {
	tag   string
	phase model.Phase
}{
	{"[Merger]", model.PhaseMerging},
	{"[EmbedSubtitle]", model.PhaseEmbedSubs},
	{"[SponsorBlock]", model.PhaseSponsorBlock},
	{"[ModifyChapters]", model.PhaseSponsorBlock},
	{"[ExtractAudio]", model.PhaseExtractAudio},
	{"[Metadata]", model.PhaseEmbedMeta},
	{"[EmbedThumbnail]", model.PhaseEmbedThumb},
	{"[ThumbnailsConvertor]", model.PhaseEmbedThumb},
	{"[MoveFiles]", model.PhaseFinishing},
	{"[FixupM4a]", model.PhaseFinishing},
	{"[FixupM3u8]", model.PhaseFinishing},
}

// ParseLine turns one raw output line into a normalized update. The second
// return is false for lines that carry neither progress nor a phase change;
// such lines still belong in the diagnostic buffer, just not in events.
func ParseLine(line string) (Update, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Update{}, false
	}

	if rest, ok := strings.CutPrefix(trimmed, templatePrefix); ok {
		return parseTemplateLine(rest), true
	}

	for _, m := range phaseMarkers {
		if strings.HasPrefix(trimmed, m.tag) {
			return Update{Progress: model.EmptyProgress(), Phase: m.phase}, true
		}
	}

	if match := fallbackRe.FindStringSubmatch(trimmed); match != nil {
		return parseFallbackLine(match), true
	}

	return Update{}, false
}

// parseTemplateLine handles "[downlink] 42.5% 1.25MiB/s 00:35 10.57MiB 4433920"
// where the trailing bare integer is the engine's downloaded byte count.
// Any field may be "NA" or "Unknown" early in a transfer.
func parseTemplateLine(rest string) Update {
	u := Update{Progress: model.EmptyProgress(), Phase: model.PhaseDownloading, HasNumbers: true}

	fields := strings.Fields(rest)
	for _, f := range fields {
		switch {
		case strings.HasSuffix(f, "%"):
			if pct, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64); err == nil {
				u.Progress.Percent = pct
			}
		case strings.HasSuffix(f, "/s"):
			u.Progress.SpeedBps = parseSpeed(f)
		case strings.Contains(f, ":"):
			u.Progress.ETASeconds = parseETA(f)
		case f == "NA" || f == "Unknown":
			continue
		default:
			if n, err := strconv.ParseInt(f, 10, 64); err == nil {
				u.Progress.BytesDownloaded = n
			} else if b := parseBytes(f); b >= 0 {
				u.Progress.BytesTotal = b
			}
		}
	}

	u.Progress.Clamp()
	return u
}

func parseFallbackLine(match []string) Update {
	u := Update{Progress: model.EmptyProgress(), Phase: model.PhaseDownloading, HasNumbers: true}

	if pct, err := strconv.ParseFloat(match[1], 64); err == nil {
		u.Progress.Percent = pct
	}
	u.Progress.BytesTotal = parseBytes(match[2])
	if match[3] != "" && match[3] != "Unknown speed" {
		u.Progress.SpeedBps = parseSpeed(match[3])
	}
	if match[4] != "" && match[4] != "Unknown" {
		u.Progress.ETASeconds = parseETA(match[4])
	}

	// The stock line never reports downloaded bytes; they stay unknown
	// rather than being estimated from the percent.
	u.Progress.Clamp()
	return u
}

// parseBytes converts "10.57MiB" style sizes to bytes, -1 when unparseable.
func parseBytes(s string) int64 {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	if i == 0 {
		return -1
	}
	value, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return -1
	}

	var mult float64
	switch strings.TrimSuffix(s[i:], "iB") {
	case "K":
		mult = 1 << 10
	case "M":
		mult = 1 << 20
	case "G":
		mult = 1 << 30
	case "T":
		mult = 1 << 40
	default:
		switch s[i:] {
		case "", "B":
			mult = 1
		case "KB":
			mult = 1e3
		case "MB":
			mult = 1e6
		case "GB":
			mult = 1e9
		default:
			return -1
		}
	}
	return int64(value * mult)
}

// parseSpeed converts "1.25MiB/s" to bytes per second, -1 when unparseable.
func parseSpeed(s string) int64 {
	return parseBytes(strings.TrimSuffix(strings.TrimSpace(s), "/s"))
}

// parseETA converts "MM:SS" or "HH:MM:SS" to seconds, -1 when unparseable.
func parseETA(s string) int64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return -1
	}
	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return -1
		}
		total = total*60 + n
	}
	return total
}
