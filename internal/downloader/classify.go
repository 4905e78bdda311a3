package downloader

import (
	"strings"

	"github.com/downlinkhq/downlink/internal/model"
)

// classifyRule maps stderr substrings to one error code. Rules are checked
// in order; the first hit wins, so more specific causes come first.
type classifyRule struct {
	needles []string
	code    model.ErrorCode
	message string
}

var classifyRules = []classifyRule{
	{
		needles: []string{
			"sign in to confirm", "confirm your age", "age-restricted", "age restricted",
			"login required", "log in", "private video", "members-only", "members only",
			"use --cookies",
		},
		code:    model.ErrAuthRequired,
		message: "This video requires sign-in. Import cookies from your browser and retry.",
	},
	{
		needles: []string{
			"available in your country", "geo restriction", "geo-restricted",
			"blocked in your region", "unavailable in your region", "geo-blocked",
		},
		code:    model.ErrGeoRestricted,
		message: "This video is not available in your region. A proxy may help.",
	},
	{
		needles: []string{
			"unsupported url", "unable to extract", "no video formats found",
			"is not a valid url", "extractor",
		},
		code:    model.ErrExtractorOutdated,
		message: "The site layout may have changed. Updating yt-dlp usually fixes this.",
	},
	{
		needles: []string{"requested format is not available", "format is not available"},
		code:    model.ErrFormatUnavailable,
		message: "The selected quality is not available for this video. Try the recommended preset.",
	},
	{
		needles: []string{
			"no space left on device", "disk full", "disk quota exceeded",
			"permission denied", "read-only file system",
		},
		code:    model.ErrDisk,
		message: "Could not write to the download folder. Check free space and permissions.",
	},
	{
		needles: []string{
			"ffmpeg not found", "ffprobe not found", "executable file not found",
			"no such file or directory: 'yt-dlp'",
		},
		code:    model.ErrToolMissing,
		message: "A required tool is missing. Check that yt-dlp and ffmpeg are installed.",
	},
	{
		needles: []string{
			"unable to download", "connection reset", "connection refused", "timed out",
			"timeout", "temporary failure in name resolution", "getaddrinfo failed",
			"network is unreachable", "http error 5", "incomplete read",
		},
		code:    model.ErrNetwork,
		message: "A network problem interrupted the download. Retrying often helps.",
	},
}

// Classify inspects recent output lines and maps the failure onto the closed
// error taxonomy. It never returns nil; an unmatched failure is "unknown"
// with the log-inspection action attached.
func Classify(lines []Line) *model.UserFacingError {
	var sb strings.Builder
	for i := range lines {
		sb.WriteString(strings.ToLower(lines[i].Text))
		sb.WriteByte('\n')
	}
	haystack := sb.String()

	for _, rule := range classifyRules {
		for _, needle := range rule.needles {
			if strings.Contains(haystack, needle) {
				return model.NewUserFacingError(rule.code, rule.message)
			}
		}
	}
	return model.NewUserFacingError(model.ErrUnknown, "The download failed for an unknown reason. The logs may have details.")
}

// unavailableEntryError marks playlist entries that enumeration reported as
// private or deleted.
func unavailableEntryError() *model.UserFacingError {
	return model.NewUserFacingError(model.ErrFormatUnavailable, "This playlist entry is private or has been removed.")
}
