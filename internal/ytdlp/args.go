package ytdlp

import (
	"fmt"
	"strings"

	"github.com/downlinkhq/downlink/internal/model"
)

// ProgressTemplate is passed via --progress-template so progress lines carry
// a stable prefix the normalizer owns, independent of yt-dlp's default
// carriage-return rendering.
const ProgressTemplate = "download:[downlink] %(progress._percent_str)s %(progress._speed_str)s %(progress._eta_str)s %(progress._total_bytes_str)s %(progress.downloaded_bytes)s"

// OutputTemplate keeps titles readable while bounding filename length.
const OutputTemplate = "%(title).200B [%(id)s].%(ext)s"

// DownloadOptions collects everything needed to build one download invocation.
type DownloadOptions struct {
	URL       string
	OutputDir string
	Preset    model.Preset
	Toggles   model.Toggles

	ProxyURL      string
	RateLimitMBps float64
	CookiesPath   string
	FfmpegPath    string
}

// BuildDownloadArgs renders the discrete argument list for one download.
// The URL is always last and never interpolated into any other argument.
func BuildDownloadArgs(opts DownloadOptions) []string {
	args := []string{
		"--no-playlist",
		"--newline",
		"--no-warnings",
		"--progress-template", ProgressTemplate,
		"-P", opts.OutputDir,
		"-o", OutputTemplate,
		// Emit the final resolved path so completion can confirm the file.
		"--print", "after_move:filepath",
		"--no-simulate",
		"--continue",
	}

	args = append(args, opts.Preset.EngineArgs...)
	args = append(args, opts.Toggles.Args()...)

	if opts.FfmpegPath != "" {
		args = append(args, "--ffmpeg-location", opts.FfmpegPath)
	}
	if opts.CookiesPath != "" {
		args = append(args, "--cookies", opts.CookiesPath)
	}
	if strings.TrimSpace(opts.ProxyURL) != "" {
		args = append(args, "--proxy", strings.TrimSpace(opts.ProxyURL))
	}
	if opts.RateLimitMBps > 0 {
		args = append(args, "--limit-rate", fmt.Sprintf("%gM", opts.RateLimitMBps))
	}

	args = append(args, "--", opts.URL)
	return args
}

// BuildEnumerateArgs renders the fast playlist enumeration invocation: one
// JSON object per line, no per-item metadata fetch.
func BuildEnumerateArgs(url string) []string {
	return []string{
		"--flat-playlist",
		"--dump-json",
		"--no-warnings",
		"--newline",
		"--", url,
	}
}

// BuildMetadataArgs renders the single-item metadata probe.
func BuildMetadataArgs(url string) []string {
	return []string{
		"--no-playlist",
		"--dump-json",
		"--no-download",
		"--no-warnings",
		"--", url,
	}
}
