package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Client runs yt-dlp for metadata probes and playlist enumeration. Transfer
// processes are owned by the downloader, not here; these calls are short and
// bounded by their context.
type Client struct {
	ytDlpPath string
	// execCommand allows injection of command execution for testing
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewClient creates a client. If ytDlpPath is empty, uses "yt-dlp" from PATH.
func NewClient(ytDlpPath string) *Client {
	if ytDlpPath == "" {
		ytDlpPath = "yt-dlp"
	}
	return &Client{
		ytDlpPath:   ytDlpPath,
		execCommand: exec.CommandContext,
	}
}

// Metadata is the subset of a probe result the queue displays. Duration is a
// float because the engine reports fractional seconds for some sources.
type Metadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

// DurationSeconds returns the duration truncated to whole seconds.
func (m *Metadata) DurationSeconds() int64 {
	return int64(m.Duration)
}

// PlaylistEntry is one row of a flat enumeration. Unavailable entries keep
// their position but are flagged so expansion can fail them immediately.
type PlaylistEntry struct {
	ID          string
	URL         string
	Title       string
	Unavailable bool
}

// FetchMetadata probes a single URL without downloading anything.
func (c *Client) FetchMetadata(ctx context.Context, url string) (*Metadata, error) {
	args := BuildMetadataArgs(url)

	var stdout, stderr bytes.Buffer
	cmd := c.execCommand(ctx, c.ytDlpPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata probe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var meta Metadata
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &meta, nil
}

// EnumeratePlaylist runs the fast flat enumeration: one JSON object per
// line, ordered as the playlist orders them. Lines that fail to parse are
// skipped rather than aborting the whole expansion.
func (c *Client) EnumeratePlaylist(ctx context.Context, url string) ([]PlaylistEntry, error) {
	args := BuildEnumerateArgs(url)

	cmd := c.execCommand(ctx, c.ytDlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	var entries []PlaylistEntry
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		entry, ok := parseFlatEntry(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	if err := cmd.Wait(); err != nil {
		// Partial enumerations still expand; an error with zero entries
		// means the URL itself failed.
		if len(entries) == 0 {
			return nil, fmt.Errorf("yt-dlp enumeration failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
	}
	return entries, nil
}

type flatEntry struct {
	ID    string  `json:"id"`
	URL   string  `json:"url"`
	Title *string `json:"title"`
}

// parseFlatEntry maps a flat-playlist JSON line to an entry. A null title or
// a placeholder like "[Private video]" marks the entry unavailable.
func parseFlatEntry(line []byte) (PlaylistEntry, bool) {
	var raw flatEntry
	if err := json.Unmarshal(line, &raw); err != nil {
		return PlaylistEntry{}, false
	}
	if raw.URL == "" && raw.ID == "" {
		return PlaylistEntry{}, false
	}

	e := PlaylistEntry{ID: raw.ID, URL: raw.URL}
	if raw.Title == nil {
		e.Unavailable = true
	} else {
		e.Title = *raw.Title
		switch *raw.Title {
		case "[Private video]", "[Deleted video]", "[Unavailable video]":
			e.Unavailable = true
		}
	}
	return e, true
}
