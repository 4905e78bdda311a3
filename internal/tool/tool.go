package tool

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Tool names used across the engine.
const (
	YtDlp  = "yt-dlp"
	Ffmpeg = "ffmpeg"
)

// commonDirs are checked before PATH so GUI launches without a login shell
// environment still find user-installed binaries.
var commonDirs = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/usr/bin",
}

// execCommand allows tests to stub process execution
var execCommand = exec.CommandContext

// Resolver locates the external binaries the engine shells out to.
// Configured paths win over discovery.
type Resolver struct {
	YtDlpPath  string
	FfmpegPath string
}

// Resolve returns the absolute path for a tool name, or "" if not found.
func (r *Resolver) Resolve(name string) string {
	switch name {
	case YtDlp:
		if r.YtDlpPath != "" {
			return r.YtDlpPath
		}
	case Ffmpeg:
		if r.FfmpegPath != "" {
			return r.FfmpegPath
		}
	}
	return discover(name)
}

func discover(name string) string {
	for _, dir := range commonDirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}

// Status describes one resolved tool.
type Status struct {
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// Health is the doctor-style summary of all required tools.
type Health struct {
	OK    bool     `json:"ok"`
	Tools []Status `json:"tools"`
}

// Check probes every required tool and its version. A missing ffmpeg is
// reported but does not fail the whole check; merging just degrades.
func (r *Resolver) Check(ctx context.Context) Health {
	h := Health{OK: true}

	for _, name := range []string{YtDlp, Ffmpeg} {
		s := Status{Name: name}
		if path := r.Resolve(name); path != "" {
			s.Found = true
			s.Path = path
			s.Version = probeVersion(ctx, name, path)
		}
		if !s.Found && name == YtDlp {
			h.OK = false
		}
		h.Tools = append(h.Tools, s)
	}
	return h
}

func probeVersion(ctx context.Context, name, path string) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	args := []string{"--version"}
	if name == Ffmpeg {
		args = []string{"-version"}
	}

	var out bytes.Buffer
	cmd := execCommand(ctx, path, args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}

	line := strings.TrimSpace(out.String())
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	// ffmpeg prints "ffmpeg version N.n ..."; keep just the version token.
	if name == Ffmpeg {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[0] == "ffmpeg" && fields[1] == "version" {
			return fields[2]
		}
	}
	return line
}

// Update runs yt-dlp's self-updater. Package-manager installs will refuse;
// the combined output is returned either way so the UI can show it.
func (r *Resolver) Update(ctx context.Context) (string, error) {
	path := r.Resolve(YtDlp)
	if path == "" {
		return "", os.ErrNotExist
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var out bytes.Buffer
	cmd := execCommand(ctx, path, "-U")
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return strings.TrimSpace(out.String()), err
}
