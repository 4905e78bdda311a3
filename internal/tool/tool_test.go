package tool

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestResolver_ConfiguredPathWins(t *testing.T) {
	r := &Resolver{YtDlpPath: "/custom/yt-dlp", FfmpegPath: "/custom/ffmpeg"}

	if got := r.Resolve(YtDlp); got != "/custom/yt-dlp" {
		t.Errorf("Resolve(yt-dlp) = %q, want /custom/yt-dlp", got)
	}
	if got := r.Resolve(Ffmpeg); got != "/custom/ffmpeg" {
		t.Errorf("Resolve(ffmpeg) = %q, want /custom/ffmpeg", got)
	}
}

// stubCommonDirs keeps host-installed binaries out of discovery tests.
func stubCommonDirs(t *testing.T) {
	t.Helper()
	orig := commonDirs
	commonDirs = nil
	t.Cleanup(func() { commonDirs = orig })
}

func TestResolver_DiscoversFromPath(t *testing.T) {
	stubCommonDirs(t)
	dir := t.TempDir()
	fake := filepath.Join(dir, "yt-dlp")
	script := "#!/bin/sh\necho 2026.01.01\n"
	if err := os.WriteFile(fake, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("PATH", dir)

	r := &Resolver{}
	if got := r.Resolve(YtDlp); got != fake {
		t.Errorf("Resolve(yt-dlp) = %q, want %q", got, fake)
	}
}

func TestResolver_MissingToolEmpty(t *testing.T) {
	stubCommonDirs(t)
	t.Setenv("PATH", t.TempDir())

	r := &Resolver{}
	if got := r.Resolve("no-such-binary"); got != "" {
		t.Errorf("Resolve(no-such-binary) = %q, want empty", got)
	}
}

func TestCheck_MissingYtDlpFailsHealth(t *testing.T) {
	stubCommonDirs(t)
	t.Setenv("PATH", t.TempDir())

	r := &Resolver{}
	h := r.Check(context.Background())

	if h.OK {
		t.Error("Health.OK = true, want false without yt-dlp")
	}
	if len(h.Tools) != 2 {
		t.Fatalf("len(Tools) = %d, want 2", len(h.Tools))
	}
	if h.Tools[0].Name != YtDlp || h.Tools[0].Found {
		t.Errorf("Tools[0] = %+v, want missing yt-dlp", h.Tools[0])
	}
}

func TestCheck_ProbesVersion(t *testing.T) {
	stubCommonDirs(t)
	dir := t.TempDir()
	fake := filepath.Join(dir, "yt-dlp")
	script := "#!/bin/sh\necho 2026.08.12\n"
	if err := os.WriteFile(fake, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("PATH", dir)

	r := &Resolver{}
	h := r.Check(context.Background())

	if !h.OK {
		t.Fatal("Health.OK = false, want true with yt-dlp present")
	}
	if h.Tools[0].Version != "2026.08.12" {
		t.Errorf("Version = %q, want 2026.08.12", h.Tools[0].Version)
	}
}

func TestProbeVersion_FfmpegFirstLine(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho 'ffmpeg version 7.1 Copyright (c) 2000-2026'\necho 'built with gcc'\n"
	if err := os.WriteFile(fake, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got := probeVersion(context.Background(), Ffmpeg, fake)
	if got != "7.1" {
		t.Errorf("probeVersion(ffmpeg) = %q, want 7.1", got)
	}
}

func TestUpdate_MissingTool(t *testing.T) {
	stubCommonDirs(t)
	t.Setenv("PATH", t.TempDir())

	r := &Resolver{}
	if _, err := r.Update(context.Background()); err == nil {
		t.Error("Update() error = nil, want error without yt-dlp")
	}
}

func TestExecCommandStub(t *testing.T) {
	// Swapping the exec seam must redirect every probe.
	orig := execCommand
	defer func() { execCommand = orig }()

	called := false
	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		called = true
		return exec.CommandContext(ctx, "echo", "stub-version")
	}

	got := probeVersion(context.Background(), YtDlp, "/ignored")
	if !called {
		t.Fatal("stub not invoked")
	}
	if got != "stub-version" {
		t.Errorf("probeVersion() = %q, want stub-version", got)
	}
}
