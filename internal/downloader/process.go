package downloader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/downlinkhq/downlink/internal/model"
	"github.com/downlinkhq/downlink/internal/ytdlp"
)

// Outcome is the final result of one transfer process.
type Outcome struct {
	Stopped   bool
	Canceled  bool
	FinalPath string
	// Err is set only when the process genuinely failed. Stop and cancel
	// produce non-zero exits that are not failures.
	Err *model.UserFacingError
}

// Handle controls one live process. It is owned exclusively by the
// scheduler's watcher goroutine for the job.
type Handle interface {
	// Stop requests a graceful stop: interrupt, grace window, then kill.
	Stop()
	// Cancel is Stop plus partial-file removal, mapping to canceled.
	Cancel()
	// Done yields exactly one Outcome when the process has fully exited.
	Done() <-chan Outcome
}

// LaunchSpec describes one transfer process to start.
type LaunchSpec struct {
	Args      []string
	OutputDir string
	// OnLine receives every captured output line for diagnostics.
	OnLine func(stream, text string)
	// OnUpdate receives normalized progress parsed from the stream.
	OnUpdate func(u ytdlp.Update)
}

// Executor launches transfer processes. The scheduler only sees this
// interface so tests can script outcomes without real processes.
type Executor interface {
	Launch(ctx context.Context, spec LaunchSpec) (Handle, error)
}

// ProcessExecutor runs yt-dlp as a child process.
type ProcessExecutor struct {
	ytDlpPath string
	grace     time.Duration
	ringSize  int
	log       *slog.Logger
	// ResolvePath, when set, is consulted at each launch so a binary
	// swapped on disk (self-update) is picked up without a restart.
	ResolvePath func() string
	// execCommand allows injection of command execution for testing
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewProcessExecutor creates an executor. If ytDlpPath is empty, uses
// "yt-dlp" from PATH.
func NewProcessExecutor(ytDlpPath string, grace time.Duration, ringSize int, log *slog.Logger) *ProcessExecutor {
	if ytDlpPath == "" {
		ytDlpPath = "yt-dlp"
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	if ringSize <= 0 {
		ringSize = 2000
	}
	return &ProcessExecutor{
		ytDlpPath:   ytDlpPath,
		grace:       grace,
		ringSize:    ringSize,
		log:         log,
		execCommand: exec.CommandContext,
	}
}

type processHandle struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	stopReq   bool
	cancelReq bool
	signaled  bool

	grace     time.Duration
	outputDir string
	log       *slog.Logger

	done chan Outcome
}

func (h *processHandle) Done() <-chan Outcome { return h.done }

func (h *processHandle) Stop()   { h.terminate(false) }
func (h *processHandle) Cancel() { h.terminate(true) }

func (h *processHandle) terminate(cancel bool) {
	h.mu.Lock()
	if cancel {
		h.cancelReq = true
	} else {
		h.stopReq = true
	}
	alreadySignaled := h.signaled
	h.signaled = true
	proc := h.cmd.Process
	h.mu.Unlock()

	if alreadySignaled || proc == nil {
		return
	}

	if err := proc.Signal(os.Interrupt); err != nil {
		_ = proc.Kill()
		return
	}

	// Hard kill if the process outlives the grace window. Harmless if it
	// already exited.
	go func() {
		timer := time.NewTimer(h.grace)
		defer timer.Stop()
		<-timer.C
		_ = proc.Kill()
	}()
}

// Launch starts the process and its stream watchers. The returned handle's
// Done channel fires once after exit interpretation.
func (e *ProcessExecutor) Launch(ctx context.Context, spec LaunchSpec) (Handle, error) {
	path := e.ytDlpPath
	if e.ResolvePath != nil {
		if p := e.ResolvePath(); p != "" {
			path = p
		}
	}
	cmd := e.execCommand(ctx, path, spec.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if strings.Contains(err.Error(), "executable file not found") || os.IsNotExist(err) {
			return nil, model.NewUserFacingError(model.ErrToolMissing, "yt-dlp is not installed or could not be started.")
		}
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	h := &processHandle{
		cmd:       cmd,
		grace:     e.grace,
		outputDir: spec.OutputDir,
		log:       e.log,
		done:      make(chan Outcome, 1),
	}

	ring := NewRing(e.ringSize)
	state := &streamState{}

	var wg sync.WaitGroup
	wg.Add(2)
	go h.consume(&wg, model.StreamStdout, stdout, ring, state, spec)
	go h.consume(&wg, model.StreamStderr, stderr, ring, state, spec)

	go func() {
		wg.Wait()
		waitErr := cmd.Wait()
		h.done <- h.interpret(waitErr, ring, state)
	}()

	return h, nil
}

// streamState accumulates path facts observed in the output.
type streamState struct {
	mu           sync.Mutex
	destinations []string
	finalPath    string
}

func (s *streamState) observe(stream, line string) {
	trimmed := strings.TrimSpace(line)

	if dest, ok := strings.CutPrefix(trimmed, "[download] Destination: "); ok {
		s.mu.Lock()
		s.destinations = append(s.destinations, dest)
		s.mu.Unlock()
		return
	}
	if dest, ok := strings.CutPrefix(trimmed, "[Merger] Merging formats into "); ok {
		s.mu.Lock()
		s.destinations = append(s.destinations, strings.Trim(dest, `"`))
		s.mu.Unlock()
		return
	}
	// The after_move print is a bare absolute path on stdout.
	if stream == model.StreamStdout && filepath.IsAbs(trimmed) && !strings.HasPrefix(trimmed, "[") {
		s.mu.Lock()
		s.finalPath = trimmed
		s.mu.Unlock()
	}
}

func (h *processHandle) consume(wg *sync.WaitGroup, stream string, r io.Reader, ring *Ring, state *streamState, spec LaunchSpec) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		ring.Append(stream, line)
		state.observe(stream, line)
		if spec.OnLine != nil {
			spec.OnLine(stream, line)
		}
		if spec.OnUpdate != nil {
			if u, ok := ytdlp.ParseLine(line); ok {
				spec.OnUpdate(u)
			}
		}
	}
}

// interpret maps the exit into an Outcome per the stop/cancel intent rules.
func (h *processHandle) interpret(waitErr error, ring *Ring, state *streamState) Outcome {
	h.mu.Lock()
	stopReq, cancelReq := h.stopReq, h.cancelReq
	h.mu.Unlock()

	state.mu.Lock()
	finalPath := state.finalPath
	destinations := append([]string(nil), state.destinations...)
	state.mu.Unlock()

	if cancelReq {
		removePartials(destinations, h.log)
		return Outcome{Canceled: true}
	}
	if stopReq {
		return Outcome{Stopped: true}
	}

	if waitErr == nil {
		if path := confirmFile(finalPath, destinations); path != "" {
			return Outcome{FinalPath: path}
		}
		return Outcome{Err: model.NewUserFacingError(model.ErrUnknown, "The download finished but no output file was produced.")}
	}

	return Outcome{Err: Classify(ring.Tail(80))}
}

// confirmFile returns the first candidate that exists and is non-empty.
func confirmFile(finalPath string, destinations []string) string {
	candidates := []string{}
	if finalPath != "" {
		candidates = append(candidates, finalPath)
	}
	for i := len(destinations) - 1; i >= 0; i-- {
		candidates = append(candidates, destinations[i])
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() && info.Size() > 0 {
			return c
		}
	}
	return ""
}

// removePartials deletes in-flight artifacts for the canceled transfer. Only
// paths the process itself announced are touched.
func removePartials(destinations []string, log *slog.Logger) {
	for _, dest := range destinations {
		for _, path := range []string{dest, dest + ".part", dest + ".ytdl"} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				if log != nil {
					log.Warn("failed to remove partial file", "path", path, "error", err)
				}
			}
		}
	}
}
