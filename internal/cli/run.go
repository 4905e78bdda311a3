package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/event"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the download engine without the UI",
	Long: `Run the download engine headless: queued downloads are admitted up to the
concurrency limit and progress is written to the log. Stops cleanly on
SIGINT or SIGTERM; active downloads are stopped with their progress kept
and resume on request.`,
	RunE: runHeadless,
}

func runHeadless(cmd *cobra.Command, args []string) error {
	sched, database, bus, err := buildScheduler()
	if err != nil {
		return err
	}
	defer database.Close()
	defer bus.Close()
	defer func() {
		// Stop in-flight processes so Close's watcher wait can finish;
		// stopped downloads keep their progress for a later resume.
		sched.StopAll()
		sched.Close()
	}()

	events, cancel := bus.Subscribe()
	defer cancel()

	logger.Info("engine running", "max_concurrent", cfg.Engine.MaxConcurrent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			fmt.Println("Shutting down; active downloads are stopped with their progress kept.")
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			logEvent(ev)
		}
	}
}

func logEvent(ev event.Event) {
	switch e := ev.(type) {
	case event.Started:
		logger.Info("download started", "id", e.Download(), "title", e.Title)
	case event.Completed:
		logger.Info("download completed", "id", e.Download(), "path", e.FinalPath)
	case event.Failed:
		logger.Warn("download failed", "id", e.Download(), "code", e.Code, "message", e.Message)
	case event.Stopped:
		logger.Info("download stopped", "id", e.Download())
	case event.Canceled:
		logger.Info("download canceled", "id", e.Download())
	case event.PlaylistExpanded:
		logger.Info("playlist expanded", "id", e.Download(), "items", len(e.ItemIDs))
	case event.Progress:
		logger.Debug("progress", "id", e.Download(), "percent", e.Progress.Percent, "speed_bps", e.Progress.SpeedBps)
	}
}
