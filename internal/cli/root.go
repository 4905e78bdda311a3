// Package cli provides the command-line interface for downlink.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/config"
	"github.com/downlinkhq/downlink/internal/db"
	"github.com/downlinkhq/downlink/internal/downloader"
	"github.com/downlinkhq/downlink/internal/event"
	"github.com/downlinkhq/downlink/internal/logging"
	"github.com/downlinkhq/downlink/internal/model"
	"github.com/downlinkhq/downlink/internal/tool"
	"github.com/downlinkhq/downlink/internal/tui"
	"github.com/downlinkhq/downlink/internal/ytdlp"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string

	// Shared state built in PersistentPreRunE
	cfg        *config.Config
	logger     *slog.Logger
	logCleanup func() error
)

// rootCmd represents the base command. Called without a subcommand it opens
// the interactive queue.
var rootCmd = &cobra.Command{
	Use:   "downlink",
	Short: "Queue-based video downloader built on yt-dlp",
	Long: `Downlink manages a download queue on top of yt-dlp: submit URLs or
playlists, watch normalized progress, and stop, resume, retry, or cancel
individual downloads. State survives restarts; interrupted downloads
return to the queue.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.EnsureDataDir(); err != nil {
			return err
		}

		logger, logCleanup = logging.Setup(cfg.LogPath(), logging.ParseLevel(cfg.LogLevel))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQueue(cmd.Context())
	},
}

// openRepository opens the engine database for direct, schedulerless commands.
func openRepository() (*db.DB, db.Repository, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, db.NewSQLiteRepository(database), nil
}

// buildScheduler wires the full engine: database, event bus, process
// executor, and metadata client. The caller owns shutdown order.
func buildScheduler() (*downloader.Scheduler, *db.DB, *event.Bus, error) {
	database, repo, err := openRepository()
	if err != nil {
		return nil, nil, nil, err
	}

	resolver := &tool.Resolver{
		YtDlpPath:  cfg.Tools.YtDlpPath,
		FfmpegPath: cfg.Tools.FfmpegPath,
	}
	ytDlpPath := resolver.Resolve(tool.YtDlp)
	if ytDlpPath == "" {
		database.Close()
		return nil, nil, nil, fmt.Errorf("yt-dlp not found; install it or set tools.yt_dlp_path")
	}

	bus := event.NewBus()
	exec := downloader.NewProcessExecutor(ytDlpPath, cfg.Engine.StopGrace(), cfg.Engine.LogBufferLines, logger)
	exec.ResolvePath = func() string { return resolver.Resolve(tool.YtDlp) }
	meta := ytdlp.NewClient(ytDlpPath)

	sched := downloader.New(repo, bus, exec, meta, downloader.Config{
		MaxConcurrent:           cfg.Engine.MaxConcurrent,
		StopGrace:               cfg.Engine.StopGrace(),
		RingSize:                cfg.Engine.LogBufferLines,
		ProgressEventsPerSecond: cfg.Engine.ProgressEventsPerSecond,
		MetadataTimeout:         cfg.Engine.MetadataTimeout(),
		DownloadDir:             cfg.DownloadDir,
		ProxyURL:                cfg.Network.ProxyURL,
		RateLimitMBps:           cfg.Network.RateLimitMBps,
		FfmpegPath:              resolver.Resolve(tool.Ffmpeg),
	}, logger)

	if err := sched.Start(context.Background()); err != nil {
		bus.Close()
		database.Close()
		return nil, nil, nil, err
	}
	return sched, database, bus, nil
}

// runQueue opens the interactive queue UI over a live scheduler.
func runQueue(ctx context.Context) error {
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

	app := tui.NewApp(sched, events)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run queue UI: %w", err)
	}
	return nil
}

// findByPrefix resolves a download by full id or unique id prefix.
func findByPrefix(ctx context.Context, repo db.Repository, prefix string) (*model.Download, error) {
	if id, err := uuid.Parse(prefix); err == nil {
		d, err := repo.GetDownload(ctx, id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("download not found: %s", prefix)
		}
		return d, nil
	}

	rows, err := repo.ListDownloads(ctx, db.ListOptions{})
	if err != nil {
		return nil, err
	}
	var match *model.Download
	for i := range rows {
		if strings.HasPrefix(rows[i].ID.String(), strings.ToLower(prefix)) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous id prefix: %s", prefix)
			}
			match = &rows[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("download not found: %s", prefix)
	}
	return match, nil
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(updateCmd)
}
