package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/tool"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check external tool availability",
	Long: `Check that yt-dlp and ffmpeg can be found and report their versions.
yt-dlp is required; a missing ffmpeg only disables stream merging and
post-processing.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	resolver := &tool.Resolver{
		YtDlpPath:  cfg.Tools.YtDlpPath,
		FfmpegPath: cfg.Tools.FfmpegPath,
	}

	health := resolver.Check(context.Background())
	for _, s := range health.Tools {
		if s.Found {
			version := s.Version
			if version == "" {
				version = "unknown version"
			}
			fmt.Printf("  ok     %-8s %s (%s)\n", s.Name, s.Path, version)
		} else {
			fmt.Printf("  MISSING %-8s not found\n", s.Name)
		}
	}

	fmt.Printf("\nDownload dir: %s\n", cfg.DownloadDir)
	fmt.Printf("Database:     %s\n", cfg.DatabasePath())

	if !health.OK {
		return fmt.Errorf("yt-dlp is required; install it or set tools.yt_dlp_path")
	}
	return nil
}
