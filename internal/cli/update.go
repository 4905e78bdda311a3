package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/tool"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update yt-dlp via its self-updater",
	Long: `Run yt-dlp's self-updater. Useful when downloads start failing with
extractor errors after a site change. Package-manager installs refuse
self-updates; update through the package manager instead.`,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	resolver := &tool.Resolver{
		YtDlpPath:  cfg.Tools.YtDlpPath,
		FfmpegPath: cfg.Tools.FfmpegPath,
	}

	out, err := resolver.Update(context.Background())
	if out != "" {
		fmt.Println(out)
	}
	if err != nil {
		return fmt.Errorf("failed to update yt-dlp: %w", err)
	}
	return nil
}
