package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/model"
	"github.com/downlinkhq/downlink/internal/urlutil"
)

var addPreset string

var addCmd = &cobra.Command{
	Use:   "add <url>...",
	Short: "Queue one or more URLs for download",
	Long: `Queue URLs for download. Playlist URLs are recorded as a playlist and
expanded into individual items when the engine next runs.

Queued downloads start when the queue UI or 'downlink run' is active.

Examples:
  downlink add https://example.com/watch?v=abc123
  downlink add --preset audio_m4a https://example.com/watch?v=abc123
  downlink add https://example.com/playlist?list=PL42`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addPreset, "preset", "p", model.DefaultPresetID, "quality preset id")
}

func runAdd(cmd *cobra.Command, args []string) error {
	database, repo, err := openRepository()
	if err != nil {
		return err
	}
	defer database.Close()

	preset := model.PresetByID(addPreset)
	ctx := context.Background()

	// Args may be bare URLs or pasted text containing several.
	urls := urlutil.ExtractURLs(strings.Join(args, "\n"))
	if len(urls) == 0 {
		return fmt.Errorf("no valid http(s) URLs given")
	}

	for _, url := range urls {
		var d *model.Download
		if strings.Contains(strings.ToLower(url), "list=") || strings.Contains(strings.ToLower(url), "/playlist") {
			d = model.NewPlaylistParent(url, preset.ID, cfg.DownloadDir)
			// No engine is running here; the next run picks the parent up
			// through reconciliation and expands it.
			d.Status = model.StatusQueued
			d.Phase = model.PhaseQueued
		} else {
			d = model.NewSingle(url, preset.ID, cfg.DownloadDir)
		}

		if err := repo.CreateDownload(ctx, d); err != nil {
			return fmt.Errorf("failed to queue %s: %w", url, err)
		}
		fmt.Printf("Queued %s (%s, preset %s)\n", shortID(d.ID.String()), url, preset.ID)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
