package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/db"
	"github.com/downlinkhq/downlink/internal/model"
)

var (
	listStatus string
	listAll    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloads",
	Long: `List downloads with their status and progress. Playlist items are shown
indented under their playlist.

Examples:
  downlink list
  downlink list --status failed
  downlink list --all`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status (queued, downloading, done, failed, ...)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include playlist items")
}

func runList(cmd *cobra.Command, args []string) error {
	database, repo, err := openRepository()
	if err != nil {
		return err
	}
	defer database.Close()

	opts := db.ListOptions{}
	if listStatus != "" {
		status := model.ParseStatus(listStatus)
		if string(status) != listStatus {
			return fmt.Errorf("unknown status %q", listStatus)
		}
		opts.Status = &status
	}

	ctx := context.Background()
	rows, err := repo.ListDownloads(ctx, opts)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No downloads.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tTITLE")
	for i := range rows {
		d := &rows[i]
		if d.ParentID != nil && !listAll && listStatus == "" {
			continue
		}
		printRow(ctx, w, repo, d)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d queued, %d active, %d done, %d failed\n",
		counts[model.StatusQueued],
		counts[model.StatusFetching]+counts[model.StatusReady]+counts[model.StatusDownloading]+counts[model.StatusPostProcessing],
		counts[model.StatusDone],
		counts[model.StatusFailed])
	return nil
}

func printRow(ctx context.Context, w *tabwriter.Writer, repo db.Repository, d *model.Download) {
	name := d.Title
	if name == "" {
		name = d.SourceURL
	}
	indent := ""
	if d.ParentID != nil {
		indent = "  "
	}

	progress := "--"
	if d.SourceKind == model.SourcePlaylistParent {
		children, err := repo.ListChildren(ctx, d.ID)
		if err == nil {
			agg := model.Aggregate(children)
			progress = fmt.Sprintf("%d/%d items", agg.Completed, agg.Total)
		}
	} else if pct, known := d.Progress.KnownPercent(); known {
		progress = fmt.Sprintf("%.1f%%", pct)
	} else if d.Status == model.StatusDone {
		progress = "100%"
	}

	status := string(d.Status)
	if d.Status == model.StatusFailed && d.LastError != nil {
		status = fmt.Sprintf("failed (%s)", d.LastError.Code)
	}

	fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\n", shortID(d.ID.String()), status, progress, indent, name)
}
