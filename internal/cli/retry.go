package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/model"
)

var retryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Re-queue a failed download",
	Long: `Return a failed download to the queue with its error cleared. It starts
when the queue UI or 'downlink run' is next active.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

func runRetry(cmd *cobra.Command, args []string) error {
	database, repo, err := openRepository()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	d, err := findByPrefix(ctx, repo, args[0])
	if err != nil {
		return err
	}
	if d.Status != model.StatusFailed {
		return fmt.Errorf("cannot retry download in state %q", d.Status)
	}

	d.ClearError()
	d.ResetProgress()
	d.SetStatus(model.StatusQueued, model.PhaseQueued)
	if err := repo.UpdateDownload(ctx, d); err != nil {
		return err
	}
	fmt.Printf("Re-queued %s\n", shortID(d.ID.String()))
	return nil
}
