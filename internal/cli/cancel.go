package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/model"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a queued or stopped download",
	Long: `Cancel a download that is not currently running. Running downloads are
canceled from the queue UI, where the engine can also remove partial
files.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
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
	if d.Status.IsActive() {
		return fmt.Errorf("download is running; cancel it from the queue UI")
	}
	if !d.Status.CanTransition(model.StatusCanceled) {
		return fmt.Errorf("cannot cancel download in state %q", d.Status)
	}

	d.ResetProgress()
	d.SetStatus(model.StatusCanceled, model.PhaseStopped)
	if err := repo.UpdateDownload(ctx, d); err != nil {
		return err
	}
	fmt.Printf("Canceled %s\n", shortID(d.ID.String()))
	return nil
}
