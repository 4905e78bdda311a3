package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/model"
)

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a finished download from history",
	Long: `Delete a finished, failed, canceled, or stopped download from history.
Removing a playlist removes its items. Downloaded files stay on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
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
	if !d.Status.IsTerminal() && d.Status != model.StatusStopped {
		return fmt.Errorf("cannot remove download in state %q", d.Status)
	}
	children, err := repo.ListChildren(ctx, d.ID)
	if err != nil {
		return err
	}
	for i := range children {
		if children[i].Status.IsActive() {
			return fmt.Errorf("cannot remove playlist with active items")
		}
	}

	if err := repo.DeleteDownload(ctx, d.ID); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", shortID(d.ID.String()))
	return nil
}
