package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/downlinkhq/downlink/internal/model"
)

var (
	clearDone     bool
	clearCanceled bool
	clearFailed   bool
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear finished downloads from history",
	Long: `Bulk-remove finished downloads. With no flags, completed downloads are
cleared. Downloaded files stay on disk.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearDone, "done", false, "clear completed downloads")
	clearCmd.Flags().BoolVar(&clearCanceled, "canceled", false, "clear canceled downloads")
	clearCmd.Flags().BoolVar(&clearFailed, "failed", false, "clear failed downloads")
}

func runClear(cmd *cobra.Command, args []string) error {
	database, repo, err := openRepository()
	if err != nil {
		return err
	}
	defer database.Close()

	statuses := []model.Status{}
	if clearDone {
		statuses = append(statuses, model.StatusDone)
	}
	if clearCanceled {
		statuses = append(statuses, model.StatusCanceled)
	}
	if clearFailed {
		statuses = append(statuses, model.StatusFailed)
	}
	if len(statuses) == 0 {
		statuses = []model.Status{model.StatusDone}
	}

	ctx := context.Background()
	var total int64
	for _, status := range statuses {
		n, err := repo.DeleteByStatus(ctx, status)
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Printf("Cleared %d downloads\n", total)
	return nil
}
