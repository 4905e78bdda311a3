package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs <id>",
	Short: "Show recent engine output for a download",
	Long: `Show the most recent captured yt-dlp output lines for a download. The id
may be abbreviated to a unique prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 50, "number of lines to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
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

	lines, err := repo.ListLogs(ctx, d.ID, logsLimit)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Println("No output captured.")
		return nil
	}
	for _, line := range lines {
		fmt.Printf("%s [%s] %s\n", line.Timestamp.Format("15:04:05"), line.Stream, line.Line)
	}
	return nil
}
