package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clausewise/internal/connectors/filesystem"
)

var watchDebounce int

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Re-upload a document whenever it changes",
	Long: `Uploads the document, then watches it and re-uploads after every save
until interrupted. Useful while a contract is being drafted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchDebounce, "debounce-ms", int(filesystem.DefaultDebounce.Milliseconds()),
		"quiet period before re-uploading")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	legal, err := requireLegal()
	if err != nil {
		return err
	}

	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("cannot watch %s: %w", args[0], err)
	}

	watcher, err := filesystem.NewWatcher(args[0], time.Duration(watchDebounce)*time.Millisecond)
	if err != nil {
		return err
	}

	reload := func(ctx context.Context, path string) error {
		result, err := legal.UploadFile(ctx, path)
		if err != nil {
			return err
		}
		cmd.Printf("Uploaded %s: %d chunks indexed\n", path, result.ChunksAdded)
		return nil
	}

	if err := reload(cmd.Context(), watcher.Path()); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", watcher.Path())
	return watcher.Watch(cmd.Context(), reload)
}
