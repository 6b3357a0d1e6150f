package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
	Long:  `Inspect and maintain the vector index and the curated legal knowledge base.`,
	RunE:  runIndexStatus,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index contents",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed every indexed chunk",
	Long: `Re-embeds every curated and uploaded chunk with the configured embedding
provider and persists the index. Run this after changing embedding models.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

var indexLoadKBCmd = &cobra.Command{
	Use:   "load-kb [file]",
	Short: "Load a legal knowledge base",
	Long: `Replaces the curated portion of the index with the question/context pairs
in a JSON or YAML file. The uploaded document is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexLoadKB,
}

func init() {
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexLoadKBCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	index, err := requireIndex()
	if err != nil {
		return err
	}

	status, err := index.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}

	cmd.Println("Index Status")
	cmd.Println("============")
	cmd.Printf("  Chunks:          %d\n", status.TotalChunks)
	cmd.Printf("    Curated:       %d\n", status.CuratedChunks)
	cmd.Printf("    Uploaded:      %d\n", status.UploadedChunks)
	cmd.Printf("  Cached answers:  %d\n", status.CachedAnswers)
	cmd.Printf("  Embedding model: %s\n", status.EmbeddingModel)
	if status.Document != "" {
		cmd.Printf("  Document:        %s\n", status.Document)
	} else {
		cmd.Println("  Document:        (none)")
	}
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	index, err := requireIndex()
	if err != nil {
		return err
	}

	if err := index.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Println("Index rebuilt.")
	return nil
}

func runIndexLoadKB(cmd *cobra.Command, args []string) error {
	index, err := requireIndex()
	if err != nil {
		return err
	}

	n, err := index.LoadKnowledgeBase(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}
	cmd.Printf("Loaded %d knowledge-base entries from %s\n", n, args[0])
	return nil
}
