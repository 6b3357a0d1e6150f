package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

var uploadName string

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a legal document",
	Long: `Extracts, chunks and indexes a PDF, DOCX, HTML, TXT or Markdown document.
The new document replaces the previous upload; the knowledge base is kept.

Use "-" to read plain text from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "display name for text read from stdin")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	legal, err := requireLegal()
	if err != nil {
		return err
	}

	var result *domain.UploadResult
	if args[0] == "-" {
		data, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return fmt.Errorf("failed to read stdin: %w", readErr)
		}
		name := uploadName
		if name == "" {
			name = "stdin"
		}
		result, err = legal.Upload(cmd.Context(), name, string(data))
	} else {
		result, err = legal.UploadFile(cmd.Context(), args[0])
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Uploaded document %s\n", result.DocumentID)
	cmd.Printf("  Chunks created: %d\n", result.ChunksCreated)
	cmd.Printf("  Chunks indexed: %d\n", result.ChunksAdded)
	return nil
}
