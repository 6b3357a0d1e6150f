package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// excerptLen bounds the clause text shown per chunk in table output.
const excerptLen = 80

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify the risk of every clause",
	Long: `Classifies every chunk of the uploaded document as High, Medium, Low or
Unknown risk using keyword rules, and prints a summary.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarise the uploaded document",
	Args:  cobra.NoArgs,
	RunE:  runSummarize,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(summarizeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	legal, err := requireLegal()
	if err != nil {
		return err
	}

	report, err := legal.AnalyzeAll(cmd.Context())
	if errors.Is(err, domain.ErrNoDocumentLoaded) {
		return errors.New("no document uploaded; run 'clausewise upload <file>' first")
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		return outputJSON(cmd, report)
	}

	for _, c := range report.Chunks {
		cmd.Printf("  [%d] %-7s %s\n", c.ChunkID, c.Risk.Level, excerpt(c.Text))
		if c.Risk.Reason != "" {
			cmd.Printf("      %s\n", c.Risk.Reason)
		}
	}
	cmd.Println()

	s := report.Summary
	cmd.Printf("Chunks: %d  Risk sections: %d\n", s.TotalChunks, s.RiskSections)
	cmd.Printf("High: %d  Medium: %d  Low: %d  Unknown: %d\n", s.HighRisk, s.MediumRisk, s.LowRisk, s.UnknownRisk)
	return nil
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	legal, err := requireLegal()
	if err != nil {
		return err
	}

	summary, err := legal.Summarize(cmd.Context())
	if errors.Is(err, domain.ErrNoDocumentLoaded) {
		return errors.New("no document uploaded; run 'clausewise upload <file>' first")
	}
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	cmd.Println(summary)
	return nil
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLen {
		return text
	}
	return string(runes[:excerptLen-3]) + "..."
}
