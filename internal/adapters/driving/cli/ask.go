package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the uploaded document",
	Long: `Answers a question about the uploaded document or the legal knowledge base.

Questions are resolved in tiers: direct references such as "Section 420 IPC",
known questions, semantic retrieval over the document, and finally a
general-knowledge answer that is never attributed to the document.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	legal, err := requireLegal()
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	answer, err := legal.Ask(cmd.Context(), question)
	if errors.Is(err, domain.ErrGenerationUnavailable) {
		return fmt.Errorf("no language model could answer; check 'clausewise settings show': %w", err)
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputJSON(cmd, answer)
	}
	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.ResolvedAnswer) {
	cmd.Println(answer.Answer)
	cmd.Println()
	cmd.Printf("  Source:     %s\n", answer.AnswerSource.Description())
	cmd.Printf("  Confidence: %.2f\n", answer.Confidence)
	if answer.HasClauseReference() {
		cmd.Printf("  Reference:  %s\n", answer.ClauseReference)
	}
	cmd.Printf("  Risk:       %s\n", formatRisk(answer.Risk))
}

func formatRisk(tag domain.RiskTag) string {
	if tag.Reason == "" {
		return tag.Level.String()
	}
	return fmt.Sprintf("%s (%s)", tag.Level, tag.Reason)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
