package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptGroundedAnswer answers strictly from a supplied clause.
	// The template expects %s (clause) then %s (question).
	PromptGroundedAnswer = "grounded_answer"

	// PromptGeneralAnswer answers from general legal knowledge with no clause.
	// The template expects a %s placeholder for the question.
	PromptGeneralAnswer = "general_answer"

	// PromptSummarise summarises a whole document.
	// The template expects a %s placeholder for the document text.
	PromptSummarise = "summarise"
)
