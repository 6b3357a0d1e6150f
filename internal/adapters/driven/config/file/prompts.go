package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptGroundedAnswer: `You are a legal assistant.

Answer the user's question using ONLY the legal clause below.
Do NOT add information not present in the clause.
If the clause does not contain the answer, reply exactly:
"I cannot answer this from the provided document."

Legal Clause:
%s

Question:
%s

Answer clearly.`,

	driven.PromptGeneralAnswer: `You are a legal assistant.

The user asked a legal question that was not found in the uploaded document or the legal knowledge base.
Answer the question with general legal information in clear language.
Do not claim to quote any document.
If jurisdiction is unclear, mention that laws vary by jurisdiction.

Question:
%s`,

	driven.PromptSummarise: `You are a legal document specialist.

Read the following legal document carefully and provide a concise summary (2-3 paragraphs).

The summary should:
1. Identify the key parties and document type
2. Describe the main objectives and scope
3. Highlight the most important terms and conditions
4. Note any critical clauses or obligations

Document:
%s

Provide the summary in clear, professional language.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.clausewise/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".clausewise", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// A template whose %s count differs from the default would format to
	// garbage, so keep the default instead.
	if def, ok := defaultPrompts[name]; ok && strings.Count(prompt, "%s") != strings.Count(def, "%s") {
		prompt = def
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# clausewise Prompts

This directory contains the prompts sent to the local and remote models.

## Files

- ` + "`grounded_answer.txt`" + ` - Answers a question from one retrieved clause
- ` + "`general_answer.txt`" + ` - Answers from general legal knowledge when no clause matched
- ` + "`summarise.txt`" + ` - Summarises a whole uploaded document

## Customisation

Edit any file to customise model behaviour. Changes take effect on the next
command or after restarting the TUI.

## Format Placeholders

Prompts use Go fmt placeholders:
- ` + "`grounded_answer`" + ` takes two ` + "`%s`" + `: the clause, then the question
- ` + "`general_answer`" + ` takes one ` + "`%s`" + `: the question
- ` + "`summarise`" + ` takes one ` + "`%s`" + `: the document text

Keep the placeholders in the same order. If a grounded answer says it
"cannot answer this from the provided document", the question is re-asked
from general knowledge, so keep that phrase if you rewrite the refusal.
`
	return os.WriteFile(path, []byte(content), 0600)
}
