// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// AskRequested is a command to answer a question.
type AskRequested struct {
	Question string
}

// AnswerReceived carries a resolved answer back to the model.
type AnswerReceived struct {
	Question string
	Answer   *domain.ResolvedAnswer
	Err      error
}

// StatusLoaded carries the index status shown in the status line.
type StatusLoaded struct {
	Status *domain.IndexStatus
	Err    error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
