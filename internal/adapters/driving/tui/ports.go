// Package tui provides the interactive question-and-answer terminal UI.
package tui

import (
	"github.com/custodia-labs/clausewise/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Legal answers questions. Required.
	Legal driving.LegalService

	// Index feeds the status line. Optional.
	Index driving.IndexService
}

// Validate ensures required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Legal == nil {
		return ErrMissingLegalService
	}
	return nil
}
