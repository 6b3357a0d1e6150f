package mcp

import (
	"github.com/custodia-labs/clausewise/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Legal answers questions and manages the uploaded document.
	Legal driving.LegalService

	// Index reports index status. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Legal == nil {
		return ErrMissingLegalService
	}
	return nil
}
