package tui

import "errors"

// ErrMissingLegalService is returned when the legal service is not provided.
var ErrMissingLegalService = errors.New("tui: legal service is required")
