// Package mcp provides an MCP (Model Context Protocol) server adapter for Clausewise.
// It lets AI assistants ask questions about an uploaded legal document.
package mcp

import "errors"

// ErrMissingLegalService is returned when the legal service is not provided.
var ErrMissingLegalService = errors.New("mcp: legal service is required")

// ErrUploadInput is returned when an upload names neither or both of a path and text.
var ErrUploadInput = errors.New("mcp: provide exactly one of path or text")
