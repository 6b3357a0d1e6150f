package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Clausewise resources.
	uriScheme = "clausewise://"

	statusURI   = uriScheme + "index/status"
	analysisURI = uriScheme + "document/analysis"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Index != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         statusURI,
			Name:        "index-status",
			Description: "Chunk counts, cached answers and the embedding model of the index",
			MIMEType:    "application/json",
		}, s.handleStatusResource)
	}

	s.server.AddResource(&mcp.Resource{
		URI:         analysisURI,
		Name:        "document-analysis",
		Description: "Risk classification of every clause in the uploaded document",
		MIMEType:    "application/json",
	}, s.handleAnalysisResource)
}

// handleStatusResource returns the index status.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Index.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index status: %w", err)
	}
	return jsonResource(req.Params.URI, status)
}

// handleAnalysisResource returns the risk report, or an empty report before
// the first upload.
func (s *Server) handleAnalysisResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	report, err := s.ports.Legal.AnalyzeAll(ctx)
	if errors.Is(err, domain.ErrNoDocumentLoaded) {
		report = &domain.AnalysisReport{Chunks: []domain.ChunkRisk{}}
	} else if err != nil {
		return nil, fmt.Errorf("analysing document: %w", err)
	}
	return jsonResource(req.Params.URI, report)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
