package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the legal question to answer"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer          string  `json:"answer"`
	AnswerSource    string  `json:"answer_source"`
	ClauseReference string  `json:"clause_reference,omitempty"`
	Clause          string  `json:"clause,omitempty"`
	Confidence      float64 `json:"confidence"`
	RiskLevel       string  `json:"risk_level"`
	RiskReason      string  `json:"risk_reason"`
}

// UploadInput is the input schema for the upload tool.
type UploadInput struct {
	Path string `json:"path,omitempty" jsonschema:"path to a PDF, DOCX, TXT or Markdown file"`
	Text string `json:"text,omitempty" jsonschema:"raw document text, used instead of path"`
	Name string `json:"name,omitempty" jsonschema:"display name for raw text uploads"`
}

// UploadOutput is the output schema for the upload tool.
type UploadOutput struct {
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
	ChunksAdded   int    `json:"chunks_added"`
}

// AnalyzeInput is the input schema for the analyze tool.
type AnalyzeInput struct{}

// AnalyzeOutput is the output schema for the analyze tool.
type AnalyzeOutput struct {
	Summary domain.AnalysisSummary `json:"summary"`
	Chunks  []ChunkRiskOutput      `json:"chunks"`
}

// ChunkRiskOutput is the risk of one uploaded chunk.
type ChunkRiskOutput struct {
	ChunkID    int    `json:"chunk_id"`
	RiskLevel  string `json:"risk_level"`
	RiskReason string `json:"risk_reason"`
	Text       string `json:"text"`
}

// SummarizeInput is the input schema for the summarize tool.
type SummarizeInput struct{}

// SummarizeOutput is the output schema for the summarize tool.
type SummarizeOutput struct {
	Summary string `json:"summary"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about the uploaded legal document or the legal knowledge base",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload",
		Description: "Upload a legal document by file path or raw text, replacing the previous upload",
	}, s.handleUpload)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze",
		Description: "Classify the risk of every clause in the uploaded document",
	}, s.handleAnalyze)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize",
		Description: "Summarise the uploaded document",
	}, s.handleSummarize)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Legal.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:          answer.Answer,
		AnswerSource:    answer.AnswerSource.String(),
		ClauseReference: answer.ClauseReference,
		Clause:          answer.Clause,
		Confidence:      answer.Confidence,
		RiskLevel:       answer.Risk.Level.String(),
		RiskReason:      answer.Risk.Reason,
	}, nil
}

func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, UploadOutput, error) {
	hasPath := strings.TrimSpace(input.Path) != ""
	hasText := strings.TrimSpace(input.Text) != ""
	if hasPath == hasText {
		return nil, UploadOutput{}, ErrUploadInput
	}

	var (
		result *domain.UploadResult
		err    error
	)
	if hasPath {
		result, err = s.ports.Legal.UploadFile(ctx, input.Path)
	} else {
		result, err = s.ports.Legal.Upload(ctx, input.Name, input.Text)
	}
	if err != nil {
		return nil, UploadOutput{}, err
	}
	return nil, UploadOutput{
		DocumentID:    result.DocumentID,
		ChunksCreated: result.ChunksCreated,
		ChunksAdded:   result.ChunksAdded,
	}, nil
}

func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	report, err := s.ports.Legal.AnalyzeAll(ctx)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}
	output := AnalyzeOutput{
		Summary: report.Summary,
		Chunks:  make([]ChunkRiskOutput, len(report.Chunks)),
	}
	for i, c := range report.Chunks {
		output.Chunks[i] = ChunkRiskOutput{
			ChunkID:    c.ChunkID,
			RiskLevel:  c.Risk.Level.String(),
			RiskReason: c.Risk.Reason,
			Text:       c.Text,
		}
	}
	return nil, output, nil
}

func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SummarizeInput,
) (*mcp.CallToolResult, SummarizeOutput, error) {
	summary, err := s.ports.Legal.Summarize(ctx)
	if err != nil {
		return nil, SummarizeOutput{}, err
	}
	return nil, SummarizeOutput{Summary: summary}, nil
}
