package mcp

import (
	"context"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driving"
)

// mockLegalService is a mock implementation of driving.LegalService.
type mockLegalService struct {
	answer   *domain.ResolvedAnswer
	upload   *domain.UploadResult
	report   *domain.AnalysisReport
	summary  string
	err      error
	uploaded string
	path     string
}

var _ driving.LegalService = (*mockLegalService)(nil)

func (m *mockLegalService) Upload(_ context.Context, _ string, text string) (*domain.UploadResult, error) {
	m.uploaded = text
	return m.upload, m.err
}

func (m *mockLegalService) UploadFile(_ context.Context, path string) (*domain.UploadResult, error) {
	m.path = path
	return m.upload, m.err
}

func (m *mockLegalService) Ask(_ context.Context, _ string) (*domain.ResolvedAnswer, error) {
	return m.answer, m.err
}

func (m *mockLegalService) AnalyzeAll(_ context.Context) (*domain.AnalysisReport, error) {
	return m.report, m.err
}

func (m *mockLegalService) Summarize(_ context.Context) (string, error) {
	return m.summary, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	status *domain.IndexStatus
	err    error
}

var _ driving.IndexService = (*mockIndexService)(nil)

func (m *mockIndexService) Status(_ context.Context) (*domain.IndexStatus, error) {
	return m.status, m.err
}

func (m *mockIndexService) LoadKnowledgeBase(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockIndexService) Rebuild(_ context.Context) error {
	return m.err
}
