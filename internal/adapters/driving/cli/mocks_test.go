package cli

import (
	"context"
	"sort"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driving"
)

type mockLegalService struct {
	answer   *domain.ResolvedAnswer
	report   *domain.AnalysisReport
	summary  string
	err      error
	question string
	path     string
	name     string
	text     string
}

func (m *mockLegalService) Upload(_ context.Context, name, text string) (*domain.UploadResult, error) {
	m.name, m.text = name, text
	if m.err != nil {
		return nil, m.err
	}
	return &domain.UploadResult{DocumentID: "doc-1", ChunksCreated: 4, ChunksAdded: 3}, nil
}

func (m *mockLegalService) UploadFile(_ context.Context, path string) (*domain.UploadResult, error) {
	m.path = path
	if m.err != nil {
		return nil, m.err
	}
	return &domain.UploadResult{DocumentID: "doc-2", ChunksCreated: 6, ChunksAdded: 6}, nil
}

func (m *mockLegalService) Ask(_ context.Context, question string) (*domain.ResolvedAnswer, error) {
	m.question = question
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockLegalService) AnalyzeAll(_ context.Context) (*domain.AnalysisReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockLegalService) Summarize(_ context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.summary, nil
}

type mockIndexService struct {
	status  *domain.IndexStatus
	loaded  int
	err     error
	kbPath  string
	rebuilt bool
}

func (m *mockIndexService) Status(_ context.Context) (*domain.IndexStatus, error) {
	return m.status, m.err
}

func (m *mockIndexService) LoadKnowledgeBase(_ context.Context, path string) (int, error) {
	m.kbPath = path
	return m.loaded, m.err
}

func (m *mockIndexService) Rebuild(_ context.Context) error {
	m.rebuilt = true
	return m.err
}

type mockSettingsService struct {
	settings    domain.AppSettings
	values      map[string]string
	validateErr error
	setErr      error

	embedding struct {
		provider domain.AIProvider
		model    string
		apiKey   string
	}
	llm struct {
		role     domain.LLMRole
		provider domain.AIProvider
		model    string
		apiKey   string
	}
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), values: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	keys := []string{"retrieval.top_k", "llm.remote.api_key", "upload.max_bytes"}
	sort.Strings(keys)
	return keys
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedding.provider, m.embedding.model, m.embedding.apiKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(role domain.LLMRole, provider domain.AIProvider, model, apiKey string) error {
	m.llm.role, m.llm.provider, m.llm.model, m.llm.apiKey = role, provider, model, apiKey
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return nil
}

func (m *mockSettingsService) ValidateLLMConfig(_ domain.LLMRole) error {
	return nil
}

var (
	_ driving.LegalService    = (*mockLegalService)(nil)
	_ driving.IndexService    = (*mockIndexService)(nil)
	_ driving.SettingsService = (*mockSettingsService)(nil)
)

type testServices struct {
	legal    *mockLegalService
	index    *mockIndexService
	settings *mockSettingsService
}

// setupTestServices installs mock services and returns them with a cleanup
// func that restores package state, flags included.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		legal: &mockLegalService{
			answer: &domain.ResolvedAnswer{
				Question:        "What is the notice period?",
				Answer:          "Either party may terminate with thirty days written notice.",
				AnswerSource:    domain.AnswerSourceSemanticRetrieval,
				ClauseReference: "Clause 12",
				Confidence:      0.87,
				Risk:            domain.RiskTag{Level: domain.RiskHigh, Reason: "Termination clause"},
			},
			report: &domain.AnalysisReport{
				Summary: domain.AnalysisSummary{TotalChunks: 2, RiskSections: 1, HighRisk: 1, LowRisk: 1},
				Chunks: []domain.ChunkRisk{
					{ChunkID: 0, Text: "Clause 12: Either party may terminate.", Risk: domain.RiskTag{Level: domain.RiskHigh, Reason: "Termination clause"}},
					{ChunkID: 1, Text: "Clause 13: Notices are sent by email.", Risk: domain.RiskTag{Level: domain.RiskLow}},
				},
			},
			summary: "A lease between two parties.",
		},
		index: &mockIndexService{
			status: &domain.IndexStatus{
				TotalChunks: 10, CuratedChunks: 8, UploadedChunks: 2,
				CachedAnswers: 8, EmbeddingModel: "hashing-384", Document: "lease.pdf",
			},
			loaded: 8,
		},
		settings: newMockSettingsService(),
	}

	prevLegal, prevIndex, prevSettings, prevInit := legalService, indexService, settingsService, initErr
	legalService, indexService, settingsService, initErr = ts.legal, ts.index, ts.settings, nil

	return ts, func() {
		legalService, indexService, settingsService, initErr = prevLegal, prevIndex, prevSettings, prevInit
		askJSON, analyzeJSON, uploadName = false, false, ""
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}
