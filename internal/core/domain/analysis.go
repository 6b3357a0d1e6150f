package domain

// UploadResult reports what an upload did to the index.
type UploadResult struct {
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
	ChunksAdded   int    `json:"chunks_added"`
}

// ChunkRisk is the risk classification of a single indexed chunk.
type ChunkRisk struct {
	ChunkID int     `json:"chunk_id"`
	Text    string  `json:"text"`
	Risk    RiskTag `json:"risk"`
}

// AnalysisSummary aggregates risk counts across the uploaded document.
type AnalysisSummary struct {
	TotalChunks  int `json:"total_chunks"`
	RiskSections int `json:"risk_sections"`
	HighRisk     int `json:"high_risk"`
	MediumRisk   int `json:"medium_risk"`
	LowRisk      int `json:"low_risk"`
	UnknownRisk  int `json:"unknown_risk"`
}

// AnalysisReport is the result of classifying every uploaded chunk.
type AnalysisReport struct {
	Summary AnalysisSummary `json:"summary"`
	Chunks  []ChunkRisk     `json:"chunks"`
}

// Add records one classified chunk in the summary.
func (s *AnalysisSummary) Add(level RiskLevel) {
	s.TotalChunks++
	switch level {
	case RiskHigh:
		s.HighRisk++
		s.RiskSections++
	case RiskMedium:
		s.MediumRisk++
		s.RiskSections++
	case RiskLow:
		s.LowRisk++
	default:
		s.UnknownRisk++
	}
}

// IndexStatus describes what the vector index currently holds.
type IndexStatus struct {
	TotalChunks    int    `json:"total_chunks"`
	CuratedChunks  int    `json:"curated_chunks"`
	UploadedChunks int    `json:"uploaded_chunks"`
	CachedAnswers  int    `json:"cached_answers"`
	EmbeddingModel string `json:"embedding_model"`
	Document       string `json:"document,omitempty"`
}
