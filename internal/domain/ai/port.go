package ai

import "context"

// SummaryRequest carries the extracted text to summarize.
type SummaryRequest struct {
	URL          string
	DocumentType string
	Text         string
}

// Summary is what the language model contributes to an analysis.
type Summary struct {
	OneSentence string
	Brief       string  // ~100 words
	Sentiment   float64 // -1..1
	RiskScore   float64 // 0..10
}

// Summarizer port for the external language-model service.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (Summary, error)
}
