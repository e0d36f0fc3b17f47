package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/policyscope/internal/domain/ai"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a legal-document analyst specializing in terms of service and privacy policies. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- summary_one_sentence is exactly one sentence describing what the document means for the user.
- summary_100_words is a plain-language summary of roughly 100 words.
- sentiment_score is a number between -1 (user-hostile) and 1 (user-friendly).
- risk_indicator_score is a number between 0 (no concerning clauses) and 10 (many aggressive clauses such as broad data sharing, unilateral changes, forced arbitration, or liability waivers).

Schema (example with empty values):
{
  "summary_one_sentence": "<string>",
  "summary_100_words": "<string>",
  "sentiment_score": 0.0,
  "risk_indicator_score": 0.0
}`
}

// GetUserPrompt builds the user message around the document text.
func GetUserPrompt(url, documentType, text string) string {
	return fmt.Sprintf("Analyze this %s from %s and respond with the JSON per schema.\n\nDocument text:\n%s",
		strings.ReplaceAll(documentType, "_", " "), url, text)
}

// output mirrors the schema the system prompt demands.
type output struct {
	SummaryOneSentence string  `json:"summary_one_sentence"`
	Summary100Words    string  `json:"summary_100_words"`
	SentimentScore     float64 `json:"sentiment_score"`
	RiskIndicatorScore float64 `json:"risk_indicator_score"`
}

// ParseSummary decodes the model response, tolerating the code fences some
// models emit despite the instructions.
func ParseSummary(raw string) (ai.Summary, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var out output
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return ai.Summary{}, fmt.Errorf("%w: %v", ai.ErrMalformedOutput, err)
	}
	if out.SummaryOneSentence == "" && out.Summary100Words == "" {
		return ai.Summary{}, fmt.Errorf("%w: empty summaries", ai.ErrMalformedOutput)
	}

	return ai.Summary{
		OneSentence: out.SummaryOneSentence,
		Brief:       out.Summary100Words,
		Sentiment:   clamp(out.SentimentScore, -1, 1),
		RiskScore:   normalizeRisk(out.RiskIndicatorScore),
	}, nil
}

// normalizeRisk maps scores onto 0..10. Models occasionally answer on a
// 0..100 scale; values above 10 are treated as percentages.
func normalizeRisk(v float64) float64 {
	if v > 10 {
		v = v / 10
	}
	return clamp(v, 0, 10)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
