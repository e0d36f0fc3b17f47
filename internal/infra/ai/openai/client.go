package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/policyscope/internal/domain/ai"
	"github.com/bryanwahyu/policyscope/internal/infra/ai/prompt"
)

const (
	defaultMaxTokens = 1024
	// Keep prompts well inside the context window of the smaller models.
	maxInputChars = 50000
)

// Client implements the Summarizer port against the OpenAI chat API.
type Client struct {
	*openai.Client
	Model     string
	MaxTokens int
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

func (c *Client) Summarize(ctx context.Context, req ai.SummaryRequest) (ai.Summary, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	text := req.Text
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	chat := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(req.URL, req.DocumentType, text)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		chat.MaxCompletionTokens = maxTokens
	} else {
		chat.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, chat)
	if err != nil {
		return ai.Summary{}, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return ai.Summary{}, fmt.Errorf("%w: no choices returned", ai.ErrMalformedOutput)
	}

	return prompt.ParseSummary(resp.Choices[0].Message.Content)
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == 429 || apiErr.Type == "insufficient_quota") {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("failed to create chat completion: %w", err)
}
