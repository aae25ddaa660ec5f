package extract

import (
	"context"
	"fmt"

	"github.com/spendlyhq/invoice-ingest/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient calls the chat completion API with a platform-specific prompt
// and JSON response format
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new generative extraction client
func NewOpenAIClient(apiKey, model string, temperature float32, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// Extract requests a strict JSON object describing the invoice
func (c *OpenAIClient) Extract(ctx context.Context, text string, platform models.Platform) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading advertising platform invoices. Extract billing data exactly as printed. Always respond with valid JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(text, platform),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("extraction request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("Generative extraction response received",
		zap.String("platform", string(platform)),
		zap.Int("content_length", len(content)))

	return content, nil
}
