package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"lesson-insights-api/apperr"
	"lesson-insights-api/config"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var errEmptyCompletion = errors.New("model returned no text")

// OpenAIClient sends single-turn chat completions.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAI(cfg config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		logger: logger,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		// the request field is omitempty; a literal zero would fall back to the API default
		temperature = math.SmallestNonzeroFloat32
	}

	c.logger.Debug("Sending chat completion",
		zap.String("model", c.model),
		zap.Float32("temperature", req.Temperature),
		zap.Int("prompt_chars", len(req.Prompt)))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", apperr.Transport("complete", fmt.Errorf("openai chat completion: %w", err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperr.ServiceResponse("complete", errEmptyCompletion)
	}

	c.logger.Debug("Chat completion received",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, nil
}
