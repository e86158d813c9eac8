package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"go.uber.org/zap"
)

const defaultAPIVersion = "2024-08-01-preview"

// OpenAIClient wraps Azure OpenAI SDK with retry logic and logging
type OpenAIClient struct {
	client     *openai.Client
	deployment string
	logger     *zap.Logger
	maxRetries int
	baseDelay  time.Duration
}

// ClientOption configures an OpenAIClient
type ClientOption func(*clientOptions)

type clientOptions struct {
	apiVersion string
	maxRetries int
	baseDelay  time.Duration
}

// WithAPIVersion overrides the Azure OpenAI API version
func WithAPIVersion(version string) ClientOption {
	return func(o *clientOptions) {
		if version != "" {
			o.apiVersion = version
		}
	}
}

// WithRetryPolicy sets the attempt count and the base of the exponential backoff
func WithRetryPolicy(maxRetries int, baseDelay time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.maxRetries = maxRetries
		o.baseDelay = baseDelay
	}
}

// NewOpenAIClient creates a new Azure OpenAI client using the openai-go SDK with Azure extensions
func NewOpenAIClient(endpoint, apiKey, deployment string, logger *zap.Logger, opts ...ClientOption) (*OpenAIClient, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("endpoint, apiKey, and deployment are required")
	}

	o := clientOptions{
		apiVersion: defaultAPIVersion,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Retries are handled here, not by the SDK
	client := openai.NewClient(
		azure.WithEndpoint(endpoint, o.apiVersion),
		azure.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenAIClient{
		client:     &client,
		deployment: deployment,
		logger:     logger,
		maxRetries: o.maxRetries,
		baseDelay:  o.baseDelay,
	}, nil
}

// Deployment returns the model deployment name requests are sent to
func (c *OpenAIClient) Deployment() string {
	return c.deployment
}

// JSONSchema describes a structured output format for CompleteJSON
type JSONSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Complete sends a chat completion request to Azure OpenAI with retry logic
func (c *OpenAIClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return c.withRetry(ctx, func() (string, error) {
		return c.complete(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(c.deployment),
			Messages: messages,
		})
	})
}

// CompleteJSON requests a completion constrained to the given JSON schema and
// returns the raw JSON content
func (c *OpenAIClient) CompleteJSON(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schema JSONSchema) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.deployment),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        schema.Name,
					Description: openai.String(schema.Description),
					Schema:      schema.Schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	return c.withRetry(ctx, func() (string, error) {
		return c.complete(ctx, params)
	})
}

// ChatStream yields the content fragments of a streaming chat completion
type ChatStream struct {
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	current string
}

// Next advances to the next non-empty fragment
func (s *ChatStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			s.current = content
			return true
		}
	}
	return false
}

// Current returns the fragment produced by the last call to Next
func (s *ChatStream) Current() string {
	return s.current
}

// Err returns the error that stopped the stream, if any
func (s *ChatStream) Err() error {
	return s.stream.Err()
}

// Close releases the underlying connection
func (s *ChatStream) Close() error {
	return s.stream.Close()
}

// Stream starts a streaming chat completion. Errors surface through the
// returned stream's Err method.
func (c *OpenAIClient) Stream(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) *ChatStream {
	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.deployment),
		Messages: messages,
	})
	return &ChatStream{stream: stream}
}

func (c *OpenAIClient) withRetry(ctx context.Context, call func() (string, error)) (string, error) {
	startTime := time.Now()
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Info("retrying Azure OpenAI request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("Azure OpenAI request aborted: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := call()
		if err == nil {
			c.logger.Info("Azure OpenAI request completed",
				zap.Duration("processing_time", time.Since(startTime)),
				zap.Int("attempts", attempt+1),
			)
			return result, nil
		}

		lastErr = err
		if !c.isRetryable(err) {
			c.logger.Error("non-retryable Azure OpenAI error",
				zap.Error(err),
				zap.Int("attempt", attempt+1),
			)
			break
		}

		c.logger.Warn("Azure OpenAI request failed, will retry",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
		)
	}

	c.logger.Error("Azure OpenAI request failed after retries",
		zap.Error(lastErr),
		zap.Duration("total_time", time.Since(startTime)),
		zap.Int("max_retries", c.maxRetries),
	)

	return "", fmt.Errorf("Azure OpenAI request failed after %d attempts: %w", c.maxRetries, lastErr)
}

// complete performs a single chat completion request
func (c *OpenAIClient) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	requestStart := time.Now()

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from Azure OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}

	c.logger.Info("Azure OpenAI token usage",
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("request_time", time.Since(requestStart)),
	)

	return content, nil
}

// isRetryable determines if an error should trigger a retry
func (c *OpenAIClient) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "authentication") || strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401") {
		return false
	}

	if strings.Contains(errStr, "invalid") || strings.Contains(errStr, "bad request") || strings.Contains(errStr, "400") {
		return false
	}

	// rate limits, timeouts and network errors
	return true
}
