package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completionBody(content string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %q}}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
	}`, content)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(server.URL, "test-key", "gpt-4o", zap.NewNop(),
		WithRetryPolicy(3, time.Millisecond),
	)
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		endpoint   string
		apiKey     string
		deployment string
		wantErr    bool
	}{
		{
			name:       "valid configuration",
			endpoint:   "https://test.openai.azure.com/",
			apiKey:     "test-key",
			deployment: "gpt-4o",
			wantErr:    false,
		},
		{
			name:       "missing endpoint",
			endpoint:   "",
			apiKey:     "test-key",
			deployment: "gpt-4o",
			wantErr:    true,
		},
		{
			name:       "missing api key",
			endpoint:   "https://test.openai.azure.com/",
			apiKey:     "",
			deployment: "gpt-4o",
			wantErr:    true,
		},
		{
			name:       "missing deployment",
			endpoint:   "https://test.openai.azure.com/",
			apiKey:     "test-key",
			deployment: "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewOpenAIClient(tt.endpoint, tt.apiKey, tt.deployment, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.deployment, client.Deployment())
			assert.Equal(t, 3, client.maxRetries)
			assert.Equal(t, time.Second, client.baseDelay)
		})
	}
}

func TestOpenAIClient_isRetryable(t *testing.T) {
	client := &OpenAIClient{
		logger:     zap.NewNop(),
		maxRetries: 3,
		baseDelay:  time.Second,
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "authentication error", err: errors.New("authentication failed"), want: false},
		{name: "unauthorized error", err: errors.New("unauthorized access"), want: false},
		{name: "401 error", err: errors.New("status code 401"), want: false},
		{name: "invalid request error", err: errors.New("invalid request format"), want: false},
		{name: "bad request error", err: errors.New("bad request"), want: false},
		{name: "400 error", err: errors.New("status code 400"), want: false},
		{name: "cancelled context", err: fmt.Errorf("request: %w", context.Canceled), want: false},
		{name: "deadline exceeded", err: fmt.Errorf("request: %w", context.DeadlineExceeded), want: false},
		{name: "rate limit error", err: errors.New("rate limit exceeded"), want: true},
		{name: "timeout error", err: errors.New("request timeout"), want: true},
		{name: "network error", err: errors.New("network connection failed"), want: true},
		{name: "500 error", err: errors.New("status code 500"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.isRetryable(tt.err))
		})
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("Stay hydrated."))
	})

	content, err := client.Complete(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("tip please"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Stay hydrated.", content)
}

func TestOpenAIClient_CompleteJSON_SendsSchema(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), `"json_schema"`)
		assert.Contains(t, string(body), `"vitals_analysis"`)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(`{"riskLevel":"Normal"}`))
	})

	content, err := client.CompleteJSON(context.Background(),
		[]openai.ChatCompletionMessageParamUnion{openai.UserMessage("analyze")},
		JSONSchema{
			Name:        "vitals_analysis",
			Description: "analysis",
			Schema:      map[string]any{"type": "object"},
		},
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"riskLevel":"Normal"}`, content)
}

func TestOpenAIClient_Complete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"busy","type":"server_error"}}`)
			return
		}
		fmt.Fprint(w, completionBody("ok"))
	})

	content, err := client.Complete(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIClient_Complete_DoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	})

	_, err := client.Complete(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hello"),
	})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIClient_Stream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream := client.Stream(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hi"),
	})
	defer stream.Close()

	var parts []string
	for stream.Next() {
		parts = append(parts, stream.Current())
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"Hel", "lo"}, parts)
}

func TestOpenAIClient_Complete_ContextCancellation(t *testing.T) {
	client, err := NewOpenAIClient("https://test.openai.azure.com/", "test-key", "gpt-4o", zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("test message"),
	})
	assert.Error(t, err, "Complete() with cancelled context should return error")
}
