package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/careplanner/backend/pkg/model"
	"go.uber.org/zap"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r geminiResponse) text() string {
	var sb strings.Builder
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// GeminiProvider calls the Generative Language REST API
type GeminiProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	endpoint   string
	logger     *zap.Logger
}

// NewGeminiProvider creates a Gemini provider. An empty endpoint selects the
// public API.
func NewGeminiProvider(apiKey, modelName, endpoint string, timeout time.Duration, logger *zap.Logger) (*GeminiProvider, error) {
	if apiKey == "" || modelName == "" {
		return nil, fmt.Errorf("gemini api key and model are required")
	}
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}

	return &GeminiProvider{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      modelName,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		logger:     logger,
	}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// AnalyzeVitals requests a JSON answer constrained by responseSchema
func (p *GeminiProvider) AnalyzeVitals(ctx context.Context, reading model.VitalsReading) (model.AIAnalysisResult, error) {
	req := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: AnalysisPrompt(reading)}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   analysisSchema(strings.ToUpper),
		},
	}

	resp, err := p.post(ctx, "generateContent", "", req)
	if err != nil {
		return model.AIAnalysisResult{}, err
	}
	defer resp.Body.Close()

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.AIAnalysisResult{}, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	text := out.text()
	if text == "" {
		return model.AIAnalysisResult{}, ErrEmptyResponse
	}
	return parseAnalysis(text)
}

// StreamChat opens a server-sent event stream of reply fragments
func (p *GeminiProvider) StreamChat(ctx context.Context, history []Turn, message, patientContext string) (Stream, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, geminiContent{Role: string(turn.Role), Parts: []geminiPart{{Text: turn.Text}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: message}}})

	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: SystemInstruction(patientContext)}}},
		Contents:          contents,
	}

	resp, err := p.post(ctx, "streamGenerateContent", "alt=sse", req)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &geminiStream{body: resp.Body, scanner: scanner}, nil
}

func (p *GeminiProvider) post(ctx context.Context, method, query string, payload geminiRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", p.endpoint, p.model, method)
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.logger.Warn("gemini API error",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("gemini API error: %s - %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	return resp, nil
}

// geminiStream parses "data: {...}" lines of an alt=sse response
type geminiStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	current string
	err     error
}

func (s *geminiStream) Next() bool {
	if s.err != nil {
		return false
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &chunk); err != nil {
			s.err = fmt.Errorf("failed to decode stream chunk: %w", err)
			return false
		}
		if chunk.Error != nil {
			s.err = fmt.Errorf("gemini stream error %d: %s", chunk.Error.Code, chunk.Error.Message)
			return false
		}
		if text := chunk.text(); text != "" {
			s.current = text
			return true
		}
	}

	s.err = s.scanner.Err()
	return false
}

func (s *geminiStream) Current() string { return s.current }

func (s *geminiStream) Err() error { return s.err }

func (s *geminiStream) Close() error { return s.body.Close() }
