package ai

import (
	"context"
	"fmt"

	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/pkg/model"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// OpenAIProvider runs analysis and chat on an Azure OpenAI deployment
type OpenAIProvider struct {
	client *azure.OpenAIClient
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider backed by client
func NewOpenAIProvider(client *azure.OpenAIClient, logger *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{client: client, logger: logger}
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Ping sends a plain-text completion and returns the deployment's reply
func (p *OpenAIProvider) Ping(ctx context.Context) (string, error) {
	reply, err := p.client.Complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("Reply with the single word OK."),
		openai.UserMessage("ping"),
	})
	if err != nil {
		return "", fmt.Errorf("deployment %s did not answer: %w", p.client.Deployment(), err)
	}
	return reply, nil
}

// AnalyzeVitals requests a structured analysis constrained to the result schema
func (p *OpenAIProvider) AnalyzeVitals(ctx context.Context, reading model.VitalsReading) (model.AIAnalysisResult, error) {
	schema := analysisSchema(func(t string) string { return t })
	schema["additionalProperties"] = false

	content, err := p.client.CompleteJSON(ctx,
		[]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(AnalysisPrompt(reading)),
		},
		azure.JSONSchema{
			Name:        "vitals_analysis",
			Description: "Risk assessment of a blood pressure and glucose reading",
			Schema:      schema,
		},
	)
	if err != nil {
		return model.AIAnalysisResult{}, err
	}

	return parseAnalysis(content)
}

// StreamChat streams a CareCoach reply to message
func (p *OpenAIProvider) StreamChat(ctx context.Context, history []Turn, message, patientContext string) (Stream, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(SystemInstruction(patientContext)))
	for _, turn := range history {
		if turn.Role == model.ChatRoleModel {
			messages = append(messages, openai.AssistantMessage(turn.Text))
			continue
		}
		messages = append(messages, openai.UserMessage(turn.Text))
	}
	messages = append(messages, openai.UserMessage(message))

	return p.client.Stream(ctx, messages), nil
}
