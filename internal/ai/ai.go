// Package ai talks to the generative model that analyzes vitals readings and
// powers the CareCoach chat assistant.
package ai

import (
	"context"
	"errors"

	"github.com/careplanner/backend/pkg/model"
)

// Provider names accepted in configuration
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// ErrDisabled is returned by the none provider
var ErrDisabled = errors.New("ai provider disabled")

// ErrEmptyResponse is returned when the model produced no usable text
var ErrEmptyResponse = errors.New("empty response from model")

// Turn is one prior exchange passed to the model as conversation history
type Turn struct {
	Role model.ChatRole
	Text string
}

// Stream yields reply fragments in arrival order
type Stream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

// Provider is a generative model backend
type Provider interface {
	Name() string
	AnalyzeVitals(ctx context.Context, reading model.VitalsReading) (model.AIAnalysisResult, error)
	StreamChat(ctx context.Context, history []Turn, message, patientContext string) (Stream, error)
}

// Pinger is implemented by providers that can answer a plain connectivity check
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

// FallbackAnalysis is returned whenever a reading cannot be analyzed
func FallbackAnalysis() model.AIAnalysisResult {
	return model.AIAnalysisResult{
		RiskLevel:                 model.VitalStatusElevated,
		PatientAdvice:             "We couldn't analyze your data right now. Please rest and monitor your symptoms.",
		DoctorAlert:               "Automated analysis failed. Manual review required.",
		ActionPlan:                []string{"Rest for 15 minutes", "Drink water", "Retake measurement"},
		RecommendedClinicalAction: "Manual Review Required",
	}
}

type disabledProvider struct{}

// NewDisabledProvider returns a provider that refuses every request
func NewDisabledProvider() Provider {
	return disabledProvider{}
}

func (disabledProvider) Name() string { return ProviderNone }

func (disabledProvider) AnalyzeVitals(context.Context, model.VitalsReading) (model.AIAnalysisResult, error) {
	return model.AIAnalysisResult{}, ErrDisabled
}

func (disabledProvider) StreamChat(context.Context, []Turn, string, string) (Stream, error) {
	return nil, ErrDisabled
}
