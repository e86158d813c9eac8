package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/internal/config"
	"github.com/careplanner/backend/internal/metrics"
	"github.com/careplanner/backend/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Service fronts a Provider with rate limiting, timeouts and metrics
type Service struct {
	provider Provider
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *zap.Logger
}

// NewService wraps provider. requestsPerMin <= 0 disables rate limiting and
// timeout <= 0 disables the analysis deadline.
func NewService(provider Provider, requestsPerMin int, timeout time.Duration, logger *zap.Logger) *Service {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60), requestsPerMin)
	}

	return &Service{
		provider: provider,
		limiter:  limiter,
		timeout:  timeout,
		logger:   logger,
	}
}

// NewProvider builds the provider selected by cfg.AI.Provider
func NewProvider(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	switch cfg.AI.Provider {
	case ProviderOpenAI:
		client, err := azure.NewOpenAIClient(
			cfg.Azure.OpenAI.Endpoint,
			cfg.Azure.OpenAI.APIKey,
			cfg.Azure.OpenAI.Deployment,
			logger,
			azure.WithAPIVersion(cfg.Azure.OpenAI.APIVersion),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
		}
		logger.Info("Azure OpenAI provider configured", zap.String("deployment", client.Deployment()))
		return NewOpenAIProvider(client, logger), nil
	case ProviderGemini:
		return NewGeminiProvider(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel, cfg.AI.GeminiEndpoint, cfg.AI.Timeout, logger)
	case ProviderNone, "":
		return NewDisabledProvider(), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

// ProviderName returns the name of the configured provider
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// AnalyzeVitals never fails: any provider, parse or validation error yields
// FallbackAnalysis.
func (s *Service) AnalyzeVitals(ctx context.Context, reading model.VitalsReading) model.AIAnalysisResult {
	start := time.Now()

	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Warn("vitals analysis rate limited", zap.Error(err))
		metrics.RecordAIRequest(s.provider.Name(), "analyze", "rate_limited", time.Since(start))
		return FallbackAnalysis()
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.provider.AnalyzeVitals(ctx, reading)
	if err != nil {
		s.logger.Error("vitals analysis failed, using fallback",
			zap.String("provider", s.provider.Name()),
			zap.Int("systolic", reading.Systolic),
			zap.Int("diastolic", reading.Diastolic),
			zap.Int("glucose", reading.Glucose),
			zap.Error(err),
		)
		metrics.RecordAIRequest(s.provider.Name(), "analyze", "fallback", time.Since(start))
		return FallbackAnalysis()
	}

	metrics.RecordAIRequest(s.provider.Name(), "analyze", "success", time.Since(start))
	s.logger.Info("vitals analyzed",
		zap.String("provider", s.provider.Name()),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Duration("duration", time.Since(start)),
	)
	return result
}

// StreamChat starts a CareCoach reply. Cancelling ctx aborts the stream.
func (s *Service) StreamChat(ctx context.Context, history []Turn, message, patientContext string) (Stream, error) {
	start := time.Now()

	if err := s.limiter.Wait(ctx); err != nil {
		metrics.RecordAIRequest(s.provider.Name(), "chat", "rate_limited", time.Since(start))
		return nil, fmt.Errorf("chat rate limited: %w", err)
	}

	stream, err := s.provider.StreamChat(ctx, history, message, patientContext)
	if err != nil {
		s.logger.Error("failed to start chat stream",
			zap.String("provider", s.provider.Name()),
			zap.Int("history_turns", len(history)),
			zap.Error(err),
		)
		metrics.RecordAIRequest(s.provider.Name(), "chat", "error", time.Since(start))
		return nil, err
	}

	return &observedStream{Stream: stream, provider: s.provider.Name(), start: start}, nil
}

// observedStream records the outcome of a chat stream when it is closed
type observedStream struct {
	Stream
	provider string
	start    time.Time
	closed   bool
}

func (s *observedStream) Close() error {
	if !s.closed {
		s.closed = true
		outcome := "success"
		if s.Err() != nil {
			outcome = "error"
		}
		metrics.RecordAIRequest(s.provider, "chat", outcome, time.Since(s.start))
	}
	return s.Stream.Close()
}
