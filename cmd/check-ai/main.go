// Command check-ai exercises the configured AI provider and blob storage
// with live credentials. It reads the same configuration as the server.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/careplanner/backend/internal/ai"
	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/internal/chat"
	"github.com/careplanner/backend/internal/config"
	"github.com/careplanner/backend/pkg/model"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	failed := false

	logger.Info("=== Testing AI provider ===", zap.String("provider", cfg.AI.Provider))
	if err := testProvider(ctx, cfg, logger); err != nil {
		logger.Error("AI provider test failed", zap.Error(err))
		failed = true
	} else {
		logger.Info("✅ AI provider test passed")
	}

	if cfg.Azure.Storage.Configured() {
		logger.Info("=== Testing Azure Blob Storage Client ===")
		if err := testBlobStorageClient(ctx, cfg, logger); err != nil {
			logger.Error("Blob storage client test failed", zap.Error(err))
			failed = true
		} else {
			logger.Info("✅ Blob storage client test passed")
		}
	} else {
		logger.Info("Azure Storage credentials not set, skipping blob test")
	}

	logger.Info("=== All tests completed ===")
	if failed {
		os.Exit(1)
	}
}

func testProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	provider, err := ai.NewProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	if provider.Name() == ai.ProviderNone {
		return fmt.Errorf("ai.provider is %q; set AI_PROVIDER to openai or gemini", ai.ProviderNone)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.AI.Timeout)
	defer cancel()

	if pinger, ok := provider.(ai.Pinger); ok {
		logger.Info("Testing plain completion")
		reply, err := pinger.Ping(ctx)
		if err != nil {
			return fmt.Errorf("plain completion failed: %w", err)
		}
		logger.Info("Completion received", zap.String("reply", reply))
	}

	reading := model.VitalsReading{Systolic: 150, Diastolic: 95, Glucose: 160}
	logger.Info("Testing vitals analysis",
		zap.Int("systolic", reading.Systolic),
		zap.Int("diastolic", reading.Diastolic),
		zap.Int("glucose", reading.Glucose),
	)

	analysis, err := provider.AnalyzeVitals(ctx, reading)
	if err != nil {
		return fmt.Errorf("vitals analysis failed: %w", err)
	}
	logger.Info("Analysis received",
		zap.String("risk_level", string(analysis.RiskLevel)),
		zap.String("patient_advice", analysis.PatientAdvice),
		zap.Int("action_items", len(analysis.ActionPlan)),
	)

	logger.Info("Testing streamed chat")
	stream, err := provider.StreamChat(ctx, nil, "In one sentence, what is a normal resting blood pressure?", "")
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer stream.Close()

	chunks := 0
	reply, err := chat.Collect(stream, func(string) { chunks++ })
	if err != nil {
		return fmt.Errorf("chat stream failed after %d chunks: %w", chunks, err)
	}
	if strings.TrimSpace(reply) == "" {
		return fmt.Errorf("chat reply is empty")
	}

	logger.Info("Chat reply received",
		zap.Int("chunks", chunks),
		zap.Int("reply_length", len(reply)),
		zap.String("reply", reply),
	)
	return nil
}

func testBlobStorageClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	container := cfg.Azure.Storage.ReportContainer
	if container == "" {
		container = cfg.Azure.Storage.StateContainer
	}

	client, err := azure.NewBlobStorageClient(
		cfg.Azure.Storage.AccountName,
		cfg.Azure.Storage.AccountKey,
		container,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create Blob Storage client: %w", err)
	}
	if err := client.EnsureContainer(ctx); err != nil {
		return err
	}

	testPDFData := []byte("%PDF-1.4\nTest PDF content")
	testPDFFilename := fmt.Sprintf("check-%d.pdf", time.Now().Unix())

	logger.Info("Testing PDF upload", zap.String("container", container), zap.String("filename", testPDFFilename))

	blobName, err := client.UploadPDF(ctx, testPDFFilename, testPDFData)
	if err != nil {
		return fmt.Errorf("PDF upload failed: %w", err)
	}
	logger.Info("PDF uploaded successfully", zap.String("blob_name", blobName))

	downloaded, err := client.Download(ctx, blobName)
	if err != nil {
		return fmt.Errorf("PDF download failed: %w", err)
	}
	if !bytes.Equal(downloaded, testPDFData) {
		return fmt.Errorf("downloaded PDF doesn't match uploaded PDF")
	}
	logger.Info("PDF downloaded and verified successfully", zap.Int("size_bytes", len(downloaded)))

	if err := client.Delete(ctx, blobName); err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	logger.Info("Test blob deleted", zap.String("blob_name", blobName))

	return nil
}
