package azure

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MockBlobStorageClient is an in-memory implementation of BlobStorage for testing
type MockBlobStorageClient struct {
	Storage map[string][]byte
	// FailWith, when set, is returned by every operation
	FailWith error
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewMockBlobStorageClient creates a new mock blob storage client
func NewMockBlobStorageClient(logger *zap.Logger) *MockBlobStorageClient {
	return &MockBlobStorageClient{
		Storage: make(map[string][]byte),
		logger:  logger,
	}
}

// Upload stores data in memory
func (c *MockBlobStorageClient) Upload(ctx context.Context, blobName string, data []byte, contentType string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailWith != nil {
		return "", c.FailWith
	}
	if blobName == "" {
		return "", fmt.Errorf("blob name is required")
	}

	c.Storage[blobName] = bytes.Clone(data)

	if c.logger != nil {
		c.logger.Debug("mock: blob uploaded",
			zap.String("blob_name", blobName),
			zap.String("content_type", contentType),
			zap.Int("size_bytes", len(data)),
		)
	}

	return blobName, nil
}

// Download returns a copy of the stored data
func (c *MockBlobStorageClient) Download(ctx context.Context, blobName string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.FailWith != nil {
		return nil, c.FailWith
	}

	data, exists := c.Storage[blobName]
	if !exists {
		return nil, ErrBlobNotFound
	}

	return bytes.Clone(data), nil
}

// Delete removes a blob from memory
func (c *MockBlobStorageClient) Delete(ctx context.Context, blobName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailWith != nil {
		return c.FailWith
	}

	delete(c.Storage, blobName)
	return nil
}

// UploadPDF stores a PDF under the reports/ prefix
func (c *MockBlobStorageClient) UploadPDF(ctx context.Context, filename string, data []byte) (string, error) {
	return c.Upload(ctx, "reports/"+filename, data, "application/pdf")
}

// Clear removes all data from in-memory storage
func (c *MockBlobStorageClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Storage = make(map[string][]byte)
}

// ListBlobs returns all blob names in storage, sorted
func (c *MockBlobStorageClient) ListBlobs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blobs := make([]string, 0, len(c.Storage))
	for name := range c.Storage {
		blobs = append(blobs, name)
	}
	sort.Strings(blobs)

	return blobs
}
