package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/careplanner/backend/internal/azure"
	"go.uber.org/zap"
)

// BlobStorage keeps each key as a block blob named kv/<key>.json
type BlobStorage struct {
	blobs  azure.BlobStorage
	logger *zap.Logger
}

var _ Storage = (*BlobStorage)(nil)

// NewBlobStorage wraps an Azure blob client as key/value storage
func NewBlobStorage(blobs azure.BlobStorage, logger *zap.Logger) *BlobStorage {
	return &BlobStorage{blobs: blobs, logger: logger}
}

func blobName(key string) string {
	return fmt.Sprintf("kv/%s.json", key)
}

// GetItem downloads the blob for key
func (b *BlobStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	data, err := b.blobs.Download(ctx, blobName(key))
	if errors.Is(err, azure.ErrBlobNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", key, err)
	}
	return data, nil
}

// SetItem uploads value as the blob for key
func (b *BlobStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if _, err := b.blobs.Upload(ctx, blobName(key), value, "application/json"); err != nil {
		return fmt.Errorf("failed to set item %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the blob for key
func (b *BlobStorage) RemoveItem(ctx context.Context, key string) error {
	if err := b.blobs.Delete(ctx, blobName(key)); err != nil {
		return fmt.Errorf("failed to remove item %s: %w", key, err)
	}
	return nil
}
