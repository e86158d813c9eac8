package azure

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned when a blob does not exist in the container
var ErrBlobNotFound = errors.New("blob not found")

// BlobStorage defines the interface for blob storage operations
// This interface allows for easier testing with mock implementations
type BlobStorage interface {
	Upload(ctx context.Context, blobName string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, blobName string) ([]byte, error)
	Delete(ctx context.Context, blobName string) error
	UploadPDF(ctx context.Context, filename string, data []byte) (string, error)
}

// Ensure BlobStorageClient implements BlobStorage interface
var _ BlobStorage = (*BlobStorageClient)(nil)
var _ BlobStorage = (*MockBlobStorageClient)(nil)
