// Package kvstore provides the string-keyed blob storage that backs the
// domain store and the chat transcript. Every driver stores whole JSON
// documents under a key; callers own serialization.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetItem when the key has no value
var ErrNotFound = errors.New("kvstore: key not found")

// Storage is a persistent key/value store of JSON documents
type Storage interface {
	// GetItem returns the stored value or ErrNotFound
	GetItem(ctx context.Context, key string) ([]byte, error)
	// SetItem replaces the value stored under key
	SetItem(ctx context.Context, key string, value []byte) error
	// RemoveItem deletes key; removing an absent key is not an error
	RemoveItem(ctx context.Context, key string) error
}

// Driver names accepted by Open
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverBlob     = "blob"
)
