package kvstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/careplanner/backend/internal/security"
)

const sealedAlgorithm = "AES-256-GCM"

// sealedEnvelope keeps sealed values valid JSON for the postgres driver
type sealedEnvelope struct {
	Alg  string `json:"alg"`
	Data string `json:"data"`
}

// SealedStorage encrypts values before they reach the wrapped storage
type SealedStorage struct {
	next      Storage
	encryptor *security.Encryptor
}

var _ Storage = (*SealedStorage)(nil)

// NewSealedStorage wraps next so every value is AES-GCM sealed at rest
func NewSealedStorage(next Storage, encryptor *security.Encryptor) *SealedStorage {
	return &SealedStorage{next: next, encryptor: encryptor}
}

// GetItem reads and opens the sealed value
func (s *SealedStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.next.GetItem(ctx, key)
	if err != nil {
		return nil, err
	}

	var env sealedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Alg != sealedAlgorithm {
		return nil, fmt.Errorf("item %s is not sealed", key)
	}

	plaintext, err := s.encryptor.Decrypt(env.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to open item %s: %w", key, err)
	}
	return []byte(plaintext), nil
}

// SetItem seals value and stores the envelope
func (s *SealedStorage) SetItem(ctx context.Context, key string, value []byte) error {
	data, err := s.encryptor.Encrypt(string(value))
	if err != nil {
		return fmt.Errorf("failed to seal item %s: %w", key, err)
	}

	env, err := json.Marshal(sealedEnvelope{Alg: sealedAlgorithm, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", key, err)
	}

	return s.next.SetItem(ctx, key, env)
}

// RemoveItem removes key from the wrapped storage
func (s *SealedStorage) RemoveItem(ctx context.Context, key string) error {
	return s.next.RemoveItem(ctx, key)
}
