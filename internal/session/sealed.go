package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"

	"homestock/internal/repository"
)

// ErrCorrupted is returned for stored values that cannot be decoded or opened.
var ErrCorrupted = errors.New("stored value corrupted")

const nonceSize = 24

// SealedStorage encrypts every value with NaCl secretbox before handing it to the inner
// repository.
type SealedStorage struct {
	inner repository.KeyValueRepository
	key   [32]byte
}

// ParseSealKey decodes a 32-byte key given as 64 hex characters.
func ParseSealKey(s string) ([32]byte, error) {
	var key [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("decode seal key: %w", err)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("seal key must be %d bytes, got %d", len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

func NewSealedStorage(inner repository.KeyValueRepository, key [32]byte) *SealedStorage {
	return &SealedStorage{inner: inner, key: key}
}

func (s *SealedStorage) Init(ctx context.Context) error {
	return s.inner.Init(ctx)
}

func (s *SealedStorage) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%s: %w", key, ErrCorrupted)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrCorrupted)
	}
	return string(opened), nil
}

func (s *SealedStorage) Set(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(box))
}

func (s *SealedStorage) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

var _ repository.KeyValueRepository = (*SealedStorage)(nil)
