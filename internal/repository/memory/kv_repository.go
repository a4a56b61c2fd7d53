package memory

import (
	"context"
	"sync"

	"homestock/internal/repository"
)

// KeyValueRepository keeps values in process memory only.
type KeyValueRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewKeyValueRepository() *KeyValueRepository {
	return &KeyValueRepository{values: make(map[string]string)}
}

func (r *KeyValueRepository) Init(context.Context) error { return nil }

func (r *KeyValueRepository) Get(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (r *KeyValueRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *KeyValueRepository) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.values, k)
	}
	return nil
}

var _ repository.KeyValueRepository = (*KeyValueRepository)(nil)
