// Package keyring holds secrets such as API keys behind a small save/retrieve/delete contract.
package keyring

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound    = errors.New("keyring: item not found")
	ErrInvalidData = errors.New("keyring: invalid data")
)

type Store interface {
	Save(ctx context.Context, key, value string) error
	Retrieve(ctx context.Context, key string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Memory keeps secrets in process memory only.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = value
	return nil
}

func (m *Memory) Retrieve(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}
