package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryBackend keeps artifacts in a map. It backs the memory deployment
// mode and the tests.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBackend constructs an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string][]byte)}
}

// Kind implements Backend.
func (m *MemoryBackend) Kind() string { return "memory" }

// SaveBlob implements Backend.
func (m *MemoryBackend) SaveBlob(ctx context.Context, folder, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := objectKey(folder, name)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return memoryLocator(key), nil
}

// SaveJSON implements Backend.
func (m *MemoryBackend) SaveJSON(ctx context.Context, folder, name string, v any) (string, error) {
	data, err := EncodeJSON(v)
	if err != nil {
		return "", err
	}
	return m.SaveBlob(ctx, folder, name, data)
}

// SaveText implements Backend.
func (m *MemoryBackend) SaveText(ctx context.Context, folder, name, text string) (string, error) {
	return m.SaveBlob(ctx, folder, name, []byte(text))
}

// Locate implements Backend.
func (m *MemoryBackend) Locate(_ context.Context, folder, name string) (string, error) {
	key, err := objectKey(folder, name)
	if err != nil {
		return "", err
	}
	return memoryLocator(key), nil
}

// Load returns a copy of the stored bytes.
func (m *MemoryBackend) Load(_ context.Context, folder, name string) ([]byte, error) {
	key, err := objectKey(folder, name)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Exists implements Backend.
func (m *MemoryBackend) Exists(_ context.Context, folder, name string) (bool, error) {
	key, err := objectKey(folder, name)
	if err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok, nil
}

// Count implements Backend.
func (m *MemoryBackend) Count(_ context.Context, folder string) (int, error) {
	if err := checkFolder(folder); err != nil {
		return 0, err
	}
	prefix := folder + "/"
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for key := range m.blobs {
		if rest, ok := strings.CutPrefix(key, prefix); ok && !strings.Contains(rest, "/") {
			n++
		}
	}
	return n, nil
}

// Keys lists every stored key.
func (m *MemoryBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	return keys
}

func memoryLocator(key string) string {
	return "memory://" + key
}
