package upload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryStorage keeps uploaded objects in memory. It backs the memory store
// mode and tests.
type MemoryStorage struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemoryStorage returns storage whose public URLs start with baseURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// Put implements Storage.
func (m *MemoryStorage) Put(ctx context.Context, obj Object) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return Stored{}, fmt.Errorf("upload: memory read: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
		m.types = make(map[string]string)
	}
	m.objects[obj.Path] = data
	m.types[obj.Path] = obj.ContentType
	return Stored{Path: obj.Path, PublicURL: m.BaseURL + "/" + obj.Path}, nil
}

// Object returns a stored object and its content type.
func (m *MemoryStorage) Object(path string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	return data, m.types[path], ok
}

// Len reports how many objects were stored.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
