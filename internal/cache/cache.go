// Package cache holds the last successful result set of each client.
//
// A slot holds one ordered sequence of articles. Writes replace the whole
// slot; there is no expiry beyond overwrite.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/TobiSchelling/catalog/internal/articles"
)

// Cache stores result sets by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]articles.Article, bool, error)
	Set(ctx context.Context, key string, data []articles.Article) error
	Clear(ctx context.Context, key string) error
}

// Key builds the slot key for a client session.
func Key(session, slot string) string {
	return session + ":" + slot
}

// Memory is an in-process Cache. Stored sequences are serialized, so callers
// never share backing arrays with the cache.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

// Get returns a copy of the result set stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]articles.Article, bool, error) {
	m.mu.RLock()
	payload, ok := m.slots[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return decode(payload)
}

// Set overwrites the slot under key with a copy of data.
func (m *Memory) Set(_ context.Context, key string, data []articles.Article) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.slots[key] = payload
	m.mu.Unlock()
	return nil
}

// Clear removes the slot under key.
func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.slots, key)
	m.mu.Unlock()
	return nil
}

func encode(data []articles.Article) ([]byte, error) {
	if data == nil {
		data = []articles.Article{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding result set: %w", err)
	}
	return payload, nil
}

func decode(payload []byte) ([]articles.Article, bool, error) {
	var data []articles.Article
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, false, fmt.Errorf("decoding result set: %w", err)
	}
	return data, true, nil
}
