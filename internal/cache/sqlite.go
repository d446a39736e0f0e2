package cache

import (
	"context"

	"github.com/TobiSchelling/catalog/internal/articles"
)

// SlotStore is the persistence used by SQLite. *database.DB implements it.
type SlotStore interface {
	LoadSlot(ctx context.Context, slot string) ([]byte, bool, error)
	SaveSlot(ctx context.Context, slot string, payload []byte) error
	ClearSlot(ctx context.Context, slot string) error
}

// SQLite keeps slots in the local database so they survive restarts.
type SQLite struct {
	store SlotStore
}

// NewSQLite creates a cache on top of store.
func NewSQLite(store SlotStore) *SQLite {
	return &SQLite{store: store}
}

// Get returns the result set stored under key. A missing slot is a miss,
// not an error.
func (c *SQLite) Get(ctx context.Context, key string) ([]articles.Article, bool, error) {
	payload, ok, err := c.store.LoadSlot(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return decode(payload)
}

// Set overwrites the slot under key with data.
func (c *SQLite) Set(ctx context.Context, key string, data []articles.Article) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}
	return c.store.SaveSlot(ctx, key, payload)
}

// Clear removes the slot under key.
func (c *SQLite) Clear(ctx context.Context, key string) error {
	return c.store.ClearSlot(ctx, key)
}
