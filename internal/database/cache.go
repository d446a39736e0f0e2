package database

import (
	"context"
	"database/sql"
)

// LoadSlot returns the payload stored under slot, if any.
func (db *DB) LoadSlot(ctx context.Context, slot string) ([]byte, bool, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx, "SELECT payload FROM result_cache WHERE slot = ?", slot).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// SaveSlot overwrites the payload stored under slot.
func (db *DB) SaveSlot(ctx context.Context, slot string, payload []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO result_cache (slot, payload) VALUES (?, ?)
		ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, updated_at = datetime('now')`,
		slot, string(payload),
	)
	return err
}

// ClearSlot removes slot.
func (db *DB) ClearSlot(ctx context.Context, slot string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM result_cache WHERE slot = ?", slot)
	return err
}
