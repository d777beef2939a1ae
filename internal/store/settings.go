package store

import (
	"context"
	"database/sql"
	"errors"
)

// Setting keys.
const (
	SettingLastBarcode = "last_barcode"
)

// SettingsRepository stores key/value settings.
type SettingsRepository struct {
	s *Store
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{s: s}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT value FROM settings WHERE key = ?`), key).Scan(&value)
	if err != nil {
		return "", notFound(err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	return err
}

// Delete removes key. Missing keys are not an error.
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM settings WHERE key = ?`), key)
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
