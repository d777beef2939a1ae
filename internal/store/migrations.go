package store

import "context"

// runMigrations executes all database migrations. The DDL sticks to types
// both SQLite and Postgres accept.
func (s *Store) runMigrations(ctx context.Context) error {
	migrations := []string{
		// Items table - one row per stocked product
		`CREATE TABLE IF NOT EXISTS items (
			reference TEXT PRIMARY KEY,
			barcode TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0 CHECK(quantity >= 0),
			price DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK(price >= 0),
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		// Scans table - history of accepted detections
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			barcode TEXT NOT NULL,
			format TEXT NOT NULL,
			existing INTEGER NOT NULL DEFAULT 0,
			scanned_at TIMESTAMP NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_scans_scanned_at ON scans(scanned_at)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_barcode ON scans(barcode)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}
