package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Scan is one accepted detection in the history.
type Scan struct {
	ID        string    `json:"id"`
	Barcode   string    `json:"barcode"`
	Format    string    `json:"format"`
	Existing  bool      `json:"existing"`
	ScannedAt time.Time `json:"scannedAt"`
}

// ScanRepository records accepted scans.
type ScanRepository struct {
	s *Store
}

// Scans returns the scan repository for this store.
func (s *Store) Scans() *ScanRepository {
	return &ScanRepository{s: s}
}

// Record inserts a scan. ID and ScannedAt are filled in when empty.
func (r *ScanRepository) Record(ctx context.Context, scan *Scan) error {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now().UTC()
	}

	existing := 0
	if scan.Existing {
		existing = 1
	}

	_, err := r.s.db.ExecContext(ctx, r.s.rebind(
		`INSERT INTO scans (id, barcode, format, existing, scanned_at) VALUES (?, ?, ?, ?, ?)`),
		scan.ID, scan.Barcode, scan.Format, existing, scan.ScannedAt.UTC(),
	)
	return err
}

// Recent returns up to limit scans, newest first.
func (r *ScanRepository) Recent(ctx context.Context, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(
		`SELECT id, barcode, format, existing, scanned_at
		 FROM scans ORDER BY scanned_at DESC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := []Scan{}
	for rows.Next() {
		var sc Scan
		var existing int
		if err := rows.Scan(&sc.ID, &sc.Barcode, &sc.Format, &existing, &sc.ScannedAt); err != nil {
			return nil, err
		}
		sc.Existing = existing != 0
		scans = append(scans, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scans, nil
}

// Count returns how many times barcode was scanned.
func (r *ScanRepository) Count(ctx context.Context, barcode string) (int, error) {
	var n int
	err := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT COUNT(*) FROM scans WHERE barcode = ?`), barcode).Scan(&n)
	return n, err
}
