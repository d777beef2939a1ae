package store

import (
	"context"
	"fmt"

	"github.com/ayusman/shelfscan/internal/inventory"
)

// ItemRepository persists the inventory. It implements inventory.Persister
// by replacing the stored snapshot inside one transaction.
type ItemRepository struct {
	s *Store
}

var _ inventory.Persister = (*ItemRepository)(nil)

// Items returns the item repository for this store.
func (s *Store) Items() *ItemRepository {
	return &ItemRepository{s: s}
}

// Load returns all items in their stored order.
func (r *ItemRepository) Load(ctx context.Context) ([]inventory.Item, error) {
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT reference, barcode, name, quantity, price, created_at, updated_at
		 FROM items ORDER BY position, created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		var it inventory.Item
		if err := rows.Scan(&it.Reference, &it.Barcode, &it.Name, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Save replaces the stored items with items.
func (r *ItemRepository) Save(ctx context.Context, items []inventory.Item) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, r.s.rebind(
		`INSERT INTO items (reference, barcode, name, quantity, price, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx,
			it.Reference, it.Barcode, it.Name, it.Quantity, it.Price, i, it.CreatedAt.UTC(), it.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert item %s: %w", it.Barcode, err)
		}
	}

	return tx.Commit()
}

// GetByBarcode retrieves a single item.
func (r *ItemRepository) GetByBarcode(ctx context.Context, barcode string) (*inventory.Item, error) {
	var it inventory.Item
	err := r.s.db.QueryRowContext(ctx, r.s.rebind(
		`SELECT reference, barcode, name, quantity, price, created_at, updated_at
		 FROM items WHERE barcode = ?`),
		barcode,
	).Scan(&it.Reference, &it.Barcode, &it.Name, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &it, nil
}
