// Package inventory keeps the in-memory list of stocked items and persists
// it through an injected Persister.
package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrDuplicateBarcode is returned when adding an item whose barcode is
	// already stocked.
	ErrDuplicateBarcode = errors.New("inventory: item with this barcode already exists")
	// ErrNotFound is returned when no item matches a reference.
	ErrNotFound = errors.New("inventory: item not found")
	// ErrInvalidItem is wrapped by validation failures.
	ErrInvalidItem = errors.New("inventory: invalid item")
)

// Item is one stocked product.
type Item struct {
	Reference string    `json:"reference"`
	Barcode   string    `json:"barcode"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch carries the fields Update changes. Nil fields are left untouched.
type Patch struct {
	Barcode  *string  `json:"barcode,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// Validate checks the item invariants.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Barcode) == "" {
		return fmt.Errorf("%w: barcode is required", ErrInvalidItem)
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if i.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be >= 0", ErrInvalidItem)
	}
	if i.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalidItem)
	}
	return nil
}

// normalize trims fields and folds the name to NFC so visually identical
// names compare equal.
func (i Item) normalize() Item {
	i.Barcode = strings.TrimSpace(i.Barcode)
	i.Name = norm.NFC.String(strings.TrimSpace(i.Name))
	return i
}

func (p Patch) apply(i Item) Item {
	if p.Barcode != nil {
		i.Barcode = *p.Barcode
	}
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	if p.Price != nil {
		i.Price = *p.Price
	}
	return i
}
