package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/shelfscan/internal/inventory"
)

// DefaultInventoryDocument is the document the inventory persists to.
const DefaultInventoryDocument = "inventory.json"

// Persister stores the inventory as a JSON array document. It satisfies
// inventory.Persister.
type Persister struct {
	store Store
	name  string
}

// NewPersister returns a persister writing to the named document.
func NewPersister(store Store, name string) (*Persister, error) {
	if name == "" {
		name = DefaultInventoryDocument
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Persister{store: store, name: name}, nil
}

// Name returns the document name.
func (p *Persister) Name() string {
	return p.name
}

// Load returns the stored items. A missing or empty document is an empty
// inventory.
func (p *Persister) Load(ctx context.Context) ([]inventory.Item, error) {
	data, err := p.store.Load(ctx, p.name)
	if errors.Is(err, ErrNotFound) {
		return []inventory.Item{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []inventory.Item{}, nil
	}
	var items []inventory.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.name, err)
	}
	return items, nil
}

// Save replaces the document with items.
func (p *Persister) Save(ctx context.Context, items []inventory.Item) error {
	if items == nil {
		items = []inventory.Item{}
	}
	data, err := Encode(items)
	if err != nil {
		return err
	}
	return p.store.Save(ctx, p.name, data)
}

// Encode renders v the way saved documents are written: two-space indented
// JSON.
func Encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Normalize re-encodes a raw JSON document. Empty input is treated as an
// empty array; malformed input is an error.
func Normalize(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("[]")
	}
	if !json.Valid(raw) {
		return nil, errors.New("document is not valid JSON")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
