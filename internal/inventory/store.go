package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/shelfscan/internal/logging"
)

// Persister loads and saves the full item list.
type Persister interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
}

// Observer is notified after every committed mutation. It runs with the
// store locked and must not call back into the store.
type Observer func(op string, item Item)

// Mutation names passed to observers.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
	// OpReplace is reported with a zero Item after Replace.
	OpReplace = "replace"
)

// Store is the inventory. Mutations are applied in memory, persisted, and
// rolled back if the persister fails.
type Store struct {
	persister Persister
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	items     []Item
	observers []Observer
}

// NewStore creates an empty store. A nil persister keeps items in memory
// only.
func NewStore(persister Persister, logger *slog.Logger) *Store {
	return &Store{
		persister: persister,
		logger:    logging.NewComponentLogger(logger, "inventory"),
		now:       time.Now,
	}
}

// Observe registers fn for committed mutations.
func (s *Store) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Load replaces the in-memory list with the persisted one. Items without a
// reference get one; an invalid item or a repeated barcode or reference
// rejects the whole load and keeps the current items.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	items, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prepared, assigned, err := s.prepare(items)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	s.items = prepared
	if assigned > 0 {
		if err := s.persister.Save(ctx, cloneItems(prepared)); err != nil {
			s.logger.Warn("saving assigned references failed", logging.Error(err))
		}
	}
	s.logger.Info("inventory loaded", slog.Int("items", len(prepared)), slog.Int("assigned_references", assigned))
	return nil
}

// Replace swaps the whole inventory for items, validated like Load, and
// persists it. It returns the stored items.
func (s *Store) Replace(ctx context.Context, items []Item) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepared, _, err := s.prepare(items)
	if err != nil {
		return nil, err
	}
	if err := s.commitLocked(ctx, s.items, prepared); err != nil {
		return nil, err
	}
	s.notifyLocked(OpReplace, Item{})
	return cloneItems(prepared), nil
}

// prepare normalizes and validates a full item list, assigning references
// and timestamps where missing. It reports how many references it assigned.
func (s *Store) prepare(items []Item) ([]Item, int, error) {
	now := s.now().UTC()
	out := make([]Item, 0, len(items))
	barcodes := make(map[string]int, len(items))
	references := make(map[string]int, len(items))
	assigned := 0
	for i, item := range items {
		item = item.normalize()
		if err := item.Validate(); err != nil {
			return nil, 0, fmt.Errorf("item %d: %w", i, err)
		}
		if first, ok := barcodes[item.Barcode]; ok {
			return nil, 0, fmt.Errorf("items %d and %d share barcode %q: %w", first, i, item.Barcode, ErrDuplicateBarcode)
		}
		barcodes[item.Barcode] = i

		item.Reference = strings.TrimSpace(item.Reference)
		if item.Reference == "" {
			item.Reference = uuid.NewString()
			assigned++
		}
		if first, ok := references[item.Reference]; ok {
			return nil, 0, fmt.Errorf("%w: items %d and %d share reference %q", ErrInvalidItem, first, i, item.Reference)
		}
		references[item.Reference] = i

		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = item.CreatedAt
		}
		out = append(out, item)
	}
	return out, assigned, nil
}

// List returns a copy of all items in insertion order.
func (s *Store) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the item with the given reference.
func (s *Store) Get(reference string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(reference)
	if idx < 0 {
		return Item{}, ErrNotFound
	}
	return s.items[idx], nil
}

// FindByBarcode returns the item stocked under barcode.
func (s *Store) FindByBarcode(barcode string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOfBarcode(strings.TrimSpace(barcode), "")
	if idx < 0 {
		return Item{}, false
	}
	return s.items[idx], true
}

// Exists reports whether an item with barcode is stocked.
func (s *Store) Exists(barcode string) bool {
	_, ok := s.FindByBarcode(barcode)
	return ok
}

// Add stocks a new item. The reference and timestamps are assigned here.
func (s *Store) Add(ctx context.Context, item Item) (Item, error) {
	item = item.normalize()
	if err := item.Validate(); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfBarcode(item.Barcode, "") >= 0 {
		return Item{}, ErrDuplicateBarcode
	}

	now := s.now().UTC()
	item.Reference = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now

	previous := s.items
	next := append(cloneItems(previous), item)
	if err := s.commitLocked(ctx, previous, next); err != nil {
		return Item{}, err
	}
	s.notifyLocked(OpAdd, item)
	return item, nil
}

// Update applies patch to the item with the given reference.
func (s *Store) Update(ctx context.Context, reference string, patch Patch) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(reference)
	if idx < 0 {
		return Item{}, ErrNotFound
	}

	updated := patch.apply(s.items[idx]).normalize()
	if err := updated.Validate(); err != nil {
		return Item{}, err
	}
	if s.indexOfBarcode(updated.Barcode, reference) >= 0 {
		return Item{}, ErrDuplicateBarcode
	}
	updated.UpdatedAt = s.now().UTC()

	previous := s.items
	next := cloneItems(previous)
	next[idx] = updated
	if err := s.commitLocked(ctx, previous, next); err != nil {
		return Item{}, err
	}
	s.notifyLocked(OpUpdate, updated)
	return updated, nil
}

// Remove deletes the item with the given reference.
func (s *Store) Remove(ctx context.Context, reference string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(reference)
	if idx < 0 {
		return Item{}, ErrNotFound
	}
	removed := s.items[idx]

	previous := s.items
	next := make([]Item, 0, len(previous)-1)
	next = append(next, previous[:idx]...)
	next = append(next, previous[idx+1:]...)
	if err := s.commitLocked(ctx, previous, next); err != nil {
		return Item{}, err
	}
	s.notifyLocked(OpRemove, removed)
	return removed, nil
}

// commitLocked installs next, persists it, and restores previous if the
// save fails.
func (s *Store) commitLocked(ctx context.Context, previous, next []Item) error {
	s.items = next
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, cloneItems(next)); err != nil {
		s.items = previous
		s.logger.Error("inventory save failed; change rolled back", logging.Error(err))
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

func (s *Store) notifyLocked(op string, item Item) {
	for _, fn := range s.observers {
		fn(op, item)
	}
}

func (s *Store) indexOf(reference string) int {
	for i, item := range s.items {
		if item.Reference == reference {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfBarcode(barcode, exceptReference string) int {
	for i, item := range s.items {
		if item.Barcode == barcode && item.Reference != exceptReference {
			return i
		}
	}
	return -1
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
