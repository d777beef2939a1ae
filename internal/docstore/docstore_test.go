package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/shelfscan/internal/inventory"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "inventory.json", false},
		{"dashes", "stock-2026.json", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"slash", "a/b.json", true},
		{"backslash", `a\b.json`, true},
		{"traversal", "..", true},
		{"embedded traversal", "a..json", true},
		{"hidden", ".secret", true},
		{"nul", "a\x00b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidName) {
				t.Errorf("error %v should wrap ErrInvalidName", err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Local")
	s, err := Open(context.Background(), Config{Root: root})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.Driver() != DriverFilesystem {
		t.Errorf("Driver() = %q, want fs", s.Driver())
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("root should be created: %v", err)
	}

	mem, err := Open(context.Background(), Config{Driver: "MEMORY"})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if mem.Driver() != DriverMemory {
		t.Errorf("Driver() = %q, want memory", mem.Driver())
	}

	if _, err := Open(context.Background(), Config{Driver: "ftp"}); err == nil {
		t.Error("Open() unknown driver should fail")
	}
	if _, err := Open(context.Background(), Config{Driver: "s3"}); err == nil {
		t.Error("Open(s3) without a bucket should fail")
	}
}

// storeContract runs the behaviour every driver must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, "inventory.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() missing error = %v, want ErrNotFound", err)
	}

	if err := s.Save(ctx, "inventory.json", []byte(`[1]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, "inventory.json", []byte(`[1, 2]`)); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}
	got, err := s.Load(ctx, "inventory.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != `[1, 2]` {
		t.Errorf("Load() = %q, want overwritten content", got)
	}

	if err := s.Save(ctx, "alpha.json", []byte(`{}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	docs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 2 || docs[0].Name != "alpha.json" || docs[1].Name != "inventory.json" {
		t.Fatalf("List() = %+v", docs)
	}
	if docs[1].Size != int64(len(`[1, 2]`)) {
		t.Errorf("Size = %d", docs[1].Size)
	}

	removed, err := s.Delete(ctx, "alpha.json")
	if err != nil || !removed {
		t.Fatalf("Delete() = %v, %v; want true, nil", removed, err)
	}
	removed, err = s.Delete(ctx, "alpha.json")
	if err != nil || removed {
		t.Errorf("Delete() missing = %v, %v; want false, nil", removed, err)
	}

	if err := s.Save(ctx, "../escape.json", []byte(`[]`)); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Save() traversal error = %v, want ErrInvalidName", err)
	}
	if _, err := s.Load(ctx, "a/b"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Load() separator error = %v, want ErrInvalidName", err)
	}
}

func TestFilesystemStore(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem() error = %v", err)
	}
	storeContract(t, s)
}

func TestFilesystemStore_NoTempFilesLeft(t *testing.T) {
	root := t.TempDir()
	s, err := NewFilesystem(root)
	if err != nil {
		t.Fatalf("NewFilesystem() error = %v", err)
	}
	if err := s.Save(context.Background(), "a.json", []byte(`[]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("root entries = %v, want only a.json", names)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemory())
}

func TestMemoryStore_CopiesData(t *testing.T) {
	s := NewMemory()
	data := []byte(`[1]`)
	if err := s.Save(context.Background(), "a.json", data); err != nil {
		t.Fatal(err)
	}
	data[1] = '9'
	got, _ := s.Load(context.Background(), "a.json")
	if string(got) != `[1]` {
		t.Errorf("stored data aliased caller slice: %q", got)
	}
}

func TestPersister(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	p, err := NewPersister(store, "")
	if err != nil {
		t.Fatalf("NewPersister() error = %v", err)
	}

	items, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load() missing document error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Load() missing document = %+v, want empty", items)
	}

	if err := store.Save(ctx, DefaultInventoryDocument, []byte("  \n")); err != nil {
		t.Fatal(err)
	}
	if items, err := p.Load(ctx); err != nil || len(items) != 0 {
		t.Errorf("Load() empty document = %+v, %v", items, err)
	}

	inv := inventory.NewStore(p, nil)
	added, err := inv.Add(ctx, inventory.Item{Barcode: "4006381333931", Name: "Pen", Quantity: 3, Price: 1.25})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	raw, err := store.Load(ctx, DefaultInventoryDocument)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != '[' || raw[1] != '\n' || raw[2] != ' ' || raw[3] != ' ' {
		t.Errorf("document should be two-space indented JSON, got %q", raw)
	}

	reloaded := inventory.NewStore(p, nil)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, err := reloaded.Get(added.Reference)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Barcode != added.Barcode || got.Quantity != 3 {
		t.Errorf("reloaded = %+v", got)
	}

	if err := store.Save(ctx, DefaultInventoryDocument, []byte("{broken")); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load(ctx); err == nil {
		t.Error("Load() malformed document should fail")
	}

	if _, err := NewPersister(store, "../x"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("NewPersister() bad name error = %v", err)
	}
}

func TestPersister_ClientShapedDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	p, err := NewPersister(store, "")
	if err != nil {
		t.Fatal(err)
	}

	legacy := `[{"barcode":"111","name":"a","quantity":1,"price":2},{"barcode":"222","name":"b","quantity":0,"price":0}]`
	if err := store.Save(ctx, DefaultInventoryDocument, []byte(legacy)); err != nil {
		t.Fatal(err)
	}
	inv := inventory.NewStore(p, nil)
	if err := inv.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	items := inv.List()
	if len(items) != 2 || items[0].Reference == "" || items[1].Reference == "" {
		t.Fatalf("items after Load = %+v", items)
	}
	if _, err := inv.Get(items[0].Reference); err != nil {
		t.Errorf("item not addressable by its assigned reference: %v", err)
	}

	// The assigned references survive a restart.
	again := inventory.NewStore(p, nil)
	if err := again.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if again.List()[0].Reference != items[0].Reference {
		t.Errorf("reference changed across reloads: %q -> %q", items[0].Reference, again.List()[0].Reference)
	}

	dup := `[{"barcode":"111","name":"a"},{"barcode":"111","name":"b"}]`
	if err := store.Save(ctx, DefaultInventoryDocument, []byte(dup)); err != nil {
		t.Fatal(err)
	}
	if err := inventory.NewStore(p, nil).Load(ctx); !errors.Is(err, inventory.ErrDuplicateBarcode) {
		t.Errorf("Load() duplicate barcodes error = %v, want ErrDuplicateBarcode", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty", "", "[]", false},
		{"whitespace", " \n", "[]", false},
		{"object", `{"a":1}`, "{\n  \"a\": 1\n}", false},
		{"array", `[1,2]`, "[\n  1,\n  2\n]", false},
		{"malformed", `{"a":`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithObserver(t *testing.T) {
	type call struct {
		op      string
		success bool
	}
	var calls []call
	s := WithObserver(NewMemory(), func(_ context.Context, op string, success bool, _ time.Duration) {
		calls = append(calls, call{op, success})
	})
	ctx := context.Background()

	_, _ = s.Load(ctx, "missing.json")
	_ = s.Save(ctx, "a.json", []byte(`[]`))
	_ = s.Save(ctx, "../bad", nil)
	_, _ = s.List(ctx)
	_, _ = s.Delete(ctx, "a.json")

	want := []call{
		{"docstore.load", true},
		{"docstore.save", true},
		{"docstore.save", false},
		{"docstore.list", true},
		{"docstore.delete", true},
	}
	if len(calls) != len(want) {
		t.Fatalf("observed %d calls, want %d: %+v", len(calls), len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call[%d] = %+v, want %+v", i, calls[i], want[i])
		}
	}
	if s.Driver() != DriverMemory {
		t.Errorf("Driver() = %q through the wrapper", s.Driver())
	}

	plain := NewMemory()
	if WithObserver(plain, nil) != Store(plain) {
		t.Error("nil observer should return the store unchanged")
	}
}
