package hook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()
	hookDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(hookDir, 0o755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), data, 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return hookDir
}

func TestManager_Discover(t *testing.T) {
	dir := t.TempDir()
	hookDir := writeManifest(t, dir, Manifest{
		Name:        "beep",
		Version:     "1.0.0",
		Description: "Audible scan feedback",
		Executable:  "beep",
		Events:      []string{EventScanAccepted},
	})

	m := NewManager(dir, nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	hooks := m.List()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}
	h := hooks[0]
	if h.Manifest.Name != "beep" || h.Manifest.Version != "1.0.0" {
		t.Errorf("manifest = %+v", h.Manifest)
	}
	if h.Path != hookDir {
		t.Errorf("Path = %q, want %q", h.Path, hookDir)
	}
	if h.Executable != filepath.Join(hookDir, "beep") {
		t.Errorf("Executable = %q", h.Executable)
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, Manifest{Name: "good", Executable: "run", Events: []string{"*"}})
	writeManifest(t, dir, Manifest{Name: "no-exec"})

	broken := filepath.Join(dir, "broken")
	if err := os.MkdirAll(broken, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(broken, ManifestFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir, nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	hooks := m.List()
	if len(hooks) != 1 || hooks[0].Manifest.Name != "good" {
		t.Errorf("List() = %+v, want only good", hooks)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	for _, dir := range []string{"", filepath.Join(t.TempDir(), "absent")} {
		m := NewManager(dir, nil)
		if err := m.Discover(); err != nil {
			t.Errorf("Discover(%q) error = %v", dir, err)
		}
		if len(m.List()) != 0 {
			t.Errorf("Discover(%q) should find nothing", dir)
		}
	}
}

func TestManager_GetAndFor(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, Manifest{Name: "keyboard", Executable: "keyboard", Events: []string{EventScanAccepted}})
	writeManifest(t, dir, Manifest{Name: "audit", Executable: "audit", Events: []string{"*"}})
	writeManifest(t, dir, Manifest{Name: "stock", Executable: "stock", Events: []string{EventItemAdded, EventItemRemoved}})

	m := NewManager(dir, nil)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Get("keyboard"); err != nil {
		t.Errorf("Get(keyboard) error = %v", err)
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrHookNotFound", err)
	}

	tests := []struct {
		event string
		want  []string
	}{
		{EventScanAccepted, []string{"audit", "keyboard"}},
		{EventItemAdded, []string{"audit", "stock"}},
		{EventItemUpdated, []string{"audit"}},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			hooks := m.For(tt.event)
			if len(hooks) != len(tt.want) {
				t.Fatalf("For(%q) returned %d hooks, want %d", tt.event, len(hooks), len(tt.want))
			}
			for i, h := range hooks {
				if h.Manifest.Name != tt.want[i] {
					t.Errorf("For(%q)[%d] = %s, want %s", tt.event, i, h.Manifest.Name, tt.want[i])
				}
			}
		})
	}
}
