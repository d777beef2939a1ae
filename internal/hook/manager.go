package hook

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ayusman/shelfscan/internal/logging"
)

// ErrHookNotFound is returned when a requested hook is not discovered.
var ErrHookNotFound = errors.New("hook not found")

// Manager discovers hooks under a directory.
type Manager struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	hooks map[string]*Hook
}

// NewManager creates a manager for dir.
func NewManager(dir string, logger *slog.Logger) *Manager {
	return &Manager{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "hook"),
		hooks:  make(map[string]*Hook),
	}
}

// Discover reloads every <dir>/<name>/hook.json. A missing directory yields
// no hooks. Unreadable or invalid manifests are skipped with a warning.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[string]*Hook)
	if m.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		hookPath := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(hookPath, ManifestFile))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			m.logger.Warn("hook manifest unreadable", slog.String("path", hookPath), logging.Error(err))
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			m.logger.Warn("hook manifest invalid", slog.String("path", hookPath), logging.Error(err))
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			m.logger.Warn("hook manifest missing name or executable", slog.String("path", hookPath))
			continue
		}

		m.hooks[manifest.Name] = &Hook{
			Manifest:   manifest,
			Path:       hookPath,
			Executable: filepath.Join(hookPath, manifest.Executable),
		}
	}

	m.logger.Info("hooks discovered", slog.Int("count", len(m.hooks)), slog.String("dir", m.dir))
	return nil
}

// Get returns a hook by name.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns all hooks sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hooks := make([]*Hook, 0, len(m.hooks))
	for _, h := range m.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Manifest.Name < hooks[j].Manifest.Name })
	return hooks
}

// For returns the hooks subscribed to event, sorted by name.
func (m *Manager) For(event string) []*Hook {
	var matched []*Hook
	for _, h := range m.List() {
		if h.Handles(event) {
			matched = append(matched, h)
		}
	}
	return matched
}

// Dir returns the hook directory.
func (m *Manager) Dir() string {
	return m.dir
}
