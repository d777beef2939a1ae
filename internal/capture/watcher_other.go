//go:build !linux

package capture

import (
	"context"
	"log/slog"
)

// Watcher is a no-op outside Linux.
type Watcher struct{}

func NewWatcher(*slog.Logger, func(HotplugEvent)) *Watcher { return &Watcher{} }

func (w *Watcher) Start(context.Context) error { return nil }

func (w *Watcher) Stop() {}

func (w *Watcher) Running() bool { return false }
