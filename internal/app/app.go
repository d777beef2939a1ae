// Package app ties the camera session, the scan controller and the
// inventory together into the scan workflow used by the CLI, the HTTP API
// and the tray.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/decoder"
	"github.com/ayusman/shelfscan/internal/hook"
	"github.com/ayusman/shelfscan/internal/inventory"
	"github.com/ayusman/shelfscan/internal/logging"
	"github.com/ayusman/shelfscan/internal/metrics"
	"github.com/ayusman/shelfscan/internal/scanner"
	"github.com/ayusman/shelfscan/internal/store"
)

// Event types published to subscribers.
const (
	EventScanStarted   = "scan.started"
	EventScanAccepted  = "scan.accepted"
	EventScanFailed    = "scan.failed"
	EventScanCancelled = "scan.cancelled"
)

// Event describes a scan lifecycle change.
type Event struct {
	Type     string    `json:"type"`
	Barcode  string    `json:"barcode,omitempty"`
	Format   string    `json:"format,omitempty"`
	Existing bool      `json:"existing,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// ScanLog records accepted scans. *store.ScanRepository satisfies it.
type ScanLog interface {
	Record(ctx context.Context, scan *store.Scan) error
}

// Settings persists small key/value pairs. *store.SettingsRepository
// satisfies it.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Config wires the collaborators. Devices, Decoder and Inventory are the
// essentials; the rest are optional.
type Config struct {
	Devices     capture.MediaDevices
	Constraints capture.Constraints
	Facing      capture.Facing
	Surface     capture.Surface

	Factory decoder.Factory
	Decoder decoder.Config
	// Timeout bounds one scan; zero waits until cancelled.
	Timeout time.Duration

	Inventory *inventory.Store
	Scans     ScanLog
	Settings  Settings
	Hooks     *hook.Dispatcher
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
}

// Pending is the barcode of the last accepted scan, kept to prefill the
// add-item form until it is used or cleared.
type Pending struct {
	Barcode  string    `json:"barcode"`
	Format   string    `json:"format"`
	Existing bool      `json:"existing"`
	At       time.Time `json:"at"`
}

// App runs one scan at a time.
type App struct {
	cfg        Config
	session    *capture.Session
	controller *scanner.Controller
	logger     *slog.Logger

	mu       sync.Mutex
	scanning bool
	cancel   context.CancelFunc
	pending  *Pending
	closed   bool

	subMu       sync.RWMutex
	subscribers map[int]func(Event)
	nextSub     int

	hooks sync.WaitGroup
}

// New builds an App. If an inventory is configured its mutations feed the
// metrics and the item hooks.
func New(cfg Config) *App {
	logger := logging.NewComponentLogger(cfg.Logger, "app")
	if cfg.Facing == "" {
		cfg.Facing = capture.FacingEnvironment
	}
	a := &App{
		cfg: cfg,
		session: capture.NewSession(capture.SessionConfig{
			Devices:     cfg.Devices,
			Constraints: cfg.Constraints,
			Surface:     cfg.Surface,
			Logger:      logging.NewComponentLogger(cfg.Logger, "capture"),
		}),
		controller:  scanner.New(cfg.Factory, cfg.Logger),
		logger:      logger,
		subscribers: make(map[int]func(Event)),
	}
	if cfg.Inventory != nil {
		cfg.Inventory.Observe(a.inventoryChanged)
	}
	return a
}

// Session returns the camera session.
func (a *App) Session() *capture.Session { return a.session }

// Controller returns the scan controller.
func (a *App) Controller() *scanner.Controller { return a.controller }

// Inventory returns the inventory store.
func (a *App) Inventory() *inventory.Store { return a.cfg.Inventory }

// SetSurface replaces the presentation surface shown while the camera is
// open.
func (a *App) SetSurface(surface capture.Surface) {
	a.session.SetSurface(surface)
}

// Sink returns the live video sink for previews, or nil when no scan runs.
func (a *App) Sink() *capture.Sink {
	return a.session.Sink()
}

// Scanning reports whether a scan is in progress.
func (a *App) Scanning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scanning
}

// Pending returns the last accepted barcode awaiting an add.
func (a *App) Pending() (Pending, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return Pending{}, false
	}
	return *a.pending, true
}

// ClearPending forgets the pending barcode.
func (a *App) ClearPending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
}

// Cancel stops the running scan, if any, and releases the camera. It
// reports whether a scan was running.
func (a *App) Cancel() bool {
	a.mu.Lock()
	cancel := a.cancel
	running := a.scanning
	a.mu.Unlock()

	a.controller.Stop()
	if err := a.session.Close(); err != nil {
		a.logger.Warn("closing camera session failed", logging.Error(err))
	}
	if cancel != nil {
		cancel()
	}
	return running
}

// Subscribe registers fn for scan events and returns an unsubscribe func.
// fn is called synchronously and must not block.
func (a *App) Subscribe(fn func(Event)) (unsubscribe func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = fn
	return func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subscribers, id)
	}
}

// Close cancels any scan and waits for running hooks. Events after Close
// no longer start hooks.
func (a *App) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.Cancel()
	a.hooks.Wait()
}

func (a *App) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	a.subMu.RLock()
	defer a.subMu.RUnlock()
	for _, fn := range a.subscribers {
		fn(ev)
	}
}

// dispatch runs hooks in the background, detached from the caller's
// cancellation.
func (a *App) dispatch(ctx context.Context, req hook.Request) {
	if a.cfg.Hooks == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.logger.Debug("app closed; hooks skipped", slog.String("event", req.Event))
		return
	}
	a.hooks.Add(1)
	a.mu.Unlock()
	go func() {
		defer a.hooks.Done()
		a.cfg.Hooks.Dispatch(ctx, req)
	}()
}

// inventoryChanged runs with the inventory locked, so it only records and
// hands off.
func (a *App) inventoryChanged(op string, item inventory.Item) {
	a.cfg.Metrics.InventoryChanged(op)

	var event string
	switch op {
	case inventory.OpAdd:
		event = hook.EventItemAdded
	case inventory.OpUpdate:
		event = hook.EventItemUpdated
	case inventory.OpRemove:
		event = hook.EventItemRemoved
	default:
		return
	}
	payload, err := json.Marshal(item)
	if err != nil {
		a.logger.Warn("encoding item for hooks failed", logging.Error(err))
		return
	}
	a.dispatch(context.Background(), hook.Request{Event: event, Barcode: item.Barcode, Existing: op != inventory.OpAdd, Item: payload})
}
