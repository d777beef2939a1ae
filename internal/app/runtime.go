package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/config"
	"github.com/ayusman/shelfscan/internal/decoder"
	"github.com/ayusman/shelfscan/internal/docstore"
	"github.com/ayusman/shelfscan/internal/hook"
	"github.com/ayusman/shelfscan/internal/inventory"
	"github.com/ayusman/shelfscan/internal/logging"
	"github.com/ayusman/shelfscan/internal/metrics"
	"github.com/ayusman/shelfscan/internal/store"
)

// Options overrides collaborators Bootstrap would otherwise build from the
// config. Tests pass mocks here.
type Options struct {
	Devices capture.MediaDevices
	Factory decoder.Factory
	Logger  *slog.Logger
}

// Runtime is a fully wired application and the resources it owns.
type Runtime struct {
	Config    *config.Config
	App       *App
	Inventory *inventory.Store
	DB        *store.Store
	Documents docstore.Store
	Hooks     *hook.Manager
	Metrics   *metrics.Recorder
	Logger    *slog.Logger

	// InventoryDocument is set when the inventory persists to Documents.
	InventoryDocument string
}

// Bootstrap opens storage, loads the inventory, discovers hooks and builds
// the App described by cfg.
func Bootstrap(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	rec := metrics.New()

	db, err := store.New(ctx, store.Options{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	docs, err := docstore.Open(ctx, DocumentConfig(cfg.Documents))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open document store: %w", err)
	}
	docs = docstore.WithObserver(docs, rec.Observe)

	var persister inventory.Persister = db.Items()
	var inventoryDoc string
	if cfg.Inventory.Backend == config.BackendDocument {
		p, err := docstore.NewPersister(docs, cfg.Inventory.Document)
		if err != nil {
			db.Close()
			return nil, err
		}
		persister = p
		inventoryDoc = p.Name()
	}

	inv := inventory.NewStore(persister, logger)
	if err := inv.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := rec.TrackInventorySize(inv.Len); err != nil {
		db.Close()
		return nil, err
	}

	hooks := hook.NewManager(cfg.Hooks.Dir, logger)
	if err := hooks.Discover(); err != nil {
		logger.Warn("hook discovery failed", logging.Error(err))
	}

	devices := opts.Devices
	if devices == nil {
		devices = capture.NewDevices(logging.NewComponentLogger(logger, "capture"))
	}
	factory := opts.Factory
	if factory == nil {
		factory = decoder.NewZXingFactory(logger)
	}

	a := New(Config{
		Devices:     devices,
		Constraints: Constraints(cfg.Camera),
		Facing:      capture.ParseFacing(cfg.Camera.Facing),
		Factory:     factory,
		Decoder:     DecoderConfig(cfg),
		Timeout:     time.Duration(cfg.Decoder.TimeoutSeconds) * time.Second,
		Inventory:   inv,
		Scans:       db.Scans(),
		Settings:    db.Settings(),
		Hooks:       hook.NewDispatcher(hooks, hook.NewExecutor(cfg.Hooks.TimeoutMs), logger, rec.HookRan),
		Metrics:     rec,
		Logger:      logger,
	})

	return &Runtime{
		Config:            cfg,
		App:               a,
		Inventory:         inv,
		DB:                db,
		Documents:         docs,
		Hooks:             hooks,
		Metrics:           rec,
		Logger:            logger,
		InventoryDocument: inventoryDoc,
	}, nil
}

// Close stops any scan, waits for hooks and closes the database.
func (r *Runtime) Close() error {
	var errs []error
	if r.App != nil {
		r.App.Close()
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// DocumentConfig converts the documents section to store settings.
func DocumentConfig(c config.Documents) docstore.Config {
	return docstore.Config{
		Driver: c.Driver,
		Root:   c.Root,
		S3: docstore.S3Config{
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			Prefix:    c.S3.Prefix,
			PathStyle: c.S3.PathStyle,
		},
	}
}

// Constraints converts the camera section to capture constraints.
func Constraints(c config.Camera) capture.Constraints {
	return capture.Constraints{
		Facing: capture.ParseFacing(c.Facing),
		Width:  c.Width,
		Height: c.Height,
		FPS:    c.FPS,
	}
}

// DecoderConfig converts the decoder section to engine settings.
func DecoderConfig(cfg *config.Config) decoder.Config {
	return decoder.Config{
		Readers:   append([]string(nil), cfg.Decoder.Readers...),
		Width:     cfg.Camera.Width,
		Height:    cfg.Camera.Height,
		PatchSize: cfg.Decoder.PatchSize,
		Multiple:  cfg.Decoder.Multiple,
		Frequency: cfg.Decoder.Frequency,
		Debug:     cfg.Decoder.Debug,
	}
}
