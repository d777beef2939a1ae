package app

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/decoder"
	"github.com/ayusman/shelfscan/internal/hook"
	"github.com/ayusman/shelfscan/internal/inventory"
	"github.com/ayusman/shelfscan/internal/logging"
	"github.com/ayusman/shelfscan/internal/metrics"
	"github.com/ayusman/shelfscan/internal/store"
)

// ScanResult is the outcome of an accepted scan.
type ScanResult struct {
	Barcode   string          `json:"barcode"`
	Format    string          `json:"format"`
	Existing  bool            `json:"existing"`
	Item      *inventory.Item `json:"item,omitempty"`
	ScannedAt time.Time       `json:"scannedAt"`
}

// Scan opens the camera, decodes until the first accepted barcode and
// releases the camera again. It blocks until acceptance, failure, Cancel
// or ctx ending. The camera is always released before Scan returns.
func (a *App) Scan(ctx context.Context) (ScanResult, error) {
	a.mu.Lock()
	if a.scanning {
		a.mu.Unlock()
		return ScanResult{}, ErrScanInProgress
	}
	scanCtx, cancel := context.WithCancel(ctx)
	if a.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		scanCtx, cancelTimeout = context.WithTimeout(scanCtx, a.cfg.Timeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}
	a.scanning = true
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.scanning = false
		a.cancel = nil
		a.mu.Unlock()
		cancel()
	}()

	started := time.Now()
	a.emit(Event{Type: EventScanStarted})

	a.controller.Reset()
	accepted := make(chan decoder.Result, 1)
	sub := a.controller.OnDetection(func(result decoder.Result) {
		// The controller has already stopped the engine; release the
		// stream and surface before anything else sees the result.
		a.setPending(result)
		a.closeSession()
		accepted <- result
	})
	defer sub.Cancel()

	sink, err := a.session.Open(scanCtx, a.cfg.Facing)
	if err != nil {
		return a.failed(ctx, scanCtx, err, started)
	}
	if err := a.controller.Start(scanCtx, sink, a.cfg.Decoder); err != nil {
		a.closeSession()
		return a.failed(ctx, scanCtx, err, started)
	}

	select {
	case result := <-accepted:
		return a.accept(ctx, result, started)
	case <-sink.Done():
	case <-scanCtx.Done():
	}

	a.controller.Stop()
	a.closeSession()
	// Acceptance may have raced the cancellation.
	select {
	case result := <-accepted:
		return a.accept(ctx, result, started)
	default:
	}
	return a.failed(ctx, scanCtx, ErrScanCancelled, started)
}

// ScanImage decodes a still image and records the result like a camera
// scan, without touching the camera.
func (a *App) ScanImage(ctx context.Context, img image.Image) (ScanResult, error) {
	started := time.Now()
	result, err := decoder.DecodeImage(img, a.cfg.Decoder)
	if err != nil {
		a.cfg.Metrics.ScanFinished(metrics.OutcomeFailed, "", time.Since(started))
		return ScanResult{}, err
	}
	a.setPending(result)
	return a.accept(ctx, result, started)
}

func (a *App) accept(ctx context.Context, result decoder.Result, started time.Time) (ScanResult, error) {
	out := ScanResult{
		Barcode:   result.Code,
		Format:    result.Format,
		ScannedAt: time.Now().UTC(),
	}
	if a.cfg.Inventory != nil {
		if item, ok := a.cfg.Inventory.FindByBarcode(result.Code); ok {
			out.Existing = true
			out.Item = &item
		}
	}
	a.markPendingExisting(result.Code, out.Existing)

	// History and settings are best effort; the scan already succeeded.
	persistCtx := context.WithoutCancel(ctx)
	if a.cfg.Scans != nil {
		scan := &store.Scan{Barcode: out.Barcode, Format: out.Format, Existing: out.Existing, ScannedAt: out.ScannedAt}
		if err := a.cfg.Scans.Record(persistCtx, scan); err != nil {
			a.logger.Warn("recording scan failed", logging.Error(err))
		}
	}
	if a.cfg.Settings != nil {
		if err := a.cfg.Settings.Set(persistCtx, store.SettingLastBarcode, out.Barcode); err != nil {
			a.logger.Warn("saving last barcode failed", logging.Error(err))
		}
	}

	a.cfg.Metrics.ScanFinished(metrics.OutcomeAccepted, out.Format, time.Since(started))
	a.logger.Info("scan accepted",
		slog.String(logging.FieldBarcode, out.Barcode),
		slog.String("format", out.Format),
		slog.Bool("existing", out.Existing),
	)
	a.emit(Event{Type: EventScanAccepted, Barcode: out.Barcode, Format: out.Format, Existing: out.Existing, Time: out.ScannedAt})

	req := hook.Request{Event: hook.EventScanAccepted, Barcode: out.Barcode, Format: out.Format, Existing: out.Existing}
	if out.Item != nil {
		if payload, err := json.Marshal(out.Item); err == nil {
			req.Item = payload
		}
	}
	a.dispatch(ctx, req)
	return out, nil
}

// failed maps the error, records it and notifies subscribers.
func (a *App) failed(ctx, scanCtx context.Context, err error, started time.Time) (ScanResult, error) {
	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case errors.Is(scanCtx.Err(), context.DeadlineExceeded):
		err = ErrScanTimeout
	case errors.Is(err, capture.ErrSessionClosed), errors.Is(err, context.Canceled):
		err = ErrScanCancelled
	}

	elapsed := time.Since(started)
	if errors.Is(err, ErrScanCancelled) || errors.Is(err, context.Canceled) {
		a.cfg.Metrics.ScanFinished(metrics.OutcomeCancelled, "", elapsed)
		a.logger.Info("scan cancelled")
		a.emit(Event{Type: EventScanCancelled})
		return ScanResult{}, err
	}

	a.cfg.Metrics.ScanFinished(metrics.OutcomeFailed, "", elapsed)
	a.logger.Warn("scan failed", logging.Error(err), slog.String("category", string(Classify(err))))
	a.emit(Event{Type: EventScanFailed, Error: Describe(err)})
	return ScanResult{}, err
}

func (a *App) closeSession() {
	if err := a.session.Close(); err != nil {
		a.logger.Warn("closing camera session failed", logging.Error(err))
	}
}

func (a *App) setPending(result decoder.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = &Pending{Barcode: result.Code, Format: result.Format, At: time.Now().UTC()}
}

func (a *App) markPendingExisting(barcode string, existing bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil && a.pending.Barcode == barcode {
		a.pending.Existing = existing
	}
}
