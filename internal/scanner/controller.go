// Package scanner drives a decoding engine against a live camera sink and
// delivers exactly one validated detection per scan.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/decoder"
	"github.com/ayusman/shelfscan/internal/logging"
)

var (
	// ErrDecoderUnavailable is returned when no engine factory is configured.
	ErrDecoderUnavailable = errors.New("scanner: barcode decoder unavailable")
	// ErrAlreadyScanning is returned by Start while a scan is in progress.
	ErrAlreadyScanning = errors.New("scanner: already scanning")
	// ErrScanStopped is returned by Start on a stopped controller that was
	// not Reset.
	ErrScanStopped = errors.New("scanner: controller stopped; reset before scanning again")
)

// DecoderInitError wraps a failure reported by the engine during Init or
// Start.
type DecoderInitError struct {
	Err error
}

func (e *DecoderInitError) Error() string {
	return fmt.Sprintf("scanner: decoder init failed: %v", e.Err)
}

func (e *DecoderInitError) Unwrap() error {
	return e.Err
}

// State is the controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateScanning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateScanning:
		return "scanning"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Handler receives the accepted detection.
type Handler func(decoder.Result)

// Subscription is the registration of the single detection consumer.
type Subscription struct {
	c      *Controller
	active bool
}

// Cancel revokes the subscription. It is idempotent.
func (s *Subscription) Cancel() {
	if s == nil || s.c == nil {
		return
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.revokeLocked(s)
}

// Active reports whether the subscription can still receive a detection.
func (s *Subscription) Active() bool {
	if s == nil || s.c == nil {
		return false
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.active
}

// Controller runs one engine at a time against a capture sink.
type Controller struct {
	factory decoder.Factory
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	engine   decoder.Engine
	release  func()
	sub      *Subscription
	handler  Handler
	accepted bool
	last     decoder.Result
	cancel   context.CancelFunc
}

// New returns an idle controller. A nil factory makes every Start fail
// with ErrDecoderUnavailable.
func New(factory decoder.Factory, logger *slog.Logger) *Controller {
	return &Controller{
		factory: factory,
		logger:  logging.NewComponentLogger(logger, "scanner"),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastAccepted returns the accepted detection of the current scan.
func (c *Controller) LastAccepted() (decoder.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.accepted
}

// OnDetection registers the single consumer, revoking any previous one.
func (c *Controller) OnDetection(h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		c.sub.active = false
	}
	sub := &Subscription{c: c, active: true}
	c.sub = sub
	c.handler = h
	return sub
}

// Start binds the sink, initialises a fresh engine and begins decoding.
// The scan ends on the first accepted detection, on Stop, or when the sink
// closes.
func (c *Controller) Start(ctx context.Context, sink *capture.Sink, cfg decoder.Config) error {
	c.mu.Lock()
	switch c.state {
	case StateInitializing, StateScanning:
		c.mu.Unlock()
		return ErrAlreadyScanning
	case StateStopped:
		c.mu.Unlock()
		return ErrScanStopped
	}
	if sink == nil {
		c.mu.Unlock()
		return capture.ErrStreamEnded
	}
	if c.factory == nil {
		c.state = StateStopped
		c.mu.Unlock()
		c.logger.Warn("no decoder engine available")
		return ErrDecoderUnavailable
	}

	release, err := sink.Bind()
	if err != nil {
		c.mu.Unlock()
		return err
	}

	engine := c.factory()
	if engine == nil {
		release()
		c.state = StateStopped
		c.mu.Unlock()
		return ErrDecoderUnavailable
	}
	c.state = StateInitializing
	c.engine = engine
	c.release = release
	engineCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	engine.OnDetected(c.detected)
	if err := engine.Init(engineCtx, sink, cfg); err != nil {
		c.failInit(engine)
		return &DecoderInitError{Err: err}
	}

	c.mu.Lock()
	if c.engine != engine || c.state != StateInitializing {
		// Stopped while the engine was initialising.
		c.mu.Unlock()
		return ErrScanStopped
	}
	c.state = StateScanning
	c.mu.Unlock()

	if err := engine.Start(); err != nil {
		c.failInit(engine)
		return &DecoderInitError{Err: err}
	}

	c.mu.Lock()
	stopped := c.engine != engine || c.state != StateScanning
	c.mu.Unlock()
	if stopped {
		// Stop ran before the engine started; it must not keep running.
		if err := engine.Stop(); err != nil {
			c.logger.Warn("decoder stop failed", logging.Error(err))
		}
		return ErrScanStopped
	}

	go c.watchSink(engineCtx, engine, sink)

	c.logger.Info("scanning started", slog.String("readers", strings.Join(cfg.Readers, ",")))
	return nil
}

// Stop halts the engine and revokes the subscription. It is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	engine := c.stopLocked()
	c.mu.Unlock()

	if engine != nil {
		if err := engine.Stop(); err != nil {
			c.logger.Warn("decoder stop failed", logging.Error(err))
		}
	}
}

// Reset returns a stopped controller to Idle and forgets the last
// accepted detection. It has no effect while a scan is running.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStopped && c.state != StateIdle {
		return
	}
	c.state = StateIdle
	c.accepted = false
	c.last = decoder.Result{}
}

// detected is the engine callback. Acceptance happens in a fixed order:
// mark accepted, revoke the subscription, stop the engine, then notify.
func (c *Controller) detected(result decoder.Result) {
	c.mu.Lock()
	if c.state != StateScanning || c.accepted {
		c.mu.Unlock()
		return
	}
	code := strings.TrimSpace(result.Code)
	if code == "" {
		c.mu.Unlock()
		c.logger.Debug("ignoring empty detection", slog.String("format", result.Format))
		return
	}

	result.Code = code
	c.accepted = true
	c.last = result

	var handler Handler
	if c.sub != nil && c.sub.active {
		handler = c.handler
	}
	engine := c.stopLocked()
	c.mu.Unlock()

	if engine != nil {
		if err := engine.Stop(); err != nil {
			c.logger.Warn("decoder stop failed", logging.Error(err))
		}
	}

	c.logger.Info("barcode accepted",
		slog.String(logging.FieldBarcode, result.Code),
		slog.String("format", result.Format),
	)
	if handler != nil {
		handler(result)
	}
}

// watchSink stops the controller when the owning session closes.
func (c *Controller) watchSink(ctx context.Context, engine decoder.Engine, sink *capture.Sink) {
	select {
	case <-ctx.Done():
		c.mu.Lock()
		current := c.engine == engine
		c.mu.Unlock()
		if current {
			c.logger.Debug("scan context ended")
			c.Stop()
		}
	case <-sink.Done():
		c.mu.Lock()
		current := c.engine == engine
		c.mu.Unlock()
		if current {
			c.logger.Debug("camera session closed during scan")
			c.Stop()
		}
	}
}

// stopLocked moves to Stopped and detaches the engine. The caller stops
// the returned engine outside the lock.
func (c *Controller) stopLocked() decoder.Engine {
	if c.sub != nil {
		c.sub.active = false
		c.sub = nil
		c.handler = nil
	}
	if c.state == StateIdle {
		return nil
	}
	c.state = StateStopped

	engine := c.engine
	c.engine = nil
	if c.release != nil {
		c.release()
		c.release = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return engine
}

func (c *Controller) failInit(engine decoder.Engine) {
	c.mu.Lock()
	var owned bool
	if c.engine == engine {
		owned = true
		c.engine = nil
		c.state = StateStopped
		if c.release != nil {
			c.release()
			c.release = nil
		}
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
	}
	c.mu.Unlock()

	if owned {
		_ = engine.Stop()
	}
}

func (c *Controller) revokeLocked(sub *Subscription) {
	sub.active = false
	if c.sub == sub {
		c.sub = nil
		c.handler = nil
	}
}
