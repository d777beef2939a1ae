package decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/makiuchi-d/gozxing"

	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/logging"
)

// Decode cadence.
const (
	DefaultFrequency = 10
	// IdleInterval is the decode interval while the activity gate reports
	// a still scene.
	IdleInterval = 500 * time.Millisecond
	// ActivityThreshold is the percentage of changed pixels that counts as
	// movement in front of the camera.
	ActivityThreshold = 0.5
)

// ZXingEngine decodes one-dimensional barcodes with gozxing.
type ZXingEngine struct {
	logger *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	src      Source
	cfg      Config
	readers  []namedReader
	hints    map[gozxing.DecodeHintType]interface{}
	interval time.Duration
	handler  func(Result)
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
}

// NewZXingEngine returns an uninitialised engine.
func NewZXingEngine(logger *slog.Logger) *ZXingEngine {
	return &ZXingEngine{logger: logging.NewComponentLogger(logger, "decoder")}
}

// NewZXingFactory returns a Factory producing ZXing engines.
func NewZXingFactory(logger *slog.Logger) Factory {
	return func() Engine { return NewZXingEngine(logger) }
}

// Init implements Engine.
func (e *ZXingEngine) Init(ctx context.Context, src Source, cfg Config) error {
	if src == nil {
		return errors.New("decoder: nil frame source")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	readers, err := buildReaders(cfg.Readers)
	if err != nil {
		return err
	}

	frequency := cfg.Frequency
	if frequency <= 0 {
		frequency = DefaultFrequency
	}
	if cfg.Multiple {
		e.logger.Warn("multiple results requested; only the first detection is delivered")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return errors.New("decoder: engine already running")
	}
	e.ctx = ctx
	e.src = src
	e.cfg = cfg
	e.readers = readers
	e.hints = decodeHints(cfg.PatchSize)
	e.interval = time.Second / time.Duration(frequency)

	names := make([]string, 0, len(readers))
	for _, r := range readers {
		names = append(names, r.name)
	}
	e.logger.Debug("decoder initialised",
		slog.String("readers", strings.Join(names, ",")),
		slog.Int("frequency", frequency),
		slog.String("patch_size", cfg.PatchSize),
	)
	return nil
}

// OnDetected implements Engine.
func (e *ZXingEngine) OnDetected(fn func(Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = fn
}

// Start implements Engine.
func (e *ZXingEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src == nil {
		return ErrNotInitialized
	}
	if e.running {
		return nil
	}

	ctx, cancel := context.WithCancel(e.ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	go e.run(ctx, e.src, e.done)
	return nil
}

// Stop implements Engine. It cancels the decode loop without waiting for
// it, so it may be called from the detection handler.
func (e *ZXingEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	e.cancel()
	e.running = false
	return nil
}

// Wait blocks until the decode loop started by the last Start has exited.
func (e *ZXingEngine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *ZXingEngine) run(ctx context.Context, src Source, done chan struct{}) {
	defer close(done)

	gate := capture.NewActivityGate(ActivityThreshold)
	defer gate.Close()

	e.mu.Lock()
	interval := e.interval
	e.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastAttempt time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-src.Done():
			return
		case <-ticker.C:
		}

		frame, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrStreamEnded) {
				return
			}
			e.logger.Debug("frame read failed", logging.Error(err))
			continue
		}

		changed, _ := gate.Changed(frame)
		if !changed && time.Since(lastAttempt) < IdleInterval {
			frame.Close()
			continue
		}
		lastAttempt = time.Now()

		img, err := frame.ToImage()
		frame.Close()
		if err != nil {
			e.logger.Debug("frame conversion failed", logging.Error(err))
			continue
		}

		result, err := e.decode(img)
		if err != nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		e.dispatch(result)
	}
}

func (e *ZXingEngine) decode(img image.Image) (Result, error) {
	e.mu.Lock()
	readers, hints, debug := e.readers, e.hints, e.cfg.Debug
	e.mu.Unlock()

	result, err := decodeWith(img, readers, hints)
	if debug {
		if err != nil {
			e.logger.Debug("decode attempt", slog.String("outcome", "none"))
		} else {
			e.logger.Debug("decode attempt",
				slog.String("outcome", "found"),
				slog.String(logging.FieldBarcode, result.Code),
				slog.String("format", result.Format),
			)
		}
	}
	return result, err
}

func (e *ZXingEngine) dispatch(result Result) {
	e.mu.Lock()
	handler := e.handler
	e.mu.Unlock()
	if handler != nil {
		handler(result)
	}
}

// DecodeImage runs the configured readers over a still image.
func DecodeImage(img image.Image, cfg Config) (Result, error) {
	readers, err := buildReaders(cfg.Readers)
	if err != nil {
		return Result{}, err
	}
	return decodeWith(img, readers, decodeHints(cfg.PatchSize))
}

func decodeWith(img image.Image, readers []namedReader, hints map[gozxing.DecodeHintType]interface{}) (Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, fmt.Errorf("decoder: binarize image: %w", err)
	}
	for _, r := range readers {
		res, err := r.reader.Decode(bmp, hints)
		r.reader.Reset()
		if err != nil || res == nil {
			continue
		}
		return Result{
			Code:   res.GetText(),
			Format: formatName(res.GetBarcodeFormat()),
		}, nil
	}
	return Result{}, ErrNoBarcode
}
