// Package decoder turns camera frames into barcode detections.
package decoder

import (
	"context"
	"errors"

	"gocv.io/x/gocv"
)

var (
	// ErrNotInitialized is returned by Start before a successful Init.
	ErrNotInitialized = errors.New("decoder: engine not initialized")
	// ErrUnknownReader is returned by Init for an unsupported reader name.
	ErrUnknownReader = errors.New("decoder: unknown reader")
	// ErrNoBarcode is returned by DecodeImage when no reader finds a code.
	ErrNoBarcode = errors.New("decoder: no barcode found")
)

// Result is one decoded barcode.
type Result struct {
	Code   string `json:"code"`
	Format string `json:"format"`
}

// Config selects readers and the decode cadence.
type Config struct {
	// Readers lists symbologies, e.g. "code_128" or "ean_reader".
	Readers []string
	// Width and Height are frame size hints.
	Width  int
	Height int
	// PatchSize is the locator granularity: x-small, small, medium, large
	// or x-large. The two smallest sizes make the readers try harder.
	PatchSize string
	// Multiple asks for several results per frame. Only single results are
	// delivered; the flag is accepted for compatibility and logged.
	Multiple bool
	// Frequency is the number of decode attempts per second while the
	// scene is changing.
	Frequency int
	// Debug logs every decode attempt.
	Debug bool
}

// DefaultConfig returns the reader set used for retail products.
func DefaultConfig() Config {
	return Config{
		Readers:   []string{"code_128_reader", "ean_reader"},
		PatchSize: "medium",
		Frequency: 10,
	}
}

// Source is the frame supply an engine reads from. *capture.Sink
// satisfies it.
type Source interface {
	ReadFrame() (*gocv.Mat, error)
	Done() <-chan struct{}
}

// Engine is a decoding engine bound to one frame source.
type Engine interface {
	// Init validates cfg and binds the engine to src. The engine stays
	// alive no longer than ctx.
	Init(ctx context.Context, src Source, cfg Config) error
	// Start begins decoding frames.
	Start() error
	// Stop halts decoding. It is safe to call from a detection handler
	// and more than once.
	Stop() error
	// OnDetected registers the single detection callback.
	OnDetected(fn func(Result))
}

// Factory builds a fresh engine. A nil Factory means no engine is
// available.
type Factory func() Engine
