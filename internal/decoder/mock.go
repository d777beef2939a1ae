package decoder

import (
	"context"
	"sync"
)

// MockEngine is a test Engine whose detections are emitted by hand.
type MockEngine struct {
	mu       sync.Mutex
	initErr  error
	startErr error
	handler  func(Result)
	src      Source
	cfg      Config
	running  bool
	inits    int
	starts   int
	stops    int
}

// NewMockEngine creates a new MockEngine.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// MockFactory returns a Factory that always hands out engine.
func MockFactory(engine *MockEngine) Factory {
	return func() Engine { return engine }
}

// SetInitError makes Init fail with err.
func (m *MockEngine) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// SetStartError makes Start fail with err.
func (m *MockEngine) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

func (m *MockEngine) Init(ctx context.Context, src Source, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	if m.initErr != nil {
		return m.initErr
	}
	if _, err := buildReaders(cfg.Readers); err != nil {
		return err
	}
	m.src = src
	m.cfg = cfg
	return nil
}

func (m *MockEngine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if m.src == nil {
		return ErrNotInitialized
	}
	m.starts++
	m.running = true
	return nil
}

func (m *MockEngine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.stops++
	}
	m.running = false
	return nil
}

func (m *MockEngine) OnDetected(fn func(Result)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
}

// Emit delivers a detection to the registered handler, running or not, the
// way a real engine may still flush a frame that was in flight.
func (m *MockEngine) Emit(code, format string) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler != nil {
		handler(Result{Code: code, Format: format})
	}
}

// Running reports whether Start was called without a later Stop.
func (m *MockEngine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Config returns the configuration passed to the last successful Init.
func (m *MockEngine) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Calls returns the Init, Start and Stop counts.
func (m *MockEngine) Calls() (inits, starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits, m.starts, m.stops
}
