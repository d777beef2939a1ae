package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ayusman/shelfscan/internal/logging"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateStopped State = iota
	StateRequesting
	StateActive
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Devices     MediaDevices
	Constraints Constraints
	Surface     Surface
	Logger      *slog.Logger
}

// Session owns at most one camera stream at a time. Open acquires it and
// Close releases every track; the scanner only ever borrows the Sink.
type Session struct {
	devices     MediaDevices
	constraints Constraints
	surface     Surface
	logger      *slog.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	stream Stream
	sink   *Sink
}

// NewSession creates a stopped session.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{
		devices:     cfg.Devices,
		constraints: cfg.Constraints,
		surface:     cfg.Surface,
		logger:      logger,
	}
}

// SetSurface replaces the presentation surface. It takes effect on the
// next Open.
func (s *Session) SetSurface(surface Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = surface
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sink returns the sink of the active stream, or nil.
func (s *Session) Sink() *Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// Open acquires a camera stream. With several video inputs the preferred
// facing is requested; with exactly one the request falls back to the user
// facing camera so single-webcam machines still work.
func (s *Session) Open(ctx context.Context, preferred Facing) (*Sink, error) {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	if s.devices == nil {
		s.mu.Unlock()
		return nil, ErrNoDevice
	}
	s.state = StateRequesting
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	devices, err := s.devices.EnumerateDevices(ctx)
	if err != nil {
		return nil, s.fail(gen, classify(err))
	}

	inputs := countVideoInputs(devices)
	if inputs == 0 {
		return nil, s.fail(gen, ErrNoDevice)
	}

	facing := FacingUser
	if inputs > 1 {
		facing = preferred
		if facing == "" {
			facing = FacingEnvironment
		}
	}

	if err := s.checkCurrent(ctx, gen); err != nil {
		return nil, err
	}

	c := s.constraints
	c.Facing = facing
	stream, err := s.devices.GetUserMedia(ctx, c)
	if err != nil {
		if stream != nil {
			_ = stopTracks(stream)
		}
		return nil, s.fail(gen, classify(err))
	}

	s.mu.Lock()
	if s.gen != gen || s.state != StateRequesting || ctx.Err() != nil {
		ctxErr := ctx.Err()
		stale := s.gen != gen
		if !stale {
			s.state = StateStopped
		}
		s.mu.Unlock()

		s.logger.Debug("releasing stream acquired after cancellation")
		_ = stopTracks(stream)
		if !stale && ctxErr != nil {
			return nil, ctxErr
		}
		return nil, ErrSessionClosed
	}
	sink := newSink(stream)
	s.stream = stream
	s.sink = sink
	s.state = StateActive
	surface := s.surface
	s.mu.Unlock()

	s.logger.Info("camera stream opened", "facing", string(facing), "tracks", len(stream.Tracks()))
	if surface != nil {
		surface.Show()
	}
	return sink, nil
}

// Close releases the stream and hides the surface. It is idempotent and
// also cancels an Open that is still waiting on the device layer.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	wasActive := s.state == StateActive
	s.gen++
	stream, sink := s.stream, s.sink
	s.stream, s.sink = nil, nil
	s.state = StateStopped
	surface := s.surface
	s.mu.Unlock()

	if sink != nil {
		sink.close()
	}
	var err error
	if stream != nil {
		err = stopTracks(stream)
	}
	if wasActive {
		if surface != nil {
			surface.Hide()
		}
		s.logger.Info("camera stream closed")
	}
	return err
}

// fail records an acquisition failure. Only the Open that owns the current
// generation moves the session back to Stopped.
func (s *Session) fail(gen uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen == gen && s.state == StateRequesting {
		s.state = StateStopped
	}
	s.logger.Warn("camera acquisition failed", logging.Error(err))
	return err
}

func (s *Session) checkCurrent(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		s.state = StateStopped
		return err
	}
	return nil
}

func stopTracks(stream Stream) error {
	var errs []error
	for _, track := range stream.Tracks() {
		if err := track.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
