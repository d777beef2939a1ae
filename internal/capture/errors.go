package capture

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoDevice is returned by Open when no video input is present.
	ErrNoDevice = errors.New("capture: no video input device found")
	// ErrPermissionDenied is returned when access to the camera was refused.
	ErrPermissionDenied = errors.New("capture: camera permission denied")
	// ErrDeviceUnavailable is returned when no device matches the constraints
	// or the hardware could not be started.
	ErrDeviceUnavailable = errors.New("capture: camera unavailable")
	// ErrSessionActive is returned by Open while a stream is already owned.
	ErrSessionActive = errors.New("capture: session already open")
	// ErrSessionClosed is returned by Open when Close won the race against it.
	ErrSessionClosed = errors.New("capture: session closed while opening")
	// ErrSinkAlreadyBound is returned when a second scanner binds a sink.
	ErrSinkAlreadyBound = errors.New("capture: video sink already bound")
	// ErrStreamEnded is returned by reads on a sink whose session closed.
	ErrStreamEnded = errors.New("capture: stream ended")
)

// UnknownCaptureError wraps acquisition failures that fit no other category.
type UnknownCaptureError struct {
	Msg string
	Err error
}

func (e *UnknownCaptureError) Error() string {
	return "capture: " + e.Msg
}

func (e *UnknownCaptureError) Unwrap() error {
	return e.Err
}

// classify maps a collaborator failure onto the capture error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) || errors.Is(err, ErrNoDevice) {
		return err
	}
	var unknown *UnknownCaptureError
	if errors.As(err, &unknown) {
		return err
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown camera failure"
	}
	return &UnknownCaptureError{Msg: msg, Err: err}
}
