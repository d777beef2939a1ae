// Package capture owns the camera lifecycle: device enumeration, stream
// acquisition, and the video sink handed to the barcode scanner.
package capture

import (
	"context"

	"gocv.io/x/gocv"
)

// Default stream hints used when the configuration leaves them unset.
const (
	DefaultFPS    = 15
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// DeviceKind classifies an enumerated media device.
type DeviceKind string

const (
	KindVideoInput DeviceKind = "videoinput"
	KindAudioInput DeviceKind = "audioinput"
)

// Facing is the camera direction requested from the device layer.
type Facing string

const (
	// FacingEnvironment points away from the user (rear camera).
	FacingEnvironment Facing = "environment"
	// FacingUser points at the user (front camera, webcam).
	FacingUser Facing = "user"
)

// ParseFacing converts a configuration value to a Facing. Unknown values
// map to FacingEnvironment.
func ParseFacing(value string) Facing {
	if Facing(value) == FacingUser {
		return FacingUser
	}
	return FacingEnvironment
}

// DeviceInfo describes one enumerated device.
type DeviceInfo struct {
	ID     string
	Kind   DeviceKind
	Label  string
	Facing Facing
}

// Constraints are the hints passed to GetUserMedia.
type Constraints struct {
	Facing Facing
	Width  int
	Height int
	FPS    int
}

// Track is one live track of an acquired stream.
type Track interface {
	Kind() DeviceKind
	Label() string
	Stop() error
}

// Stream is an acquired media stream. ReadFrame returns a Mat the caller
// must close.
type Stream interface {
	Tracks() []Track
	ReadFrame() (*gocv.Mat, error)
}

// MediaDevices is the platform camera API the session depends on.
type MediaDevices interface {
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

// Surface is the presentation area shown while a stream is active.
type Surface interface {
	Show()
	Hide()
}

func countVideoInputs(devices []DeviceInfo) int {
	n := 0
	for _, d := range devices {
		if d.Kind == KindVideoInput {
			n++
		}
	}
	return n
}
