package capture

import (
	"context"
	"errors"
	"image"
	"strconv"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// MockDevices is an in-memory MediaDevices for tests.
type MockDevices struct {
	mu           sync.Mutex
	devices      []DeviceInfo
	enumerateErr error
	mediaErr     error
	frame        image.Image
	gate         chan struct{}
	streams      []*MockStream
	constraints  []Constraints
	enumerations int
}

// NewMockDevices returns mock devices reporting the given inputs.
func NewMockDevices(devices ...DeviceInfo) *MockDevices {
	return &MockDevices{devices: devices}
}

// MockCameras returns n video inputs labelled camera0..n-1.
func MockCameras(n int) []DeviceInfo {
	devices := make([]DeviceInfo, 0, n)
	for i := 0; i < n; i++ {
		devices = append(devices, DeviceInfo{
			ID:    "video" + strconv.Itoa(i),
			Kind:  KindVideoInput,
			Label: "camera" + strconv.Itoa(i),
		})
	}
	return devices
}

// SetEnumerateError makes EnumerateDevices fail with err.
func (m *MockDevices) SetEnumerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enumerateErr = err
}

// SetMediaError makes GetUserMedia fail with err.
func (m *MockDevices) SetMediaError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mediaErr = err
}

// SetFrame sets the image every mock stream serves.
func (m *MockDevices) SetFrame(img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = img
}

// Hold makes the next GetUserMedia calls block until the returned func is
// called. The stream is still delivered, which simulates a grant arriving
// after the caller gave up.
func (m *MockDevices) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// EnumerateDevices implements MediaDevices.
func (m *MockDevices) EnumerateDevices(ctx context.Context) ([]DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enumerations++
	if m.enumerateErr != nil {
		return nil, m.enumerateErr
	}
	out := make([]DeviceInfo, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

// GetUserMedia implements MediaDevices.
func (m *MockDevices) GetUserMedia(ctx context.Context, c Constraints) (Stream, error) {
	m.mu.Lock()
	m.constraints = append(m.constraints, c)
	gate := m.gate
	mediaErr := m.mediaErr
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if mediaErr != nil {
		return nil, mediaErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stream := &MockStream{frame: m.frame, track: &MockTrack{label: "mock camera"}}
	m.streams = append(m.streams, stream)
	return stream, nil
}

// MediaCalls returns the constraints of every GetUserMedia call.
func (m *MockDevices) MediaCalls() []Constraints {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Constraints, len(m.constraints))
	copy(out, m.constraints)
	return out
}

// Streams returns every stream handed out so far.
func (m *MockDevices) Streams() []*MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockStream, len(m.streams))
	copy(out, m.streams)
	return out
}

// LiveTracks counts tracks that have not been stopped.
func (m *MockDevices) LiveTracks() int {
	n := 0
	for _, s := range m.Streams() {
		if !s.track.Stopped() {
			n++
		}
	}
	return n
}

// MockStream serves a fixed image, or blank frames when none is set.
type MockStream struct {
	frame image.Image
	track *MockTrack
	reads atomic.Int64
}

func (s *MockStream) Tracks() []Track { return []Track{s.track} }

// Track returns the single video track.
func (s *MockStream) Track() *MockTrack { return s.track }

// Reads returns how many frames were served.
func (s *MockStream) Reads() int64 { return s.reads.Load() }

func (s *MockStream) ReadFrame() (*gocv.Mat, error) {
	if s.track.Stopped() {
		return nil, ErrCameraNotOpen
	}
	s.reads.Add(1)

	if s.frame == nil {
		mat := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
		return &mat, nil
	}
	mat, err := gocv.ImageToMatRGB(s.frame)
	if err != nil {
		return nil, errors.Join(errors.New("capture: convert mock frame"), err)
	}
	return &mat, nil
}

// MockTrack records whether it was stopped.
type MockTrack struct {
	label   string
	stopped atomic.Bool
	stops   atomic.Int64
}

func (t *MockTrack) Kind() DeviceKind { return KindVideoInput }

func (t *MockTrack) Label() string { return t.label }

func (t *MockTrack) Stop() error {
	t.stops.Add(1)
	t.stopped.Store(true)
	return nil
}

// Stopped reports whether Stop was called.
func (t *MockTrack) Stopped() bool { return t.stopped.Load() }

// MockSurface counts Show and Hide calls.
type MockSurface struct {
	shows atomic.Int64
	hides atomic.Int64
}

func (s *MockSurface) Show() { s.shows.Add(1) }

func (s *MockSurface) Hide() { s.hides.Add(1) }

// Shows returns the number of Show calls.
func (s *MockSurface) Shows() int64 { return s.shows.Load() }

// Hides returns the number of Hide calls.
func (s *MockSurface) Hides() int64 { return s.hides.Load() }

// Stops returns how many times Stop was called.
func (t *MockTrack) Stops() int64 { return t.stops.Load() }
