package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/shelfscan/internal/logging"
)

const (
	defaultSysfsRoot = "/sys/class/video4linux"
	defaultDevRoot   = "/dev"
)

// ErrCameraNotOpen is returned when reading from a stopped camera track.
var ErrCameraNotOpen = errors.New("capture: camera is not open")

// Devices is the gocv backed MediaDevices implementation. Video inputs are
// enumerated from sysfs and opened through OpenCV's V4L2 backend.
type Devices struct {
	sysfsRoot string
	devRoot   string
	logger    *slog.Logger
}

// NewDevices returns a Devices reading the standard sysfs and /dev paths.
func NewDevices(logger *slog.Logger) *Devices {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Devices{
		sysfsRoot: defaultSysfsRoot,
		devRoot:   defaultDevRoot,
		logger:    logger,
	}
}

// EnumerateDevices lists capture nodes. Metadata nodes exposed by UVC
// cameras share a name with the capture node and carry a non-zero index;
// they are skipped.
func (d *Devices) EnumerateDevices(ctx context.Context) ([]DeviceInfo, error) {
	entries, err := os.ReadDir(d.sysfsRoot)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.sysfsRoot, err)
	}

	var devices []DeviceInfo
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := entry.Name()
		if _, ok := deviceNumber(id); !ok {
			continue
		}
		dir := filepath.Join(d.sysfsRoot, id)
		if index, err := readAttr(dir, "index"); err == nil && index != "0" {
			continue
		}
		label, err := readAttr(dir, "name")
		if err != nil || label == "" {
			label = id
		}
		devices = append(devices, DeviceInfo{
			ID:     id,
			Kind:   KindVideoInput,
			Label:  label,
			Facing: facingFromLabel(label),
		})
	}

	sort.Slice(devices, func(i, j int) bool {
		a, _ := deviceNumber(devices[i].ID)
		b, _ := deviceNumber(devices[j].ID)
		return a < b
	})
	return devices, nil
}

// GetUserMedia opens the device best matching the requested facing.
func (d *Devices) GetUserMedia(ctx context.Context, c Constraints) (Stream, error) {
	devices, err := d.EnumerateDevices(ctx)
	if err != nil {
		return nil, err
	}
	device, ok := selectDevice(devices, c.Facing)
	if !ok {
		return nil, ErrDeviceUnavailable
	}
	number, _ := deviceNumber(device.ID)

	if err := checkAccess(filepath.Join(d.devRoot, device.ID)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	capture, err := gocv.OpenVideoCapture(number)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDeviceUnavailable, device.ID, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: %s did not start", ErrDeviceUnavailable, device.ID)
	}

	width, height, fps := c.Width, c.Height, c.FPS
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	capture.Set(gocv.VideoCaptureFPS, float64(fps))

	d.logger.Debug("opened video device", "device", device.ID, "label", device.Label, "width", width, "height", height, "fps", fps)
	return &cameraTrack{label: device.Label, capture: capture, open: true}, nil
}

// cameraTrack is a single-track stream over a gocv VideoCapture.
type cameraTrack struct {
	label   string
	mu      sync.Mutex
	capture *gocv.VideoCapture
	open    bool
}

func (t *cameraTrack) Tracks() []Track { return []Track{t} }

func (t *cameraTrack) Kind() DeviceKind { return KindVideoInput }

func (t *cameraTrack) Label() string { return t.label }

func (t *cameraTrack) ReadFrame() (*gocv.Mat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open || t.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := t.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("capture: failed to read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("capture: captured frame is empty")
	}
	return &mat, nil
}

func (t *cameraTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open || t.capture == nil {
		t.open = false
		return nil
	}
	err := t.capture.Close()
	t.capture = nil
	t.open = false
	return err
}

// selectDevice prefers a device labelled with the requested facing. Without
// a labelled match, environment picks the last enumerated camera (external
// or rear cameras usually enumerate after the built-in one) and user picks
// the first.
func selectDevice(devices []DeviceInfo, facing Facing) (DeviceInfo, bool) {
	var video []DeviceInfo
	for _, d := range devices {
		if d.Kind == KindVideoInput {
			video = append(video, d)
		}
	}
	if len(video) == 0 {
		return DeviceInfo{}, false
	}
	for _, d := range video {
		if d.Facing == facing {
			return d, true
		}
	}
	if facing == FacingEnvironment {
		return video[len(video)-1], true
	}
	return video[0], true
}

func facingFromLabel(label string) Facing {
	lower := strings.ToLower(label)
	for _, hint := range []string{"back", "rear", "environment", "world"} {
		if strings.Contains(lower, hint) {
			return FacingEnvironment
		}
	}
	for _, hint := range []string{"front", "user", "facetime", "integrated", "webcam"} {
		if strings.Contains(lower, hint) {
			return FacingUser
		}
	}
	return ""
}

func deviceNumber(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "video")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func readAttr(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
