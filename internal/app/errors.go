package app

import (
	"context"
	"errors"

	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/decoder"
	"github.com/ayusman/shelfscan/internal/inventory"
	"github.com/ayusman/shelfscan/internal/scanner"
)

var (
	// ErrScanInProgress is returned by Scan while another scan runs.
	ErrScanInProgress = errors.New("app: a scan is already in progress")
	// ErrScanCancelled is returned by Scan after Cancel.
	ErrScanCancelled = errors.New("app: scan cancelled")
	// ErrScanTimeout is returned when no barcode was accepted in time.
	ErrScanTimeout = errors.New("app: scan timed out")
)

// Category groups errors by what the user should be told.
type Category string

const (
	CategoryNone             Category = ""
	CategoryDeviceMissing    Category = "device_missing"
	CategoryPermissionDenied Category = "permission_denied"
	CategoryHardwareBusy     Category = "hardware_busy"
	CategoryCameraFailed     Category = "camera_failed"
	CategoryDecoderMissing   Category = "decoder_missing"
	CategoryDecoderFailed    Category = "decoder_failed"
	CategoryNoBarcode        Category = "no_barcode"
	CategoryDuplicateItem    Category = "duplicate_item"
	CategoryNotFound         Category = "not_found"
	CategoryInvalidItem      Category = "invalid_item"
	CategoryBusy             Category = "busy"
	CategoryCancelled        Category = "cancelled"
	CategoryTimeout          Category = "timeout"
	CategoryInternal         Category = "internal"
)

// Classify maps err onto a category.
func Classify(err error) Category {
	var unknown *capture.UnknownCaptureError
	var initErr *scanner.DecoderInitError
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, capture.ErrNoDevice):
		return CategoryDeviceMissing
	case errors.Is(err, capture.ErrPermissionDenied):
		return CategoryPermissionDenied
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return CategoryHardwareBusy
	case errors.As(err, &unknown):
		return CategoryCameraFailed
	case errors.Is(err, scanner.ErrDecoderUnavailable):
		return CategoryDecoderMissing
	case errors.As(err, &initErr):
		return CategoryDecoderFailed
	case errors.Is(err, decoder.ErrNoBarcode):
		return CategoryNoBarcode
	case errors.Is(err, inventory.ErrDuplicateBarcode):
		return CategoryDuplicateItem
	case errors.Is(err, inventory.ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, inventory.ErrInvalidItem):
		return CategoryInvalidItem
	case errors.Is(err, ErrScanInProgress), errors.Is(err, scanner.ErrAlreadyScanning),
		errors.Is(err, capture.ErrSinkAlreadyBound), errors.Is(err, capture.ErrSessionActive):
		return CategoryBusy
	case errors.Is(err, ErrScanCancelled), errors.Is(err, context.Canceled):
		return CategoryCancelled
	case errors.Is(err, ErrScanTimeout), errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	default:
		return CategoryInternal
	}
}

// Describe returns the message shown to the user for err.
func Describe(err error) string {
	switch Classify(err) {
	case CategoryNone:
		return ""
	case CategoryDeviceMissing:
		return "No camera found. Connect a camera and try again."
	case CategoryPermissionDenied:
		return "Camera access was denied. Allow access to the camera and try again."
	case CategoryHardwareBusy:
		return "The camera is busy or unavailable. Close other applications using it and try again."
	case CategoryCameraFailed:
		var unknown *capture.UnknownCaptureError
		errors.As(err, &unknown)
		return "The camera could not be started: " + unknown.Msg
	case CategoryDecoderMissing:
		return "The barcode scanner is not available."
	case CategoryDecoderFailed:
		var initErr *scanner.DecoderInitError
		if errors.As(err, &initErr) && initErr.Err != nil {
			return "The barcode scanner failed to start: " + initErr.Err.Error()
		}
		return "The barcode scanner failed to start."
	case CategoryNoBarcode:
		return "No barcode was found in the image."
	case CategoryDuplicateItem:
		return "An item with this barcode already exists."
	case CategoryNotFound:
		return "Item not found."
	case CategoryInvalidItem:
		return err.Error()
	case CategoryBusy:
		return "A scan is already in progress."
	case CategoryCancelled:
		return "Scan cancelled."
	case CategoryTimeout:
		return "No barcode was detected before the scan timed out."
	default:
		return err.Error()
	}
}
