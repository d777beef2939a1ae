package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ayusman/shelfscan/internal/capture"
	"github.com/ayusman/shelfscan/internal/decoder"
	"github.com/ayusman/shelfscan/internal/inventory"
	"github.com/ayusman/shelfscan/internal/scanner"
)

func TestClassifyAndDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category Category
		contains string
	}{
		{"nil", nil, CategoryNone, ""},
		{"no device", capture.ErrNoDevice, CategoryDeviceMissing, "No camera"},
		{"permission", fmt.Errorf("open: %w", capture.ErrPermissionDenied), CategoryPermissionDenied, "denied"},
		{"busy hardware", capture.ErrDeviceUnavailable, CategoryHardwareBusy, "busy"},
		{"unknown capture", &capture.UnknownCaptureError{Msg: "driver crashed"}, CategoryCameraFailed, "driver crashed"},
		{"decoder missing", scanner.ErrDecoderUnavailable, CategoryDecoderMissing, "not available"},
		{"decoder init", &scanner.DecoderInitError{Err: errors.New("bad readers")}, CategoryDecoderFailed, "bad readers"},
		{"decoder init nil", &scanner.DecoderInitError{}, CategoryDecoderFailed, "failed to start"},
		{"no barcode", decoder.ErrNoBarcode, CategoryNoBarcode, "No barcode"},
		{"duplicate", inventory.ErrDuplicateBarcode, CategoryDuplicateItem, "already exists"},
		{"not found", inventory.ErrNotFound, CategoryNotFound, "not found"},
		{"invalid", fmt.Errorf("%w: name is required", inventory.ErrInvalidItem), CategoryInvalidItem, "name is required"},
		{"in progress", ErrScanInProgress, CategoryBusy, "already in progress"},
		{"sink bound", capture.ErrSinkAlreadyBound, CategoryBusy, "already in progress"},
		{"cancelled", ErrScanCancelled, CategoryCancelled, "cancelled"},
		{"ctx cancelled", context.Canceled, CategoryCancelled, "cancelled"},
		{"timeout", ErrScanTimeout, CategoryTimeout, "timed out"},
		{"other", errors.New("disk on fire"), CategoryInternal, "disk on fire"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.category {
				t.Errorf("Classify() = %q, want %q", got, tt.category)
			}
			msg := Describe(tt.err)
			if tt.contains == "" {
				if msg != "" {
					t.Errorf("Describe() = %q, want empty", msg)
				}
				return
			}
			if !strings.Contains(msg, tt.contains) {
				t.Errorf("Describe() = %q, want it to contain %q", msg, tt.contains)
			}
		})
	}
}
