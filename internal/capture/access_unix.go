//go:build unix

package capture

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// checkAccess classifies why a device node cannot be opened before OpenCV
// swallows the errno.
func checkAccess(path string) error {
	err := unix.Access(path, unix.R_OK|unix.W_OK)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	default:
		return fmt.Errorf("access %s: %w", path, err)
	}
}
