// Package docstore keeps named JSON documents for the load/save API. The
// filesystem driver mirrors a "Local" directory; memory and S3 drivers share
// the same contract.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Driver identifies a document backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrInvalidName is returned for names that could escape the store.
	ErrInvalidName = errors.New("docstore: invalid document name")
)

// Document describes a stored document.
type Document struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is a flat namespace of documents.
type Store interface {
	Driver() Driver
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]Document, error)
}

// Config selects and configures a driver.
type Config struct {
	Driver string
	Root   string
	S3     S3Config
}

// Open builds the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(cfg.Driver)))
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown document driver %q", cfg.Driver)
	}
}

// ValidateName rejects empty names, path separators and traversal.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}
	return nil
}
