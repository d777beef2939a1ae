package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateDecoder(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if c.Hooks.TimeoutMs <= 0 {
		return errors.New("hooks.timeout_ms must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.APITokenHash != "" && !strings.HasPrefix(c.Server.APITokenHash, "$2") {
		return errors.New("server.api_token_hash must be a bcrypt hash (see 'shelfscan config hash-token')")
	}
	return nil
}

func (c *Config) validateCamera() error {
	switch c.Camera.Facing {
	case "environment", "user":
	default:
		return fmt.Errorf("camera.facing must be \"environment\" or \"user\", got %q", c.Camera.Facing)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		return errors.New("camera.width, camera.height and camera.fps must not be negative")
	}
	return nil
}

func (c *Config) validateDecoder() error {
	if len(c.Decoder.Readers) == 0 {
		return errors.New("decoder.readers must list at least one reader")
	}
	switch c.Decoder.PatchSize {
	case "", "x-small", "small", "medium", "large", "x-large":
	default:
		return fmt.Errorf("decoder.patch_size %q is not one of x-small, small, medium, large, x-large", c.Decoder.PatchSize)
	}
	if c.Decoder.Frequency < 0 {
		return errors.New("decoder.frequency must not be negative")
	}
	if c.Decoder.TimeoutSeconds < 0 {
		return errors.New("decoder.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Inventory.Backend {
	case BackendSQL:
		switch c.Database.Driver {
		case DriverSQLite, DriverPgx:
		default:
			return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPgx, c.Database.Driver)
		}
		if c.Database.DSN == "" {
			return errors.New("database.dsn must be set for the pgx driver (or SHELFSCAN_DATABASE_DSN)")
		}
	case BackendDocument:
		if c.Inventory.Document == "" {
			return errors.New("inventory.document must be set when inventory.backend is \"document\"")
		}
	default:
		return fmt.Errorf("inventory.backend must be %q or %q, got %q", BackendSQL, BackendDocument, c.Inventory.Backend)
	}

	switch c.Documents.Driver {
	case DocumentsFS, DocumentsMemory:
	case DocumentsS3:
		if c.Documents.S3.Bucket == "" {
			return errors.New("documents.s3.bucket must be set for the s3 driver (or SHELFSCAN_S3_BUCKET)")
		}
	default:
		return fmt.Errorf("documents.driver must be fs, memory or s3, got %q", c.Documents.Driver)
	}
	return nil
}
