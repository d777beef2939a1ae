package config

import (
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error

	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return err
	}
	if c.Server.StaticDir, err = expandPath(strings.TrimSpace(c.Server.StaticDir)); err != nil {
		return err
	}
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Server.APITokenHash = strings.TrimSpace(c.Server.APITokenHash)

	c.Camera.Facing = strings.ToLower(strings.TrimSpace(c.Camera.Facing))

	readers := make([]string, 0, len(c.Decoder.Readers))
	for _, r := range c.Decoder.Readers {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			readers = append(readers, r)
		}
	}
	c.Decoder.Readers = readers
	c.Decoder.PatchSize = strings.ToLower(strings.TrimSpace(c.Decoder.PatchSize))

	c.Inventory.Backend = strings.ToLower(strings.TrimSpace(c.Inventory.Backend))
	c.Inventory.Document = strings.TrimSpace(c.Inventory.Document)

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if dsn, ok := os.LookupEnv("SHELFSCAN_DATABASE_DSN"); ok && strings.TrimSpace(dsn) != "" {
		c.Database.DSN = strings.TrimSpace(dsn)
	}
	if c.Database.DSN == "" && c.Database.Driver == DriverSQLite {
		c.Database.DSN = filepath.Join(c.Paths.DataDir, "shelfscan.db")
	}

	c.Documents.Driver = strings.ToLower(strings.TrimSpace(c.Documents.Driver))
	if strings.TrimSpace(c.Documents.Root) == "" {
		c.Documents.Root = filepath.Join(c.Paths.DataDir, "Local")
	}
	if c.Documents.Root, err = expandPath(strings.TrimSpace(c.Documents.Root)); err != nil {
		return err
	}
	if bucket, ok := os.LookupEnv("SHELFSCAN_S3_BUCKET"); ok && strings.TrimSpace(bucket) != "" {
		c.Documents.S3.Bucket = strings.TrimSpace(bucket)
	}

	if strings.TrimSpace(c.Hooks.Dir) == "" {
		c.Hooks.Dir = filepath.Join(c.Paths.DataDir, "hooks")
	}
	if c.Hooks.Dir, err = expandPath(strings.TrimSpace(c.Hooks.Dir)); err != nil {
		return err
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
