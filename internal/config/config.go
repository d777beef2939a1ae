package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
}

// Server contains HTTP server settings.
type Server struct {
	Addr         string `toml:"addr"`
	StaticDir    string `toml:"static_dir"`
	APITokenHash string `toml:"api_token_hash"`
}

// Camera contains capture constraints.
type Camera struct {
	Facing string `toml:"facing"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	FPS    int    `toml:"fps"`
}

// Decoder contains barcode decoding engine settings.
type Decoder struct {
	Readers   []string `toml:"readers"`
	PatchSize string   `toml:"patch_size"`
	Frequency int      `toml:"frequency"`
	Multiple  bool     `toml:"multiple"`
	Debug     bool     `toml:"debug"`
	// TimeoutSeconds bounds a single scan session; 0 disables the limit.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Inventory selects where inventory records persist.
type Inventory struct {
	Backend  string `toml:"backend"`  // "sql" or "document"
	Document string `toml:"document"` // document name when backend = "document"
}

// Database contains SQL store settings.
type Database struct {
	Driver string `toml:"driver"` // "sqlite" or "pgx"
	DSN    string `toml:"dsn"`
}

// Documents contains settings for the load/save document store.
type Documents struct {
	Driver string `toml:"driver"` // "fs", "memory" or "s3"
	Root   string `toml:"root"`
	S3     S3     `toml:"s3"`
}

// S3 contains S3-compatible bucket settings.
type S3 struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	Prefix    string `toml:"prefix"`
	PathStyle bool   `toml:"path_style"`
}

// Hooks contains hook executable settings.
type Hooks struct {
	Dir       string `toml:"dir"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shelfscan.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Server    Server    `toml:"server"`
	Camera    Camera    `toml:"camera"`
	Decoder   Decoder   `toml:"decoder"`
	Inventory Inventory `toml:"inventory"`
	Database  Database  `toml:"database"`
	Documents Documents `toml:"documents"`
	Hooks     Hooks     `toml:"hooks"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shelfscan/config.toml")
}

// Load locates, parses, and validates a configuration file. It returns the
// config, the resolved path and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelfscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data directory and, for the fs document
// driver, the document root.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir}
	if c.Documents.Driver == DocumentsFS {
		dirs = append(dirs, c.Documents.Root)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the path of the single-instance server lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "shelfscan.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
